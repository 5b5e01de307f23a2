package vibration

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrationApply(t *testing.T) {
	c := Calibration{OffsetX: 0.1, OffsetY: -0.05, OffsetZ: 1.0}
	ts := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	out := c.Apply(Sample{X: 2.0, Y: 0.5, Z: Gravity, Temperature: 21.5, Timestamp: ts})

	assert.InDelta(t, 2.0-0.1*Gravity, out.X, 1e-12)
	assert.InDelta(t, 0.5+0.05*Gravity, out.Y, 1e-12)
	assert.InDelta(t, 0, out.Z, 1e-12)
	// Non-acceleration channels pass through.
	assert.Equal(t, 21.5, out.Temperature)
	assert.Equal(t, ts, out.Timestamp)
}

func TestZeroCalibrationIsIdentity(t *testing.T) {
	var c Calibration
	in := Sample{X: 1.1, Y: 2.2, Z: 3.3}
	assert.Equal(t, in, c.Apply(in))
}

func TestMockSourceShape(t *testing.T) {
	src := NewMockSource()
	s, err := src.Next()
	require.NoError(t, err)

	// Z rides on gravity, the simulated hum stays within its amplitudes.
	assert.InDelta(t, Gravity, s.Z, 0.25)
	assert.LessOrEqual(t, math.Abs(s.X), 3.5)
	assert.LessOrEqual(t, math.Abs(s.Y), 0.4)
	assert.Equal(t, 24.0, s.Temperature)
	assert.False(t, s.Timestamp.IsZero())
}
