// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vibration

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionEpoch = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

func readySession(t *testing.T, countdown time.Duration) *Session {
	t.Helper()
	s := NewSession(ReferenceHours, countdown, nil)
	s.SetSensorReady(true)
	return s
}

func TestSessionStartRequiresSensor(t *testing.T) {
	s := NewSession(ReferenceHours, 0, nil)
	err := s.Start(sessionEpoch)
	assert.ErrorIs(t, err, ErrSensorNotReady)
	assert.Equal(t, StateIdle, s.State())

	s.SetSensorReady(true)
	require.NoError(t, s.Start(sessionEpoch))
	assert.Equal(t, StateReading, s.State())
}

func TestSessionStartZeroesAccumulators(t *testing.T) {
	s := readySession(t, 0)
	require.NoError(t, s.Start(sessionEpoch))
	s.Tick(sessionEpoch.Add(time.Second), Sample{X: 3, Y: 4})
	s.Stop()

	require.NoError(t, s.Start(sessionEpoch.Add(time.Minute)))
	m := s.Snapshot()
	assert.Zero(t, m.SampleCount)
	assert.Zero(t, m.ARE)
	assert.Zero(t, m.Peak)
	assert.Zero(t, m.VDV)
}

func TestSessionStartWhileReadingIsNoOp(t *testing.T) {
	s := readySession(t, 0)
	require.NoError(t, s.Start(sessionEpoch))
	s.Tick(sessionEpoch.Add(time.Second), Sample{X: 1})
	s.Tick(sessionEpoch.Add(2*time.Second), Sample{X: 1})

	// A second Start must not restart or zero the running window.
	require.NoError(t, s.Start(sessionEpoch.Add(3*time.Second)))
	assert.Equal(t, StateReading, s.State())
	assert.Equal(t, 2, s.Snapshot().SampleCount)
}

func TestSessionStopIsIdempotent(t *testing.T) {
	s := readySession(t, 0)
	require.NoError(t, s.Start(sessionEpoch))
	s.Tick(sessionEpoch.Add(time.Second), Sample{X: 2})

	s.Stop()
	assert.Equal(t, StateIdle, s.State())
	are := s.Snapshot().ARE

	s.Stop()
	assert.Equal(t, StateIdle, s.State())
	// The last metrics survive the stop for display.
	assert.Equal(t, are, s.Snapshot().ARE)
}

func TestSessionTicksIgnoredWhileIdle(t *testing.T) {
	s := readySession(t, 0)
	s.Tick(sessionEpoch, Sample{X: 5})
	assert.Zero(t, s.Snapshot().SampleCount)
}

func TestSessionCountdownAutoStop(t *testing.T) {
	s := readySession(t, 30*time.Second)
	require.NoError(t, s.Start(sessionEpoch))
	assert.InDelta(t, 30.0, s.Snapshot().CountdownRemaining, 1e-9)

	// Tick at 1 Hz. The session must survive up to but not past the
	// 30-second deadline.
	for i := 1; i <= 29; i++ {
		s.Tick(sessionEpoch.Add(time.Duration(i)*time.Second), Sample{X: 1})
		assert.Equal(t, StateReading, s.State(), "stopped early at tick %d", i)
	}
	m := s.Snapshot()
	assert.InDelta(t, 1.0, m.CountdownRemaining, 1e-9)
	assert.Equal(t, 29, m.SampleCount)

	// The tick at the deadline is still folded in, then the session stops.
	s.Tick(sessionEpoch.Add(30*time.Second), Sample{X: 1})
	m = s.Snapshot()
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 30, m.SampleCount)
	assert.Zero(t, m.CountdownRemaining)
}

func TestSessionCountdownExpiresWithoutSamples(t *testing.T) {
	// A dead sensor stops delivering ticks; the countdown must still end
	// the measurement instead of leaving it Reading forever.
	s := readySession(t, 10*time.Second)
	require.NoError(t, s.Start(sessionEpoch))
	s.Tick(sessionEpoch.Add(time.Second), Sample{X: 1})

	s.CheckCountdown(sessionEpoch.Add(5 * time.Second))
	assert.Equal(t, StateReading, s.State())
	assert.InDelta(t, 5.0, s.Snapshot().CountdownRemaining, 1e-9)

	s.CheckCountdown(sessionEpoch.Add(11 * time.Second))
	m := s.Snapshot()
	assert.Equal(t, StateIdle, s.State())
	assert.Zero(t, m.CountdownRemaining)
	// The sample folded in before the sensor died is still there.
	assert.Equal(t, 1, m.SampleCount)
}

func TestSessionCheckCountdownNoOpWhenUnarmed(t *testing.T) {
	s := readySession(t, 0)
	require.NoError(t, s.Start(sessionEpoch))

	s.CheckCountdown(sessionEpoch.Add(time.Hour))
	assert.Equal(t, StateReading, s.State())
}

func TestSessionCountdownZeroRunsUntilStopped(t *testing.T) {
	s := readySession(t, 0)
	require.NoError(t, s.Start(sessionEpoch))

	s.Tick(sessionEpoch.Add(time.Hour), Sample{X: 1})
	assert.Equal(t, StateReading, s.State())
	assert.Zero(t, s.Snapshot().CountdownRemaining)
}

func TestSessionOffsetsAppliedInG(t *testing.T) {
	s := readySession(t, 0)
	require.NoError(t, s.SetOffsets(0, 0, 1.0)) // 1 g on Z
	require.NoError(t, s.Start(sessionEpoch))

	// A device at rest reads gravity on Z; after the 1 g offset the
	// corrected axis is quiet.
	s.Tick(sessionEpoch.Add(time.Second), Sample{Z: Gravity})
	m := s.Snapshot()
	assert.InDelta(t, 0, m.AccelZ, 1e-9)
	assert.InDelta(t, 0, m.ARE, 1e-9)
}

func TestSessionSetOffsetsRejectsNonFinite(t *testing.T) {
	s := readySession(t, 0)
	require.NoError(t, s.SetOffsets(0.1, -0.2, 0.05))

	for _, bad := range [][3]float64{
		{math.NaN(), 0, 0},
		{0, math.Inf(1), 0},
		{0, 0, math.Inf(-1)},
	} {
		err := s.SetOffsets(bad[0], bad[1], bad[2])
		assert.ErrorIs(t, err, ErrInvalidOffsets)
	}

	// The previous offsets survive every rejection.
	m := s.Snapshot()
	assert.Equal(t, Calibration{OffsetX: 0.1, OffsetY: -0.2, OffsetZ: 0.05}, m.Offsets)
}

func TestSessionSetExposureTime(t *testing.T) {
	s := readySession(t, 0)
	require.NoError(t, s.Start(sessionEpoch))
	s.Tick(sessionEpoch.Add(time.Second), Sample{X: 4})

	require.NoError(t, s.SetExposureTime(2.0))
	m := s.Snapshot()
	assert.Equal(t, 2.0, m.ExposureHours)
	// AREN rescales immediately: 4 * sqrt(2/8) = 2.
	assert.InDelta(t, 2.0, m.AREN, 1e-9)

	for _, bad := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		err := s.SetExposureTime(bad)
		assert.ErrorIs(t, err, ErrInvalidExposureTime)
	}
	assert.Equal(t, 2.0, s.Snapshot().ExposureHours)
}

func TestSessionDerivedMetrics(t *testing.T) {
	s := readySession(t, 0)
	require.NoError(t, s.Start(sessionEpoch))

	s.Tick(sessionEpoch.Add(time.Second), Sample{X: 3, Y: 4})
	s.Tick(sessionEpoch.Add(2*time.Second), Sample{X: 3, Y: 4})

	m := s.Snapshot()
	assert.InDelta(t, 5.0, m.ARE, 1e-9)
	// Texp is the 8-hour reference, so AREN == ARE.
	assert.InDelta(t, 5.0, m.AREN, 1e-9)
	assert.Equal(t, 2, m.SampleCount)
	// Peak is the largest single-axis magnitude seen.
	assert.InDelta(t, 4.0, m.Peak, 1e-9)
	assert.InDelta(t, 4.0/5.0, m.CrestFactor, 1e-9)
	assert.InDelta(t, BlanchingOnsetYears(5.0), m.Dy, 1e-9)
	assert.False(t, m.HAVExceeded)
	assert.True(t, m.WBVExceeded)
}

func TestSessionResetAverages(t *testing.T) {
	s := readySession(t, 0)
	require.NoError(t, s.Start(sessionEpoch))
	s.Tick(sessionEpoch.Add(time.Second), Sample{X: 7})

	s.ResetAverages(sessionEpoch.Add(2 * time.Second))
	m := s.Snapshot()
	assert.Equal(t, StateReading, m.State)
	assert.Zero(t, m.SampleCount)
	assert.Zero(t, m.ARE)
	assert.Zero(t, m.Peak)
	assert.Zero(t, m.VDV)
}

func TestIdentityWeighting(t *testing.T) {
	w := Identity()
	for _, f := range []Filter{Wb, Wh, Wm} {
		assert.Equal(t, 1.75, w.Apply(1.75, f))
	}
	assert.Equal(t, "Wh", Wh.String())
	assert.Equal(t, "W?", Filter(42).String())
}
