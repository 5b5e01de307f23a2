package vibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpectrumNotReadyWhileFilling(t *testing.T) {
	sp := NewSpectrum(64, 32)
	for i := 0; i < 63; i++ {
		sp.Push(1.0)
		_, ok := sp.DominantHz()
		assert.False(t, ok, "ready before the window completed, at %d", i)
	}
	sp.Push(1.0)
	_, ok := sp.DominantHz()
	assert.True(t, ok)
}

func TestSpectrumFindsSineFrequency(t *testing.T) {
	const (
		size   = 64
		rateHz = 32.0
		toneHz = 4.0 // bin 8 of 64 at 32 Hz, exactly on-bin
	)
	sp := NewSpectrum(size, rateHz)
	for i := 0; i < size; i++ {
		tsec := float64(i) / rateHz
		// DC offset mimics the gravity component riding on the resultant;
		// the mean removal must keep it out of the peak search.
		sp.Push(9.81 + 2.0*math.Sin(2*math.Pi*toneHz*tsec))
	}

	hz, ok := sp.DominantHz()
	assert.True(t, ok)
	assert.InDelta(t, toneHz, hz, 1e-9)
}

func TestSpectrumEstimateSurvivesRefill(t *testing.T) {
	sp := NewSpectrum(32, 16)
	for i := 0; i < 32; i++ {
		tsec := float64(i) / 16.0
		sp.Push(math.Sin(2 * math.Pi * 2.0 * tsec))
	}
	hz, ok := sp.DominantHz()
	assert.True(t, ok)
	assert.InDelta(t, 2.0, hz, 1e-9)

	// Pushing into the next window keeps serving the last estimate.
	sp.Push(0)
	got, ok := sp.DominantHz()
	assert.True(t, ok)
	assert.Equal(t, hz, got)
}

func TestSpectrumReset(t *testing.T) {
	sp := NewSpectrum(16, 8)
	for i := 0; i < 16; i++ {
		sp.Push(float64(i % 2))
	}
	_, ok := sp.DominantHz()
	assert.True(t, ok)

	sp.Reset()
	hz, ok := sp.DominantHz()
	assert.False(t, ok)
	assert.Zero(t, hz)
}

func TestNewSpectrumDefaults(t *testing.T) {
	sp := NewSpectrum(0, 0)
	assert.Len(t, sp.buf, 128)
	assert.Equal(t, 10.0, sp.rateHz)
}
