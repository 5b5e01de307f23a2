package vibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowEmptyHasNoAverages(t *testing.T) {
	var w Window
	x, y, z, ok := w.Averages()
	assert.False(t, ok)
	assert.Zero(t, x)
	assert.Zero(t, y)
	assert.Zero(t, z)
}

func TestWindowFoldAndAverage(t *testing.T) {
	var w Window
	w.Fold(Sample{X: 1})
	w.Fold(Sample{Y: 1})
	w.Fold(Sample{Z: 1})

	x, y, z, ok := w.Averages()
	assert.True(t, ok)
	assert.InDelta(t, 1.0/3.0, x, 1e-12)
	assert.InDelta(t, 1.0/3.0, y, 1e-12)
	assert.InDelta(t, 1.0/3.0, z, 1e-12)
	assert.Equal(t, 3, w.Count)

	// ARE from those averages: sqrt(3 * (1/3)²) = 1/sqrt(3).
	assert.InDelta(t, 0.5773502691896258, Resultant(x, y, z), 1e-12)
}

func TestWindowReset(t *testing.T) {
	var w Window
	w.Fold(Sample{X: 4, Y: 5, Z: 6})
	w.Reset()

	assert.Zero(t, w.Count)
	_, _, _, ok := w.Averages()
	assert.False(t, ok)
}

func TestWindowLongRunStability(t *testing.T) {
	// A constant signal folded in a million times must average back to
	// itself without drift.
	var w Window
	for i := 0; i < 1_000_000; i++ {
		w.Fold(Sample{X: 1.25, Y: -0.5, Z: 9.81})
	}
	x, y, z, ok := w.Averages()
	assert.True(t, ok)
	assert.InDelta(t, 1.25, x, 1e-9)
	assert.InDelta(t, -0.5, y, 1e-9)
	assert.InDelta(t, 9.81, z, 1e-9)
}
