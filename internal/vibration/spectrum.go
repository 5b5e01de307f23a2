package vibration

import "math"

// Spectrum estimates the dominant vibration frequency from a fixed-size
// window of resultant magnitudes. The buffer fills one sample per Push so
// a capture never occupies more than one control-loop iteration; when the
// window completes, a DFT magnitude-peak search runs once and the buffer
// starts refilling.
type Spectrum struct {
	buf        []float64
	fill       int
	rateHz     float64
	dominantHz float64
	ready      bool
}

// NewSpectrum creates an analyzer over size samples taken at rateHz.
func NewSpectrum(size int, rateHz float64) *Spectrum {
	if size <= 0 {
		size = 128
	}
	if rateHz <= 0 {
		rateHz = 10
	}
	return &Spectrum{
		buf:    make([]float64, size),
		rateHz: rateHz,
	}
}

// Push adds one magnitude to the window. The Push that completes the
// window triggers the peak search and resets the fill counter.
func (sp *Spectrum) Push(mag float64) {
	sp.buf[sp.fill] = mag
	sp.fill++
	if sp.fill == len(sp.buf) {
		sp.dominantHz = dominantFrequency(sp.buf, sp.rateHz)
		sp.ready = true
		sp.fill = 0
	}
}

// DominantHz returns the estimate from the last completed window. ok is
// false while the first window is still filling.
func (sp *Spectrum) DominantHz() (hz float64, ok bool) {
	return sp.dominantHz, sp.ready
}

// Reset discards the partial fill and the last estimate.
func (sp *Spectrum) Reset() {
	sp.fill = 0
	sp.dominantHz = 0
	sp.ready = false
}

// dominantFrequency runs a direct DFT over the window and returns the
// frequency of the strongest non-DC bin. O(n²), but n is small and it runs
// once per full window, outside the per-sample path.
func dominantFrequency(window []float64, rateHz float64) float64 {
	n := len(window)

	// Remove the mean first so DC leakage does not mask the peak.
	var mean float64
	for _, v := range window {
		mean += v
	}
	mean /= float64(n)

	bestBin := 0
	bestMag := 0.0
	for k := 1; k <= n/2; k++ {
		var re, im float64
		for i, v := range window {
			phase := 2 * math.Pi * float64(k) * float64(i) / float64(n)
			re += (v - mean) * math.Cos(phase)
			im -= (v - mean) * math.Sin(phase)
		}
		mag := re*re + im*im
		if mag > bestMag {
			bestBin = k
			bestMag = mag
		}
	}
	return float64(bestBin) * rateHz / float64(n)
}
