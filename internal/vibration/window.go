package vibration

// Window is the running per-axis sum of samples folded in since the last
// reset. Count is exactly the number of Fold calls since Reset; averages
// exist only when Count > 0.
type Window struct {
	SumX  float64
	SumY  float64
	SumZ  float64
	Count int
}

// Fold adds one sample's axis values to the running sums.
func (w *Window) Fold(s Sample) {
	w.SumX += s.X
	w.SumY += s.Y
	w.SumZ += s.Z
	w.Count++
}

// Averages returns the arithmetic-mean acceleration per axis. ok is false
// when nothing has been folded in since the last reset; the zeros returned
// in that case are not data.
func (w *Window) Averages() (x, y, z float64, ok bool) {
	if w.Count == 0 {
		return 0, 0, 0, false
	}
	n := float64(w.Count)
	return w.SumX / n, w.SumY / n, w.SumZ / n, true
}

// Reset zeroes the sums and the count. Called once at session start and on
// an explicit zero request, never implicitly mid-window.
func (w *Window) Reset() {
	w.SumX = 0
	w.SumY = 0
	w.SumZ = 0
	w.Count = 0
}
