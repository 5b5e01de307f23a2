// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vibration

import (
	"errors"
	"math"
	"sync"
	"time"
)

// State is the measurement session state.
type State string

const (
	StateIdle    State = "idle"
	StateReading State = "reading"
)

var (
	// ErrSensorNotReady means the sample source has not come up; the
	// session refuses to leave Idle until it does.
	ErrSensorNotReady = errors.New("sensor not ready")

	// ErrInvalidExposureTime means the requested Texp was rejected and the
	// previous value kept.
	ErrInvalidExposureTime = errors.New("exposure time must be a positive, finite number of hours")

	// ErrInvalidOffsets means an offset value was not finite; the previous
	// offsets are kept.
	ErrInvalidOffsets = errors.New("offsets must be finite")
)

// Metrics is the snapshot recomputed each tick, published over MQTT and
// served to the web layer. Nothing here survives a power cycle.
type Metrics struct {
	State       State `json:"state"`
	SensorReady bool  `json:"sensor_ready"`

	// Instantaneous, offset-corrected axes from the last tick.
	AccelX float64 `json:"ax"`
	AccelY float64 `json:"ay"`
	AccelZ float64 `json:"az"`

	// Arithmetic means over the current window.
	AvgX        float64 `json:"avg_x"`
	AvgY        float64 `json:"avg_y"`
	AvgZ        float64 `json:"avg_z"`
	SampleCount int     `json:"sample_count"`

	ARE         float64  `json:"are"`
	AREN        float64  `json:"aren"`
	Dy          float64  `json:"dy"`
	DyBreakdown Lifetime `json:"dy_breakdown"`
	Peak        float64  `json:"peak"`
	CrestFactor float64  `json:"crest_factor"`
	VDV         float64  `json:"vdv"`
	DominantHz  float64  `json:"dominant_hz"`

	HAVExceeded bool `json:"hav_exceeded"`
	WBVExceeded bool `json:"wbv_exceeded"`

	Temperature   float64     `json:"temp_c"`
	ExposureHours float64     `json:"exposure_hours"`
	Offsets       Calibration `json:"offsets"`

	// Seconds until the armed countdown auto-stops the session; 0 when no
	// countdown is active.
	CountdownRemaining float64 `json:"countdown_remaining"`
}

// Session owns all mutable measurement state: the calibration offsets, the
// averaging window, the exposure configuration and the countdown. Every
// write comes from the producer's single control loop; the mutex exists so
// the publisher and the serving layer can read a consistent snapshot.
type Session struct {
	mu sync.RWMutex

	cal       Calibration
	window    Window
	dose      DoseAccumulator
	spectrum  *Spectrum
	weighting Weighting

	texpHours float64
	countdown time.Duration // 0 disables the auto stop

	state       State
	sensorReady bool
	deadline    time.Time
	peak        float64

	last Metrics
}

// NewSession creates an Idle session. A non-positive texpHours falls back
// to the 8-hour reference; countdown 0 means measurements run until an
// explicit Stop. spectrum may be nil when no frequency estimate is wanted.
func NewSession(texpHours float64, countdown time.Duration, spectrum *Spectrum) *Session {
	if !(texpHours > 0) || math.IsInf(texpHours, 0) {
		texpHours = ReferenceHours
	}
	s := &Session{
		spectrum:  spectrum,
		weighting: Identity(),
		texpHours: texpHours,
		countdown: countdown,
		state:     StateIdle,
	}
	s.last = Metrics{
		State:         StateIdle,
		ExposureHours: texpHours,
	}
	return s
}

// SetWeighting swaps the frequency-weighting strategy. Identity by
// default.
func (s *Session) SetWeighting(w Weighting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w != nil {
		s.weighting = w
	}
}

// SetSensorReady records whether the sample source is usable. Clearing it
// does not stop an active session; the control loop decides that.
func (s *Session) SetSensorReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensorReady = ready
	s.last.SensorReady = ready
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Start arms a measurement: Idle to Reading, window and dose zeroed, and
// the countdown (when configured) armed from now. Calling Start while
// already Reading is a no-op and does not re-arm the window; use
// ResetAverages for an explicit re-zero. Returns ErrSensorNotReady while
// the sample source is down.
func (s *Session) Start(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReading {
		return nil
	}
	if !s.sensorReady {
		return ErrSensorNotReady
	}
	s.window.Reset()
	s.dose.Reset()
	s.peak = 0
	if s.spectrum != nil {
		s.spectrum.Reset()
	}
	s.state = StateReading
	if s.countdown > 0 {
		s.deadline = now.Add(s.countdown)
	} else {
		s.deadline = time.Time{}
	}
	s.refreshDerivedLocked(now)
	return nil
}

// Stop ends the measurement, keeping the accumulated averages and the last
// computed metrics for display. Stopping twice in a row is a no-op the
// second time.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.state == StateIdle {
		return
	}
	s.state = StateIdle
	s.deadline = time.Time{}
	s.last.State = StateIdle
	s.last.CountdownRemaining = 0
}

// Tick folds one raw sample into the window and recomputes the snapshot.
// Called once per poll iteration; ticks arriving while Idle are ignored.
// When the armed countdown has expired the session stops itself after
// folding this sample.
func (s *Session) Tick(now time.Time, raw Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReading {
		return
	}

	sm := s.cal.Apply(raw)
	sm.X = s.weighting.Apply(sm.X, Wh)
	sm.Y = s.weighting.Apply(sm.Y, Wh)
	sm.Z = s.weighting.Apply(sm.Z, Wh)

	s.window.Fold(sm)
	for _, v := range [3]float64{sm.X, sm.Y, sm.Z} {
		if a := math.Abs(v); a > s.peak {
			s.peak = a
		}
	}

	res := Resultant(sm.X, sm.Y, sm.Z)
	// Reference 0: the offsets were already removed by Apply. The second
	// argument stays in the signature for the weighted-baseline VDV.
	s.dose.Add(res, 0)
	if s.spectrum != nil {
		s.spectrum.Push(res)
	}

	s.last.AccelX = sm.X
	s.last.AccelY = sm.Y
	s.last.AccelZ = sm.Z
	s.last.Temperature = sm.Temperature
	s.refreshDerivedLocked(now)

	if !s.deadline.IsZero() && !now.Before(s.deadline) {
		s.stopLocked()
	}
}

// CheckCountdown enforces the armed countdown without folding a sample.
// The control loop calls it on poll iterations that produced no data (a
// dead or missing sensor), so an expired measurement still stops on time
// instead of staying Reading forever.
func (s *Session) CheckCountdown(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReading || s.deadline.IsZero() {
		return
	}
	s.refreshDerivedLocked(now)
	if !now.Before(s.deadline) {
		s.stopLocked()
	}
}

// refreshDerivedLocked rebuilds every derived field of the snapshot from
// the window, the peak and the configuration. Must hold mu.
func (s *Session) refreshDerivedLocked(now time.Time) {
	ax, ay, az, ok := s.window.Averages()

	are := 0.0
	if ok {
		are = Resultant(ax, ay, az)
	}
	aren := Normalize(are, s.texpHours)
	dy := BlanchingOnsetYears(aren)
	comp := Evaluate(aren)

	s.last.State = s.state
	s.last.SensorReady = s.sensorReady
	s.last.AvgX = ax
	s.last.AvgY = ay
	s.last.AvgZ = az
	s.last.SampleCount = s.window.Count
	s.last.ARE = are
	s.last.AREN = aren
	s.last.Dy = dy
	s.last.DyBreakdown = CalendarBreakdown(dy)
	s.last.Peak = s.peak
	s.last.CrestFactor = CrestFactor(s.peak, are)
	s.last.VDV = s.dose.Total()
	s.last.HAVExceeded = comp.HAV
	s.last.WBVExceeded = comp.WBV
	s.last.ExposureHours = s.texpHours
	s.last.Offsets = s.cal

	if s.spectrum != nil {
		if hz, ready := s.spectrum.DominantHz(); ready {
			s.last.DominantHz = hz
		}
	}

	switch {
	case s.deadline.IsZero():
		s.last.CountdownRemaining = 0
	case now.IsZero():
		// Config changes pass no clock; keep the last remaining value.
	default:
		remaining := s.deadline.Sub(now).Seconds()
		if remaining < 0 {
			remaining = 0
		}
		s.last.CountdownRemaining = remaining
	}
}

// ResetAverages zeroes the window, the dose total and the peak without
// changing the session state. This is the user-triggered "zero" request.
func (s *Session) ResetAverages(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window.Reset()
	s.dose.Reset()
	s.peak = 0
	s.refreshDerivedLocked(now)
}

// SetExposureTime replaces Texp. Non-finite or non-positive hours are
// rejected and the previous value kept.
func (s *Session) SetExposureTime(hours float64) error {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return ErrInvalidExposureTime
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texpHours = hours
	s.refreshDerivedLocked(time.Time{})
	return nil
}

// SetOffsets replaces all three offsets (in g) in one step. Non-finite
// values are rejected and the previous offsets kept. Applies to samples
// folded in after this call; already-accumulated sums are untouched.
func (s *Session) SetOffsets(x, y, z float64) error {
	for _, v := range [3]float64{x, y, z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidOffsets
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cal = Calibration{OffsetX: x, OffsetY: y, OffsetZ: z}
	s.last.Offsets = s.cal
	return nil
}

// Snapshot returns the current metrics by value. Safe to call from any
// goroutine.
func (s *Session) Snapshot() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
