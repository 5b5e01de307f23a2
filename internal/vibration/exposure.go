// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vibration

import "math"

// ReferenceHours is T0, the fixed reference exposure duration used by the
// AREN normalization.
const ReferenceHours = 8.0

// Finger-blanching onset curve Dy = 31.8 * AREN^-1.06, fixed values from
// the regulatory table.
const (
	blanchingCoeff    = 31.8
	blanchingExponent = -1.06
)

// Resultant returns the vector magnitude sqrt(x² + y² + z²). Fed with
// averaged axes it produces the per-window ARE; fed with an instantaneous
// sample it gives the live magnitude.
func Resultant(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}

// Normalize time-scales a resultant acceleration to the reference exposure
// duration: AREN = ARE * sqrt(Texp/T0). This is the single canonical form;
// the divide-by-ratio variants seen in older worksheets are wrong and must
// not come back. Returns 0 when texpHours is not positive.
func Normalize(are, texpHours float64) float64 {
	if texpHours <= 0 {
		return 0
	}
	return are * math.Sqrt(texpHours/ReferenceHours)
}

// BlanchingOnsetYears estimates the years of exposure until onset of
// vibration-induced finger blanching. Returns 0 ("not available") when
// aren is not positive; the curve is undefined there.
func BlanchingOnsetYears(aren float64) float64 {
	if aren <= 0 {
		return 0
	}
	return blanchingCoeff * math.Pow(aren, blanchingExponent)
}

// CrestFactor is the peak single-axis magnitude over ARE, 0 when the
// denominator is not positive.
func CrestFactor(peak, are float64) float64 {
	if are <= 0 {
		return 0
	}
	return peak / are
}

// Lifetime is a Dy value decomposed with 365-day years and 30-day months.
// Deliberately not calendar accurate; this matches the printed exposure
// reports.
type Lifetime struct {
	Years  int `json:"years"`
	Months int `json:"months"`
	Days   int `json:"days"`
}

// CalendarBreakdown splits dy (in days) into the report's
// years/months/days form.
func CalendarBreakdown(dy float64) Lifetime {
	if dy <= 0 {
		return Lifetime{}
	}
	years := math.Floor(dy / 365)
	rem := dy - years*365
	months := math.Floor(rem / 30)
	days := math.Round(rem - months*30)
	return Lifetime{
		Years:  int(years),
		Months: int(months),
		Days:   int(days),
	}
}

// DoseAccumulator keeps the running vibration dose total. A real VDV needs
// fourth-power time integration of the weighted signal; until the
// weighting filters exist this stays a plain running sum of
// (value - reference), preserving the interface as the extension point.
type DoseAccumulator struct {
	total float64
}

// Add folds one instantaneous value against the running reference.
func (d *DoseAccumulator) Add(value, reference float64) {
	d.total += value - reference
}

// Total returns the accumulated dose.
func (d *DoseAccumulator) Total() float64 {
	return d.total
}

// Reset zeroes the accumulator.
func (d *DoseAccumulator) Reset() {
	d.total = 0
}
