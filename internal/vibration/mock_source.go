// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vibration

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
}

// NewMockSource creates a simulated vibration source: a 25 Hz tool hum on
// X, slow sway on Y, gravity plus drift on Z. Useful for the console and
// web development without hardware.
func NewMockSource() Source {
	return &mockSource{start: time.Now()}
}

func (m *mockSource) Next() (Sample, error) {
	t := time.Since(m.start).Seconds()

	return Sample{
		X:           3.5 * math.Sin(2*math.Pi*25*t),
		Y:           0.4 * math.Sin(2*math.Pi*0.3*t),
		Z:           Gravity + 0.2*math.Cos(2*math.Pi*0.1*t),
		Temperature: 24.0,
		Timestamp:   time.Now(),
	}, nil
}
