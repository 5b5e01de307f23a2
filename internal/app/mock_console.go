// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	"github.com/relabs-tech/vibration_computer/internal/vibration"
)

// RunMockConsole runs the whole exposure engine against the simulated
// vibration source and prints the snapshot each tick. No hardware and no
// broker needed; handy for checking the formulas on a laptop.
func RunMockConsole() error {
	src := vibration.NewMockSource()
	session := vibration.NewSession(vibration.ReferenceHours, 0, vibration.NewSpectrum(128, 10))
	session.SetSensorReady(true)

	if err := session.Start(time.Now()); err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for t := range ticker.C {
		sample, err := src.Next()
		if err != nil {
			return err
		}
		session.Tick(t, sample)

		m := session.Snapshot()
		fmt.Printf(
			"ARE=%6.3f  AREN=%6.3f  Dy=%6.1f  crest=%5.2f  dom=%5.1fHz  hav=%v wbv=%v\n",
			m.ARE, m.AREN, m.Dy, m.CrestFactor, m.DominantHz, m.HAVExceeded, m.WBVExceeded,
		)
	}
	return nil
}
