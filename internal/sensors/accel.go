// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/vibration_computer/internal/config"
	"github.com/relabs-tech/vibration_computer/internal/vibration"
)

// Counts per g for the four MPU-9250 accelerometer ranges (±2/4/8/16 g).
var countsPerG = [4]float64{16384, 8192, 4096, 2048}

type accelSource struct {
	imu *mpu9250.MPU9250
	// m/s² per LSB for the configured range
	scale float64
}

// NewAccelSource initializes the MPU-9250 over SPI and returns a sample
// source producing offset-uncorrected accelerations in m/s². Init failure
// is not fatal for the caller: the control loop keeps running with the
// sensor flagged not ready and retries on a later poll.
func NewAccelSource() (vibration.Source, error) {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("accel: periph host init: %w", err)
	}

	cs := gpioreg.ByName(cfg.AccelCSPin)
	if cs == nil {
		return nil, fmt.Errorf("accel: CS pin %q not found", cfg.AccelCSPin)
	}

	tr, err := mpu9250.NewSpiTransport(cfg.AccelSPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("accel: SPI transport (%s): %w", cfg.AccelSPIDevice, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("accel: device creation: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("accel: initialization: %w", err)
	}

	if err := imu.SetAccelRange(cfg.AccelRange); err != nil {
		return nil, fmt.Errorf("accel: set range: %w", err)
	}
	log.Printf("accel: range set to %d (±%dg)", cfg.AccelRange, []int{2, 4, 8, 16}[cfg.AccelRange])

	// Self-test and bias calibration are advisory; a failed self-test on a
	// cold sensor is common and the exposure offsets handle residual bias.
	if _, err := imu.SelfTest(); err != nil {
		log.Printf("Warning: accel self-test failed: %v", err)
	}
	if err := imu.Calibrate(); err != nil {
		log.Printf("Warning: accel calibration failed: %v", err)
	}

	return &accelSource{
		imu:   imu,
		scale: vibration.Gravity / countsPerG[cfg.AccelRange],
	}, nil
}

// Next reads one tri-axis sample and converts raw counts to m/s². The
// temperature channel is filled by the caller from the environment sensor.
func (s *accelSource) Next() (vibration.Sample, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return vibration.Sample{}, fmt.Errorf("accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return vibration.Sample{}, fmt.Errorf("accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return vibration.Sample{}, fmt.Errorf("accel Z: %w", err)
	}

	return vibration.Sample{
		X:         float64(ax) * s.scale,
		Y:         float64(ay) * s.scale,
		Z:         float64(az) * s.scale,
		Timestamp: time.Now(),
	}, nil
}
