package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/vibration_computer/internal/config"
	"github.com/relabs-tech/vibration_computer/internal/vibration"
)

var commandEpoch = time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

func newReadySession() *vibration.Session {
	s := vibration.NewSession(vibration.ReferenceHours, 0, nil)
	s.SetSensorReady(true)
	return s
}

func TestApplyCommandStartStop(t *testing.T) {
	s := newReadySession()

	applyCommand(s, Command{Action: CommandStart}, commandEpoch)
	assert.Equal(t, vibration.StateReading, s.State())

	applyCommand(s, Command{Action: CommandStop}, commandEpoch.Add(time.Second))
	assert.Equal(t, vibration.StateIdle, s.State())
}

func TestApplyCommandStartWithoutSensor(t *testing.T) {
	s := vibration.NewSession(vibration.ReferenceHours, 0, nil)

	// Rejection is logged, not fatal; the session stays idle.
	applyCommand(s, Command{Action: CommandStart}, commandEpoch)
	assert.Equal(t, vibration.StateIdle, s.State())
}

func TestApplyCommandReset(t *testing.T) {
	s := newReadySession()
	applyCommand(s, Command{Action: CommandStart}, commandEpoch)
	s.Tick(commandEpoch.Add(time.Second), vibration.Sample{X: 2})

	applyCommand(s, Command{Action: CommandReset}, commandEpoch.Add(2*time.Second))
	m := s.Snapshot()
	assert.Equal(t, vibration.StateReading, m.State)
	assert.Zero(t, m.SampleCount)
}

func TestApplyCommandConfiguration(t *testing.T) {
	s := newReadySession()

	applyCommand(s, Command{Action: CommandSetExposureTime, Hours: 4}, commandEpoch)
	assert.Equal(t, 4.0, s.Snapshot().ExposureHours)

	// An invalid value is rejected and the previous one kept.
	applyCommand(s, Command{Action: CommandSetExposureTime, Hours: -1}, commandEpoch)
	assert.Equal(t, 4.0, s.Snapshot().ExposureHours)

	applyCommand(s, Command{Action: CommandSetOffsets, OffsetX: 0.02, OffsetY: -0.01, OffsetZ: 0.98}, commandEpoch)
	assert.Equal(t, vibration.Calibration{OffsetX: 0.02, OffsetY: -0.01, OffsetZ: 0.98}, s.Snapshot().Offsets)
}

func TestApplyCommandUnknownActionIsIgnored(t *testing.T) {
	s := newReadySession()
	applyCommand(s, Command{Action: "selfdestruct"}, commandEpoch)
	assert.Equal(t, vibration.StateIdle, s.State())
}

func TestAlertTag(t *testing.T) {
	assert.Equal(t, "HAV!", alertTag(true, "HAV!"))
	assert.Equal(t, "", alertTag(false, "HAV!"))
}

func TestCaptureIntervalFollowsPollCadence(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, captureInterval(&config.Config{SampleInterval: 250}))
	assert.Equal(t, 10*time.Millisecond, captureInterval(&config.Config{SampleInterval: 10}))
	// Unconfigured or missing config falls back to the old cadence.
	assert.Equal(t, 100*time.Millisecond, captureInterval(&config.Config{}))
	assert.Equal(t, 100*time.Millisecond, captureInterval(nil))
}

func TestCaptureStats(t *testing.T) {
	data := [][3]float64{
		{1, 10, -1},
		{2, 10, -1},
		{3, 10, -1},
	}
	assert.InDelta(t, 2.0, mean(data, 0), 1e-12)
	assert.InDelta(t, 10.0, mean(data, 1), 1e-12)
	assert.InDelta(t, -1.0, mean(data, 2), 1e-12)

	// Constant axes have zero spread.
	assert.Zero(t, stddev(data, 1))
	assert.Greater(t, stddev(data, 0), 0.0)
	assert.Zero(t, stddev(nil, 0))
}
