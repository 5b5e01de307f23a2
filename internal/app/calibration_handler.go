// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/vibration_computer/internal/config"
	"github.com/relabs-tech/vibration_computer/internal/vibration"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// offsetCaptureSamples is how many live snapshots the capture averages,
// one per producer poll.
const offsetCaptureSamples = 50

// captureInterval matches the capture cadence to the producer's poll, so
// every snapshot averaged is a fresh reading rather than a re-read of the
// same retained message.
func captureInterval(cfg *config.Config) time.Duration {
	if cfg != nil && cfg.SampleInterval > 0 {
		return time.Duration(cfg.SampleInterval) * time.Millisecond
	}
	return 100 * time.Millisecond
}

// CaptureResult is the offset-capture report written next to the binary
// and sent to the browser.
type CaptureResult struct {
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	// New offsets in g, already including the previously active ones.
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	OffsetZ float64 `json:"offset_z"`

	// Spread of the capture window, m/s², averaged over the axes.
	AvgStdDev  float64 `json:"avg_stddev"`
	Confidence float64 `json:"confidence"`

	SampleCount int `json:"sample_count"`
}

// WebSocket message types
type wsCaptureMessage struct {
	Action string `json:"action"` // begin, cancel
}

type wsCaptureResponse struct {
	Type     string                 `json:"type"` // phase, progress, stats, complete, error
	Phase    string                 `json:"phase,omitempty"`
	Progress float64                `json:"progress,omitempty"`
	Stats    map[string]interface{} `json:"stats,omitempty"`
	Results  interface{}            `json:"results,omitempty"`
	Message  string                 `json:"message,omitempty"`
}

// HandleOffsetCaptureWS runs the guided offset capture: the operator holds
// the tool still, the handler starts a measurement, averages the
// instantaneous axes from the live metrics, folds the mean into the active
// offsets (in g) and publishes the result as a set-offsets command.
func HandleOffsetCaptureWS(w http.ResponseWriter, r *http.Request, latest func() (vibration.Metrics, bool), publish func(Command) error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("capture: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	for {
		var msg wsCaptureMessage
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("capture: websocket read error: %v", err)
			return
		}

		switch msg.Action {
		case "begin":
			if err := runOffsetCapture(conn, latest, publish); err != nil {
				sendCaptureError(conn, err.Error())
			}

		case "cancel":
			log.Printf("capture: cancelled by user")
			return
		}
	}
}

func runOffsetCapture(conn *websocket.Conn, latest func() (vibration.Metrics, bool), publish func(Command) error) error {
	sendCapturePhase(conn, "capture")

	m, ok := latest()
	if !ok {
		return fmt.Errorf("no metrics from the producer yet")
	}
	if !m.SensorReady {
		return fmt.Errorf("sensor not ready")
	}
	oldOffsets := m.Offsets

	// The producer polls only while Reading, so arm a measurement for the
	// duration of the capture.
	if err := publish(Command{Action: CommandStart}); err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	defer func() {
		if err := publish(Command{Action: CommandStop}); err != nil {
			log.Printf("capture: stop command: %v", err)
		}
	}()

	time.Sleep(1 * time.Second) // Give the operator time to settle

	wait := captureInterval(config.Get())
	samples := make([][3]float64, 0, offsetCaptureSamples)
	for i := 0; i < offsetCaptureSamples; i++ {
		m, ok := latest()
		if !ok {
			return fmt.Errorf("metrics stream went away")
		}
		samples = append(samples, [3]float64{m.AccelX, m.AccelY, m.AccelZ})
		sendCaptureProgress(conn, float64(i+1)*100.0/offsetCaptureSamples)
		time.Sleep(wait)
	}

	meanX := mean(samples, 0)
	meanY := mean(samples, 1)
	meanZ := mean(samples, 2)
	avgStdDev := (stddev(samples, 0) + stddev(samples, 1) + stddev(samples, 2)) / 3.0

	// The captured axes already had the old offsets subtracted, so the
	// residual mean stacks on top of them. Means are m/s², offsets are g.
	result := CaptureResult{
		Version:     1,
		Timestamp:   time.Now(),
		OffsetX:     oldOffsets.OffsetX + meanX/vibration.Gravity,
		OffsetY:     oldOffsets.OffsetY + meanY/vibration.Gravity,
		OffsetZ:     oldOffsets.OffsetZ + meanZ/vibration.Gravity,
		AvgStdDev:   avgStdDev,
		Confidence:  100.0 / (1.0 + avgStdDev*100.0),
		SampleCount: len(samples),
	}

	if err := publish(Command{
		Action:  CommandSetOffsets,
		OffsetX: result.OffsetX,
		OffsetY: result.OffsetY,
		OffsetZ: result.OffsetZ,
	}); err != nil {
		return fmt.Errorf("set-offsets command: %w", err)
	}

	sendCaptureStats(conn, result)
	return completeCapture(conn, result)
}

func completeCapture(conn *websocket.Conn, result CaptureResult) error {
	// Save results to file
	filename := fmt.Sprintf("offset_capture_%d.json", time.Now().Unix())

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	path := filepath.Join(cwd, filename)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal capture results: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write capture file: %w", err)
	}

	log.Printf("capture: saved results to %s", path)

	conn.WriteJSON(wsCaptureResponse{
		Type:    "complete",
		Results: map[string]interface{}{"filename": filename},
	})
	return nil
}

func sendCapturePhase(conn *websocket.Conn, phase string) {
	conn.WriteJSON(wsCaptureResponse{Type: "phase", Phase: phase})
}

func sendCaptureProgress(conn *websocket.Conn, progress float64) {
	conn.WriteJSON(wsCaptureResponse{Type: "progress", Progress: progress})
}

func sendCaptureStats(conn *websocket.Conn, result CaptureResult) {
	conn.WriteJSON(wsCaptureResponse{
		Type: "stats",
		Stats: map[string]interface{}{
			"offset_x":   result.OffsetX,
			"offset_y":   result.OffsetY,
			"offset_z":   result.OffsetZ,
			"confidence": result.Confidence,
			"samples":    result.SampleCount,
		},
	})
}

func sendCaptureError(conn *websocket.Conn, message string) {
	conn.WriteJSON(wsCaptureResponse{Type: "error", Message: message})
}

// Helper functions for statistics
func mean(data [][3]float64, axis int) float64 {
	sum := 0.0
	for _, v := range data {
		sum += v[axis]
	}
	return sum / float64(len(data))
}

func stddev(data [][3]float64, axis int) float64 {
	if len(data) == 0 {
		return 0
	}
	m := mean(data, axis)
	variance := 0.0
	for _, v := range data {
		diff := v[axis] - m
		variance += diff * diff
	}
	variance /= float64(len(data))
	return math.Sqrt(variance)
}
