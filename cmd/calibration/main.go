// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


// ./cmd/calibration/main.go
//
// Guided at-rest offset capture for the MPU-9250 accelerometer in this project.
// The device must lie still; the tool averages a batch of raw readings and
// stores the per-axis means as offsets in g, gravity included, so a corrected
// at-rest device reads zero on every axis. This is the same convention the
// web capture uses.
//
// Output:
//
//	Writes a JSON file under ./calibration/ including capture date/time and a
//	stillness-based confidence score. With -publish it also pushes the offsets
//	to a running exposure producer over MQTT.
//
// Run:
//
//	go run ./cmd/calibration -config ./vibration_config.txt
//
// Notes / assumptions:
//   - Reads samples directly via internal/sensors (the exposure producer must
//     NOT be running at the same time, both would own the SPI bus).
//   - Offsets are stored in g; the engine converts to m/s² when applying them.
//   - Capture in the mounting pose the measurement will use; the gravity
//     component baked into the offsets is pose dependent.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/relabs-tech/vibration_computer/internal/app"
	"github.com/relabs-tech/vibration_computer/internal/config"
	"github.com/relabs-tech/vibration_computer/internal/sensors"
	"github.com/relabs-tech/vibration_computer/internal/vibration"
)

const (
	sampleHz      = 100 // target loop frequency (best-effort)
	captureCount  = 200
	settleTime    = 2 * time.Second

	// Stillness heuristics, in m/s². Above stillStdBad the capture is refused.
	stillStdGood = 0.02
	stillStdBad  = 0.25
)

type report struct {
	CapturedAt time.Time `json:"captured_at"`
	Samples    int       `json:"samples"`

	// Per-axis offsets in g, gravity included, ready for the engine's
	// calibration state.
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	OffsetZ float64 `json:"offset_z"`

	// Per-axis standard deviation of the capture, in m/s².
	StdX float64 `json:"std_x"`
	StdY float64 `json:"std_y"`
	StdZ float64 `json:"std_z"`

	Confidence float64 `json:"confidence"` // 0..1
	Published  bool    `json:"published"`
}

func main() {
	configPath := flag.String("config", "./vibration_config.txt", "path to configuration file")
	publish := flag.Bool("publish", false, "publish captured offsets to the exposure producer over MQTT")
	flag.Parse()

	log.Println("starting vibration-computer offset capture")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	src, err := sensors.NewAccelSource()
	if err != nil {
		log.Fatalf("accelerometer init failed: %v", err)
	}

	fmt.Println("Place the device on a flat, still surface, label side up.")
	fmt.Print("Press ENTER to begin capture...")
	bufio.NewReader(os.Stdin).ReadString('\n')

	fmt.Printf("Settling for %s...\n", settleTime)
	time.Sleep(settleTime)

	fmt.Printf("Capturing %d samples at ~%d Hz, keep the device still.\n", captureCount, sampleHz)
	rep, err := capture(src)
	if err != nil {
		log.Fatalf("capture failed: %v", err)
	}

	fmt.Printf("Offsets (g):  X=%+.4f  Y=%+.4f  Z=%+.4f\n", rep.OffsetX, rep.OffsetY, rep.OffsetZ)
	fmt.Printf("Stillness (m/s² std): X=%.4f Y=%.4f Z=%.4f, confidence %.0f%%\n",
		rep.StdX, rep.StdY, rep.StdZ, rep.Confidence*100)

	if *publish {
		if err := publishOffsets(cfg, rep); err != nil {
			log.Printf("publish failed: %v", err)
		} else {
			rep.Published = true
			fmt.Println("Offsets published to exposure producer.")
		}
	}

	path, err := writeReport(rep)
	if err != nil {
		log.Fatalf("failed to write report: %v", err)
	}
	fmt.Printf("Report written to %s\n", path)
}

func capture(src vibration.Source) (report, error) {
	var rep report
	var sumX, sumY, sumZ float64
	samples := make([][3]float64, 0, captureCount)

	ticker := time.NewTicker(time.Second / sampleHz)
	defer ticker.Stop()

	for range ticker.C {
		s, err := src.Next()
		if err != nil {
			log.Printf("read error, skipping sample: %v", err)
			continue
		}
		samples = append(samples, [3]float64{s.X, s.Y, s.Z})
		sumX += s.X
		sumY += s.Y
		sumZ += s.Z
		if len(samples) >= captureCount {
			break
		}
	}

	n := float64(len(samples))
	if n == 0 {
		return rep, fmt.Errorf("no samples captured")
	}
	meanX, meanY, meanZ := sumX/n, sumY/n, sumZ/n

	rep.StdX = stddev(samples, 0, meanX)
	rep.StdY = stddev(samples, 1, meanY)
	rep.StdZ = stddev(samples, 2, meanZ)

	worst := math.Max(rep.StdX, math.Max(rep.StdY, rep.StdZ))
	if worst > stillStdBad {
		return rep, fmt.Errorf("device was not still (std %.3f m/s² > %.3f), rerun the capture", worst, stillStdBad)
	}
	rep.Confidence = confidence(worst)

	rep.CapturedAt = time.Now()
	rep.Samples = len(samples)
	rep.OffsetX, rep.OffsetY, rep.OffsetZ = offsetsFromMeans(meanX, meanY, meanZ)
	return rep, nil
}

// offsetsFromMeans converts the at-rest mean readings (m/s²) into the
// engine's offset convention: stored in g with the gravity component
// included, so applying them zeroes every axis of a resting device.
func offsetsFromMeans(meanX, meanY, meanZ float64) (x, y, z float64) {
	return meanX / vibration.Gravity, meanY / vibration.Gravity, meanZ / vibration.Gravity
}

// confidence maps the worst-axis standard deviation onto 0..1 with a linear
// ramp between the good and bad thresholds.
func confidence(worstStd float64) float64 {
	switch {
	case worstStd <= stillStdGood:
		return 1.0
	case worstStd >= stillStdBad:
		return 0.0
	default:
		return 1.0 - (worstStd-stillStdGood)/(stillStdBad-stillStdGood)
	}
}

func stddev(data [][3]float64, axis int, mean float64) float64 {
	if len(data) < 2 {
		return 0
	}
	var sum float64
	for _, v := range data {
		d := v[axis] - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(data)-1))
}

func publishOffsets(cfg *config.Config, rep report) error {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID("vibration-offset-capture")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)

	payload, err := json.Marshal(app.Command{
		Action:  app.CommandSetOffsets,
		OffsetX: rep.OffsetX,
		OffsetY: rep.OffsetY,
		OffsetZ: rep.OffsetZ,
	})
	if err != nil {
		return err
	}

	token := client.Publish(cfg.TopicCommand, 0, false, payload)
	token.Wait()
	return token.Error()
}

func writeReport(rep report) (string, error) {
	if err := os.MkdirAll("calibration", 0o755); err != nil {
		return "", err
	}
	path := fmt.Sprintf("calibration/offsets_%s.json", rep.CapturedAt.Format("20060102_150405"))

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0o644)
}
