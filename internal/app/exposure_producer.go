package app

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/vibration_computer/internal/config"
	"github.com/relabs-tech/vibration_computer/internal/sensors"
	"github.com/relabs-tech/vibration_computer/internal/vibration"
)

// RunExposureProducer runs the measurement engine: one control loop that
// polls the accelerometer, folds samples into the exposure session,
// publishes the metrics snapshot each tick, and applies queued commands
// between polls.
func RunExposureProducer() error {
	log.Println("starting vibration-computer exposure producer")

	cfg := config.Get()

	rateHz := 1000.0 / float64(cfg.SampleInterval)
	session := vibration.NewSession(
		cfg.ExposureHours,
		time.Duration(cfg.CountdownSeconds)*time.Second,
		vibration.NewSpectrum(cfg.SpectrumSize, rateHz),
	)

	// The accelerometer may not be wired or powered yet. Stay up with the
	// sensor flagged not ready and retry on later polls instead of
	// spinning in place; the serving layer keeps answering either way.
	source, err := sensors.NewAccelSource()
	if err != nil {
		log.Printf("accel init failed (will retry): %v", err)
		source = nil
	} else {
		session.SetSensorReady(true)
	}

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	// Commands arrive on paho's goroutines; they go through this queue so
	// every session write happens on the control loop below.
	commands := make(chan Command, 16)
	token := client.Subscribe(cfg.TopicCommand, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var cmd Command
		if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
			log.Printf("command unmarshal error: %v", err)
			return
		}
		select {
		case commands <- cmd:
		default:
			log.Printf("command queue full, dropping %q", cmd.Action)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("connected to MQTT, subscribed to %s, starting poll loop", cfg.TopicCommand)

	// main tick
	ticker := time.NewTicker(time.Duration(cfg.SampleInterval) * time.Millisecond)
	defer ticker.Stop()

	for t := range ticker.C {
		// 1) Apply queued control requests between polls.
	drain:
		for {
			select {
			case cmd := <-commands:
				applyCommand(session, cmd, t)
			default:
				break drain
			}
		}

		// 2) Retry sensor bring-up when it is down.
		if source == nil {
			if s, err := sensors.NewAccelSource(); err == nil {
				source = s
				session.SetSensorReady(true)
				log.Println("accel is up")
			}
		}

		// 3) One poll + metric recomputation while a measurement runs.
		if session.State() == vibration.StateReading {
			if source == nil {
				// No sample this tick; the countdown still has to fire.
				session.CheckCountdown(t)
			} else if sample, err := source.Next(); err != nil {
				log.Printf("accel read error: %v", err)
				session.SetSensorReady(false)
				source = nil
				session.CheckCountdown(t)
			} else {
				if env, envErr := sensors.ReadEnv(); envErr == nil {
					sample.Temperature = env.Temperature
				}
				session.Tick(t, sample)
			}
		}

		// 4) Publish the snapshot (retained, so late subscribers get the
		// last state immediately).
		snap := session.Snapshot()
		payload, err := json.Marshal(snap)
		if err != nil {
			log.Printf("json marshal error (metrics): %v", err)
			continue
		}
		if token := client.Publish(cfg.TopicMetrics, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (metrics): %v", token.Error())
			continue
		}

		if snap.State == vibration.StateReading {
			log.Printf("%s tick: ARE=%.3f AREN=%.3f Dy=%.1f crest=%.2f peak=%.2f dom=%.1fHz hav=%v wbv=%v n=%d",
				t.Format(time.RFC3339),
				snap.ARE, snap.AREN, snap.Dy, snap.CrestFactor, snap.Peak,
				snap.DominantHz, snap.HAVExceeded, snap.WBVExceeded, snap.SampleCount,
			)
		}
	}
	return nil
}

// applyCommand executes one queued command against the session. Rejections
// are logged and otherwise ignored; the previous configuration stays in
// effect.
func applyCommand(session *vibration.Session, cmd Command, now time.Time) {
	switch cmd.Action {
	case CommandStart:
		if err := session.Start(now); err != nil {
			log.Printf("start rejected: %v", err)
		} else {
			log.Println("measurement started")
		}
	case CommandStop:
		session.Stop()
		log.Println("measurement stopped")
	case CommandReset:
		session.ResetAverages(now)
		log.Println("averages zeroed")
	case CommandSetExposureTime:
		if err := session.SetExposureTime(cmd.Hours); err != nil {
			log.Printf("exposure time rejected: %v", err)
		} else {
			log.Printf("exposure time set to %.2f h", cmd.Hours)
		}
	case CommandSetOffsets:
		if err := session.SetOffsets(cmd.OffsetX, cmd.OffsetY, cmd.OffsetZ); err != nil {
			log.Printf("offsets rejected: %v", err)
		} else {
			log.Printf("offsets set to (%.4f, %.4f, %.4f) g", cmd.OffsetX, cmd.OffsetY, cmd.OffsetZ)
		}
	default:
		log.Printf("unknown command %q", cmd.Action)
	}
}
