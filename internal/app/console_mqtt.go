package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/vibration_computer/internal/config"
	"github.com/relabs-tech/vibration_computer/internal/gps"
	"github.com/relabs-tech/vibration_computer/internal/vibration"
)

// RunConsoleMQTT prints live exposure metrics and GPS fixes from the
// broker until interrupted.
func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to metrics
	metricsToken := client.Subscribe(cfg.TopicMetrics, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var m vibration.Metrics
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("console: metrics unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[EXPO] %-7s ARE=%6.3f AREN=%6.3f Dy=%6.1f crest=%5.2f peak=%6.2f dom=%5.1fHz n=%d\n",
			m.State, m.ARE, m.AREN, m.Dy, m.CrestFactor, m.Peak, m.DominantHz, m.SampleCount,
		)
		if m.HAVExceeded || m.WBVExceeded {
			fmt.Printf(
				"[ALERT] AREN=%.3f exceeds%s%s\n",
				m.AREN,
				alertTag(m.HAVExceeded, " HAV(5.0)"),
				alertTag(m.WBVExceeded, " WBV(1.15)"),
			)
		}
		if m.CountdownRemaining > 0 {
			fmt.Printf("[TIME] %.0fs remaining\n", m.CountdownRemaining)
		}
	})
	metricsToken.Wait()
	if metricsToken.Error() != nil {
		return metricsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicMetrics)

	// Subscribe to GPS
	gpsToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: gps unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[GPS ] time=%s date=%s lat=%.6f lon=%.6f speed=%.1fkn validity=%s\n",
			f.Time, f.Date, f.Latitude, f.Longitude, f.SpeedKnots, f.Validity,
		)
	})
	gpsToken.Wait()
	if gpsToken.Error() != nil {
		return gpsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGPS)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func alertTag(on bool, tag string) string {
	if on {
		return tag
	}
	return ""
}
