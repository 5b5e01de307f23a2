package main

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/relabs-tech/vibration_computer/internal/vibration"
)

func main() {
	log.Println("starting vibration-computer MQTT producer (mock)")

	// 1) Connect to MQTT broker on the Pi
	opts := mqtt.NewClientOptions().
		AddBroker("tcp://localhost:1883").
		SetClientID("vibration-producer-mock")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("MQTT connect error: %v", token.Error())
	}
	defer client.Disconnect(250)

	src := vibration.NewMockSource()
	session := vibration.NewSession(8.0, 0, vibration.NewSpectrum(128, 10))
	session.SetSensorReady(true)
	if err := session.Start(time.Now()); err != nil {
		log.Fatalf("session start error: %v", err)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for t := range ticker.C {
		sample, err := src.Next()
		if err != nil {
			log.Printf("error from mock source: %v", err)
			continue
		}
		session.Tick(t, sample)
		m := session.Snapshot()

		payload, err := json.Marshal(m)
		if err != nil {
			log.Printf("json marshal error: %v", err)
			continue
		}

		token := client.Publish("vibration/metrics", 0, true, payload)
		token.Wait()

		log.Printf("%s published metrics: ARE=%.3f AREN=%.3f Dy=%.1fy", t.Format(time.RFC3339), m.ARE, m.AREN, m.Dy)
	}
}
