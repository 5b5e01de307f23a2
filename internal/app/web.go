package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/vibration_computer/internal/config"
	"github.com/relabs-tech/vibration_computer/internal/vibration"
)

// RunWeb serves the meter's HTTP/WebSocket front end. It subscribes to the
// metrics topic for the latest snapshot and turns control POSTs into
// commands on the command topic; it never touches the session directly.
func RunWeb() error {
	cfg := config.Get()

	var (
		mu          sync.RWMutex
		lastMetrics vibration.Metrics
		haveMetrics bool
	)

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to metrics and keep the latest snapshot
	token := client.Subscribe(cfg.TopicMetrics, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var m vibration.Metrics
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("web: metrics unmarshal error: %v", err)
			return
		}
		mu.Lock()
		lastMetrics = m
		haveMetrics = true
		mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicMetrics)

	publishCommand := func(cmd Command) error {
		payload, err := json.Marshal(cmd)
		if err != nil {
			return err
		}
		t := client.Publish(cfg.TopicCommand, 0, false, payload)
		t.Wait()
		return t.Error()
	}

	latest := func() (vibration.Metrics, bool) {
		mu.RLock()
		defer mu.RUnlock()
		return lastMetrics, haveMetrics
	}

	// 3) JSON API: latest metrics
	http.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		m, ok := latest()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(m); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 4) Control endpoints: POSTs become commands to the producer
	command := func(action string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "POST required", http.StatusMethodNotAllowed)
				return
			}
			if err := publishCommand(Command{Action: action}); err != nil {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusAccepted)
		}
	}
	http.HandleFunc("/api/start", command(CommandStart))
	http.HandleFunc("/api/stop", command(CommandStop))
	http.HandleFunc("/api/reset", command(CommandReset))

	http.HandleFunc("/api/exposure-time", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Hours float64 `json:"hours"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
			return
		}
		// The engine re-checks; rejecting here gives the caller a real
		// status code instead of a silently ignored command.
		if !(body.Hours > 0) {
			http.Error(w, vibration.ErrInvalidExposureTime.Error(), http.StatusBadRequest)
			return
		}
		if err := publishCommand(Command{Action: CommandSetExposureTime, Hours: body.Hours}); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	http.HandleFunc("/api/offsets", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
			Z float64 `json:"z"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
			return
		}
		if err := publishCommand(Command{
			Action:  CommandSetOffsets,
			OffsetX: body.X,
			OffsetY: body.Y,
			OffsetZ: body.Z,
		}); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	// 5) WebSocket: live metrics stream
	http.HandleFunc("/ws/metrics", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		interval := cfg.SampleInterval
		if interval <= 0 {
			interval = 100
		}
		ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
		defer ticker.Stop()

		for range ticker.C {
			m, ok := latest()
			if !ok {
				continue
			}
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		}
	})

	// 6) WebSocket: guided offset capture
	http.HandleFunc("/ws/calibration", func(w http.ResponseWriter, r *http.Request) {
		HandleOffsetCaptureWS(w, r, latest, publishCommand)
	})

	// 7) Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
