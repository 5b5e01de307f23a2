package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/vibration_computer/internal/config"
	"github.com/relabs-tech/vibration_computer/internal/gps"
	"github.com/relabs-tech/vibration_computer/internal/vibration"
)

// displayData holds the latest data for the OLED.
type displayData struct {
	mu sync.RWMutex

	metrics     vibration.Metrics
	haveMetrics bool

	fix     gps.Fix
	haveFix bool
}

// RunDisplay drives the SSD1306 status display from the MQTT topics. What
// it shows is picked by DISPLAY_CONTENT: "metrics" or "gps".
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := showSplash(dev); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &displayData{}

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeForContent(client, cfg.DisplayContent, data, cfg); err != nil {
		return fmt.Errorf("failed to subscribe for display: %w", err)
	}

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		data.mu.RLock()
		snapshot := displayData{
			metrics:     data.metrics,
			haveMetrics: data.haveMetrics,
			fix:         data.fix,
			haveFix:     data.haveFix,
		}
		data.mu.RUnlock()

		if err := updateDisplay(dev, cfg.DisplayContent, &snapshot); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func subscribeForContent(client mqtt.Client, content string, data *displayData, cfg *config.Config) error {
	switch content {
	case "metrics":
		token := client.Subscribe(cfg.TopicMetrics, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var m vibration.Metrics
			if err := json.Unmarshal(msg.Payload(), &m); err != nil {
				log.Printf("display: metrics unmarshal error: %v", err)
				return
			}
			data.mu.Lock()
			data.metrics = m
			data.haveMetrics = true
			data.mu.Unlock()
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("display: subscribed to %s", cfg.TopicMetrics)

	case "gps":
		token := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var f gps.Fix
			if err := json.Unmarshal(msg.Payload(), &f); err != nil {
				log.Printf("display: gps unmarshal error: %v", err)
				return
			}
			data.mu.Lock()
			data.fix = f
			data.haveFix = true
			data.mu.Unlock()
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("display: subscribed to %s", cfg.TopicGPS)

	default:
		return fmt.Errorf("unknown display content type: %s", content)
	}

	return nil
}

func updateDisplay(dev *ssd1306.Dev, content string, data *displayData) error {
	switch content {
	case "metrics":
		return updateMetricsDisplay(dev, data.metrics, data.haveMetrics)
	case "gps":
		return updateGPSDisplay(dev, data.fix, data.haveFix)
	default:
		return fmt.Errorf("unknown display content type: %s", content)
	}
}

func newDrawer() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	// Blank image
	for i := 0; i < 1024; i++ {
		img.Pix[i] = 0
	}

	return img, &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
}

func updateMetricsDisplay(dev *ssd1306.Dev, m vibration.Metrics, haveData bool) error {
	img, drawer := newDrawer()

	if !haveData {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Exposure"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
	} else {
		drawer.Dot = fixed.P(0, 13)
		drawer.DrawBytes([]byte(fmt.Sprintf("AREN %6.2f", m.AREN)))

		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte(fmt.Sprintf("ARE  %6.2f", m.ARE)))

		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte(fmt.Sprintf("Dy %dy %dm", m.DyBreakdown.Years, m.DyBreakdown.Months)))

		status := "OK"
		switch {
		case m.HAVExceeded:
			status = "HAV LIMIT!"
		case m.WBVExceeded:
			status = "WBV LIMIT!"
		case !m.SensorReady:
			status = "NO SENSOR"
		case m.State == vibration.StateIdle:
			status = "idle"
		}
		drawer.Dot = fixed.P(0, 52)
		if m.CountdownRemaining > 0 {
			status = fmt.Sprintf("%s %3.0fs", status, m.CountdownRemaining)
		}
		drawer.DrawBytes([]byte(status))
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func updateGPSDisplay(dev *ssd1306.Dev, f gps.Fix, haveData bool) error {
	img, drawer := newDrawer()

	if !haveData {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("GPS Position"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
	} else {
		// Latitude
		drawer.Dot = fixed.P(0, 13)
		latDir := "N"
		lat := f.Latitude
		if lat < 0 {
			latDir = "S"
			lat = -lat
		}
		drawer.DrawBytes([]byte(fmt.Sprintf("%.4f%s", lat, latDir)))

		// Longitude
		drawer.Dot = fixed.P(0, 26)
		lonDir := "E"
		lon := f.Longitude
		if lon < 0 {
			lonDir = "W"
			lon = -lon
		}
		drawer.DrawBytes([]byte(fmt.Sprintf("%.4f%s", lon, lonDir)))

		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte(fmt.Sprintf("Spd: %.1fkn", f.SpeedKnots)))
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func showSplash(dev *ssd1306.Dev) error {
	img, drawer := newDrawer()

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Vibration Pi"))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Exposure"))

	drawer.Dot = fixed.P(25, 56)
	drawer.DrawBytes([]byte("meter"))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
