package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicMetrics string
	TopicCommand string
	TopicGPS     string

	// Accelerometer hardware
	AccelSPIDevice string
	AccelCSPin     string
	// Accelerometer range: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	AccelRange byte

	// Environment (temperature) sensor
	EnvSPIDevice string

	// Measurement
	SampleInterval   int     // milliseconds between polls
	ExposureHours    float64 // default Texp, mutable at runtime
	CountdownSeconds int     // fixed-duration measurement; 0 runs until stopped
	SpectrumSize     int     // samples per dominant-frequency window

	// Web Server
	WebServerPort int

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int    // milliseconds
	DisplayContent        string // what to show: "metrics", "gps"
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported (lowercase) so other packages cannot access it directly.
//     This enforces encapsulation and prevents external code from modifying config without proper locking.
//     Has package-level scope (visible to all functions in this package, persists for program lifetime).
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock (Lock) for initialization,
//     read lock (RLock) for Get() allows multiple concurrent readers without blocking each other.
//
// External code must use InitGlobal() to set and Get() to read, ensuring thread safety.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config with the values that have a sensible built-in
// fallback. Hardware and broker settings stay empty on purpose; validate
// catches them.
func defaults() *Config {
	return &Config{
		ExposureHours:    8.0,
		CountdownSeconds: 60,
		SpectrumSize:     128,
		WebServerPort:    8080,
		DisplayContent:   "metrics",
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_METRICS":
		c.TopicMetrics = value
	case "TOPIC_COMMAND":
		c.TopicCommand = value
	case "TOPIC_GPS":
		c.TopicGPS = value

	// Accelerometer hardware
	case "ACCEL_SPI_DEVICE":
		c.AccelSPIDevice = value
	case "ACCEL_CS_PIN":
		c.AccelCSPin = value
	case "ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.AccelRange = byte(rangeVal)

	// Environment sensor
	case "ENV_SPI_DEVICE":
		c.EnvSPIDevice = value

	// Measurement
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SampleInterval = interval
	case "EXPOSURE_HOURS":
		hours, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid EXPOSURE_HOURS %q: %w", value, err)
		}
		if hours <= 0 {
			return fmt.Errorf("EXPOSURE_HOURS must be > 0, got %v", hours)
		}
		c.ExposureHours = hours
	case "COUNTDOWN_SECONDS":
		secs, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid COUNTDOWN_SECONDS %q: %w", value, err)
		}
		if secs < 0 {
			return fmt.Errorf("COUNTDOWN_SECONDS must be >= 0 (0 disables the countdown), got %d", secs)
		}
		c.CountdownSeconds = secs
	case "SPECTRUM_SIZE":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SPECTRUM_SIZE %q: %w", value, err)
		}
		if size < 8 {
			return fmt.Errorf("SPECTRUM_SIZE must be >= 8, got %d", size)
		}
		c.SpectrumSize = size

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval
	case "DISPLAY_CONTENT":
		c.DisplayContent = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicMetrics == "" {
		return fmt.Errorf("TOPIC_METRICS is required")
	}
	if c.TopicCommand == "" {
		return fmt.Errorf("TOPIC_COMMAND is required")
	}
	if c.AccelSPIDevice == "" {
		return fmt.Errorf("ACCEL_SPI_DEVICE is required")
	}
	if c.SampleInterval == 0 {
		return fmt.Errorf("SAMPLE_INTERVAL is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
// Acquires write lock (configMu.Lock) during initialization to prevent concurrent access.
// This is the only function that can set globalConfig.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
// Uses read lock (configMu.RLock) to allow multiple concurrent readers without blocking.
// This is thread-safe and efficient for concurrent access across goroutines.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
