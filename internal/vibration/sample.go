package vibration

import "time"

// Sample is a single tri-axis acceleration reading in m/s², plus the
// optional temperature channel from the environment sensor.
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	Temperature float64   `json:"temp_c"`
	Timestamp   time.Time `json:"ts"`
}

// Source is anything that can provide acceleration samples over time:
// the real accelerometer, the mock generator, maybe a replay source later.
type Source interface {
	Next() (Sample, error)
}
