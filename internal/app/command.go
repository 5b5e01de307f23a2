package app

// Command actions understood by the exposure producer.
const (
	CommandStart           = "start"
	CommandStop            = "stop"
	CommandReset           = "reset"
	CommandSetExposureTime = "set_exposure_time"
	CommandSetOffsets      = "set_offsets"
)

// Command is a control or configuration request for the exposure producer,
// carried as JSON on the command topic. The web layer publishes these; the
// producer applies them between poll iterations so all session writes stay
// on its control loop.
type Command struct {
	Action string `json:"action"`

	// set_exposure_time
	Hours float64 `json:"hours,omitempty"`

	// set_offsets, in g
	OffsetX float64 `json:"offset_x,omitempty"`
	OffsetY float64 `json:"offset_y,omitempty"`
	OffsetZ float64 `json:"offset_z,omitempty"`
}
