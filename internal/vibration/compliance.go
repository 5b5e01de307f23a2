package vibration

// Exposure action limits in m/s² of AREN, fixed by the norm and not user
// configurable. An alert fires strictly above the limit, never at it.
const (
	HAVLimit = 5.0  // hand-arm vibration
	WBVLimit = 1.15 // whole-body vibration
)

// Compliance carries the alert flags plus the AREN value that produced
// them. Rendering the human-readable alert text is the serving layer's
// problem.
type Compliance struct {
	AREN float64 `json:"aren"`
	HAV  bool    `json:"hav_exceeded"`
	WBV  bool    `json:"wbv_exceeded"`
}

// Evaluate compares aren against the two regulatory limits.
func Evaluate(aren float64) Compliance {
	return Compliance{
		AREN: aren,
		HAV:  aren > HAVLimit,
		WBV:  aren > WBVLimit,
	}
}
