package vibration

// Filter identifies one of the ISO 8041 frequency weightings.
type Filter int

const (
	Wb Filter = iota
	Wc
	Wd
	We
	Wf
	Wh
	Wj
	Wk
	Wm
)

var filterNames = [...]string{"Wb", "Wc", "Wd", "We", "Wf", "Wh", "Wj", "Wk", "Wm"}

func (f Filter) String() string {
	if f < 0 || int(f) >= len(filterNames) {
		return "W?"
	}
	return filterNames[f]
}

// Weighting applies a frequency weighting to one sample value. The real
// filter transfer functions are not implemented; Identity preserves the
// contract and the swap point for when they are.
type Weighting interface {
	Apply(value float64, f Filter) float64
}

type identityWeighting struct{}

func (identityWeighting) Apply(value float64, _ Filter) float64 { return value }

// Identity returns the pass-through weighting.
func Identity() Weighting { return identityWeighting{} }
