package vibration

// Gravity converts between g and m/s². The exposure worksheets use 9.81,
// not the standard-gravity 9.80665, so we do too.
const Gravity = 9.81

// Calibration holds the per-axis additive offsets, stored in g. Offsets are
// converted to m/s² once per sample when applied; the session replaces the
// whole struct on SetOffsets so a reader never sees a partial update.
type Calibration struct {
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	OffsetZ float64 `json:"offset_z"`
}

// Apply returns a copy of raw with the stored offsets subtracted from each
// axis. The temperature and timestamp pass through untouched.
func (c Calibration) Apply(raw Sample) Sample {
	raw.X -= c.OffsetX * Gravity
	raw.Y -= c.OffsetY * Gravity
	raw.Z -= c.OffsetZ * Gravity
	return raw
}
