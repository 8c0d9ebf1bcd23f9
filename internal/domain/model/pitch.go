// Package model contains domain models passed between layers.
package model

// RawPitch is one decoded per-pitch record. Every nested key is optional.
type RawPitch = map[string]any

// Physical bounds for a measured exit velocity, in mph.
const (
	MinExitVelocity = 0.0
	MaxExitVelocity = 125.0
)

// Raw record keys.
const (
	KeyEvents      = "events"
	KeyPersonID    = "personId"
	KeyMLBID       = "mlbId"
	KeySummaryActs = "summary_acts"
	KeySamplesBat  = "samples_bat"
)

// Intermediate table columns, in schema order.
const (
	ColBatterID     = "batter_id"
	ColPitchType    = "pitch_type"
	ColPitchResult  = "pitch_result"
	ColExitVelocity = "exit_velocity"
	ColIsSwing      = "is_swing"
	ColIsContact    = "is_contact"
)

// PitchColumns lists the intermediate table columns in schema order.
var PitchColumns = []string{ColBatterID, ColPitchType, ColPitchResult, ColExitVelocity, ColIsSwing, ColIsContact}

// Summary columns, in output order.
const (
	ColSwingCount      = "swing_count"
	ColWhiffRate       = "whiff_rate"
	ColMaxExitVelocity = "max_exit_velocity"
)

// SummaryColumns is the header of the batter summary report.
var SummaryColumns = []string{ColBatterID, ColSwingCount, ColWhiffRate, ColMaxExitVelocity}

// FlatPitchRow is the flattened form of one RawPitch. Nil pointers mean absent.
type FlatPitchRow struct {
	BatterID     *string
	PitchType    *string
	PitchResult  *string
	ExitVelocity *float64
	IsSwing      bool
	IsContact    bool
}

// IsWhiff reports a swing without contact.
func (r FlatPitchRow) IsWhiff() bool {
	return r.IsSwing && !r.IsContact
}

// BatterSummary is one row of the per-batter rollup.
type BatterSummary struct {
	BatterID        *string
	SwingCount      int64
	WhiffRate       float64
	MaxExitVelocity *float64
}
