// Package flatten turns one raw pitch record into one flat pitch row.
//
// Every function here is total and pure: malformed or missing structure
// degrades to an absent value, never to an error or a panic.
package flatten

import (
	"math"

	"github.com/okian/swingstat/internal/domain/model"
	"github.com/okian/swingstat/internal/domain/nested"
)

var (
	exitVelocityPath = []string{model.KeySummaryActs, "hit", "speed", "mph"}
	pitchTypePath    = []string{model.KeySummaryActs, "pitch", "type"}
	pitchResultPath  = []string{model.KeySummaryActs, "pitch", "result"}
)

// ExtractBatterID reads the batter from the first event's personId.
// A nested personId yields its mlbId. Later events are never consulted.
func ExtractBatterID(events any) *string {
	list, ok := events.([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	person, ok := nested.Lookup(list[0], model.KeyPersonID)
	if !ok {
		return nil
	}
	if obj, isObj := person.(map[string]any); isObj {
		person, ok = nested.Lookup(obj, model.KeyMLBID)
		if !ok {
			return nil
		}
	}
	id, ok := nested.Scalar(person)
	if !ok {
		return nil
	}
	return &id
}

// ExtractExitVelocity reads summary_acts.hit.speed.mph when it is numeric.
func ExtractExitVelocity(rec model.RawPitch) (float64, bool) {
	return nested.Number(rec, exitVelocityPath...)
}

// ValidateExitVelocity keeps v only when it lies in the physical range.
func ValidateExitVelocity(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	if math.IsNaN(f) || f < model.MinExitVelocity || f > model.MaxExitVelocity {
		return nil
	}
	return &f
}

// IsSwingDetected reports whether samples_bat is a non-empty array.
func IsSwingDetected(rec model.RawPitch) bool {
	samples, ok := nested.Array(rec, model.KeySamplesBat)
	return ok && len(samples) > 0
}

// FlattenPitch derives the flat row for rec.
func FlattenPitch(rec model.RawPitch) model.FlatPitchRow {
	var row model.FlatPitchRow

	events, _ := nested.Lookup(rec, model.KeyEvents)
	row.BatterID = ExtractBatterID(events)

	if v, ok := ExtractExitVelocity(rec); ok {
		row.ExitVelocity = ValidateExitVelocity(&v)
	}

	row.IsSwing = IsSwingDetected(rec)
	row.IsContact = row.IsSwing && row.ExitVelocity != nil

	row.PitchType = stringOrAbsent(rec, pitchTypePath)
	row.PitchResult = stringOrAbsent(rec, pitchResultPath)

	return row
}

// FlattenAll flattens recs in order; len(out) == len(recs).
func FlattenAll(recs []model.RawPitch) []model.FlatPitchRow {
	out := make([]model.FlatPitchRow, len(recs))
	for i, rec := range recs {
		out[i] = FlattenPitch(rec)
	}
	return out
}

func stringOrAbsent(rec model.RawPitch, path []string) *string {
	s, ok := nested.String(rec, path...)
	if !ok {
		return nil
	}
	return &s
}
