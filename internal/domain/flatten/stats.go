package flatten

import "github.com/okian/swingstat/internal/domain/model"

// Stats counts data-quality facts about a flattened batch.
type Stats struct {
	Rows                 int
	Swings               int
	Contacts             int
	MissingBatter        int
	RejectedExitVelocity int
}

// Tally derives Stats from recs and their flattened rows, paired by index.
// A rejected exit velocity is a numeric source value that failed validation.
func Tally(recs []model.RawPitch, rows []model.FlatPitchRow) Stats {
	s := Stats{Rows: len(rows)}
	for i, row := range rows {
		if row.IsSwing {
			s.Swings++
		}
		if row.IsContact {
			s.Contacts++
		}
		if row.BatterID == nil {
			s.MissingBatter++
		}
		if row.ExitVelocity == nil && i < len(recs) {
			if _, ok := ExtractExitVelocity(recs[i]); ok {
				s.RejectedExitVelocity++
			}
		}
	}
	return s
}
