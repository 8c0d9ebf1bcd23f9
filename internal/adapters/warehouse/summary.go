package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/okian/swingstat/internal/domain/model"
)

// SummaryOptions tunes the per-batter rollup.
type SummaryOptions struct {
	// DropMissingBatter excludes rows whose batter_id is null instead of
	// reporting them as their own group.
	DropMissingBatter bool
}

// whiff_rate averages over every pitch in the group, not only swings.
// Numeric ids sort numerically, then textual ids, then the null group.
const summarySQL = `SELECT
	batter_id,
	count(*) FILTER (WHERE is_swing) AS swing_count,
	avg(CASE WHEN is_swing AND NOT is_contact THEN 1 ELSE 0 END)::DOUBLE AS whiff_rate,
	max(exit_velocity) AS max_exit_velocity
FROM pitches
%s
GROUP BY batter_id
ORDER BY batter_id IS NULL, TRY_CAST(batter_id AS DOUBLE) NULLS LAST, batter_id`

// Summarize groups the pitch table by batter.
func (w *Warehouse) Summarize(ctx context.Context, opts SummaryOptions) ([]model.BatterSummary, error) {
	where := ""
	if opts.DropMissingBatter {
		where = "WHERE batter_id IS NOT NULL"
	}

	rows, err := w.db.QueryContext(ctx, fmt.Sprintf(summarySQL, where))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.BatterSummary, 0)
	for rows.Next() {
		var (
			batter   sql.NullString
			maxSpeed sql.NullFloat64
			s        model.BatterSummary
		)
		if err := rows.Scan(&batter, &s.SwingCount, &s.WhiffRate, &maxSpeed); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrQuery, err)
		}
		s.BatterID = nullString(batter)
		s.MaxExitVelocity = nullFloat(maxSpeed)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return out, nil
}
