// Package report writes the batter summary and renders console previews.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/okian/swingstat/internal/domain/model"
)

const absentCell = "null"

// WriteSummaryCSV writes rows with a header line to path. Absent values are
// empty fields. The file is written next to path and renamed into place.
func WriteSummaryCSV(path string, rows []model.BatterSummary) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := EncodeSummaryCSV(tmp, rows); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// EncodeSummaryCSV writes the CSV form of rows to w.
func EncodeSummaryCSV(w io.Writer, rows []model.BatterSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.SummaryColumns); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	for _, r := range rows {
		record := []string{
			deref(r.BatterID, ""),
			strconv.FormatInt(r.SwingCount, 10),
			FormatFloat(r.WhiffRate),
			floatOr(r.MaxExitVelocity, ""),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// RenderSummary prints up to limit summary rows as an aligned table.
// A non-positive limit prints every row.
func RenderSummary(w io.Writer, rows []model.BatterSummary, limit int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\t"+strings.Join(model.SummaryColumns, "\t")+"\t")
	for _, i := range head(len(rows), limit) {
		row := rows[i]
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t\n",
			i,
			deref(row.BatterID, absentCell),
			row.SwingCount,
			FormatFloat(row.WhiffRate),
			floatOr(row.MaxExitVelocity, absentCell),
		)
	}
	return flushFooter(tw, w, len(rows), limit)
}

// RenderPitches prints up to limit flat pitch rows as an aligned table.
// A non-positive limit prints every row.
func RenderPitches(w io.Writer, rows []model.FlatPitchRow, limit int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\t"+strings.Join(model.PitchColumns, "\t")+"\t")
	for _, i := range head(len(rows), limit) {
		row := rows[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			i,
			deref(row.BatterID, absentCell),
			deref(row.PitchType, absentCell),
			deref(row.PitchResult, absentCell),
			floatOr(row.ExitVelocity, absentCell),
			strconv.FormatBool(row.IsSwing),
			strconv.FormatBool(row.IsContact),
		)
	}
	return flushFooter(tw, w, len(rows), limit)
}

// FormatFloat renders v in its shortest round-trip form, always with a
// decimal point for integral values (1.0, not 1).
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if strings.ContainsAny(s, ".eEn") {
		return s
	}
	return s + ".0"
}

func flushFooter(tw *tabwriter.Writer, w io.Writer, total, limit int) error {
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if limit > 0 && total > limit {
		if _, err := fmt.Fprintf(w, "... %d more rows\n", total-limit); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	return nil
}

// head returns the indexes of the first limit rows.
func head(total, limit int) []int {
	n := total
	if limit > 0 && limit < n {
		n = limit
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func deref(s *string, absent string) string {
	if s == nil {
		return absent
	}
	return *s
}

func floatOr(v *float64, absent string) string {
	if v == nil {
		return absent
	}
	return FormatFloat(*v)
}
