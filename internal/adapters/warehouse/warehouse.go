// Package warehouse persists flat pitch rows as Parquet and computes the
// per-batter rollup on an embedded in-memory DuckDB.
package warehouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/duckdb/duckdb-go/v2"

	"github.com/okian/swingstat/internal/domain/model"
	"github.com/okian/swingstat/pkg/logger"
)

// TableName is the engine-side name of the pitch table.
const TableName = "pitches"

const createPitchesSQL = `CREATE OR REPLACE TABLE pitches (
	batter_id     VARCHAR,
	pitch_type    VARCHAR,
	pitch_result  VARCHAR,
	exit_velocity DOUBLE,
	is_swing      BOOLEAN NOT NULL,
	is_contact    BOOLEAN NOT NULL
)`

// column is one expected column of the pitch table.
type column struct {
	name     string
	dataType string
}

var pitchSchema = []column{
	{model.ColBatterID, "VARCHAR"},
	{model.ColPitchType, "VARCHAR"},
	{model.ColPitchResult, "VARCHAR"},
	{model.ColExitVelocity, "DOUBLE"},
	{model.ColIsSwing, "BOOLEAN"},
	{model.ColIsContact, "BOOLEAN"},
}

const ctxCheckEvery = 4096

// Warehouse wraps one in-memory DuckDB database.
type Warehouse struct {
	connector   *duckdb.Connector
	db          *sql.DB
	logger      logger.Logger
	threads     int
	memoryLimit string
}

// Open creates an in-memory database with configuration options.
func Open(ctx context.Context, opts ...Option) (*Warehouse, error) {
	w := &Warehouse{
		logger: logger.Get().Named("warehouse"),
	}
	for _, opt := range opts {
		opt(w)
	}

	connector, err := duckdb.NewConnector("", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: connector: %w", ErrOpen, err)
	}
	w.connector = connector
	w.db = sql.OpenDB(connector)

	if err := w.db.PingContext(ctx); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrOpen, err)
	}

	settings := make([]string, 0, 2)
	if w.threads > 0 {
		settings = append(settings, fmt.Sprintf("SET threads = %d", w.threads))
	}
	if w.memoryLimit != "" {
		settings = append(settings, fmt.Sprintf("SET memory_limit = %s", quote(w.memoryLimit)))
	}
	for _, stmt := range settings {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrOpen, stmt, err)
		}
	}
	return w, nil
}

// Close releases the database. Closing the pool also closes the connector.
func (w *Warehouse) Close() error {
	if w.db != nil {
		return w.db.Close()
	}
	if w.connector != nil {
		return w.connector.Close()
	}
	return nil
}

// WritePitches loads rows into the pitch table and exports it to a Parquet
// file at path. The file is written next to path and renamed into place.
func (w *Warehouse) WritePitches(ctx context.Context, path string, rows []model.FlatPitchRow) (int64, error) {
	start := time.Now()

	if _, err := w.db.ExecContext(ctx, createPitchesSQL); err != nil {
		return 0, fmt.Errorf("%w: create table: %w", ErrWrite, err)
	}
	if err := w.appendRows(ctx, rows); err != nil {
		return 0, err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	copySQL := fmt.Sprintf("COPY %s TO %s (FORMAT PARQUET)", TableName, quote(tmp))
	if _, err := w.db.ExecContext(ctx, copySQL); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("%w: export parquet: %w", ErrWrite, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	n := int64(len(rows))
	w.logger.Debug(ctx, "pitch table written",
		logger.String("path", path),
		logger.Int64("rows", n),
		logger.Duration("took", time.Since(start)),
	)
	return n, nil
}

func (w *Warehouse) appendRows(ctx context.Context, rows []model.FlatPitchRow) error {
	conn, err := w.connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: connect: %w", ErrWrite, err)
	}
	defer func() { _ = conn.Close() }()

	appender, err := duckdb.NewAppenderFromConn(conn, "", TableName)
	if err != nil {
		return fmt.Errorf("%w: appender: %w", ErrWrite, err)
	}

	for i, row := range rows {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				_ = appender.Close()
				return err
			}
		}
		if err := appender.AppendRow(
			ptrValue(row.BatterID),
			ptrValue(row.PitchType),
			ptrValue(row.PitchResult),
			ptrValue(row.ExitVelocity),
			row.IsSwing,
			row.IsContact,
		); err != nil {
			_ = appender.Close()
			return fmt.Errorf("%w: append row %d: %w", ErrWrite, i, err)
		}
	}

	if err := appender.Close(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrWrite, err)
	}
	return nil
}

// AttachPitches loads the Parquet file at path into the pitch table and
// returns its row count.
func (w *Warehouse) AttachPitches(ctx context.Context, path string) (int64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRead, err)
	}

	loadSQL := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_parquet(%s)", TableName, quote(path))
	if _, err := w.db.ExecContext(ctx, loadSQL); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrRead, path, err)
	}
	if err := w.checkSchema(ctx); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	var n int64
	if err := w.db.QueryRowContext(ctx, "SELECT count(*) FROM "+TableName).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", ErrRead, err)
	}
	return n, nil
}

func (w *Warehouse) checkSchema(ctx context.Context) error {
	rows, err := w.db.QueryContext(ctx, `SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position`, TableName)
	if err != nil {
		return fmt.Errorf("%w: describe: %w", ErrRead, err)
	}
	defer func() { _ = rows.Close() }()

	var got []column
	for rows.Next() {
		var c column
		if err := rows.Scan(&c.name, &c.dataType); err != nil {
			return fmt.Errorf("%w: describe: %w", ErrRead, err)
		}
		got = append(got, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: describe: %w", ErrRead, err)
	}

	if len(got) != len(pitchSchema) {
		return fmt.Errorf("%w: %d columns, want %d", ErrSchemaMismatch, len(got), len(pitchSchema))
	}
	for i, want := range pitchSchema {
		if got[i].name != want.name || !strings.EqualFold(got[i].dataType, want.dataType) {
			return fmt.Errorf("%w: column %d is %s %s, want %s %s",
				ErrSchemaMismatch, i, got[i].name, got[i].dataType, want.name, want.dataType)
		}
	}
	return nil
}

// ReadPitches returns up to limit rows of the pitch table in storage order.
// A non-positive limit returns every row.
func (w *Warehouse) ReadPitches(ctx context.Context, limit int) ([]model.FlatPitchRow, error) {
	query := "SELECT batter_id, pitch_type, pitch_result, exit_velocity, is_swing, is_contact FROM " + TableName
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.FlatPitchRow
	for rows.Next() {
		var (
			batter, ptype, presult sql.NullString
			velocity               sql.NullFloat64
			row                    model.FlatPitchRow
		)
		if err := rows.Scan(&batter, &ptype, &presult, &velocity, &row.IsSwing, &row.IsContact); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrRead, err)
		}
		row.BatterID = nullString(batter)
		row.PitchType = nullString(ptype)
		row.PitchResult = nullString(presult)
		row.ExitVelocity = nullFloat(velocity)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return out, nil
}

func ptrValue[T any](p *T) driver.Value {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// quote renders s as a SQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
