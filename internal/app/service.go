// Package service runs the two pipeline stages: ingest flattens a raw pitch
// batch into a Parquet table, aggregate rolls that table up per batter.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/okian/swingstat/internal/adapters/ledger"
	"github.com/okian/swingstat/internal/adapters/report"
	"github.com/okian/swingstat/internal/adapters/source"
	"github.com/okian/swingstat/internal/adapters/warehouse"
	workerpool "github.com/okian/swingstat/internal/adapters/worker"
	"github.com/okian/swingstat/internal/domain/flatten"
	"github.com/okian/swingstat/internal/domain/model"
	"github.com/okian/swingstat/pkg/logger"
	"github.com/okian/swingstat/pkg/metrics"
)

const defaultPreviewRows = 5

// Service wires the pipeline adapters together.
type Service struct {
	// Configuration
	workerCount          int
	chunkSize            int
	previewRows          int
	dropMissingBatter    bool
	warehouseThreads     int
	warehouseMemoryLimit string

	ledger ledger.Recorder
	out    io.Writer

	// Logging
	logger logger.Logger
}

// IngestResult describes a finished ingest run.
type IngestResult struct {
	RunID       string
	InputPath   string
	OutputPath  string
	InputDigest string
	Records     int
	RowsWritten int64
	Stats       flatten.Stats
	Duration    time.Duration
}

// AggregateResult describes a finished aggregate run.
type AggregateResult struct {
	RunID      string
	InputPath  string
	OutputPath string
	Rows       int64
	Summary    []model.BatterSummary
	// Source is the latest successful ingest run, when the ledger knows one.
	Source   *ledger.Run
	Duration time.Duration
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		previewRows: defaultPreviewRows,
		ledger:      ledger.Nop{},
		out:         os.Stdout,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("pipeline")
	}
	return s
}

// Ingest loads the raw batch at inputPath, flattens every record and writes
// the rows as Parquet to outputPath. N records always yield N rows.
func (s *Service) Ingest(ctx context.Context, inputPath, outputPath string) (IngestResult, error) {
	res := IngestResult{
		RunID:      uuid.NewString(),
		InputPath:  inputPath,
		OutputPath: outputPath,
	}
	start := time.Now()
	log := s.logger.With(logger.String("run_id", res.RunID), logger.String("stage", ledger.StageIngest))

	err := s.ingest(ctx, log, &res)
	res.Duration = time.Since(start)
	s.finish(ctx, log, ledger.Run{
		ID:          res.RunID,
		Stage:       ledger.StageIngest,
		InputPath:   inputPath,
		OutputPath:  outputPath,
		InputDigest: res.InputDigest,
		Rows:        res.RowsWritten,
		StartedAt:   start,
	}, err)
	if err != nil {
		return res, fmt.Errorf("ingest: %w", err)
	}

	log.Info(ctx, "ingest complete",
		logger.Int("records", res.Records),
		logger.Int64("rows", res.RowsWritten),
		logger.Int("swings", res.Stats.Swings),
		logger.Int("contacts", res.Stats.Contacts),
		logger.Int("missing_batter", res.Stats.MissingBatter),
		logger.Int("rejected_exit_velocity", res.Stats.RejectedExitVelocity),
		logger.Duration("took", res.Duration),
	)
	return res, nil
}

func (s *Service) ingest(ctx context.Context, log logger.Logger, res *IngestResult) error {
	batch, err := source.LoadFile(ctx, res.InputPath)
	if err != nil {
		return err
	}
	res.InputDigest = batch.Digest
	res.Records = len(batch.Records)
	metrics.RecordRecordsLoaded(res.Records)
	metrics.UpdateInputBytes(batch.Bytes)
	log.Debug(ctx, "batch loaded",
		logger.String("path", batch.Path),
		logger.String("digest", batch.Digest),
		logger.Int64("bytes", batch.Bytes),
	)
	s.printf("Loaded %d raw pitch records\n", res.Records)

	pool := workerpool.NewPool(
		workerpool.WithWorkerCount(s.workerCount),
		workerpool.WithChunkSize(s.chunkSize),
		workerpool.WithLogger(log.Named("worker")),
	)
	rows, err := pool.Run(ctx, batch.Records, flatten.FlattenPitch)
	if err != nil {
		return err
	}
	if len(rows) != len(batch.Records) {
		return fmt.Errorf("flatten produced %d rows for %d records", len(rows), len(batch.Records))
	}

	res.Stats = flatten.Tally(batch.Records, rows)
	metrics.RecordRowsFlattened(res.Stats.Rows)
	metrics.RecordSwings(res.Stats.Swings)
	metrics.RecordContacts(res.Stats.Contacts)
	metrics.RecordMissingBatters(res.Stats.MissingBatter)
	metrics.RecordRejectedExitVelocities(res.Stats.RejectedExitVelocity)

	s.printf("Transformation complete\n")
	if s.previewRows > 0 {
		if err := report.RenderPitches(s.out, rows, s.previewRows); err != nil {
			return err
		}
	}

	wh, err := s.openWarehouse(ctx, log)
	if err != nil {
		return err
	}
	defer func() { _ = wh.Close() }()

	written, err := wh.WritePitches(ctx, res.OutputPath, rows)
	if err != nil {
		return err
	}
	res.RowsWritten = written
	metrics.RecordRowsWritten(written)
	s.printf("Processed dataset written to %s\n", res.OutputPath)
	return nil
}

// Aggregate loads the Parquet table at inputPath, summarizes it per batter
// and writes the summary CSV to outputPath.
func (s *Service) Aggregate(ctx context.Context, inputPath, outputPath string) (AggregateResult, error) {
	res := AggregateResult{
		RunID:      uuid.NewString(),
		InputPath:  inputPath,
		OutputPath: outputPath,
	}
	start := time.Now()
	log := s.logger.With(logger.String("run_id", res.RunID), logger.String("stage", ledger.StageAggregate))

	if src, ok, err := s.ledger.Latest(ctx, ledger.StageIngest, ledger.StatusSuccess); err != nil {
		log.Warn(ctx, "ledger lookup failed", logger.Error(err))
	} else if ok {
		res.Source = &src
		log.Info(ctx, "aggregating output of ingest run",
			logger.String("source_run_id", src.ID),
			logger.String("input_digest", src.InputDigest),
			logger.String("processed_path", src.OutputPath),
		)
		if src.OutputPath != inputPath {
			log.Warn(ctx, "latest ingest wrote a different table",
				logger.String("expected", src.OutputPath),
				logger.String("actual", inputPath),
			)
		}
	}

	err := s.aggregate(ctx, log, &res)
	res.Duration = time.Since(start)
	s.finish(ctx, log, ledger.Run{
		ID:          res.RunID,
		Stage:       ledger.StageAggregate,
		InputPath:   inputPath,
		OutputPath:  outputPath,
		InputDigest: sourceDigest(res.Source),
		Rows:        int64(len(res.Summary)),
		StartedAt:   start,
	}, err)
	if err != nil {
		return res, fmt.Errorf("aggregate: %w", err)
	}

	log.Info(ctx, "aggregate complete",
		logger.Int64("rows", res.Rows),
		logger.Int("batters", len(res.Summary)),
		logger.Duration("took", res.Duration),
	)
	return res, nil
}

func (s *Service) aggregate(ctx context.Context, log logger.Logger, res *AggregateResult) error {
	wh, err := s.openWarehouse(ctx, log)
	if err != nil {
		return err
	}
	defer func() { _ = wh.Close() }()

	n, err := wh.AttachPitches(ctx, res.InputPath)
	if err != nil {
		return err
	}
	res.Rows = n
	metrics.UpdateRowsAttached(n)
	s.printf("Loaded %d processed pitch records\n", n)

	summary, err := wh.Summarize(ctx, warehouse.SummaryOptions{DropMissingBatter: s.dropMissingBatter})
	if err != nil {
		return err
	}
	res.Summary = summary
	metrics.UpdateBattersSummarized(len(summary))

	s.printf("Batter-level summary:\n")
	if err := report.RenderSummary(s.out, summary, 0); err != nil {
		return err
	}

	if err := report.WriteSummaryCSV(res.OutputPath, summary); err != nil {
		return err
	}
	s.printf("Aggregation results written to %s\n", res.OutputPath)
	return nil
}

func (s *Service) openWarehouse(ctx context.Context, log logger.Logger) (*warehouse.Warehouse, error) {
	return warehouse.Open(ctx,
		warehouse.WithThreads(s.warehouseThreads),
		warehouse.WithMemoryLimit(s.warehouseMemoryLimit),
		warehouse.WithLogger(log.Named("warehouse")),
	)
}

// finish records metrics and the ledger row for a stage. Ledger failures are
// logged and never fail the run.
func (s *Service) finish(ctx context.Context, log logger.Logger, run ledger.Run, err error) {
	run.FinishedAt = time.Now()
	run.Status = ledger.StatusSuccess
	if err != nil {
		run.Status = ledger.StatusFailure
		run.Error = err.Error()
		kind := ErrorKind(err)
		metrics.RecordStageError(run.Stage, kind)
		log.Error(ctx, "stage failed", logger.String("kind", kind), logger.Error(err))
	}
	metrics.RecordStage(run.Stage, err, run.FinishedAt.Sub(run.StartedAt).Seconds())

	// A cancelled run may still be recorded.
	if recErr := s.ledger.Record(context.WithoutCancel(ctx), run); recErr != nil {
		log.Warn(ctx, "ledger record failed", logger.Error(recErr))
	}
}

func (s *Service) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

// ErrorKind classifies a pipeline error for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, source.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, source.ErrReadInput):
		return "read_input"
	case errors.Is(err, warehouse.ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, warehouse.ErrRead):
		return "storage_read"
	case errors.Is(err, warehouse.ErrWrite), errors.Is(err, report.ErrWrite):
		return "storage_write"
	case errors.Is(err, warehouse.ErrOpen), errors.Is(err, warehouse.ErrQuery):
		return "engine"
	default:
		return "internal"
	}
}

func sourceDigest(run *ledger.Run) string {
	if run == nil {
		return ""
	}
	return run.InputDigest
}
