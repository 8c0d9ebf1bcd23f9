package service

import (
	"io"

	"github.com/okian/swingstat/internal/adapters/ledger"
	"github.com/okian/swingstat/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of flatten workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithChunkSize sets the number of records each flatten task handles.
func WithChunkSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithPreviewRows sets how many flattened rows are printed after ingest.
// Zero disables the preview.
func WithPreviewRows(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.previewRows = n
		}
	}
}

// WithDropMissingBatter excludes rows without a batter id from the summary.
func WithDropMissingBatter(drop bool) Option {
	return func(s *Service) {
		s.dropMissingBatter = drop
	}
}

// WithLedger sets the run ledger. Nil keeps the no-op ledger.
func WithLedger(r ledger.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.ledger = r
		}
	}
}

// WithOutput sets where the human-readable run summary is printed.
func WithOutput(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.out = w
		}
	}
}

// WithWarehouseThreads caps the query engine's threads.
func WithWarehouseThreads(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.warehouseThreads = n
		}
	}
}

// WithWarehouseMemoryLimit caps the query engine's memory, e.g. "2GB".
func WithWarehouseMemoryLimit(limit string) Option {
	return func(s *Service) {
		s.warehouseMemoryLimit = limit
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
