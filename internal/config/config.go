// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
//   - Provide New() to build a Config with defaults.
//   - Load layers a YAML file and environment variables over the defaults.
//   - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"
)

// Config contains process configuration shared by the ingest and aggregate commands.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// InputPath is the raw JSON batch read by ingest.
	InputPath string `koanf:"input_path" validate:"required"`

	// ProcessedPath is the Parquet table written by ingest and read by aggregate.
	ProcessedPath string `koanf:"processed_path" validate:"required"`

	// SummaryPath is the per-batter CSV written by aggregate.
	SummaryPath string `koanf:"summary_path" validate:"required"`

	// LedgerPath is the SQLite run ledger. Empty disables the ledger.
	LedgerPath string `koanf:"ledger_path"`

	// WorkerCount sets the number of flatten workers.
	WorkerCount int `koanf:"worker_count" validate:"min=1,max=1024"`

	// ChunkSize sets the records per flatten task. Zero keeps the pool default.
	ChunkSize int `koanf:"chunk_size" validate:"min=0"`

	// WarehouseThreads caps the query engine's threads. Zero keeps the engine default.
	WarehouseThreads int `koanf:"warehouse_threads" validate:"min=0,max=1024"`

	// MemoryLimit caps the query engine's memory, e.g. "2GB". Empty keeps the engine default.
	MemoryLimit string `koanf:"memory_limit" validate:"omitempty,max=32"`

	// PreviewRows caps the rows printed after ingest. Zero disables the preview.
	PreviewRows int `koanf:"preview_rows" validate:"min=0"`

	// DropMissingBatter excludes rows without a batter id from the summary.
	DropMissingBatter bool `koanf:"drop_missing_batter"`

	// PushgatewayURL enables pushing run metrics when set.
	PushgatewayURL string `koanf:"pushgateway_url" validate:"omitempty,url"`

	// JobName labels pushed metrics.
	JobName string `koanf:"job_name" validate:"required"`
}

// Default file locations.
const (
	DefaultInputPath     = "data/batch_raw.json"
	DefaultProcessedPath = "data/processed_pitches.parquet"
	DefaultSummaryPath   = "data/batter_summary.csv"
	DefaultLedgerPath    = "data/runs.db"
)

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		InputPath:     DefaultInputPath,
		ProcessedPath: DefaultProcessedPath,
		SummaryPath:   DefaultSummaryPath,
		LedgerPath:    DefaultLedgerPath,
		WorkerCount:   runtime.NumCPU(),
		PreviewRows:   5,
		JobName:       "swingstat",
	}
}
