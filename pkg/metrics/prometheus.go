// Package metrics provides Prometheus metrics for the swingstat batch pipeline.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Manager owns every collector emitted by a pipeline run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ingest stage
	recordsLoaded        prometheus.Counter
	rowsFlattened        prometheus.Counter
	rowsWritten          prometheus.Counter
	swingsDetected       prometheus.Counter
	contactsDetected     prometheus.Counter
	battersMissing       prometheus.Counter
	exitVelocityRejected prometheus.Counter
	inputBytes           prometheus.Gauge
	workerCount          prometheus.Gauge

	// Aggregate stage
	rowsAttached      prometheus.Gauge
	battersSummarized prometheus.Gauge

	// Shared
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	lastSuccess   *prometheus.GaugeVec
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Init()
}

// Init rebuilds the global manager on a fresh package registry. Commands call
// it once at startup, e.g. with WithSubsystem to name the stage that pushes.
// The package registry always wins over WithPrometheusRegistry.
func Init(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(customRegistry))...)
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "swingstat",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.recordsLoaded = m.counter("records_loaded_total", "Raw pitch records read from the input batch")
	m.rowsFlattened = m.counter("rows_flattened_total", "Flat pitch rows produced by the flattener")
	m.rowsWritten = m.counter("rows_written_total", "Flat pitch rows persisted to the columnar table")
	m.swingsDetected = m.counter("swings_detected_total", "Flattened rows with bat-tracking samples")
	m.contactsDetected = m.counter("contacts_detected_total", "Flattened rows with a swing and a valid exit velocity")
	m.battersMissing = m.counter("batter_id_missing_total", "Flattened rows without a batter id")
	m.exitVelocityRejected = m.counter("exit_velocity_rejected_total", "Exit velocities present but outside the physical range")
	m.inputBytes = m.gauge("input_bytes", "Size of the last raw input batch in bytes")
	m.workerCount = m.gauge("worker_count", "Workers used by the flatten pool")

	m.rowsAttached = m.gauge("rows_attached", "Rows read from the columnar table by the aggregate stage")
	m.battersSummarized = m.gauge("batters_summarized", "Distinct batter groups in the last summary")

	m.stageDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "stage_duration_seconds",
			Help:        "Duration of pipeline stages in seconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"stage", "status"},
	)

	m.stageErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "stage_errors_total",
			Help:        "Fatal pipeline errors by stage and kind",
			ConstLabels: m.constLabels,
		},
		[]string{"stage", "kind"},
	)

	m.lastSuccess = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "last_success_timestamp_seconds",
			Help:        "Unix time of the last successful stage run",
			ConstLabels: m.constLabels,
		},
		[]string{"stage"},
	)
}

// RecordRecordsLoaded adds n raw records to the loaded counter.
func RecordRecordsLoaded(n int) {
	addCount(globalManager.recordsLoaded, n)
}

// RecordRowsFlattened adds n rows to the flattened counter.
func RecordRowsFlattened(n int) {
	addCount(globalManager.rowsFlattened, n)
}

// RecordRowsWritten adds n rows to the written counter.
func RecordRowsWritten(n int64) {
	if n > 0 {
		globalManager.rowsWritten.Add(float64(n))
	}
}

// RecordSwings adds n detected swings.
func RecordSwings(n int) {
	addCount(globalManager.swingsDetected, n)
}

// RecordContacts adds n detected contacts.
func RecordContacts(n int) {
	addCount(globalManager.contactsDetected, n)
}

// RecordMissingBatters adds n rows without a batter id.
func RecordMissingBatters(n int) {
	addCount(globalManager.battersMissing, n)
}

// RecordRejectedExitVelocities adds n out-of-range exit velocities.
func RecordRejectedExitVelocities(n int) {
	addCount(globalManager.exitVelocityRejected, n)
}

// UpdateInputBytes sets the size of the last input batch.
func UpdateInputBytes(n int64) {
	globalManager.inputBytes.Set(float64(n))
}

// UpdateWorkerCount sets the flatten pool size.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateRowsAttached sets the number of rows the aggregate stage read.
func UpdateRowsAttached(n int64) {
	globalManager.rowsAttached.Set(float64(n))
}

// UpdateBattersSummarized sets the number of batter groups in the last summary.
func UpdateBattersSummarized(count int) {
	globalManager.battersSummarized.Set(float64(count))
}

// RecordStage observes a stage duration and, on success, stamps the last-success gauge.
func RecordStage(stage string, err error, seconds float64) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	globalManager.stageDuration.WithLabelValues(stage, status).Observe(seconds)
	if err == nil {
		globalManager.lastSuccess.WithLabelValues(stage).SetToCurrentTime()
	}
}

// RecordStageError counts a fatal error of the given kind.
func RecordStageError(stage, kind string) {
	globalManager.stageErrors.WithLabelValues(stage, kind).Inc()
}

// Push sends the registry to a Prometheus Pushgateway under the given job
// name, grouped by the manager's subsystem so each command keeps its own group.
func Push(gatewayURL, job string) error {
	if strings.TrimSpace(gatewayURL) == "" {
		return fmt.Errorf("%w: gateway URL is required", ErrPushFailed)
	}
	if job == "" {
		job = "swingstat"
	}
	pusher := push.New(gatewayURL, job).
		Grouping("command", globalManager.subsystem).
		Gatherer(customRegistry)
	if err := pusher.Push(); err != nil {
		return fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	return nil
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

func addCount(c prometheus.Counter, n int) {
	if n > 0 {
		c.Add(float64(n))
	}
}
