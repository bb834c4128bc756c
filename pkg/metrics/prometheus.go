// Package metrics provides Prometheus metrics for the scout valuation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds. Single predictions are sub-millisecond,
// full scans take seconds.
var (
	defaultLatencyBuckets = []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000}
	defaultScanBuckets    = []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 180000}
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	scanBuckets      []float64
	registry         prometheus.Registerer

	// Inference
	predictions       *prometheus.CounterVec
	predictionLatency *prometheus.HistogramVec
	imputedFields     prometheus.Counter
	unknownCategories *prometheus.CounterVec
	clubFallbacks     prometheus.Counter
	classifications   *prometheus.CounterVec
	featureMismatches prometheus.Counter

	// Artifacts
	artifactLoads prometheus.Counter
	artifactFails *prometheus.CounterVec
	artifactReady prometheus.Gauge

	// Batch scans
	scanDuration      *prometheus.HistogramVec
	scanRowsScored    prometheus.Counter
	scanRowsExcluded  *prometheus.CounterVec
	scanFallbackRows  prometheus.Counter
	scanFallbackChunk prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Process
	memoryBytes prometheus.Gauge
	goroutines  prometheus.Gauge
	gcPause     prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scout",
		subsystem:        "valuation",
		histogramBuckets: defaultLatencyBuckets,
		scanBuckets:      defaultScanBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.predictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "predictions_total",
		Help:      "Number of scored player records by mode (single, batch, scan)",
	}, []string{"mode"})

	m.predictionLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prediction_latency_milliseconds",
		Help:      "Latency of align+predict calls in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"mode"})

	m.imputedFields = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "imputed_fields_total",
		Help:      "Schema fields filled from the default table",
	})

	m.unknownCategories = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unknown_categories_total",
		Help:      "Categorical values unseen at training time, encoded as all-zero blocks",
	}, []string{"column"})

	m.clubFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "club_fallbacks_total",
		Help:      "Records whose club was absent or unknown and used the global mean",
	})

	m.classifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "classifications_total",
		Help:      "Classification outcomes by label",
	}, []string{"label"})

	m.featureMismatches = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feature_mismatch_total",
		Help:      "Vectors rejected because their width disagreed with the schema",
	})

	m.artifactLoads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "artifact_loads_total",
		Help:      "Successful artifact bundle loads",
	})

	m.artifactFails = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "artifact_load_failures_total",
		Help:      "Failed artifact bundle loads by reason",
	}, []string{"reason"})

	m.artifactReady = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "artifacts_ready",
		Help:      "1 when the model, encoder and club table are loaded",
	})

	m.scanDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scan_duration_milliseconds",
		Help:      "Duration of batch scans in milliseconds",
		Buckets:   m.scanBuckets,
	}, []string{"kind"})

	m.scanRowsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scan_rows_scored_total",
		Help:      "Rows scored by batch scans",
	})

	m.scanRowsExcluded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scan_rows_excluded_total",
		Help:      "Rows excluded from rankings by reason",
	}, []string{"reason"})

	m.scanFallbackRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scan_fallback_rows_total",
		Help:      "Rows scored one by one after their chunk failed",
	})

	m.scanFallbackChunk = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scan_fallback_chunks_total",
		Help:      "Chunks whose batched scoring failed",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_errors_total",
		Help:      "HTTP error responses by endpoint and error type",
	}, []string{"endpoint", "error_type"})

	m.memoryBytes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_alloc_bytes",
		Help:      "Bytes of allocated heap objects",
	})
	m.goroutines = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Number of goroutines",
	})
	m.gcPause = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_avg_milliseconds",
		Help:      "Average GC pause since process start",
	})
}

// RecordPrediction counts n scored records and the call latency.
func (m *Manager) RecordPrediction(mode string, n int, latencyMs float64) {
	m.predictions.WithLabelValues(mode).Add(float64(n))
	m.predictionLatency.WithLabelValues(mode).Observe(latencyMs)
}

// RecordImputed counts fields filled from defaults.
func (m *Manager) RecordImputed(n int) {
	if n > 0 {
		m.imputedFields.Add(float64(n))
	}
}

// RecordUnknownCategory counts one unseen category for column.
func (m *Manager) RecordUnknownCategory(column string) {
	m.unknownCategories.WithLabelValues(column).Inc()
}

// RecordClubFallback counts a global-mean club substitution.
func (m *Manager) RecordClubFallback() { m.clubFallbacks.Inc() }

// RecordClassification counts one classification outcome.
func (m *Manager) RecordClassification(label string) {
	m.classifications.WithLabelValues(label).Inc()
}

// RecordFeatureMismatch counts a rejected vector.
func (m *Manager) RecordFeatureMismatch() { m.featureMismatches.Inc() }

// RecordArtifactLoad records a successful load and flips the ready gauge.
func (m *Manager) RecordArtifactLoad() {
	m.artifactLoads.Inc()
	m.artifactReady.Set(1)
}

// RecordArtifactFailure records a failed load.
func (m *Manager) RecordArtifactFailure(reason string) {
	m.artifactFails.WithLabelValues(reason).Inc()
}

// RecordScan records a finished scan of the given kind.
func (m *Manager) RecordScan(kind string, scored int, durationMs float64) {
	m.scanDuration.WithLabelValues(kind).Observe(durationMs)
	m.scanRowsScored.Add(float64(scored))
}

// RecordScanExcluded counts rows dropped from a ranking.
func (m *Manager) RecordScanExcluded(reason string, n int) {
	if n > 0 {
		m.scanRowsExcluded.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordScanFallback counts one failed chunk and the rows re-scored individually.
func (m *Manager) RecordScanFallback(rows int) {
	m.scanFallbackChunk.Inc()
	m.scanFallbackRows.Add(float64(rows))
}

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an error response.
func (m *Manager) RecordHTTPError(endpoint, errorType string) {
	m.httpErrors.WithLabelValues(endpoint, errorType).Inc()
}

// UpdateSystemStats refreshes the process gauges.
func (m *Manager) UpdateSystemStats(allocBytes uint64, goroutines int, avgGCPauseMs float64) {
	m.memoryBytes.Set(float64(allocBytes))
	m.goroutines.Set(float64(goroutines))
	m.gcPause.Set(avgGCPauseMs)
}

// Package-level helpers delegate to the global manager.

func RecordPrediction(mode string, n int, latencyMs float64) {
	globalManager.RecordPrediction(mode, n, latencyMs)
}
func RecordImputed(n int)                    { globalManager.RecordImputed(n) }
func RecordUnknownCategory(column string)    { globalManager.RecordUnknownCategory(column) }
func RecordClubFallback()                    { globalManager.RecordClubFallback() }
func RecordClassification(label string)      { globalManager.RecordClassification(label) }
func RecordFeatureMismatch()                 { globalManager.RecordFeatureMismatch() }
func RecordArtifactLoad()                    { globalManager.RecordArtifactLoad() }
func RecordArtifactFailure(reason string)    { globalManager.RecordArtifactFailure(reason) }
func RecordScanExcluded(reason string, n int) { globalManager.RecordScanExcluded(reason, n) }
func RecordScanFallback(rows int)            { globalManager.RecordScanFallback(rows) }
func RecordHTTPError(endpoint, errorType string) {
	globalManager.RecordHTTPError(endpoint, errorType)
}
func RecordScan(kind string, scored int, durationMs float64) {
	globalManager.RecordScan(kind, scored, durationMs)
}
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

func UpdateSystemStats(allocBytes uint64, goroutines int, avgGCPauseMs float64) {
	globalManager.UpdateSystemStats(allocBytes, goroutines, avgGCPauseMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
