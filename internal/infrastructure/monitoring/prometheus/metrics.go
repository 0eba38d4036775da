package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all FamilyScope metrics.  Every Record* method is safe to
// call on a nil receiver so components can run without instrumentation.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	// Acquisition
	AcquisitionsTotal     CounterVec
	SourceRequestsTotal   CounterVec
	SourceRequestDuration HistogramVec
	SourceDegradedTotal   CounterVec

	// Enrichment
	StageTransitionsTotal   CounterVec
	AnalyzerRequestsTotal   CounterVec
	AnalyzerRequestDuration HistogramVec

	// Import
	ImportItemsTotal CounterVec
	ImportsActive    GaugeVec

	// Infrastructure
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	StoreOpDuration  HistogramVec
	FamilySize       GaugeVec
	ErrorsTotal      CounterVec
}

// Default buckets
var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultSourceDurationBuckets = []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20, 30}
	DefaultLLMDurationBuckets    = []float64{.5, 1, 2, 5, 10, 30, 60, 120}
	DefaultStoreDurationBuckets  = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1}
)

// NewAppMetrics registers all metrics and returns the AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")

	m.AcquisitionsTotal = collector.RegisterCounter("acquisitions_total", "Patent acquisitions by outcome", "outcome")
	m.SourceRequestsTotal = collector.RegisterCounter("source_requests_total", "External source requests", "source", "operation", "outcome")
	m.SourceRequestDuration = collector.RegisterHistogram("source_request_duration_seconds", "External source request duration", DefaultSourceDurationBuckets, "source", "operation")
	m.SourceDegradedTotal = collector.RegisterCounter("source_degraded_total", "Acquisitions that continued without a secondary source", "source")

	m.StageTransitionsTotal = collector.RegisterCounter("stage_transitions_total", "Enrichment stage transitions", "from", "to")
	m.AnalyzerRequestsTotal = collector.RegisterCounter("analyzer_requests_total", "Analysis capability calls", "operation", "status")
	m.AnalyzerRequestDuration = collector.RegisterHistogram("analyzer_request_duration_seconds", "Analysis capability call duration", DefaultLLMDurationBuckets, "operation")

	m.ImportItemsTotal = collector.RegisterCounter("import_items_total", "Batch import items by outcome", "outcome")
	m.ImportsActive = collector.RegisterGauge("imports_active", "Batch imports currently running", "session")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.StoreOpDuration = collector.RegisterHistogram("store_operation_duration_seconds", "Collection store operation duration", DefaultStoreDurationBuckets, "backend", "operation")
	m.FamilySize = collector.RegisterGauge("family_size", "Records in the family collection", "session")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "error_code")

	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordSourceCall records one request to an external source.  result is a
// short label such as "success", "not_found" or "error".
func (m *AppMetrics) RecordSourceCall(source, operation, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.SourceRequestsTotal.WithLabelValues(source, operation, result).Inc()
	m.SourceRequestDuration.WithLabelValues(source, operation).Observe(d.Seconds())
}

func (m *AppMetrics) RecordDegraded(source string) {
	if m == nil {
		return
	}
	m.SourceDegradedTotal.WithLabelValues(source).Inc()
}

func (m *AppMetrics) RecordAcquisition(result string) {
	if m == nil {
		return
	}
	m.AcquisitionsTotal.WithLabelValues(result).Inc()
}

func (m *AppMetrics) RecordStageTransition(from, to string) {
	if m == nil {
		return
	}
	m.StageTransitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *AppMetrics) RecordAnalyzerCall(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.AnalyzerRequestsTotal.WithLabelValues(operation, outcome(err)).Inc()
	m.AnalyzerRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *AppMetrics) RecordImportItem(result string) {
	if m == nil {
		return
	}
	m.ImportItemsTotal.WithLabelValues(result).Inc()
}

// ImportStarted increments the active-import gauge and returns the matching
// decrement.
func (m *AppMetrics) ImportStarted(session string) func() {
	if m == nil {
		return func() {}
	}
	g := m.ImportsActive.WithLabelValues(session)
	g.Inc()
	return g.Dec
}

func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func (m *AppMetrics) RecordStoreOp(backend, operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.StoreOpDuration.WithLabelValues(backend, operation).Observe(d.Seconds())
}

func (m *AppMetrics) SetFamilySize(session string, n int) {
	if m == nil {
		return
	}
	m.FamilySize.WithLabelValues(session).Set(float64(n))
}

func (m *AppMetrics) RecordError(component, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

//Personal.AI order the ending
