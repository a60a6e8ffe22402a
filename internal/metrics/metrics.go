package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for reconboard.
// A nil *MetricsRegistry is valid and records nothing.
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Reconciliation Metrics
	RunTriggersTotal   *prometheus.CounterVec
	StatusPollsTotal   *prometheus.CounterVec
	PollCycleDuration  prometheus.Histogram
	TrackedMappings    prometheus.Gauge
	PollSchedulerState prometheus.Gauge

	// Preview Metrics
	PreviewFetchesTotal *prometheus.CounterVec
	DecodedRowsTotal    *prometheus.CounterVec
	OpenPreviewViews    prometheus.Gauge

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
}

// NewMetricsRegistry registers every metric with reg
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconboard_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reconboard_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reconboard_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Reconciliation Metrics
		RunTriggersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconboard_run_triggers_total",
				Help: "Reconciliation run triggers by outcome",
			},
			[]string{"outcome"},
		),
		StatusPollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconboard_status_polls_total",
				Help: "Status polls by resulting status or error",
			},
			[]string{"result"},
		),
		PollCycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reconboard_poll_cycle_duration_seconds",
				Help:    "Duration of one poll cycle across all mappings",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		TrackedMappings: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "reconboard_tracked_mappings",
				Help: "Mappings currently tracked by the run orchestrator",
			},
		),
		PollSchedulerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "reconboard_poll_scheduler_running",
				Help: "1 while the poll scheduler is running",
			},
		),

		// Preview Metrics
		PreviewFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconboard_preview_fetches_total",
				Help: "Sample blob fetches by category and outcome",
			},
			[]string{"category", "outcome"},
		),
		DecodedRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconboard_decoded_rows_total",
				Help: "Rows produced by the sample decoder by encoding",
			},
			[]string{"encoding"},
		),
		OpenPreviewViews: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "reconboard_open_preview_views",
				Help: "Preview views currently open",
			},
		),

		// Cache Metrics
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconboard_cache_hits_total",
				Help: "Total cache hits by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconboard_cache_misses_total",
				Help: "Total cache misses by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
	}
}

func (m *MetricsRegistry) ObserveTrigger(outcome string) {
	if m == nil {
		return
	}
	m.RunTriggersTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsRegistry) ObservePoll(result string) {
	if m == nil {
		return
	}
	m.StatusPollsTotal.WithLabelValues(result).Inc()
}

func (m *MetricsRegistry) ObservePollCycle(seconds float64) {
	if m == nil {
		return
	}
	m.PollCycleDuration.Observe(seconds)
}

func (m *MetricsRegistry) SetTrackedMappings(n int) {
	if m == nil {
		return
	}
	m.TrackedMappings.Set(float64(n))
}

func (m *MetricsRegistry) SetSchedulerRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.PollSchedulerState.Set(1)
		return
	}
	m.PollSchedulerState.Set(0)
}

func (m *MetricsRegistry) ObservePreviewFetch(category, outcome string) {
	if m == nil {
		return
	}
	m.PreviewFetchesTotal.WithLabelValues(category, outcome).Inc()
}

func (m *MetricsRegistry) AddDecodedRows(encoding string, rows int) {
	if m == nil {
		return
	}
	m.DecodedRowsTotal.WithLabelValues(encoding).Add(float64(rows))
}

func (m *MetricsRegistry) AddOpenViews(delta float64) {
	if m == nil {
		return
	}
	m.OpenPreviewViews.Add(delta)
}

func (m *MetricsRegistry) ObserveCache(pattern string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(pattern).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(pattern).Inc()
}
