package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks inbound API requests by route and status class.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assethub_http_requests_total",
			Help: "Total number of HTTP requests served (by route, method and status).",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assethub_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"route", "method"},
	)

	// Tracks NATS messages published by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages published.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks list/report cache hits and misses per entity.
	CacheAccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assethub_cache_access_total",
			Help: "Silo cache hits/misses by entity.",
		},
		[]string{"entity", "result"}, // hit | miss
	)

	// Tracks cache hits and misses for secrets / credentials.
	SecretsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrets_cache_access_total",
			Help: "Number of cache hits/misses in secret cache.",
		},
		[]string{"result"}, // hit | miss
	)

	// Tracks seller-tape import rows by batch outcome.
	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assethub_import_rows_total",
			Help: "Seller-tape rows processed by result.",
		},
		[]string{"result"}, // staged | error | boarded
	)

	ImportJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assethub_import_jobs_total",
			Help: "Import queue jobs consumed by result.",
		},
		[]string{"result"}, // ok | requeued | dropped
	)

	// Measures cash-flow projection time per outcome path.
	CashflowComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assethub_cashflow_compute_seconds",
			Help:    "Time to project a cash-flow schedule.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// Measures stratification compute time per dimension.
	StratComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assethub_strat_compute_seconds",
			Help:    "Time to compute a stratification report.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dimension"},
	)

	// Counts report flights canceled because a newer compute superseded them.
	SupersededFlights = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assethub_superseded_flights_total",
			Help: "In-flight report computations canceled by a newer request.",
		},
		[]string{"kind"}, // strat | cashflow
	)

	// Tracks outbound valuation-vendor API calls.
	VendorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assethub_vendor_requests_total",
			Help: "Outbound valuation vendor requests by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	// Tracks servicer feed frames by type and result.
	FeedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assethub_servicer_feed_events_total",
			Help: "Servicer feed frames processed by type and result.",
		},
		[]string{"type", "result"}, // result = applied | unknown_loan | error
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assethub_errors_total",
			Help: "Count of service-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Gauges the last successful background sweep/refresh (seconds since epoch).
	LastJobTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assethub_last_job_timestamp",
			Help: "Timestamp (unix seconds) of the last successful background job run.",
		},
		[]string{"job"},
	)
)

// ObserveDuration records the time taken for a function and updates the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// silently ignore counters; they're not meant for duration tracking
	}
}

func IncHTTPRequest(route, method, status string) {
	HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
}

func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

func IncCacheAccess(entity, result string) {
	CacheAccess.WithLabelValues(entity, result).Inc()
}

func IncCacheHit(result string) {
	SecretsCacheHits.WithLabelValues(result).Inc()
}

func IncImportRows(result string, n int) {
	ImportRowsTotal.WithLabelValues(result).Add(float64(n))
}

func IncImportJob(result string) {
	ImportJobsTotal.WithLabelValues(result).Inc()
}

func IncSuperseded(kind string) {
	SupersededFlights.WithLabelValues(kind).Inc()
}

func IncVendorRequest(endpoint, status string) {
	VendorRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

func IncFeedEvent(eventType, result string) {
	FeedEventsTotal.WithLabelValues(eventType, result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func SetLastJob(job string, t time.Time) {
	LastJobTimestamp.WithLabelValues(job).Set(float64(t.Unix()))
}
