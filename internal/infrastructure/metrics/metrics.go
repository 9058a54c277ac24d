package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Approval workflow metrics
	TransitionsExecuted *prometheus.CounterVec
	TransitionConflicts prometheus.Counter
	TransitionDuration  prometheus.Histogram

	// Capital call metrics
	CapitalCallsCreated prometheus.Counter
	FeeClamps           prometheus.Counter

	// Distribution metrics
	DistributionsCreated prometheus.Counter
	WaterfallsApplied    prometheus.Counter
	WaterfallDuration    prometheus.Histogram

	// Performance metrics
	IRRNonConverged        prometheus.Counter
	PerformanceCacheHits   prometheus.Counter
	PerformanceCacheMisses prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBConnections prometheus.Gauge

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec

	// Authentication metrics
	AuthAttempts *prometheus.CounterVec
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec
	EventsPending   prometheus.Gauge
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Approval workflow metrics
		TransitionsExecuted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_transitions_total",
				Help: "Total approval transitions executed by entity type and action",
			},
			[]string{"entity_type", "action"},
		),
		TransitionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_transition_conflicts_total",
			Help: "Total transitions refused because the persisted status changed underneath",
		}),
		TransitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fundledger_transition_duration_seconds",
			Help:    "Duration of approval transitions",
			Buckets: prometheus.DefBuckets,
		}),

		// Capital call metrics
		CapitalCallsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_capital_calls_created_total",
			Help: "Total capital calls created",
		}),
		FeeClamps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_fee_clamps_total",
			Help: "Total negative gross fees clamped to zero",
		}),

		// Distribution metrics
		DistributionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_distributions_created_total",
			Help: "Total distributions created",
		}),
		WaterfallsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_waterfalls_applied_total",
			Help: "Total distribution waterfalls applied",
		}),
		WaterfallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fundledger_waterfall_duration_seconds",
			Help:    "Duration of waterfall application",
			Buckets: prometheus.DefBuckets,
		}),

		// Performance metrics
		IRRNonConverged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_irr_nonconverged_total",
			Help: "Total IRR computations that exited without full convergence",
		}),
		PerformanceCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_performance_cache_hits_total",
			Help: "Total performance snapshots served from cache",
		}),
		PerformanceCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_performance_cache_misses_total",
			Help: "Total performance snapshots recomputed",
		}),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Database metrics
		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fundledger_db_connections",
			Help: "Current number of database connections",
		}),

		// Redis metrics
		RedisOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		// Authentication metrics
		AuthAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_auth_attempts_total",
				Help: "Total authentication attempts",
			},
			[]string{"status"},
		),
		AuthFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),

		// Outbox metrics
		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_events_published_total",
				Help: "Total outbox events published by type",
			},
			[]string{"event_type"},
		),
		EventsPending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fundledger_events_pending",
			Help: "Current number of unpublished outbox events",
		}),
	}
}
