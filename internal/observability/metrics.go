package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records repository query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agora_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DomainErrors counts errors returned by services, labelled by service and error code.
	DomainErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_domain_errors_total",
		Help: "Total number of errors returned by domain services",
	}, []string{"service", "code"})

	// LikeEvents counts like and unlike operations that changed state.
	LikeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_like_events_total",
		Help: "Total number of like state changes by target type and action",
	}, []string{"target_type", "action"})

	// MigrationsApplied counts schema changes applied or reverted by the migrator.
	MigrationsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_migrations_total",
		Help: "Total number of schema changes applied or reverted",
	}, []string{"direction"})

	// CacheRequests counts cache-aside lookups by result.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_cache_requests_total",
		Help: "Total number of cache lookups by result",
	}, []string{"result"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		ObserveQuery(operation, table, start)
	}
}

// RecordDomainError increments the domain error counter.
func RecordDomainError(service, code string) {
	DomainErrors.WithLabelValues(service, code).Inc()
}
