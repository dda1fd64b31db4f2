package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyline_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storyline_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ContentMutations counts successful creates, updates and deletes per entity.
	ContentMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyline_content_mutations_total",
		Help: "Total number of content mutations by entity and action",
	}, []string{"entity", "action"})

	// RefusedDeletes counts deletions refused because the parent still has children.
	RefusedDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyline_refused_deletes_total",
		Help: "Total number of deletes refused because of existing children",
	}, []string{"entity"})

	// FollowEvents counts follow and unfollow operations that changed the graph.
	FollowEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyline_follow_events_total",
		Help: "Total number of follow graph changes",
	}, []string{"action"})

	// AuthEvents counts login, logout and registration outcomes.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyline_auth_events_total",
		Help: "Total number of authentication events by type and outcome",
	}, []string{"event", "outcome"})

	// AvatarUploads counts processed avatar uploads by image format.
	AvatarUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyline_avatar_uploads_total",
		Help: "Total number of avatar uploads by format",
	}, []string{"format"})
)

// DatabaseMetrics records query latency for one repository.
type DatabaseMetrics struct{}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics() *DatabaseMetrics {
	return &DatabaseMetrics{}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
