package syncmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records sync engine operations.
type SyncMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)

	// RecordJobOutcome counts a job reaching a state such as completed or failed.
	RecordJobOutcome(ctx context.Context, kind, state string)
	// RecordTeamMatch counts a team matching decision.
	RecordTeamMatch(ctx context.Context, outcome string)
	// RecordUpsert counts reconciled entities by kind and whether they were created.
	RecordUpsert(ctx context.Context, entity string, created bool)
}

// PrometheusMetrics implements SyncMetrics with client_golang collectors.
type PrometheusMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	jobs      *prometheus.CounterVec
	matches   *prometheus.CounterVec
	upserts   *prometheus.CounterVec
}

// NewPrometheusMetrics registers the sync collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shuttle_sync",
			Name:      "operation_attempts_total",
			Help:      "Service operations started.",
		}, []string{"operation", "service"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shuttle_sync",
			Name:      "operation_success_total",
			Help:      "Service operations that succeeded.",
		}, []string{"operation", "service"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shuttle_sync",
			Name:      "operation_failure_total",
			Help:      "Service operations that failed.",
		}, []string{"operation", "service"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shuttle_sync",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shuttle_sync",
			Name:      "jobs_total",
			Help:      "Jobs reaching a lifecycle state.",
		}, []string{"kind", "state"}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shuttle_sync",
			Name:      "team_matches_total",
			Help:      "Team matching decisions.",
		}, []string{"outcome"}),
		upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shuttle_sync",
			Name:      "entity_upserts_total",
			Help:      "Reconciled entities.",
		}, []string{"entity", "created"}),
	}
	reg.MustRegister(m.attempts, m.successes, m.failures, m.duration, m.jobs, m.matches, m.upserts)
	return m
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.duration.WithLabelValues(operation, service).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordJobOutcome(_ context.Context, kind, state string) {
	m.jobs.WithLabelValues(kind, state).Inc()
}

func (m *PrometheusMetrics) RecordTeamMatch(_ context.Context, outcome string) {
	m.matches.WithLabelValues(outcome).Inc()
}

func (m *PrometheusMetrics) RecordUpsert(_ context.Context, entity string, created bool) {
	label := "false"
	if created {
		label = "true"
	}
	m.upserts.WithLabelValues(entity, label).Inc()
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

// NewNoop returns metrics that record nothing.
func NewNoop() SyncMetrics { return NoOpMetrics{} }

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (NoOpMetrics) RecordJobOutcome(context.Context, string, string)                       {}
func (NoOpMetrics) RecordTeamMatch(context.Context, string)                                {}
func (NoOpMetrics) RecordUpsert(context.Context, string, bool)                             {}
