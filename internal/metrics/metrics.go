// ABOUTME: Prometheus collectors for dispatcher and approval activity.
// ABOUTME: A nil *Metrics is valid and records nothing; serving /metrics is the caller's job.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors reporting job and approval activity.
// All methods are nil-safe so callers can run without metrics wired.
type Metrics struct {
	jobsStarted   *prometheus.CounterVec
	jobsCompleted *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobsActive    prometheus.Gauge

	approvalsRequested *prometheus.CounterVec
	approvalsResolved  *prometheus.CounterVec
}

// MustNew constructs a Metrics instance registered with the given registerer.
// Registration errors panic, mirroring promauto semantics; pass a fresh
// registry in tests to avoid duplicate-registration panics.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		jobsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentq",
				Subsystem: "dispatcher",
				Name:      "jobs_started_total",
				Help:      "Jobs fetched and handed to the agent engine.",
			},
			[]string{"agent"},
		),
		jobsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentq",
				Subsystem: "dispatcher",
				Name:      "jobs_completed_total",
				Help:      "Terminal job outcomes by status (result, error, failed).",
			},
			[]string{"agent", "status"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "agentq",
				Subsystem: "dispatcher",
				Name:      "job_duration_seconds",
				Help:      "Wall time per job from fetch to delivered response.",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
			},
			[]string{"agent"},
		),
		jobsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "agentq",
				Subsystem: "dispatcher",
				Name:      "jobs_active",
				Help:      "Jobs currently executing across all agents.",
			},
		),
		approvalsRequested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentq",
				Subsystem: "hitl",
				Name:      "approvals_requested_total",
				Help:      "Tool invocations that required a human approval round trip.",
			},
			[]string{"agent"},
		),
		approvalsResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentq",
				Subsystem: "hitl",
				Name:      "approvals_resolved_total",
				Help:      "Approval outcomes by resolution (approve, deny, abort, timeout).",
			},
			[]string{"agent", "resolution"},
		),
	}

	reg.MustRegister(
		m.jobsStarted, m.jobsCompleted, m.jobDuration, m.jobsActive,
		m.approvalsRequested, m.approvalsResolved,
	)
	return m
}

// JobStarted records a job entering execution.
func (m *Metrics) JobStarted(agent string) {
	if m == nil {
		return
	}
	m.jobsStarted.WithLabelValues(agent).Inc()
	m.jobsActive.Inc()
}

// JobFinished records a terminal outcome and the job's duration.
func (m *Metrics) JobFinished(agent, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobsCompleted.WithLabelValues(agent, status).Inc()
	m.jobDuration.WithLabelValues(agent).Observe(duration.Seconds())
	m.jobsActive.Dec()
}

// ApprovalRequested records one approval round trip starting.
func (m *Metrics) ApprovalRequested(agent string) {
	if m == nil {
		return
	}
	m.approvalsRequested.WithLabelValues(agent).Inc()
}

// ApprovalResolved records how an approval round trip ended.
func (m *Metrics) ApprovalResolved(agent, resolution string) {
	if m == nil {
		return
	}
	m.approvalsResolved.WithLabelValues(agent, resolution).Inc()
}
