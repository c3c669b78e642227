// ABOUTME: Tests for the Prometheus collectors
// ABOUTME: Verifies counter movement and that a nil receiver records nothing

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestJobCounters(t *testing.T) {
	m := MustNew(prometheus.NewRegistry())

	m.JobStarted("researcher")
	m.JobStarted("researcher")
	m.JobFinished("researcher", "result", 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.jobsStarted.WithLabelValues("researcher")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsCompleted.WithLabelValues("researcher", "result")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsActive), "one job still active")
}

func TestApprovalCounters(t *testing.T) {
	m := MustNew(prometheus.NewRegistry())

	m.ApprovalRequested("coder")
	m.ApprovalResolved("coder", "approve")
	m.ApprovalRequested("coder")
	m.ApprovalResolved("coder", "timeout")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.approvalsRequested.WithLabelValues("coder")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.approvalsResolved.WithLabelValues("coder", "approve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.approvalsResolved.WithLabelValues("coder", "timeout")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.JobStarted("a")
		m.JobFinished("a", "result", time.Second)
		m.ApprovalRequested("a")
		m.ApprovalResolved("a", "deny")
	})
}
