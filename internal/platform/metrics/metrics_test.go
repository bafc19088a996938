package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncGuardRejection("origin")
	m.IncGuardRejection("origin")
	m.IncRateLimitDegraded()
	m.IncDelivery("notifier", true)
	m.IncDelivery("recordStore", false)
	m.IncSpamVerification("rejected")
	m.IncSubmission(true)
	m.ObserveDispatch(120 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GuardRejections.WithLabelValues("origin")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitDegraded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("notifier", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("recordStore", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SpamVerifications.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("success")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.DispatchDuration))
}
