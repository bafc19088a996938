package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the intake pipeline.
type Metrics struct {
	GuardRejections   *prometheus.CounterVec
	RateLimitDegraded prometheus.Counter
	SpamVerifications *prometheus.CounterVec
	Deliveries        *prometheus.CounterVec
	DispatchDuration  prometheus.Histogram
	Submissions       *prometheus.CounterVec
}

// New creates and registers all collectors on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers collectors on reg. Tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GuardRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "formgate_guard_rejections_total",
			Help: "Requests rejected by an admission guard",
		}, []string{"guard"}),
		RateLimitDegraded: f.NewCounter(prometheus.CounterOpts{
			Name: "formgate_ratelimit_degraded_total",
			Help: "Rate limit checks that failed open because the store was unavailable",
		}),
		SpamVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "formgate_spam_verifications_total",
			Help: "Spam challenge verification outcomes",
		}, []string{"outcome"}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "formgate_dispatch_total",
			Help: "Downstream delivery outcomes per service",
		}, []string{"service", "outcome"}),
		DispatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "formgate_dispatch_duration_seconds",
			Help:    "Time spent fanning a submission out to downstream services",
			Buckets: prometheus.DefBuckets,
		}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "formgate_submissions_total",
			Help: "Accepted submissions by overall outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncGuardRejection(guard string) {
	m.GuardRejections.WithLabelValues(guard).Inc()
}

func (m *Metrics) IncRateLimitDegraded() {
	m.RateLimitDegraded.Inc()
}

func (m *Metrics) IncSpamVerification(outcome string) {
	m.SpamVerifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDelivery(service string, success bool) {
	m.Deliveries.WithLabelValues(service, outcome(success)).Inc()
}

func (m *Metrics) ObserveDispatch(d time.Duration) {
	m.DispatchDuration.Observe(d.Seconds())
}

func (m *Metrics) IncSubmission(success bool) {
	m.Submissions.WithLabelValues(outcome(success)).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
