// Package service implements the sliding-window rate limiter on top of a
// shared WindowStore. The limiter fails open: when the store is missing or
// unhealthy the request is admitted and the result is marked degraded.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"formgate/internal/platform/metrics"
	"formgate/internal/ratelimit/models"
	"formgate/internal/ratelimit/ports"
	"formgate/pkg/platform/circuit"
	"formgate/pkg/platform/privacy"
	"formgate/pkg/requestcontext"
)

// WindowStore is aliased so callers can wire a store without importing ports.
type WindowStore = ports.WindowStore

var errInvalidLimit = errors.New("rate limit and window must be positive")

type Service struct {
	store   WindowStore
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithBreaker replaces the default store circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		if b != nil {
			s.breaker = b
		}
	}
}

// New creates a limiter. A nil store is accepted: every check then fails open.
func New(store WindowStore, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		breaker: circuit.New("ratelimit-store"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Check admits or rejects one request from clientID against a limit of
// limit requests per window. The read-modify-write is not atomic; concurrent
// requests from one client can overshoot the limit slightly.
func (s *Service) Check(ctx context.Context, clientID string, limit int, window time.Duration) (*models.Result, error) {
	if limit <= 0 || window <= 0 {
		return nil, errInvalidLimit
	}
	now := requestcontext.Now(ctx)

	if s.store == nil {
		return s.degraded(ctx, clientID, limit, now, window, "store_not_configured", nil), nil
	}
	if !s.breaker.Allow() {
		return s.degraded(ctx, clientID, limit, now, window, "circuit_open", nil), nil
	}

	key := models.NewIPKey(clientID)
	stored, err := s.store.Get(ctx, key)
	if err != nil {
		s.recordFailure(ctx)
		return s.degraded(ctx, clientID, limit, now, window, "store_error", err), nil
	}

	live := withinWindow(stored, now, window)
	if len(live) >= limit {
		s.recordSuccess(ctx)
		resetAt := oldest(live).Add(window)
		ports.LogAudit(ctx, s.logger, "rate_limit_exceeded",
			"identifier", privacy.AnonymizeIP(clientID),
			"limit", limit,
			"window", window.String(),
		)
		return &models.Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: models.RetryAfterSeconds(now, resetAt),
		}, nil
	}

	live = append(live, now)
	if err := s.store.Put(ctx, key, live, window); err != nil {
		s.recordFailure(ctx)
		return s.degraded(ctx, clientID, limit, now, window, "store_error", err), nil
	}
	s.recordSuccess(ctx)

	return &models.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(live),
		ResetAt:   oldest(live).Add(window),
	}, nil
}

func (s *Service) degraded(ctx context.Context, clientID string, limit int, now time.Time, window time.Duration, reason string, err error) *models.Result {
	logType := "degraded"
	if reason == "store_not_configured" {
		logType = "config_absent"
	}
	attrs := []any{
		"reason", reason,
		"identifier", privacy.AnonymizeIP(clientID),
		"log_type", logType,
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	s.logger.WarnContext(ctx, "rate limiter degraded, failing open", attrs...)
	if s.metrics != nil {
		s.metrics.IncRateLimitDegraded()
	}
	return models.NewDegradedResult(limit, now, window)
}

func (s *Service) recordFailure(ctx context.Context) {
	if _, change := s.breaker.RecordFailure(); change.Opened {
		s.logger.WarnContext(ctx, "rate limit store circuit opened", "breaker", s.breaker.Name())
	}
}

func (s *Service) recordSuccess(ctx context.Context) {
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "rate limit store circuit closed", "breaker", s.breaker.Name())
	}
}

// withinWindow keeps timestamps strictly newer than now-window.
func withinWindow(stored []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	live := make([]time.Time, 0, len(stored)+1)
	for _, ts := range stored {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}
	return live
}

func oldest(ts []time.Time) time.Time {
	first := ts[0]
	for _, t := range ts[1:] {
		if t.Before(first) {
			first = t
		}
	}
	return first
}
