// Package ports defines the interfaces the rate limiter depends on.
package ports

import (
	"context"
	"log/slog"
	"time"

	"formgate/pkg/requestcontext"
)

// WindowStore holds one timestamp list per key. Implementations need not be
// atomic across Get and Put; callers accept the resulting soft limit.
type WindowStore interface {
	// Get returns the stored timestamps for key, or an empty slice if absent.
	Get(ctx context.Context, key string) ([]time.Time, error)

	// Put replaces the timestamps for key and expires the key after ttl.
	Put(ctx context.Context, key string, timestamps []time.Time, ttl time.Duration) error
}

// LogAudit logs a security-relevant decision with the request ID and a
// log_type attribute so audit lines can be filtered.
func LogAudit(ctx context.Context, logger *slog.Logger, event string, attrs ...any) {
	if logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	args := append(attrs, "event", event, "log_type", "audit")
	logger.InfoContext(ctx, event, args...)
}
