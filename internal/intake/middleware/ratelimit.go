package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"formgate/internal/ratelimit/models"
	dErrors "formgate/pkg/domain-errors"
	"formgate/pkg/platform/httputil"
	"formgate/pkg/platform/privacy"
	"formgate/pkg/requestcontext"
)

//go:generate mockgen -source=ratelimit.go -destination=mocks/mocks.go -package=mocks Limiter

// Limiter checks one client against a sliding window.
type Limiter interface {
	Check(ctx context.Context, clientID string, limit int, window time.Duration) (*models.Result, error)
}

// RateLimit enforces the sliding-window limit keyed by client IP. The limiter
// fails open: an error admits the request.
func (g *Guards) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.limiter == nil || g.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)

		result, err := g.limiter.Check(ctx, ip, g.limit, g.window)
		if err != nil {
			g.logger.ErrorContext(ctx, "failed to check rate limit", "error", err, "ip_prefix", privacy.AnonymizeIP(ip))
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)

		if !result.Allowed {
			// the limiter already audits the rejection
			if g.metrics != nil {
				g.metrics.IncGuardRejection(GuardRateLimit)
			}
			writeRateLimitExceeded(w, result)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if result.Degraded {
		w.Header().Set("X-RateLimit-Status", "degraded")
	}
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	de := dErrors.New(dErrors.CodeRateLimited, "Too many requests, please try again later")
	httputil.WriteJSON(w, dErrors.HTTPStatus(de.Code), &httputil.ErrorResponse{
		Error:      de.Message,
		RetryAfter: result.RetryAfter,
	})
}
