// Package middleware holds the header-level admission guards of the intake
// pipeline: origin policy, anti-forgery and rate limiting. Each guard
// rejects with the JSON envelope and stops the chain.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"formgate/internal/csrf"
	"formgate/internal/origin"
	"formgate/internal/platform/metrics"
	"formgate/internal/ratelimit/ports"
	dErrors "formgate/pkg/domain-errors"
	"formgate/pkg/platform/httputil"
	"formgate/pkg/platform/privacy"
	"formgate/pkg/requestcontext"
)

// Guard names used for logs and the rejection metric.
const (
	GuardOrigin    = "origin"
	GuardCSRF      = "csrf"
	GuardRateLimit = "rate_limit"
	GuardSpam      = "spam"
	GuardHoneypot  = "honeypot"
	GuardValidate  = "validation"
)

// Guards builds the admission middleware chain.
type Guards struct {
	policy  *origin.Policy
	csrf    *csrf.Guard
	limiter Limiter
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Guards)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guards) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guards) {
		g.metrics = m
	}
}

// WithCSRF enables the anti-forgery check. Without it RequireCSRF passes
// every request through.
func WithCSRF(guard *csrf.Guard) Option {
	return func(g *Guards) {
		g.csrf = guard
	}
}

// WithRateLimit enables the per-client limit of limit requests per window.
// A zero window means one minute.
func WithRateLimit(limiter Limiter, limit int, window time.Duration) Option {
	return func(g *Guards) {
		g.limiter = limiter
		g.limit = limit
		if window > 0 {
			g.window = window
		}
	}
}

// New creates the guards around an origin policy.
func New(policy *origin.Policy, opts ...Option) *Guards {
	g := &Guards{
		policy: policy,
		window: time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.csrf == nil {
		g.logger.Warn("anti-forgery check disabled", "log_type", "config_absent")
	}
	return g
}

// CORS attaches the CORS headers to every response and answers preflight
// requests with 204 and no body.
func (g *Guards) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for key, values := range g.policy.CORSHeaders(r.Header.Get("Origin")) {
			w.Header()[key] = values
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOrigin rejects requests whose Origin is absent or not allowed.
func (g *Guards) RequireOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.policy.IsAllowed(r.Header.Get("Origin")) {
			g.reject(r, GuardOrigin, "origin_rejected")
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "Origin not allowed"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCSRF rejects requests whose anti-forgery header does not match the
// cookie.
func (g *Guards) RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.csrf != nil && !g.csrf.ValidateRequest(r) {
			g.reject(r, GuardCSRF, "csrf_rejected")
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "Invalid CSRF token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Reject records a guard rejection decided outside this package.
func (g *Guards) Reject(r *http.Request, guard, event string) {
	g.reject(r, guard, event)
}

func (g *Guards) reject(r *http.Request, guard, event string) {
	ctx := r.Context()
	ports.LogAudit(ctx, g.logger, event,
		"guard", guard,
		"ip_prefix", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
		"origin", r.Header.Get("Origin"),
	)
	if g.metrics != nil {
		g.metrics.IncGuardRejection(guard)
	}
}
