package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"formgate/internal/adapters/notifier"
	"formgate/internal/adapters/provider"
	"formgate/internal/adapters/recordstore"
	"formgate/internal/csrf"
	"formgate/internal/dispatch"
	"formgate/internal/intake/handler"
	"formgate/internal/intake/middleware"
	"formgate/internal/origin"
	"formgate/internal/platform/config"
	"formgate/internal/platform/httpserver"
	"formgate/internal/platform/logger"
	"formgate/internal/platform/metrics"
	platformredis "formgate/internal/platform/redis"
	ratelimit "formgate/internal/ratelimit/service"
	"formgate/internal/ratelimit/store/window"
	"formgate/internal/retry"
	"formgate/internal/spam"
	"formgate/internal/validation"
	"formgate/pkg/platform/httputil"
)

const shutdownTimeout = 10 * time.Second

// main resolves configuration, wires the guard pipeline and the downstream
// adapters, and runs the public and admin listeners until a signal arrives.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Log.Format, cfg.Log.Level, os.Stdout)
	slog.SetDefault(log)
	m := metrics.New()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("invalid redis configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store ratelimit.WindowStore
	if redisClient != nil {
		// Unreachable at boot is not fatal: the limiter fails open and the
		// store circuit retries until the server comes back.
		if err := redisClient.Health(ctx); err != nil {
			log.Warn("redis unreachable at startup, rate limiting degraded", "error", err, "log_type", "degraded")
		}
		store = window.NewRedisStore(redisClient.Client)
		defer redisClient.Close()
	} else {
		log.Warn("no shared rate-limit store configured", "log_type", "config_absent")
	}
	limiter := ratelimit.New(store, ratelimit.WithLogger(log), ratelimit.WithMetrics(m))

	var csrfGuard *csrf.Guard
	if cfg.CSRF.Enabled {
		csrfGuard = csrf.New(csrf.WithCookieName(cfg.CSRF.CookieName), csrf.WithMaxAge(cfg.CSRF.MaxAge))
	}

	guardOpts := []middleware.Option{
		middleware.WithLogger(log),
		middleware.WithMetrics(m),
		middleware.WithRateLimit(limiter, cfg.RateLimit.PerMinute, cfg.RateLimit.Window),
	}
	if csrfGuard != nil {
		guardOpts = append(guardOpts, middleware.WithCSRF(csrfGuard))
	}
	guards := middleware.New(origin.NewPolicy(cfg.Intake.AllowedOrigins), guardOpts...)

	verifier := spam.New(cfg.Spam.Secret,
		spam.WithVerifyURL(cfg.Spam.VerifyURL),
		spam.WithTimeout(cfg.Spam.Timeout),
		spam.WithLogger(log),
		spam.WithMetrics(m),
	)
	if !verifier.Enabled() {
		log.Warn("spam verification disabled", "log_type", "config_absent")
	}

	dispatcher := dispatch.New(buildServices(cfg, log),
		dispatch.WithLogger(log),
		dispatch.WithMetrics(m),
		dispatch.WithTimeout(cfg.Server.DispatchTimeout),
	)

	h := handler.New(guards, dispatcher,
		handler.WithLogger(log),
		handler.WithMetrics(m),
		handler.WithCSRF(csrfGuard),
		handler.WithSpamVerifier(verifier),
		handler.WithValidator(validation.New()),
		handler.WithRequiredFields(cfg.Intake.RequiredFields),
		handler.WithHoneypot(cfg.Intake.HoneypotField),
		handler.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)

	srv := httpserver.New(cfg.Server.Addr, handler.NewRouter(h, guards, log, cfg.Server.TrustProxyHeaders))
	admin := httpserver.New(cfg.Server.MetricsAddr, adminRouter(redisClient))

	log.Info("starting formgate",
		"addr", cfg.Server.Addr,
		"metrics_addr", cfg.Server.MetricsAddr,
		"services", dispatcher.Services(),
	)

	errCh := make(chan error, 2)
	for _, s := range []*http.Server{srv, admin} {
		go func() {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, s := range []*http.Server{srv, admin} {
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "addr", s.Addr, "error", err)
		}
	}
}

func buildServices(cfg config.Config, log *slog.Logger) []dispatch.Service {
	policy := retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, BaseDelay: cfg.Retry.BaseDelay}
	var services []dispatch.Service

	if cfg.RecordStore.Enabled() {
		client := provider.NewClient(recordstore.ServiceName,
			provider.WithTimeout(cfg.RecordStore.Timeout),
			provider.WithRetryPolicy(policy),
			provider.WithLogger(log),
		)
		adapter, err := recordstore.New(recordstore.Config{
			BaseURL: cfg.RecordStore.BaseURL,
			Token:   cfg.RecordStore.Token,
			BaseID:  cfg.RecordStore.BaseID,
			Table:   cfg.RecordStore.Table,
		}, client)
		if err != nil {
			log.Error("record store misconfigured", "error", err, "log_type", "config_absent")
		} else {
			services = append(services, adapter)
		}
	} else {
		log.Warn("record store not configured", "log_type", "config_absent")
	}

	if cfg.Email.Enabled() {
		client := provider.NewClient(notifier.ServiceName,
			provider.WithTimeout(cfg.Email.Timeout),
			provider.WithRetryPolicy(policy),
			provider.WithLogger(log),
		)
		adapter, err := notifier.New(notifier.Config{
			BaseURL: cfg.Email.BaseURL,
			APIKey:  cfg.Email.APIKey,
			From:    cfg.Email.From,
			To:      cfg.Email.To,
			Subject: cfg.Email.Subject,
		}, client)
		if err != nil {
			log.Error("email notifier misconfigured", "error", err, "log_type", "config_absent")
		} else {
			services = append(services, adapter)
		}
	} else {
		log.Warn("email notifier not configured", "log_type", "config_absent")
	}

	return services
}

// adminRouter serves metrics and health on the internal listener.
func adminRouter(redisClient *platformredis.Client) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "redis": "not_configured"}
		if redisClient != nil {
			status["redis"] = "ok"
			if err := redisClient.Health(r.Context()); err != nil {
				// The limiter fails open, so a Redis outage degrades but does not fail health.
				status["redis"] = "unavailable"
			}
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	})
	return r
}
