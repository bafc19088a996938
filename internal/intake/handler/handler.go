// Package handler exposes the intake endpoint: it decodes the submission,
// runs the body-level guards and hands the sanitized result to the
// dispatcher.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"formgate/internal/csrf"
	"formgate/internal/dispatch"
	"formgate/internal/intake/middleware"
	"formgate/internal/platform/metrics"
	"formgate/internal/spam"
	"formgate/internal/submission"
	"formgate/internal/validation"
	dErrors "formgate/pkg/domain-errors"
	"formgate/pkg/platform/httputil"
	"formgate/pkg/platform/privacy"
	"formgate/pkg/requestcontext"
)

const defaultMaxBodyBytes = 64 << 10

// Dispatcher delivers an accepted submission downstream.
type Dispatcher interface {
	Dispatch(ctx context.Context, s submission.Submission) dispatch.Result
}

// SpamVerifier checks the challenge token attached to a submission.
type SpamVerifier interface {
	Verify(ctx context.Context, token, clientIP string) bool
}

type Handler struct {
	guards     *middleware.Guards
	csrf       *csrf.Guard
	verifier   SpamVerifier
	validator  *validation.Validator
	dispatcher Dispatcher
	required   []string
	honeypot   string
	maxBody    int64
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithCSRF enables GET /csrf-token. The same guard must be given to the
// middleware for POST requests to be checked.
func WithCSRF(guard *csrf.Guard) Option {
	return func(h *Handler) {
		h.csrf = guard
	}
}

func WithSpamVerifier(v SpamVerifier) Option {
	return func(h *Handler) {
		h.verifier = v
	}
}

func WithValidator(v *validation.Validator) Option {
	return func(h *Handler) {
		if v != nil {
			h.validator = v
		}
	}
}

// WithRequiredFields sets the fields that must be present and non-empty.
func WithRequiredFields(fields []string) Option {
	return func(h *Handler) {
		h.required = fields
	}
}

// WithHoneypot sets the hidden field whose presence marks a bot. Empty
// disables the check.
func WithHoneypot(field string) Option {
	return func(h *Handler) {
		h.honeypot = field
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// New creates the intake handler.
func New(guards *middleware.Guards, dispatcher Dispatcher, opts ...Option) *Handler {
	h := &Handler{
		guards:     guards,
		dispatcher: dispatcher,
		validator:  validation.New(),
		maxBody:    defaultMaxBodyBytes,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the intake routes.
func (h *Handler) Register(r chi.Router) {
	r.With(h.guards.RequireOrigin).Get("/csrf-token", h.handleIssueToken)
	r.With(h.guards.RequireOrigin, h.guards.RequireCSRF, h.guards.RateLimit).Post("/", h.handleSubmit)
}

type tokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if h.csrf == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeMethodNotAllowed, "Method not allowed"))
		return
	}
	token, cookie, err := h.csrf.Issue()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to issue csrf token", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "csrf token"))
		return
	}
	http.SetCookie(w, cookie)
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, &tokenResponse{Success: true, Token: string(token)})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fields, err := h.decode(w, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if h.honeypot != "" && fields.String(h.honeypot) != "" {
		h.guards.Reject(r, middleware.GuardHoneypot, "honeypot_triggered")
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	token := r.Header.Get(spam.HeaderName)
	if token == "" {
		token = fields.String(spam.FieldName)
	}
	fields = fields.Without(spam.FieldName, h.honeypot).WithoutReserved()

	if h.verifier != nil && !h.verifier.Verify(ctx, token, requestcontext.ClientIP(ctx)) {
		h.guards.Reject(r, middleware.GuardSpam, "spam_rejected")
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "Spam verification failed"))
		return
	}

	if result := h.validator.Validate(fields, h.required); !result.Valid {
		h.guards.Reject(r, middleware.GuardValidate, "validation_failed")
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "Validation failed").WithDetails(result.Errors))
		return
	}

	sub := submission.New(validation.SanitizeFields(fields), submission.Metadata{
		ClientIP:   requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
		Origin:     requestcontext.Origin(ctx),
		ReceivedAt: requestcontext.Now(ctx),
	})

	result := h.dispatcher.Dispatch(ctx, sub)

	h.logger.InfoContext(ctx, "submission processed",
		"submission_id", result.SubmissionID,
		"success", result.Success,
		"fields", len(sub.Fields()),
		"ip_prefix", privacy.AnonymizeIP(sub.Metadata().ClientIP),
	)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	httputil.WriteJSON(w, status, envelope(result))
}

// decode reads a bounded JSON object body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (submission.Fields, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Request body too large")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid request body")
	}

	var fields submission.Fields
	if err := json.Unmarshal(body, &fields); err != nil {
		if errors.Is(err, submission.ErrNotObject) {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Request body must be a JSON object")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid JSON")
	}
	return fields, nil
}

// envelope flattens per-service results next to the overall outcome.
func envelope(result dispatch.Result) map[string]any {
	out := make(map[string]any, len(result.Services)+3)
	for name, res := range result.Services {
		out[name] = res
	}
	out["success"] = result.Success
	out["submissionId"] = result.SubmissionID
	if !result.Success {
		out["error"] = "Submission could not be delivered"
	}
	return out
}
