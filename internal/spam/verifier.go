// Package spam verifies Turnstile-style challenge tokens.
package spam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"formgate/internal/platform/metrics"
	"formgate/pkg/platform/sentinel"
)

const (
	// HeaderName carries the challenge token when the client sends it as a header.
	HeaderName = "CF-Turnstile-Response"
	// FieldName carries the challenge token when it is embedded in the form body.
	FieldName = "cf-turnstile-response"

	DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
	defaultTimeout   = 5 * time.Second
	maxResponseBytes = 64 << 10
)

type verifyRequest struct {
	Secret   string `json:"secret"`
	Response string `json:"response"`
	RemoteIP string `json:"remoteip,omitempty"`
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verifier calls the challenge provider once per token. It never retries.
type Verifier struct {
	secret    string
	verifyURL string
	client    *http.Client
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Verifier)

func WithVerifyURL(url string) Option {
	return func(v *Verifier) {
		if url != "" {
			v.verifyURL = url
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) {
		if c != nil {
			v.client = c
		}
	}
}

// WithTimeout bounds the verification call.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.client.Timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) {
		v.metrics = m
	}
}

// New creates a verifier. An empty secret disables verification.
func New(secret string, opts ...Option) *Verifier {
	v := &Verifier{
		secret:    secret,
		verifyURL: DefaultVerifyURL,
		client:    &http.Client{Timeout: defaultTimeout},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return v.secret != ""
}

// Verify reports whether token passes the challenge. Without a secret every
// request passes; with one, anything short of an explicit success fails.
func (v *Verifier) Verify(ctx context.Context, token, clientIP string) bool {
	if !v.Enabled() {
		v.logger.WarnContext(ctx, "spam verification disabled: no secret configured", "log_type", "config_absent")
		v.record("disabled")
		return true
	}
	if token == "" {
		v.logger.InfoContext(ctx, "spam verification rejected: missing token")
		v.record("missing_token")
		return false
	}

	resp, err := v.call(ctx, token, clientIP)
	if err != nil {
		v.logger.WarnContext(ctx, "spam verification failed", "error", err)
		v.record("error")
		return false
	}
	if !resp.Success {
		v.logger.InfoContext(ctx, "spam verification rejected", "error_codes", resp.ErrorCodes)
		v.record("rejected")
		return false
	}
	v.record("passed")
	return true
}

func (v *Verifier) call(ctx context.Context, token, clientIP string) (*verifyResponse, error) {
	body, err := json.Marshal(verifyRequest{Secret: v.secret, Response: token, RemoteIP: clientIP})
	if err != nil {
		return nil, fmt.Errorf("encode verification request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verification request: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: verification endpoint returned status %d", sentinel.ErrUnavailable, res.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode verification response: %w: %w", sentinel.ErrMalformed, err)
	}
	return &out, nil
}

func (v *Verifier) record(outcome string) {
	if v.metrics != nil {
		v.metrics.IncSpamVerification(outcome)
	}
}
