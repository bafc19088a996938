// Package provider is the outbound HTTP plumbing shared by the record store
// and notification adapters: JSON requests with bearer auth, the shared
// retry policy and a normalized error taxonomy.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"formgate/internal/retry"
)

const maxResponseBytes = 1 << 20

// Response is a completed HTTP exchange.
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status <= 299
}

// Classify maps a response to a retry class. 429 and 5xx are transient.
func Classify(r *Response) retry.Class {
	switch {
	case r.OK():
		return retry.Success
	case r.Status == http.StatusTooManyRequests, r.Status >= 500:
		return retry.ServerError
	default:
		return retry.ClientError
	}
}

// Client sends JSON to one provider.
type Client struct {
	name   string
	http   *http.Client
	policy retry.Policy
	logger *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(cl *Client) {
		cl.policy = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient creates a client named after the provider; the name appears in
// errors and logs.
func NewClient(name string, opts ...Option) *Client {
	c := &Client{
		name:   name,
		http:   &http.Client{Timeout: 10 * time.Second},
		policy: retry.DefaultPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string {
	return c.name
}

// PostJSON posts payload to url under the shared retry policy. A non-2xx
// final response is returned as a *ProviderError alongside the response.
func (c *Client) PostJSON(ctx context.Context, url, bearer string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewProviderError(ErrorInternal, c.name, "could not encode request", err)
	}

	policy := c.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.WarnContext(ctx, "retrying provider call",
			"provider", c.name,
			"attempt", attempt,
			"delay", delay.String(),
			"reason", err.Error(),
		)
	}

	resp, err := retry.Do(ctx, policy, func(ctx context.Context) (*Response, error) {
		return c.do(ctx, url, bearer, body)
	}, Classify)
	if err != nil {
		return nil, FromTransport(c.name, err)
	}
	if !resp.OK() {
		return resp, FromStatus(c.name, resp.Status)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, url, bearer string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Stop(NewProviderError(ErrorInternal, c.name, "could not build request", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", c.name, err)
	}
	return &Response{Status: res.StatusCode, Body: data}, nil
}

// DecodeID extracts the provider-assigned "id" from a response body.
func DecodeID(provider string, r *Response) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(r.Body, &out); err != nil {
		return "", NewProviderError(ErrorBadData, provider, provider+" returned a malformed response", err)
	}
	if out.ID == "" {
		return "", NewProviderError(ErrorBadData, provider, provider+" response had no id", nil)
	}
	return out.ID, nil
}
