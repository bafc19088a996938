// Package testutil provides common test utilities for handler and integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RequestOption decorates a test request with intake headers.
type RequestOption func(*http.Request)

// WithOrigin sets the Origin header.
func WithOrigin(origin string) RequestOption {
	return func(r *http.Request) { r.Header.Set("Origin", origin) }
}

// WithCSRF sets the anti-forgery header and a matching cookie.
func WithCSRF(cookieName, token string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set("X-CSRF-Token", token)
		r.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}
}

// WithClientIP sets the edge-proxy client address header.
func WithClientIP(ip string) RequestOption {
	return func(r *http.Request) { r.Header.Set("CF-Connecting-IP", ip) }
}

// WithHeader sets an arbitrary header.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// NewJSONRequest creates an HTTP request with a JSON body.
// The body is marshaled to JSON automatically; a string is sent verbatim.
func NewJSONRequest(t *testing.T, method, path string, body any, opts ...RequestOption) *http.Request {
	t.Helper()

	var bodyReader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		bodyReader = bytes.NewBufferString(b)
	default:
		bodyBytes, err := json.Marshal(b)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// NewRequest creates a simple HTTP request without a body.
func NewRequest(t *testing.T, method, path string, opts ...RequestOption) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// DoRequest executes a request against a handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// UnmarshalResponse unmarshals the response body into T without consuming it.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var result T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result), "failed to unmarshal response")
	return &result
}

// UnmarshalEnvelope unmarshals the response body as a generic JSON object.
func UnmarshalEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	return *UnmarshalResponse[map[string]any](t, rr)
}

// AssertStatus asserts the response status code matches expected.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code; body: %s", rr.Body.String())
}

// AssertErrorMessage asserts a failure envelope with the expected message.
func AssertErrorMessage(t *testing.T, rr *httptest.ResponseRecorder, expected string) {
	t.Helper()
	errResp := UnmarshalEnvelope(t, rr)
	assert.Equal(t, false, errResp["success"], "failure envelope must carry success=false")
	assert.Equal(t, expected, errResp["error"], "unexpected error message")
}

// AssertStatusAndError asserts both status code and error message.
func AssertStatusAndError(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus int, expectedMessage string) {
	t.Helper()
	AssertStatus(t, rr, expectedStatus)
	AssertErrorMessage(t, rr, expectedMessage)
}
