package spam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formgate/pkg/platform/sentinel"
)

func newProvider(t *testing.T, calls *atomic.Int32, handle func(w http.ResponseWriter, req verifyRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req verifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handle(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestVerifyWithoutSecretFailsOpen(t *testing.T) {
	var logs bytes.Buffer
	v := New("", WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	assert.True(t, v.Verify(context.Background(), "", "203.0.113.1"))
	assert.Contains(t, logs.String(), "verification disabled")
}

func TestVerifyMissingTokenFailsClosed(t *testing.T) {
	var calls atomic.Int32
	srv := newProvider(t, &calls, func(w http.ResponseWriter, _ verifyRequest) {
		_ = json.NewEncoder(w).Encode(verifyResponse{Success: true})
	})
	v := New("secret", WithVerifyURL(srv.URL), WithLogger(discardLogger()))

	assert.False(t, v.Verify(context.Background(), "", "203.0.113.1"))
	assert.Zero(t, calls.Load(), "no outbound call without a token")
}

func TestVerifySendsSecretTokenAndIP(t *testing.T) {
	var calls atomic.Int32
	var got verifyRequest
	srv := newProvider(t, &calls, func(w http.ResponseWriter, req verifyRequest) {
		got = req
		_ = json.NewEncoder(w).Encode(verifyResponse{Success: true})
	})
	v := New("s3cret", WithVerifyURL(srv.URL), WithLogger(discardLogger()))

	assert.True(t, v.Verify(context.Background(), "tok", "198.51.100.2"))
	assert.Equal(t, verifyRequest{Secret: "s3cret", Response: "tok", RemoteIP: "198.51.100.2"}, got)
}

func TestVerifyFailsClosed(t *testing.T) {
	tests := []struct {
		name   string
		handle func(w http.ResponseWriter, req verifyRequest)
	}{
		{"provider says no", func(w http.ResponseWriter, _ verifyRequest) {
			_ = json.NewEncoder(w).Encode(verifyResponse{Success: false, ErrorCodes: []string{"invalid-input-response"}})
		}},
		{"server error", func(w http.ResponseWriter, _ verifyRequest) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, _ verifyRequest) {
			_, _ = w.Write([]byte("<html>"))
		}},
		{"success field missing", func(w http.ResponseWriter, _ verifyRequest) {
			_, _ = w.Write([]byte(`{"hostname":"example.com"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := newProvider(t, &calls, tt.handle)
			v := New("secret", WithVerifyURL(srv.URL), WithLogger(discardLogger()))

			assert.False(t, v.Verify(context.Background(), "tok", "203.0.113.1"))
			assert.Equal(t, int32(1), calls.Load(), "verification is never retried")
		})
	}
}

func TestVerifyTransportFailureFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	v := New("secret", WithVerifyURL(url), WithLogger(discardLogger()))
	assert.False(t, v.Verify(context.Background(), "tok", "203.0.113.1"))
}

func TestVerifyTimeoutFailsClosed(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	v := New("secret", WithVerifyURL(srv.URL), WithTimeout(50*time.Millisecond), WithLogger(discardLogger()))
	assert.False(t, v.Verify(context.Background(), "tok", "203.0.113.1"))
}

func TestCallClassifiesFailures(t *testing.T) {
	var calls atomic.Int32
	outage := newProvider(t, &calls, func(w http.ResponseWriter, _ verifyRequest) {
		w.WriteHeader(http.StatusBadGateway)
	})
	garbled := newProvider(t, &calls, func(w http.ResponseWriter, _ verifyRequest) {
		_, _ = w.Write([]byte("<html>"))
	})

	_, err := New("secret", WithVerifyURL(outage.URL)).call(context.Background(), "tok", "")
	assert.True(t, errors.Is(err, sentinel.ErrUnavailable))

	_, err = New("secret", WithVerifyURL(garbled.URL)).call(context.Background(), "tok", "")
	assert.True(t, errors.Is(err, sentinel.ErrMalformed))
}
