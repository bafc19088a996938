package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with the timeouts used by both listeners.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Dispatch may run up to its own timeout before the response is written.
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
