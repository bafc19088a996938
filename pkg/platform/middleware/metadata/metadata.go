package metadata

import (
	"net"
	"net/http"
	"strings"

	"formgate/pkg/requestcontext"
)

// ClientMetadata extracts client IP, User-Agent and Origin from the request
// and adds them to the context. Submission metadata is built from these
// values only, never from the body. Apply early in the chain.
//
// Forwarding headers are client-controlled unless a proxy overwrites them, so
// they are read only when trustProxyHeaders is set.
func ClientMetadata(trustProxyHeaders bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithClientMetadata(
				r.Context(),
				ClientIPFromRequest(r, trustProxyHeaders),
				r.Header.Get("User-Agent"),
				r.Header.Get("Origin"),
			)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIPFromRequest extracts the client IP. With trustProxyHeaders the edge
// proxy header CF-Connecting-IP wins, then the first X-Forwarded-For hop, then
// X-Real-IP. The connection address is used otherwise.
func ClientIPFromRequest(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		if ip := forwardedIP(r.Header); ip != "" {
			return ip
		}
	}

	if addr := r.RemoteAddr; addr != "" {
		if host, _, err := net.SplitHostPort(addr); err == nil {
			return host
		}
		return addr
	}

	return "unknown"
}

func forwardedIP(h http.Header) string {
	if cf := strings.TrimSpace(h.Get("CF-Connecting-IP")); cf != "" {
		return cf
	}

	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	return strings.TrimSpace(h.Get("X-Real-IP"))
}
