// Package origin decides which browser origins may submit forms and builds
// the matching CORS response headers.
package origin

import (
	"net/http"
	"strings"

	pstrings "formgate/pkg/platform/strings"
)

const (
	wildcard   = "*"
	nullOrigin = "null"
)

// Header values sent with every CORS response.
const (
	AllowedMethods = "GET, POST, OPTIONS"
	AllowedHeaders = "Content-Type, X-CSRF-Token, CF-Turnstile-Response"
	MaxAgeSeconds  = "86400"
)

// Policy is a parsed allow-list. It is immutable and safe for concurrent use.
type Policy struct {
	any      bool
	exact    map[string]struct{}
	suffixes []string
}

// NewPolicy parses a comma-separated allow-list. Entries are trimmed,
// lowercased and deduplicated since scheme and host compare case-insensitively. "*" allows every non-empty origin, an entry starting with "."
// allows every origin ending with it, anything else must match exactly.
func NewPolicy(allowList string) *Policy {
	p := &Policy{exact: make(map[string]struct{})}
	for _, entry := range pstrings.SplitListFold(allowList) {
		switch {
		case entry == wildcard:
			p.any = true
		case strings.HasPrefix(entry, "."):
			p.suffixes = append(p.suffixes, entry)
			p.exact[entry] = struct{}{}
		default:
			p.exact[entry] = struct{}{}
		}
	}
	return p
}

// IsAllowed reports whether origin passes the policy. An absent origin is
// never allowed.
func (p *Policy) IsAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	if p.any {
		return true
	}
	origin = strings.ToLower(origin)
	if _, ok := p.exact[origin]; ok {
		return true
	}
	for _, suffix := range p.suffixes {
		if strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}

// CORSHeaders returns the response headers for origin. Disallowed or absent
// origins are answered with "null" instead of being reflected.
func (p *Policy) CORSHeaders(origin string) http.Header {
	h := make(http.Header)
	allowed := nullOrigin
	if p.IsAllowed(origin) {
		allowed = origin
	}
	h.Set("Access-Control-Allow-Origin", allowed)
	h.Set("Access-Control-Allow-Methods", AllowedMethods)
	h.Set("Access-Control-Allow-Headers", AllowedHeaders)
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Set("Access-Control-Max-Age", MaxAgeSeconds)
	h.Set("Vary", "Origin")
	return h
}

// IsAllowed parses allowList and checks origin against it in one call.
func IsAllowed(origin, allowList string) bool {
	return NewPolicy(allowList).IsAllowed(origin)
}
