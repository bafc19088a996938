// Package privacy holds helpers that keep personal and secret data out of
// logs and shared stores.
package privacy

import (
	"net"
	"strings"
)

// Redacted replaces sensitive values in log output.
const Redacted = "[REDACTED]"

var sensitiveKeyParts = []string{
	"password",
	"token",
	"key",
	"secret",
	"authorization",
	"cookie",
	"session",
}

// IsSensitiveKey reports whether a field or attribute name names a credential
// or session value. Matching is case-insensitive on substrings, so
// "X-CSRF-Token", "apiKey" and "session_id" all match.
func IsSensitiveKey(name string) bool {
	lower := strings.ToLower(name)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// RedactMap returns a copy of m with sensitive values replaced at any depth.
// Nested maps and slices are copied; the input is never modified.
func RedactMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if IsSensitiveKey(k) {
			out[k] = Redacted
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return RedactMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}

// AnonymizeIP truncates an address for logging: IPv4 keeps the /24, IPv6 the
// /48. Values that do not parse are returned as "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" {
		return ""
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "invalid"
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}
	return parsed.Mask(net.CIDRMask(48, 128)).String()
}
