package validation

import (
	"bytes"
	"encoding/json"
	"html"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"formgate/internal/submission"
)

// MaxValueLength bounds every sanitized string, counted in characters after
// entity encoding.
const MaxValueLength = 10_000

// maxSafeNumber is the largest integer a float64 represents exactly.
const maxSafeNumber = 1<<53 - 1

// Sanitize makes a string safe to store and to embed in HTML. It is
// idempotent: Sanitize(Sanitize(s)) == Sanitize(s), including for input that
// already carries entities.
func Sanitize(s string) string {
	s = html.UnescapeString(s)
	s = strings.ToValidUTF8(s, "")
	s = stripControl(s)
	s = norm.NFC.String(s)
	s = collapseWhitespace(s)
	s = strings.TrimSpace(s)
	s = html.EscapeString(s)
	s = truncateEncoded(s, MaxValueLength)
	return strings.TrimSpace(s)
}

// SanitizeValue normalizes one decoded JSON value. Strings are sanitized,
// numbers are clamped to the exactly representable integer range with
// non-finite values mapped to zero, booleans pass through and nested
// arrays or objects are flattened to sanitized JSON text.
func SanitizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return Sanitize(t)
	case bool:
		return t
	case float64:
		return clampNumber(t)
	case float32:
		return clampNumber(float64(t))
	case int:
		return clampNumber(float64(t))
	case int64:
		return clampNumber(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0.0
		}
		return clampNumber(f)
	case json.RawMessage:
		var buf bytes.Buffer
		if err := json.Compact(&buf, t); err != nil {
			return Sanitize(string(t))
		}
		return Sanitize(buf.String())
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return Sanitize(string(raw))
	}
}

// SanitizeFields returns a sanitized copy of fields in the same order.
func SanitizeFields(fields submission.Fields) submission.Fields {
	out := make(submission.Fields, 0, len(fields))
	for _, f := range fields {
		out = append(out, submission.Field{Name: f.Name, Value: SanitizeValue(f.Value)})
	}
	return out
}

func clampNumber(f float64) float64 {
	switch {
	case math.IsNaN(f), math.IsInf(f, 0):
		return 0
	case f > maxSafeNumber:
		return maxSafeNumber
	case f < -maxSafeNumber:
		return -maxSafeNumber
	default:
		return f
	}
}

// stripControl drops control runes except line breaks and tabs.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\t', '\r':
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// collapseWhitespace replaces each whitespace run with "\n" when the run
// contains a line break and with a single space otherwise.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inRun, lineBreak := false, false
	flush := func() {
		if !inRun {
			return
		}
		if lineBreak {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
		inRun, lineBreak = false, false
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			inRun = true
			if r == '\n' || r == '\r' {
				lineBreak = true
			}
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}

// truncateEncoded cuts s to at most limit runes without leaving a partial
// entity at the end.
func truncateEncoded(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	cut := 0
	for i := range s {
		if limit == 0 {
			cut = i
			break
		}
		limit--
	}
	s = s[:cut]
	if amp := strings.LastIndexByte(s, '&'); amp >= 0 && !strings.Contains(s[amp:], ";") {
		s = s[:amp]
	}
	return s
}
