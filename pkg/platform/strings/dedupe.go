// Package strings parses the comma-separated lists used in configuration.
package strings

import (
	"strings"
)

// SplitList splits a comma-separated list, trimming each entry and dropping
// blanks and repeats. Order of first appearance is preserved. A blank input
// yields an empty, non-nil slice.
//
//	SplitList(" a@x.com, b@x.com,,a@x.com ") // ["a@x.com" "b@x.com"]
func SplitList(list string) []string {
	return splitList(list, false)
}

// SplitListFold is SplitList for case-insensitive values such as origins:
// entries are lowercased before deduplication.
//
//	SplitListFold("https://A.com, https://a.COM") // ["https://a.com"]
func SplitListFold(list string) []string {
	return splitList(list, true)
}

func splitList(list string, fold bool) []string {
	parts := strings.Split(list, ",")
	seen := make(map[string]struct{}, len(parts))
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		entry := strings.TrimSpace(part)
		if fold {
			entry = strings.ToLower(entry)
		}
		if entry == "" {
			continue
		}
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		result = append(result, entry)
	}

	return result
}
