// Package email derives presentation details from email addresses.
package email

import (
	"strings"
	"unicode"
)

// DisplayName guesses a human name from the local part of an address:
// "jane.doe+forms@x.com" becomes "Jane Doe". It returns "" when the local
// part has no usable segments.
func DisplayName(address string) string {
	localPart := address
	if at := strings.IndexByte(address, '@'); at >= 0 {
		localPart = address[:at]
	}
	if plus := strings.IndexByte(localPart, '+'); plus > 0 {
		localPart = localPart[:plus]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	if len(parts) == 0 {
		return ""
	}

	first := capitalize(parts[0])
	if len(parts) == 1 {
		return first
	}
	return first + " " + capitalize(parts[len(parts)-1])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
