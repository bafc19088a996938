package validation

import (
	"regexp"
	"strings"
)

// Kind selects the format check applied to a field.
type Kind int

const (
	KindText Kind = iota
	KindEmail
	KindPhone
	KindURL
	KindName
	KindAlphanumeric
)

// Rule bounds one named field. Zero MinLength or MaxLength means unbounded on
// that side.
type Rule struct {
	Kind      Kind
	MinLength int
	MaxLength int
}

// DefaultMaxLength applies to fields without a rule.
const DefaultMaxLength = MaxValueLength

// DefaultRules covers the fields common contact and signup forms send.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"email":      {Kind: KindEmail, MaxLength: 254},
		"name":       {Kind: KindName, MinLength: 2, MaxLength: 100},
		"firstName":  {Kind: KindName, MaxLength: 50},
		"lastName":   {Kind: KindName, MaxLength: 50},
		"phone":      {Kind: KindPhone, MaxLength: 32},
		"website":    {Kind: KindURL, MaxLength: 2048},
		"url":        {Kind: KindURL, MaxLength: 2048},
		"company":    {Kind: KindText, MaxLength: 200},
		"subject":    {Kind: KindText, MaxLength: 200},
		"message":    {Kind: KindText, MaxLength: 5000},
		"zip":        {Kind: KindAlphanumeric, MaxLength: 12},
		"postalCode": {Kind: KindAlphanumeric, MaxLength: 12},
	}
}

var (
	emailPattern        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern        = regexp.MustCompile(`^\+?[0-9]{1,16}$`)
	urlPattern          = regexp.MustCompile(`^(?i:https?)://.+$`)
	namePattern         = regexp.MustCompile(`^[\p{L}\p{M} '\-]+$`)
	alphanumericPattern = regexp.MustCompile(`^[\p{L}\p{M}\p{N} ]+$`)

	phoneFormatting = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")
)

// IsEmail reports whether s has a local@domain.tld shape.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsPhone ignores common formatting characters, then expects an optional
// leading + and 1 to 16 digits.
func IsPhone(s string) bool {
	return phonePattern.MatchString(phoneFormatting.Replace(s))
}

func IsURL(s string) bool {
	return urlPattern.MatchString(s)
}

// checkFormat returns the error message for a format violation, or "".
func checkFormat(field string, kind Kind, value string) string {
	switch kind {
	case KindEmail:
		if !IsEmail(value) {
			return "Invalid email format"
		}
	case KindPhone:
		if !IsPhone(value) {
			return "Invalid phone number format"
		}
	case KindURL:
		if !IsURL(value) {
			return "Invalid URL format"
		}
	case KindName:
		if !namePattern.MatchString(value) {
			return field + " contains invalid characters"
		}
	case KindAlphanumeric:
		if !alphanumericPattern.MatchString(value) {
			return field + " contains invalid characters"
		}
	}
	return ""
}
