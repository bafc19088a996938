// Package validation checks submitted fields against required-field and
// per-field rules, and sanitizes accepted values.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"formgate/internal/submission"
)

// Result lists every violation found. Required-field errors come first, in
// the order the required names were configured, followed by per-field errors
// in submission order.
type Result struct {
	Valid  bool     `json:"isValid"`
	Errors []string `json:"errors"`
}

type Validator struct {
	rules            map[string]Rule
	defaultMaxLength int
}

type Option func(*Validator)

// WithRules replaces the rule table.
func WithRules(rules map[string]Rule) Option {
	return func(v *Validator) {
		if rules != nil {
			v.rules = rules
		}
	}
}

// WithDefaultMaxLength sets the bound for fields without a rule.
func WithDefaultMaxLength(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.defaultMaxLength = n
		}
	}
}

func New(opts ...Option) *Validator {
	v := &Validator{
		rules:            DefaultRules(),
		defaultMaxLength: DefaultMaxLength,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs the required pass and then the per-field pass. A field
// reports at most one error: the first length or format violation.
func (v *Validator) Validate(fields submission.Fields, required []string) Result {
	var errs []string

	for _, name := range required {
		if fields.String(name) == "" {
			errs = append(errs, name+" is required")
		}
	}

	for _, f := range fields {
		value := strings.TrimSpace(submission.ValueString(f.Value))
		if value == "" {
			continue
		}
		if msg := v.checkField(f.Name, value); msg != "" {
			errs = append(errs, msg)
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

func (v *Validator) checkField(name, value string) string {
	rule, known := v.rules[name]
	if !known {
		rule = Rule{Kind: KindText, MaxLength: v.defaultMaxLength}
	}

	length := utf8.RuneCountInString(value)
	if rule.MinLength > 0 && length < rule.MinLength {
		return fmt.Sprintf("%s must be at least %d characters", name, rule.MinLength)
	}
	if rule.MaxLength > 0 && length > rule.MaxLength {
		return fmt.Sprintf("%s must be at most %d characters", name, rule.MaxLength)
	}
	if !known {
		return ""
	}
	return checkFormat(name, rule.Kind, value)
}
