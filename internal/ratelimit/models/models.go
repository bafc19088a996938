package models

import "time"

// Result is the outcome of one sliding-window check.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	// RetryAfter is in whole seconds, only set when not allowed.
	RetryAfter int `json:"retry_after,omitempty"`
	// Degraded marks a result produced without consulting the shared store.
	Degraded bool `json:"degraded,omitempty"`
}

// NewDegradedResult admits a request the limiter could not check.
func NewDegradedResult(limit int, now time.Time, window time.Duration) *Result {
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit,
		ResetAt:   now.Add(window),
		Degraded:  true,
	}
}

// RetryAfterSeconds rounds the wait until resetAt up to whole seconds.
func RetryAfterSeconds(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
