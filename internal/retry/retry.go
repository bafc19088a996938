// Package retry runs an outbound call with exponential backoff. Outcomes are
// classified by the caller: client errors stop immediately, server errors and
// transport errors are retried until the attempt budget is spent.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Class is the caller's verdict on a completed call.
type Class int

const (
	Success Class = iota
	ClientError
	ServerError
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
)

var (
	errClientOutcome = errors.New("client error outcome")
	errServerOutcome = errors.New("server error outcome")
)

// Policy is shared by every outbound adapter.
type Policy struct {
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; each later wait doubles.
	BaseDelay time.Duration
	// OnRetry, if set, is called before each wait with the attempt that just
	// failed (starting at 1) and the delay about to be slept.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns 3 attempts with a 500ms base delay.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Stop marks an operation error as not worth retrying.
func Stop(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, returns a client error outcome, or the
// attempt budget runs out. When the budget runs out on an error outcome the
// outcome is returned with a nil error; when it runs out on an operation
// error that error is returned. Cancelling ctx stops retrying and returns
// the context error.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error), classify func(T) Class) (T, error) {
	var (
		last    T
		attempt int
	)
	operation := func() error {
		attempt++
		out, err := op(ctx)
		if err != nil {
			var zero T
			last = zero
			return err
		}
		last = out
		switch classify(out) {
		case ClientError:
			return backoff.Permanent(errClientOutcome)
		case ServerError:
			return errServerOutcome
		default:
			return nil
		}
	}

	var notify backoff.Notify
	if p.OnRetry != nil {
		notify = func(err error, d time.Duration) {
			p.OnRetry(attempt, d, err)
		}
	}

	err := backoff.RetryNotify(operation, p.backOff(ctx), notify)
	switch {
	case err == nil, errors.Is(err, errClientOutcome), errors.Is(err, errServerOutcome):
		return last, nil
	default:
		var zero T
		return zero, err
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = base
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = time.Duration(math.MaxInt64)
	exp.MaxElapsedTime = 0
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}
