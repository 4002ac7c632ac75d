package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds how often and how patiently an external call is retried.
type Policy struct {
	// Attempts is the total number of calls, including the first one.
	Attempts int
	// BaseDelay is the wait after the first failure; it doubles per retry.
	BaseDelay time.Duration
	// MaxDelay caps a single wait.
	MaxDelay time.Duration
	// CallTimeout bounds each individual attempt. Zero disables it.
	CallTimeout time.Duration
}

// DefaultPolicy is used for embedding and language-model calls.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:    3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    15 * time.Second,
		CallTimeout: 60 * time.Second,
	}
}

// FatalError marks a failure that retrying cannot fix (bad input, auth).
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// Fatal wraps err so Do stops retrying immediately.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// Do runs fn until it succeeds, returns a fatal error, the context is done,
// or the policy's attempts are used up. The last error is returned.
func Do[T any](ctx context.Context, p Policy, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var result T
	attempt := 0

	operation := func() error {
		attempt++
		callCtx := ctx
		if p.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, p.CallTimeout)
			defer cancel()
		}

		value, err := fn(callCtx)
		if err != nil {
			if IsFatal(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = value
		return nil
	}

	notify := func(err error, wait time.Duration) {
		if logger != nil {
			logger.Warn("retrying after failure",
				"op", op,
				"attempt", attempt,
				"max_attempts", p.attempts(),
				"backoff", wait,
				"error", err,
			)
		}
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(p.backOff(), ctx), notify)
	return result, err
}

func (p Policy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

func (p Policy) backOff() backoff.BackOff {
	// WithMaxRetries treats zero as unlimited.
	if p.attempts() == 1 {
		return &backoff.StopBackOff{}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(p.attempts()-1))
}

// FromStatus classifies a failed HTTP response: client errors other than
// 408 and 429 are fatal, everything else may be retried.
func FromStatus(status int, err error) error {
	if status >= 400 && status < 500 && status != 408 && status != 429 {
		return Fatal(err)
	}
	return err
}
