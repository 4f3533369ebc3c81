package upload

import (
	"context"
	"errors"
	"time"

	"github.com/ukaji3/refpix-go/pkg/refpix/store"
)

// ErrRunDeadline is reported when the run's deadline passes before an
// association's transfer could complete.
var ErrRunDeadline = errors.New("run deadline exceeded")

// RetryPolicy bounds how often and how patiently a transfer is repeated.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first.
	MaxRetries int
	// Backoff is the wait before the first retry; it grows linearly.
	Backoff time.Duration
	// AttemptTimeout bounds each attempt. Zero means no per-attempt bound.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		Backoff:        500 * time.Millisecond,
		AttemptTimeout: 300 * time.Second,
	}
}

// Do calls fn until it succeeds, returns a permanent error, or the retries
// are used up. It returns the number of attempts made and the last error.
//
// Cancelling ctx stops further attempts but does not interrupt one already in
// flight; each attempt runs on a context detached from ctx that carries only
// the attempt timeout. A ctx cancelled before any attempt yields zero attempts
// and an error wrapping ErrRunDeadline.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= p.MaxRetries+1; attempt++ {
		if ctx.Err() != nil {
			return attempts, deadlineError(ctx, lastErr)
		}

		attempts++
		lastErr = p.attempt(ctx, attempt, fn)
		if lastErr == nil {
			return attempts, nil
		}
		if store.IsPermanent(lastErr) || errors.Is(lastErr, ErrRunDeadline) || attempt > p.MaxRetries {
			break
		}

		if err := sleep(ctx, p.delay(attempt)); err != nil {
			return attempts, deadlineError(ctx, lastErr)
		}
	}

	return attempts, lastErr
}

func (p RetryPolicy) attempt(ctx context.Context, n int, fn func(ctx context.Context, attempt int) error) error {
	attemptCtx := context.WithoutCancel(ctx)
	if p.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(attemptCtx, p.AttemptTimeout)
		defer cancel()
	}
	return fn(attemptCtx, n)
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	return p.Backoff * time.Duration(attempt)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type deadlineErr struct {
	cause error
	last  error
}

func (e *deadlineErr) Error() string {
	if e.last != nil {
		return ErrRunDeadline.Error() + " after: " + e.last.Error()
	}
	return ErrRunDeadline.Error()
}

func (e *deadlineErr) Unwrap() []error {
	errs := []error{ErrRunDeadline}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	if e.last != nil {
		errs = append(errs, e.last)
	}
	return errs
}

func deadlineError(ctx context.Context, last error) error {
	return &deadlineErr{cause: context.Cause(ctx), last: last}
}
