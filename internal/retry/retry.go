// Package retry runs an action under a bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"
)

// Defaults used by the repository: five attempts, waiting 600ms, 1.2s,
// 2.4s and 4.8s between them.
const (
	DefaultAttempts = 5
	DefaultBase     = 600 * time.Millisecond
)

// Policy decides how often and how long to wait before trying again.
type Policy struct {
	Attempts  int
	Base      time.Duration
	Transient func(error) bool
	// Sleep waits for d or until ctx is done. Tests replace it to keep time
	// virtual.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait with the failed attempt number.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Default returns the standard policy for the given transient predicate.
func Default(transient func(error) bool) Policy {
	return Policy{Attempts: DefaultAttempts, Base: DefaultBase, Transient: transient}
}

// Delay is the wait after the failed attempt with the given zero-based
// index: Base * 2^attempt.
func (p Policy) Delay(attempt int) time.Duration {
	return p.Base << attempt
}

// Do calls fn until it succeeds, fails permanently, runs out of attempts
// or ctx is cancelled. It returns the number of attempts made and the last
// error, joined with ctx's error when cancellation ended the retries.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var err error
	for i := 0; i < attempts; i++ {
		if cerr := ctx.Err(); cerr != nil {
			return i, errors.Join(err, cerr)
		}
		if err = fn(ctx); err == nil {
			return i + 1, nil
		}
		if p.Transient == nil || !p.Transient(err) || i == attempts-1 {
			return i + 1, err
		}
		d := p.Delay(i)
		if p.OnRetry != nil {
			p.OnRetry(i+1, d, err)
		}
		if serr := sleep(ctx, d); serr != nil {
			return i + 1, errors.Join(err, serr)
		}
	}
	return attempts, err
}

// Sleep waits for d, returning early with ctx's error when it is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
