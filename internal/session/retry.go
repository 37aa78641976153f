package session

import (
	"context"
	"time"
)

// Clock abstracts wall-clock reads so the state machine can be driven with a
// fake clock in tests.
type Clock interface {
	Now() time.Time
}

// Sleeper abstracts blocking pauses. The real implementation respects
// context cancellation; tests substitute one that advances a fake clock.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock reads time.Now.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// RealSleeper blocks on a timer, returning early with the context's error on
// cancellation.
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy retries a transient operation a fixed number of times with a
// fixed pause between attempts.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// Do runs fn up to p.Attempts times, sleeping p.Backoff between failures.
// It returns nil on the first success, the last error once attempts are
// exhausted, or the context error if cancelled mid-backoff.
func (p RetryPolicy) Do(ctx context.Context, sleeper Sleeper, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		if serr := sleeper.Sleep(ctx, p.Backoff); serr != nil {
			return serr
		}
	}
	return err
}
