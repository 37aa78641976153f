package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyFirstSuccess(t *testing.T) {
	sleeper := &fakeSleeper{}
	policy := RetryPolicy{Attempts: 3, Backoff: time.Second}

	calls := 0
	err := policy.Do(context.Background(), sleeper, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if len(sleeper.slept) != 0 {
		t.Fatalf("slept %v on immediate success", sleeper.slept)
	}
}

func TestRetryPolicyRecovers(t *testing.T) {
	sleeper := &fakeSleeper{}
	policy := RetryPolicy{Attempts: 3, Backoff: time.Second}

	calls := 0
	err := policy.Do(context.Background(), sleeper, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(sleeper.slept) != 2 || sleeper.slept[0] != time.Second {
		t.Fatalf("backoffs = %v", sleeper.slept)
	}
}

func TestRetryPolicyReturnsLastError(t *testing.T) {
	sleeper := &fakeSleeper{}
	policy := RetryPolicy{Attempts: 3, Backoff: time.Second}

	last := errors.New("attempt 3")
	calls := 0
	err := policy.Do(context.Background(), sleeper, func() error {
		calls++
		if calls < 3 {
			return errors.New("earlier")
		}
		return last
	})
	if !errors.Is(err, last) {
		t.Fatalf("err = %v, want the final attempt's error", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryPolicyZeroAttemptsStillRunsOnce(t *testing.T) {
	sleeper := &fakeSleeper{}
	policy := RetryPolicy{}

	calls := 0
	boom := errors.New("boom")
	err := policy.Do(context.Background(), sleeper, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicyStopsOnCancelledBackoff(t *testing.T) {
	policy := RetryPolicy{Attempts: 5, Backoff: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := policy.Do(ctx, RealSleeper{}, func() error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 before the cancelled backoff", calls)
	}
}

func TestRealSleeperHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RealSleeper{}.Sleep(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
