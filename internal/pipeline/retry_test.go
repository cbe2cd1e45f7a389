package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunWithRetryFirstSuccess(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRunWithRetryExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	start := time.Now()
	const delay = 20 * time.Millisecond

	err := runWithRetry(context.Background(), 3, delay, func(ctx context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	// Exactly 2 inter-attempt waits.
	if elapsed := time.Since(start); elapsed < 2*delay {
		t.Fatalf("elapsed %v, want >= %v", elapsed, 2*delay)
	}
}

func TestRunWithRetryRecoversMidway(t *testing.T) {
	calls := 0
	err := runWithRetry(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRunWithRetryCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := runWithRetry(ctx, 3, time.Hour, func(ctx context.Context) error {
		calls++
		return errors.New("always")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
