package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	logx "igdownbot/pkg/logx"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m := NewManager(cfg, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	t.Cleanup(cancel)
	return m
}

func TestEnqueueBeforeStart(t *testing.T) {
	m := NewManager(Config{}, logx.Nop())
	if err := m.Enqueue(1, func(ctx context.Context) {}); err != ErrNotStarted {
		t.Fatalf("err = %v, want ErrNotStarted", err)
	}
}

func TestSameIdentitySerialized(t *testing.T) {
	m := newTestManager(t, Config{Throttle: false})

	var mu sync.Mutex
	var events []string
	record := func(s string) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	}

	done := make(chan struct{})
	if err := m.Enqueue(42, func(ctx context.Context) {
		record("j1-start")
		time.Sleep(50 * time.Millisecond)
		record("j1-end")
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := m.Enqueue(42, func(ctx context.Context) {
		record("j2-start")
		close(done)
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("j2 never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"j1-start", "j1-end", "j2-start"}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
}

func TestFIFOOrderWithinLane(t *testing.T) {
	m := newTestManager(t, Config{Throttle: false})

	const n = 20
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		if err := m.Enqueue(7, func(ctx context.Context) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	waitDone := make(chan struct{})
	go func() { wg.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs did not drain")
	}

	for i := 0; i < n; i++ {
		if order[i] != i {
			t.Fatalf("order = %v", order)
		}
	}
}

func TestCrossIdentityIndependence(t *testing.T) {
	m := newTestManager(t, Config{Throttle: false})

	// Each job blocks until the other has started. If lanes shared a worker
	// this would deadlock and the test would time out.
	aStarted := make(chan struct{})
	bStarted := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	m.Enqueue(1, func(ctx context.Context) {
		close(aStarted)
		select {
		case <-bStarted:
		case <-time.After(5 * time.Second):
			t.Error("identity 2 never started")
		}
		wg.Done()
	})
	m.Enqueue(2, func(ctx context.Context) {
		close(bStarted)
		select {
		case <-aStarted:
		case <-time.After(5 * time.Second):
			t.Error("identity 1 never started")
		}
		wg.Done()
	})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("cross-identity jobs blocked on each other")
	}
}

func TestThrottledAdmissionSpacing(t *testing.T) {
	const window = 100 * time.Millisecond
	m := newTestManager(t, Config{Throttle: true, Window: window})

	var mu sync.Mutex
	var starts []time.Time
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		m.Enqueue(5, func(ctx context.Context) {
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
			wg.Done()
		})
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("throttled jobs did not drain")
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		// Allow a little slack for timer granularity.
		if gap < window-10*time.Millisecond {
			t.Fatalf("start %d only %v after previous, window %v", i, gap, window)
		}
	}
}

func TestApplyDisablesThrottle(t *testing.T) {
	m := newTestManager(t, Config{Throttle: true, Window: time.Hour})

	// Burn the initial token so the lane would block for an hour if the
	// throttle stayed on.
	first := make(chan struct{})
	m.Enqueue(9, func(ctx context.Context) { close(first) })
	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("first job never ran")
	}

	m.Apply(Config{Throttle: false})

	second := make(chan struct{})
	m.Enqueue(9, func(ctx context.Context) { close(second) })
	select {
	case <-second:
	case <-time.After(5 * time.Second):
		t.Fatal("second job blocked after throttle disabled")
	}
}

func TestSnapshotCountsLanes(t *testing.T) {
	m := newTestManager(t, Config{Throttle: false})
	var wg sync.WaitGroup
	wg.Add(2)
	m.Enqueue(1, func(ctx context.Context) { wg.Done() })
	m.Enqueue(2, func(ctx context.Context) { wg.Done() })
	wg.Wait()
	if s := m.Snapshot(); s.Lanes != 2 {
		t.Fatalf("lanes = %d, want 2", s.Lanes)
	}
}
