package maintenance

import (
	"context"
	"testing"

	"igdownbot/internal/storage"
	logx "igdownbot/pkg/logx"
)

type countingStore struct {
	compacts int
	stats    int
}

func (s *countingStore) PutFailure(ctx context.Context, url, message string) error { return nil }
func (s *countingStore) GetFailure(ctx context.Context, url string) (storage.Failure, bool, error) {
	return storage.Failure{}, false, nil
}
func (s *countingStore) Stats(ctx context.Context) (storage.Stats, error) {
	s.stats++
	return storage.Stats{Entries: 3}, nil
}
func (s *countingStore) Compact(ctx context.Context) error {
	s.compacts++
	return nil
}
func (s *countingStore) Close() error { return nil }

func TestRunOnceCompactsAndReadsStats(t *testing.T) {
	store := &countingStore{}
	svc := New(Config{Enabled: true}, store, nil, logx.Nop())
	svc.runOnce()

	if store.compacts != 1 || store.stats != 1 {
		t.Fatalf("compacts=%d stats=%d", store.compacts, store.stats)
	}
}

func TestRunOnceWithoutStore(t *testing.T) {
	svc := New(Config{Enabled: true}, nil, nil, logx.Nop())
	svc.runOnce() // must not panic
}

func TestStartDisabledIsNoop(t *testing.T) {
	svc := New(Config{}, &countingStore{}, nil, logx.Nop())
	if err := svc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if svc.cron != nil {
		t.Fatal("disabled service must not schedule")
	}
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	svc := New(Config{Enabled: true, Schedule: "not a cron spec"}, &countingStore{}, nil, logx.Nop())
	if err := svc.Start(); err == nil {
		t.Fatal("expected schedule parse error")
	}
}
