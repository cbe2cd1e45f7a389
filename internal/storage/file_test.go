package storage

import (
	"context"
	"path/filepath"
	"testing"

	logx "igdownbot/pkg/logx"
)

func openTestStore(t *testing.T, dir string) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "store")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return st
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st := openTestStore(t, dir)
	defer st.Close()

	ctx := context.Background()
	if err := st.PutFailure(ctx, "https://instagram.com/p/a", "http 502"); err != nil {
		t.Fatalf("PutFailure: %v", err)
	}

	f, ok, err := st.GetFailure(ctx, "https://instagram.com/p/a")
	if err != nil || !ok {
		t.Fatalf("GetFailure: ok=%v err=%v", ok, err)
	}
	if f.Message != "http 502" {
		t.Fatalf("message = %q", f.Message)
	}

	if _, ok, _ := st.GetFailure(ctx, "https://instagram.com/p/other"); ok {
		t.Fatal("unexpected hit for unknown url")
	}
}

func TestFileStoreLastWriteWins(t *testing.T) {
	dir := t.TempDir()
	st := openTestStore(t, dir)
	defer st.Close()

	ctx := context.Background()
	st.PutFailure(ctx, "https://instagram.com/p/a", "first")
	st.PutFailure(ctx, "https://instagram.com/p/a", "second")

	f, ok, err := st.GetFailure(ctx, "https://instagram.com/p/a")
	if err != nil || !ok {
		t.Fatalf("GetFailure: ok=%v err=%v", ok, err)
	}
	if f.Message != "second" {
		t.Fatalf("message = %q, want second", f.Message)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 1 {
		t.Fatalf("entries = %d, want 1", stats.Entries)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st := openTestStore(t, dir)
	st.PutFailure(ctx, "https://instagram.com/p/a", "kept")
	if err := st.Compact(ctx); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	st.PutFailure(ctx, "https://instagram.com/p/b", "journaled")
	st.Close()

	st2 := openTestStore(t, dir)
	defer st2.Close()

	for url, want := range map[string]string{
		"https://instagram.com/p/a": "kept",
		"https://instagram.com/p/b": "journaled",
	} {
		f, ok, err := st2.GetFailure(ctx, url)
		if err != nil || !ok {
			t.Fatalf("GetFailure(%s) after reopen: ok=%v err=%v", url, ok, err)
		}
		if f.Message != want {
			t.Fatalf("GetFailure(%s) = %q, want %q", url, f.Message, want)
		}
	}
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("driver %q: store=%v err=%v, want nil/nil", driver, st, err)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "cassandra"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
