package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "igdownbot/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.failures.snapshot.json (periodic snapshot of the url->failure map)
//   - <prefix>.failures.journal.jsonl (append-only journal)
//
// The journal is periodically compacted into the snapshot. Last write per URL
// wins, both in memory and during journal replay.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	snapshotPath string
	journalFile  *os.File
	failures     map[string]Failure

	writes int
}

const fileCompactEvery = 256

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	snapPath := prefix + ".failures.snapshot.json"
	journalPath := prefix + ".failures.journal.jsonl"

	failures := map[string]Failure{}
	_ = loadSnapshot(snapPath, failures)
	_ = replayJournal(journalPath, failures)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:          log,
		snapshotPath: snapPath,
		journalFile:  jf,
		failures:     failures,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return nil
	}
	err := s.journalFile.Close()
	s.journalFile = nil
	return err
}

func (s *fileStore) PutFailure(ctx context.Context, url, message string) error {
	_ = ctx
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	f := Failure{URL: url, Message: message, At: time.Now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return errors.New("failure journal closed")
	}
	s.failures[url] = f

	if err := json.NewEncoder(s.journalFile).Encode(f); err != nil {
		return err
	}
	s.writes++
	if s.writes%fileCompactEvery == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Debug("failure store compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) GetFailure(ctx context.Context, url string) (Failure, bool, error) {
	_ = ctx
	url = strings.TrimSpace(url)
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.failures[url]
	return f, ok, nil
}

func (s *fileStore) Stats(ctx context.Context) (Stats, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Entries: len(s.failures)}, nil
}

func (s *fileStore) Compact(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compactLocked()
}

func (s *fileStore) compactLocked() error {
	if s.journalFile == nil {
		return errors.New("failure journal closed")
	}

	tmp := s.snapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.failures); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}
	// Truncate journal; its content now lives in the snapshot.
	if err := s.journalFile.Truncate(0); err != nil {
		return err
	}
	_, err = s.journalFile.Seek(0, 2)
	return err
}

func loadSnapshot(path string, out map[string]Failure) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]Failure
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func replayJournal(path string, out map[string]Failure) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Failure
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		if r.URL == "" {
			continue
		}
		out[r.URL] = r
	}
	return sc.Err()
}
