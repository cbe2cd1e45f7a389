package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file":   dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (optional build tag)
//   - "redis":  shared Redis hash
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string        // file/sqlite
	BusyTimeout time.Duration // sqlite only; 0 means default

	RedisAddr     string // redis only
	RedisPassword string
	RedisDB       int
}

// Failure is one terminal give-up record. Last write per URL wins.
type Failure struct {
	URL     string    `json:"url"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Stats struct {
	Entries int
}

// Store is the failure-log API used by the pipeline and maintenance.
type Store interface {
	PutFailure(ctx context.Context, url, message string) error
	GetFailure(ctx context.Context, url string) (Failure, bool, error)
	Stats(ctx context.Context) (Stats, error)
	Compact(ctx context.Context) error
	Close() error
}
