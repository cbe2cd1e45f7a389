//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "igdownbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) PutFailure(ctx context.Context, url, message string) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO failures(url, message, at) VALUES(?,?,?)
		 ON CONFLICT(url) DO UPDATE SET message=excluded.message, at=excluded.at`,
		url, message, time.Now().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) GetFailure(ctx context.Context, url string) (Failure, bool, error) {
	if s == nil || s.db == nil {
		return Failure{}, false, ErrDisabled
	}
	var f Failure
	var at string
	err := s.db.QueryRowContext(ctx,
		`SELECT url, message, at FROM failures WHERE url = ?`, strings.TrimSpace(url),
	).Scan(&f.URL, &f.Message, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return Failure{}, false, nil
	}
	if err != nil {
		return Failure{}, false, err
	}
	f.At, _ = time.Parse(time.RFC3339Nano, at)
	return f, true, nil
}

func (s *sqliteStore) Stats(ctx context.Context) (Stats, error) {
	if s == nil || s.db == nil {
		return Stats{}, ErrDisabled
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM failures`).Scan(&n); err != nil {
		return Stats{}, err
	}
	return Stats{Entries: n}, nil
}

func (s *sqliteStore) Compact(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`)
	return err
}
