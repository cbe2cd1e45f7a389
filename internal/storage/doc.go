package storage

// Package storage persists the failure log: a mapping from submitted post URL
// to the last terminal error message, written once per give-up.
//
// Backends:
//   - file:   jsonl journal + snapshot, dependency-free
//   - sqlite: database file (build with -tags sqlite)
//   - redis:  shared hash, for multi-process deployments
