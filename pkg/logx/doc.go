// Package logx configures igdownbot's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Log level switchable at runtime via Service.Apply (config reload)
//
// The zero value of Logger is a safe no-op.
package logx
