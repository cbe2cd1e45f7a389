package config

import (
	"errors"
	"os"
	"strings"
)

// Config is the process configuration.
//
// All durations are Go duration strings (e.g. "500ms", "15s", "1m").
//
// The file is optional; credentials can come entirely from the environment
// (BOT_TOKEN, API_ENDPOINT, ADMIN). Environment values override file values
// and are validated for presence at startup.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Admin     string          `json:"admin"`
	Extractor ExtractorConfig `json:"extractor"`
	Logging   LoggingConfig   `json:"logging"`
	Queue     QueueConfig     `json:"queue"`
	Retry     RetryConfig     `json:"retry"`

	Storage     *StorageConfig     `json:"storage,omitempty"`
	Maintenance *MaintenanceConfig `json:"maintenance,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type ExtractorConfig struct {
	Endpoint string `json:"endpoint"`
	Timeout  string `json:"timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// QueueConfig controls per-user admission.
//
// Throttle is a pointer so "omitted" (default true) is distinguishable from
// an explicit false.
type QueueConfig struct {
	Throttle *bool  `json:"throttle,omitempty"`
	Window   string `json:"window,omitempty"` // default "15s"
}

type RetryConfig struct {
	MaxAttempts int    `json:"max_attempts,omitempty"` // default 3
	Delay       string `json:"delay,omitempty"`        // default "15s"
}

// StorageConfig controls the optional failure-log persistence.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./igdownbot_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)

	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`
}

type MaintenanceConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"` // cron spec, default "0 3 * * *"
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Console: true},
	}
}

// ApplyEnv overlays environment-sourced settings onto cfg.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("BOT_TOKEN")); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("API_ENDPOINT")); v != "" {
		cfg.Extractor.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("ADMIN")); v != "" {
		cfg.Admin = v
	}
}

// Validate checks the settings the process cannot start without.
// Absence fails fast at startup, never lazily.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Telegram.Token) == "" {
		problems = append(problems, "telegram token (BOT_TOKEN)")
	}
	if strings.TrimSpace(c.Extractor.Endpoint) == "" {
		problems = append(problems, "extraction endpoint (API_ENDPOINT)")
	}
	if strings.TrimSpace(c.Admin) == "" {
		problems = append(problems, "admin contact (ADMIN)")
	}
	if len(problems) > 0 {
		return errors.New("missing required config: " + strings.Join(problems, ", "))
	}
	return nil
}
