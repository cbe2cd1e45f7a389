// Package app assembles the process: configuration, logging, storage, the
// admission queue, the download pipeline, and the Telegram gateway.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"igdownbot/internal/bot"
	"igdownbot/internal/config"
	"igdownbot/internal/fetch"
	"igdownbot/internal/maintenance"
	"igdownbot/internal/pipeline"
	"igdownbot/internal/queue"
	"igdownbot/internal/storage"
	kit "igdownbot/internal/transport"
	"igdownbot/internal/transport/telegram/adapter"
	logx "igdownbot/pkg/logx"
)

type App struct {
	cfgm   *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store   storage.Store
	queues  *queue.Manager
	gateway *adapter.Adapter
	router  *bot.Router
	janitor *maintenance.Service

	updates chan kit.Update

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	boot := logx.NewConsole("info")
	cfgm := config.NewManager(cfgPath, boot)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})

	a := &App{
		cfgm:    cfgm,
		logSvc:  logSvc,
		log:     log,
		updates: make(chan kit.Update, 128),
	}
	if err := a.build(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config) error {
	var err error

	storeCfg := storage.Config{}
	if cfg.Storage != nil {
		busy, berr := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
		if berr != nil {
			return berr
		}
		storeCfg = storage.Config{
			Driver:        cfg.Storage.Driver,
			Path:          cfg.Storage.Path,
			BusyTimeout:   busy,
			RedisAddr:     cfg.Storage.RedisAddr,
			RedisPassword: cfg.Storage.RedisPassword,
			RedisDB:       cfg.Storage.RedisDB,
		}
	}
	a.store, err = storage.Open(storeCfg, a.log.With(logx.String("component", "storage")))
	if err != nil {
		return fmt.Errorf("open failure store: %w", err)
	}

	fetchTimeout, err := config.ParseDurationOrDefault("extractor.timeout", cfg.Extractor.Timeout, 30*time.Second)
	if err != nil {
		return err
	}
	fetcher := fetch.New(
		fetch.Config{Endpoint: cfg.Extractor.Endpoint, Timeout: fetchTimeout},
		a.log.With(logx.String("component", "fetch")),
	)

	qcfg, err := queueConfig(cfg.Queue)
	if err != nil {
		return err
	}
	a.queues = queue.NewManager(qcfg, a.log.With(logx.String("component", "queue")))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return err
	}
	a.gateway, err = adapter.New(
		adapter.Config{Token: cfg.Telegram.Token, PollTimeout: pollTimeout},
		a.log.With(logx.String("component", "telegram")),
	)
	if err != nil {
		return fmt.Errorf("telegram adapter: %w", err)
	}

	retryDelay, err := config.ParseDurationOrDefault("retry.delay", cfg.Retry.Delay, 15*time.Second)
	if err != nil {
		return err
	}
	runner := pipeline.New(
		pipeline.Config{
			Admin:       cfg.Admin,
			MaxAttempts: cfg.Retry.MaxAttempts,
			RetryDelay:  retryDelay,
		},
		fetcher,
		a.gateway,
		a.store,
		a.log.With(logx.String("component", "pipeline")),
	)

	a.router = bot.NewRouter(a.queues, runner, a.gateway, a.log.With(logx.String("component", "router")))

	mcfg := maintenance.Config{}
	if cfg.Maintenance != nil {
		mcfg = maintenance.Config{Enabled: cfg.Maintenance.Enabled, Schedule: cfg.Maintenance.Schedule}
	}
	a.janitor = maintenance.New(mcfg, a.store, a.queues, a.log.With(logx.String("component", "maintenance")))

	return nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.queues.Start(runCtx)
	if err := a.gateway.Start(runCtx, a.updates); err != nil {
		cancel()
		return fmt.Errorf("start gateway: %w", err)
	}
	if err := a.janitor.Start(); err != nil {
		cancel()
		return fmt.Errorf("start maintenance: %w", err)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.consumeUpdates(runCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.cfgm.Watch(runCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.applyReloads(runCtx)
	}()

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify: ready")
	}

	a.log.Info("started")
	return nil
}

func (a *App) consumeUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case up := <-a.updates:
			// Handle only admits; the heavy work runs on the lane goroutine.
			a.router.Handle(ctx, up)
		}
	}
}

// applyReloads propagates reload-safe settings from config file changes.
// Logging and the queue throttle toggle apply live; everything else
// (token, endpoint, storage driver) requires a restart.
func (a *App) applyReloads(ctx context.Context) {
	sub := a.cfgm.Subscribe(1)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-sub:
			if cfg == nil {
				continue
			}
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
			})
			qcfg, err := queueConfig(cfg.Queue)
			if err != nil {
				a.log.Warn("reload: queue settings rejected", logx.Err(err))
				continue
			}
			a.queues.Apply(qcfg)
			a.log.Info("reload applied",
				logx.String("log_level", cfg.Logging.Level),
				logx.Bool("throttle", qcfg.Throttle))
		}
	}
}

func (a *App) Stop(ctx context.Context) {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.cancel != nil {
		a.cancel()
	}

	// Gateway first so no new updates arrive, then the queue drains or times
	// out, then the rest.
	if err := a.gateway.Stop(ctx); err != nil {
		a.log.Warn("gateway stop", logx.Err(err))
	}
	if err := a.queues.Stop(ctx); err != nil {
		a.log.Warn("queue stop", logx.Err(err))
	}
	if err := a.janitor.Stop(ctx); err != nil {
		a.log.Warn("maintenance stop", logx.Err(err))
	}
	a.wg.Wait()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("failure store close", logx.Err(err))
		}
	}
	a.log.Info("stopped")
	_ = a.logSvc.Close()
}

// queueConfig converts the file representation (string durations, optional
// throttle flag defaulting to on) into the queue's runtime config.
func queueConfig(qc config.QueueConfig) (queue.Config, error) {
	window, err := config.ParseDurationOrDefault("queue.window", qc.Window, 15*time.Second)
	if err != nil {
		return queue.Config{}, err
	}
	throttle := true
	if qc.Throttle != nil {
		throttle = *qc.Throttle
	}
	return queue.Config{Throttle: throttle, Window: window}, nil
}
