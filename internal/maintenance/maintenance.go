// Package maintenance runs the scheduled janitor: failure-store compaction
// plus a periodic operational summary.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"igdownbot/internal/queue"
	"igdownbot/internal/storage"
	logx "igdownbot/pkg/logx"
)

const defaultSchedule = "0 3 * * *"

type Config struct {
	Enabled  bool
	Schedule string // standard 5-field cron spec
}

type Service struct {
	cfg    Config
	store  storage.Store
	queues *queue.Manager
	log    logx.Logger

	cron *cron.Cron
}

func New(cfg Config, store storage.Store, queues *queue.Manager, log logx.Logger) *Service {
	if cfg.Schedule == "" {
		cfg.Schedule = defaultSchedule
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, store: store, queues: queues, log: log}
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, s.runOnce); err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.log.Info("maintenance scheduled", logx.String("spec", s.cfg.Schedule))
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fields := []logx.Field{}
	if s.queues != nil {
		snap := s.queues.Snapshot()
		fields = append(fields, logx.Int("lanes", snap.Lanes), logx.Int("queued", snap.Queued))
	}
	if s.store != nil {
		if err := s.store.Compact(ctx); err != nil {
			s.log.Warn("failure store compact failed", logx.Err(err))
		}
		if stats, err := s.store.Stats(ctx); err == nil {
			fields = append(fields, logx.Int("failures", stats.Entries))
		}
	}
	s.log.Info("maintenance run", fields...)
}
