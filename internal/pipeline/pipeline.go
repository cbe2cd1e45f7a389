// Package pipeline runs one admitted job end to end:
// fetch -> filter -> batch -> deliver, wrapped in the retry policy.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"igdownbot/internal/fetch"
	"igdownbot/internal/media"
	kit "igdownbot/internal/transport"
	logx "igdownbot/pkg/logx"

	"igdownbot/internal/storage"
)

// ErrNoDeliverable means the upstream returned content, but nothing in it had
// a well-formed retrieval URL.
var ErrNoDeliverable = errors.New("no deliverable media")

// Fetcher is the extraction service boundary.
type Fetcher interface {
	Fetch(ctx context.Context, postURL string) ([]media.Item, error)
}

// Sender is the delivery slice of the gateway adapter. It must not retry;
// retries happen at the whole-job level here.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
	SendPhoto(ctx context.Context, to kit.ChatTarget, m kit.Media, opt *kit.SendOptions) error
	SendVideo(ctx context.Context, to kit.ChatTarget, m kit.Media, opt *kit.SendOptions) error
	SendAlbum(ctx context.Context, to kit.ChatTarget, items []kit.Media, opt *kit.SendOptions) error
}

type Config struct {
	// Admin is the contact handle shown in captions and private-account replies.
	Admin string

	MaxAttempts int           // default 3
	RetryDelay  time.Duration // default 15s
	MaxBatch    int           // default media.MaxBatch
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 15 * time.Second
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = media.MaxBatch
	}
	return c
}

type Service struct {
	cfg     Config
	fetcher Fetcher
	sender  Sender
	store   storage.Store // may be nil (storage disabled)
	log     logx.Logger
}

func New(cfg Config, fetcher Fetcher, sender Sender, store storage.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg.withDefaults(),
		fetcher: fetcher,
		sender:  sender,
		store:   store,
		log:     log,
	}
}

// Run processes one submitted URL for one chat. It blocks for the whole
// retry loop and always resolves terminally: either the media was delivered
// or the user got a failure message and the failure store gained an entry.
func (s *Service) Run(ctx context.Context, chat kit.ChatTarget, postURL string) {
	_, _ = s.sender.SendText(ctx, chat, "⏳ Processing...", nil)

	err := runWithRetry(ctx, s.cfg.MaxAttempts, s.cfg.RetryDelay, func(ctx context.Context) error {
		return s.attempt(ctx, chat, postURL)
	})
	if err == nil {
		s.log.Info("delivered", logx.String("url", postURL), logx.Int64("chat", chat.ChatID))
		return
	}
	if ctx.Err() != nil {
		// Shutdown mid-job: nothing useful can be sent or persisted.
		s.log.Debug("job abandoned on shutdown", logx.String("url", postURL))
		return
	}

	s.giveUp(ctx, chat, postURL, err)
}

func (s *Service) attempt(ctx context.Context, chat kit.ChatTarget, postURL string) error {
	items, err := s.fetcher.Fetch(ctx, postURL)
	if err != nil {
		return err
	}

	valid := media.Filter(items)
	if len(valid) == 0 {
		return ErrNoDeliverable
	}

	caption := fmt.Sprintf("\nThanks for using this bot!\nAdmin: %s", s.cfg.Admin)
	opt := &kit.SendOptions{ParseMode: "Markdown"}

	// A failing batch aborts the attempt; batches already sent in this or an
	// earlier attempt are not rolled back, so a retry can deliver them again.
	// Known gap: there is no delivery idempotency token.
	for _, b := range media.SplitBatches(valid, caption, s.cfg.MaxBatch) {
		if len(b.Entries) == 1 {
			e := b.Entries[0]
			m := kit.Media{Kind: mediaKind(e.Item.Kind), URL: e.Item.URL, Caption: e.Caption}
			if e.Item.Kind == media.KindVideo {
				err = s.sender.SendVideo(ctx, chat, m, opt)
			} else {
				err = s.sender.SendPhoto(ctx, chat, m, opt)
			}
		} else {
			group := make([]kit.Media, 0, len(b.Entries))
			for _, e := range b.Entries {
				group = append(group, kit.Media{Kind: mediaKind(e.Item.Kind), URL: e.Item.URL, Caption: e.Caption})
			}
			err = s.sender.SendAlbum(ctx, chat, group, opt)
		}
		if err != nil {
			return fmt.Errorf("deliver batch: %w", err)
		}
	}
	return nil
}

// giveUp is the terminal failure path: one failure-store entry per URL
// (last write wins) plus a user-facing message picked by failure kind.
func (s *Service) giveUp(ctx context.Context, chat kit.ChatTarget, postURL string, err error) {
	if errors.Is(err, fetch.ErrNoContent) {
		// Private or missing content is an expected outcome, not an incident.
		s.log.Info("gave up: no content", logx.String("url", postURL))
	} else {
		s.log.Warn("gave up", logx.String("url", postURL), logx.Err(err), logx.Int("attempts", s.cfg.MaxAttempts))
	}

	if s.store != nil {
		if perr := s.store.PutFailure(ctx, postURL, err.Error()); perr != nil {
			s.log.Warn("failure store write failed", logx.String("url", postURL), logx.Err(perr))
		}
	}

	var text string
	switch {
	case errors.Is(err, fetch.ErrNoContent):
		text = "⚠️ Content not found or private account.\nIf private, contact admin: " + s.cfg.Admin
	case errors.Is(err, ErrNoDeliverable):
		text = "❌ No valid media found to send."
	default:
		text = fmt.Sprintf("❌ Failed to fetch post. Please check link or report to admin.\n\n*%s*", err.Error())
	}
	if _, serr := s.sender.SendText(ctx, chat, text, &kit.SendOptions{ParseMode: "Markdown"}); serr != nil {
		s.log.Warn("failure report not delivered", logx.Int64("chat", chat.ChatID), logx.Err(serr))
	}
}

func mediaKind(k media.Kind) kit.MediaKind {
	if k == media.KindVideo {
		return kit.MediaVideo
	}
	return kit.MediaPhoto
}
