// Package bot routes inbound gateway updates: command replies, the trust
// boundary check on submitted links, and admission into the per-user queue.
package bot

import (
	"context"
	"strings"

	"igdownbot/internal/queue"
	kit "igdownbot/internal/transport"
	logx "igdownbot/pkg/logx"
)

// sourceMarker is the trust boundary: only links to this domain are admitted.
const sourceMarker = "instagram.com"

// Runner executes one admitted job to its terminal state.
type Runner interface {
	Run(ctx context.Context, chat kit.ChatTarget, postURL string)
}

type TextSender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
}

type Router struct {
	queues *queue.Manager
	runner Runner
	sender TextSender
	log    logx.Logger
}

func NewRouter(queues *queue.Manager, runner Runner, sender TextSender, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{queues: queues, runner: runner, sender: sender, log: log}
}

// Handle processes one inbound update. Validation failures are answered
// directly, before queue admission, with zero outbound extraction calls.
func (r *Router) Handle(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	chat := kit.ChatTarget{ChatID: msg.ChatID}

	if text == "/start" {
		_, _ = r.sender.SendText(ctx, chat, "Send Instagram URL (reel/post).", nil)
		return
	}

	if !strings.Contains(text, sourceMarker) {
		_, _ = r.sender.SendText(ctx, chat, "❌ Invalid Instagram URL.", nil)
		return
	}

	// Identity is the sender, not the chat: the same user is serialized
	// across chats, different users in one group run independently.
	url := text
	err := r.queues.Enqueue(msg.FromID, func(jctx context.Context) {
		r.runner.Run(jctx, chat, url)
	})
	if err != nil {
		r.log.Error("admission failed", logx.Int64("identity", msg.FromID), logx.Err(err))
		_, _ = r.sender.SendText(ctx, chat, "❌ Bot is not ready yet, try again.", nil)
		return
	}
	r.log.Debug("job admitted", logx.Int64("identity", msg.FromID), logx.String("url", url))
}
