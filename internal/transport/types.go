package transport

import "context"

// Update is one inbound event from the messaging gateway.
// Only text messages are consumed by this bot.
type Update struct {
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
}

type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// MediaKind mirrors the gateway's media vocabulary.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaPhoto MediaKind = "photo"
)

// Media is one deliverable media reference. The gateway fetches the URL itself;
// the bot never downloads content. Caption is empty on all but at most one
// entry of a logical delivery.
type Media struct {
	Kind    MediaKind
	URL     string
	Caption string
}

// Adapter is the messaging gateway boundary.
//
// Send methods surface transport failures to the caller without retrying;
// retry policy lives in the pipeline.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	SendPhoto(ctx context.Context, to ChatTarget, m Media, opt *SendOptions) error
	SendVideo(ctx context.Context, to ChatTarget, m Media, opt *SendOptions) error
	SendAlbum(ctx context.Context, to ChatTarget, items []Media, opt *SendOptions) error
}
