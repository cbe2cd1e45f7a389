// Package fetch calls the third-party extraction service and maps its payload
// into media items.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"igdownbot/internal/media"
	logx "igdownbot/pkg/logx"
)

// ErrNoContent means the upstream answered but exposed no content list,
// typically a private or deleted post. Callers must keep it distinguishable
// from transport failures: it changes the user-facing message, not the retry
// behavior.
var ErrNoContent = errors.New("no content in extraction response")

// UpstreamError covers transport and parse failures talking to the extractor.
type UpstreamError struct {
	Status int // HTTP status, 0 when the request never completed
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("extraction upstream: http %d", e.Status)
	}
	return fmt.Sprintf("extraction upstream: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

type Client struct {
	endpoint string
	http     *http.Client
	log      logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

// The extractor has shipped two envelope shapes over time
// ("_result.content" and "result.content"); accept both so an upstream
// schema flip doesn't turn into a silent total failure.
type payload struct {
	LegacyResult *resultBody `json:"_result"`
	Result       *resultBody `json:"result"`
}

type resultBody struct {
	Content []contentEntry `json:"content"`
}

type contentEntry struct {
	MimeURL  string `json:"mimeUrl"`
	MimeType string `json:"mimeType"`
}

// Fetch asks the extraction endpoint for the media of one post URL.
// Returns the ordered content set, ErrNoContent, or *UpstreamError.
func (c *Client) Fetch(ctx context.Context, postURL string) ([]media.Item, error) {
	q := url.Values{}
	q.Set("url", postURL)
	q.Set("html", "no")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, &UpstreamError{Status: resp.StatusCode}
	}

	var p payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("decode: %w", err)}
	}

	content := pickContent(p)
	if len(content) == 0 {
		return nil, ErrNoContent
	}

	items := make([]media.Item, 0, len(content))
	for _, e := range content {
		items = append(items, media.Item{URL: e.MimeURL, Kind: media.KindOf(e.MimeType)})
	}
	c.log.Debug("extraction ok", logx.String("url", postURL), logx.Int("items", len(items)))
	return items, nil
}

func pickContent(p payload) []contentEntry {
	if p.LegacyResult != nil && len(p.LegacyResult.Content) > 0 {
		return p.LegacyResult.Content
	}
	if p.Result != nil {
		return p.Result.Content
	}
	return nil
}
