package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"igdownbot/internal/media"
	logx "igdownbot/pkg/logx"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{Endpoint: srv.URL}, logx.Nop())
}

func TestFetchLegacyShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("html"); got != "no" {
			t.Errorf("html param = %q, want no", got)
		}
		if got := r.URL.Query().Get("url"); got != "https://instagram.com/p/x" {
			t.Errorf("url param = %q", got)
		}
		w.Write([]byte(`{"_result":{"content":[
			{"mimeUrl":"https://cdn/x.mp4","mimeType":"video"},
			{"mimeUrl":"https://cdn/y.jpg","mimeType":"image"}
		]}}`))
	})

	items, err := c.Fetch(context.Background(), "https://instagram.com/p/x")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Kind != media.KindVideo || items[1].Kind != media.KindImage {
		t.Fatalf("kinds wrong: %+v", items)
	}
	if items[0].URL != "https://cdn/x.mp4" {
		t.Fatalf("order not preserved: %+v", items)
	}
}

func TestFetchCurrentShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"content":[{"mimeUrl":"https://cdn/a.jpg","mimeType":"image"}]}}`))
	})

	items, err := c.Fetch(context.Background(), "https://instagram.com/p/y")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 || items[0].URL != "https://cdn/a.jpg" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestFetchEmptyContent(t *testing.T) {
	for _, body := range []string{
		`{"_result":{"content":[]}}`,
		`{"result":{"content":[]}}`,
		`{"result":{}}`,
		`{}`,
	} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		_, err := c.Fetch(context.Background(), "https://instagram.com/p/z")
		if !errors.Is(err, ErrNoContent) {
			t.Fatalf("body %s: err = %v, want ErrNoContent", body, err)
		}
	}
}

func TestFetchNon2xx(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	_, err := c.Fetch(context.Background(), "https://instagram.com/p/z")
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Status != http.StatusBadGateway {
		t.Fatalf("err = %v, want UpstreamError(502)", err)
	}
	if errors.Is(err, ErrNoContent) {
		t.Fatalf("upstream error must not be ErrNoContent")
	}
}

func TestFetchMalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":`))
	})
	_, err := c.Fetch(context.Background(), "https://instagram.com/p/z")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
}
