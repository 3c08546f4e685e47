package telegram

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vergotten/news-ai-aggregator/internal/sources"
	"github.com/vergotten/news-ai-aggregator/internal/store"
)

const channelHTML = `<!DOCTYPE html>
<html><body>
<div class="tgme_widget_message" data-post="technews/118">
  <div class="tgme_widget_message_text">Oldest post about kernel patches.
And a second line with details.</div>
  <time datetime="2025-08-01T08:00:00+00:00">8:00</time>
  <span class="tgme_widget_message_views">871</span>
</div>
<div class="tgme_widget_message" data-post="technews/119">
  <div class="tgme_widget_message_wrap"><!-- media only, no text --></div>
</div>
<div class="tgme_widget_message" data-post="technews/120">
  <div class="tgme_widget_message_text">Newest post: a big release dropped today.</div>
  <time datetime="2025-08-01T12:30:00+00:00">12:30</time>
  <span class="tgme_widget_message_views">15.3K</span>
</div>
</body></html>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c := New(5*time.Second, nil)
	c.BaseURL = server.URL
	return c
}

func TestFetchParsesChannelPreview(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, channelHTML)
	})

	items, err := c.Fetch(t.Context(), "technews", 10, sources.ModePrimary)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/s/technews" {
		t.Fatalf("unexpected preview path %q", gotPath)
	}
	if len(items) != 2 {
		t.Fatalf("want 2 items (media-only message dropped), got %d", len(items))
	}

	// Newest first, even though the page lists oldest first.
	first := items[0]
	if first.URL != c.BaseURL+"/technews/120" {
		t.Fatalf("newest message should come first, got %q", first.URL)
	}
	if first.Title != "Newest post: a big release dropped today." {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.Source != "telegram_technews" {
		t.Fatalf("unexpected source %q", first.Source)
	}
	if first.PublishedAt.IsZero() {
		t.Fatal("datetime should be parsed")
	}
	meta, ok := first.Meta.(store.TelegramMeta)
	if !ok {
		t.Fatalf("want TelegramMeta, got %T", first.Meta)
	}
	if meta.Channel != "technews" || meta.Views != 15300 {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	second := items[1]
	if second.URL != c.BaseURL+"/technews/118" {
		t.Fatalf("unexpected second item %q", second.URL)
	}
	if second.Title != "Oldest post about kernel patches." {
		t.Fatalf("title should be the first line only, got %q", second.Title)
	}
	if second.Body == second.Title {
		t.Fatal("body should keep the full message text")
	}
}

func TestFetchStripsAtPrefix(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, channelHTML)
	})

	if _, err := c.Fetch(t.Context(), "@technews", 5, sources.ModePrimary); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/s/technews" {
		t.Fatalf("@ prefix should be stripped, got path %q", gotPath)
	}
}

func TestFetchRespectsLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, channelHTML)
	})

	items, err := c.Fetch(t.Context(), "technews", 1, sources.ModePrimary)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("want 1 item, got %d", len(items))
	}
	if items[0].URL != c.BaseURL+"/technews/120" {
		t.Fatalf("limit should keep the newest message, got %q", items[0].URL)
	}
}

func TestFetchEmptyChannelIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="tgme_page">This channel is private</div></body></html>`)
	})

	if _, err := c.Fetch(t.Context(), "secretchannel", 5, sources.ModePrimary); err == nil {
		t.Fatal("page without messages should be an error")
	}
}

func TestFetchHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if _, err := c.Fetch(t.Context(), "nope", 5, sources.ModePrimary); err == nil {
		t.Fatal("want error on 404")
	}
}

func TestParseViews(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"871", 871},
		{"1.2K", 1200},
		{"3M", 3000000},
		{"", 0},
		{"n/a", 0},
	}
	for _, tc := range cases {
		if got := parseViews(tc.in); got != tc.want {
			t.Errorf("parseViews(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("one\ntwo", 120); got != "one" {
		t.Fatalf("got %q", got)
	}
	long := make([]rune, 0, 200)
	for i := 0; i < 200; i++ {
		long = append(long, 'x')
	}
	if got := firstLine(string(long), 120); len([]rune(got)) != 120 {
		t.Fatalf("long title should be truncated to 120 runes, got %d", len([]rune(got)))
	}
}
