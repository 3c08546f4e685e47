package habr

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vergotten/news-ai-aggregator/internal/sources"
	"github.com/vergotten/news-ai-aggregator/internal/store"
)

const hubListingHTML = `<!DOCTYPE html>
<html><body>
<article>
  <a class="tm-user-info__username" href="/ru/users/ivan/">ivan</a>
  <time datetime="2025-08-01T09:00:00.000Z">today</time>
  <h2 class="tm-title"><a class="tm-title__link" href="/ru/articles/801234/"><span>Go generics in practice</span></a></h2>
  <div class="tm-votes-meter__value">+42</div>
  <span class="tm-article-comments-counter-link__value">17</span>
</article>
<article>
  <h2 class="tm-title"><a class="tm-title__link" href="/ru/articles/801235/#habracut">Profiling Go services</a></h2>
</article>
<article>
  <h2 class="tm-title"><a class="tm-title__link" href="/ru/news/">Not an article link</a></h2>
</article>
<article>
  <h2 class="tm-title"><a class="tm-title__link" href="/ru/articles/801234/">Go generics in practice</a></h2>
</article>
</body></html>`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c := New(5*time.Second, nil)
	c.BaseURL = server.URL
	c.FetchDelay = 0
	return c
}

func TestFetchParsesListing(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, hubListingHTML)
	}))

	items, err := c.Fetch(t.Context(), "go", 10, sources.ModePrimary)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/ru/hubs/go/articles/" {
		t.Fatalf("unexpected listing path %q", gotPath)
	}
	if len(items) != 2 {
		t.Fatalf("want 2 items (non-article and duplicate dropped), got %d", len(items))
	}

	it := items[0]
	if it.Title != "Go generics in practice" {
		t.Fatalf("unexpected title %q", it.Title)
	}
	if it.URL != c.BaseURL+"/ru/articles/801234/" {
		t.Fatalf("unexpected url %q", it.URL)
	}
	if it.Source != "habr_go" {
		t.Fatalf("unexpected source %q", it.Source)
	}
	if it.PublishedAt.IsZero() {
		t.Fatal("datetime attribute should be parsed")
	}
	meta, ok := it.Meta.(store.HabrMeta)
	if !ok {
		t.Fatalf("want HabrMeta, got %T", it.Meta)
	}
	if meta.Author != "ivan" || meta.Score != 42 || meta.Comments != 17 {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	// The second snippet has a fragment in its href and no author.
	second := items[1]
	if second.URL != c.BaseURL+"/ru/articles/801235/" {
		t.Fatalf("fragment should be stripped, got %q", second.URL)
	}
	if second.Meta.(store.HabrMeta).Author != "unknown" {
		t.Fatalf("missing author should default to unknown: %+v", second.Meta)
	}
}

func TestFetchTopModeUsesTopListing(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, hubListingHTML)
	}))

	if _, err := c.Fetch(t.Context(), "go", 5, sources.ModeTop); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/ru/hubs/go/articles/top/daily/" {
		t.Fatalf("unexpected top listing path %q", gotPath)
	}
}

func TestFetchRespectsLimit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, hubListingHTML)
	}))

	items, err := c.Fetch(t.Context(), "go", 1, sources.ModePrimary)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("want 1 item, got %d", len(items))
	}
}

func TestFetchListingError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	if _, err := c.Fetch(t.Context(), "go", 5, sources.ModePrimary); err == nil {
		t.Fatal("want error on 503 listing")
	}
}

func TestFetchExtractBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ru/hubs/go/articles/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><article>
<h2 class="tm-title"><a class="tm-title__link" href="/ru/articles/900001/">One article</a></h2>
</article></body></html>`)
	})
	mux.HandleFunc("/ru/articles/900001/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>One article</title></head><body>
<article><h1>One article</h1>
<p>Generics landed in Go 1.18 and changed how libraries expose their APIs.</p>
<p>This article walks through type parameters, constraints and real code that uses them in anger.</p>
<p>We close with the cases where plain interfaces remain the better tool for the job.</p>
</article></body></html>`)
	})

	c := newTestClient(t, mux)
	c.ExtractBody = true

	items, err := c.Fetch(t.Context(), "go", 5, sources.ModePrimary)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("want 1 item, got %d", len(items))
	}
	if items[0].Body == "" {
		t.Fatal("article body should be extracted")
	}
}

func TestParseCounter(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"+42", 42},
		{"-3", -3},
		{"17", 17},
		{"1.2K", 1200},
		{"", 0},
		{"–", 0},
	}
	for _, tc := range cases {
		if got := parseCounter(tc.in); got != tc.want {
			t.Errorf("parseCounter(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
