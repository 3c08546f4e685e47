// Package habr scrapes Habr hub listing pages. Habr has no stable public
// API, so items come from the listing HTML via a list of selector
// fallbacks covering the site's different layout generations.
package habr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	neturl "net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	trafilatura "github.com/markusmobius/go-trafilatura"

	"github.com/vergotten/news-ai-aggregator/internal/sources"
	"github.com/vergotten/news-ai-aggregator/internal/store"
)

// titleSelectors are tried in order until one matches; Habr has renamed
// these classes across redesigns.
var titleSelectors = []string{
	"a.tm-title__link",
	"a.tm-article-snippet__title-link",
	"h2.tm-title a",
	"h2 a[href*='/articles/']",
}

var articlePathRe = regexp.MustCompile(`/(?:articles|post)/\d+`)

type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// BaseURL of the site; defaults to https://habr.com.
	BaseURL string
	// ExtractBody fetches each article page and stores its extracted
	// main text. Off by default; listing metadata is enough for the
	// ingest path.
	ExtractBody bool
	// FetchDelay paces article page requests when ExtractBody is on.
	FetchDelay time.Duration
	Logger     *log.Logger
}

func New(timeout time.Duration, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  "news-ai-aggregator/1.0",
		BaseURL:    "https://habr.com",
		FetchDelay: 500 * time.Millisecond,
		Logger:     logger,
	}
}

// Fetch returns up to limit articles from one hub listing. Snippets
// without a resolvable title link are dropped; vote/comment counters are
// best-effort and default to zero.
func (c *Client) Fetch(ctx context.Context, hub string, limit int, mode sources.Mode) ([]store.Item, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("habr: non-positive limit %d", limit)
	}

	base := strings.TrimSuffix(c.BaseURL, "/")
	listing := fmt.Sprintf("%s/ru/hubs/%s/articles/", base, neturl.PathEscape(hub))
	if mode == sources.ModeTop {
		listing += "top/daily/"
	}
	// primary and recency share the default listing; its native order is
	// newest-first.

	doc, err := c.fetchDocument(ctx, listing)
	if err != nil {
		return nil, err
	}

	items := make([]store.Item, 0, limit)
	seen := make(map[string]struct{})
	doc.Find("article").EachWithBreak(func(_ int, snippet *goquery.Selection) bool {
		it, ok := c.parseSnippet(snippet, base, hub)
		if !ok {
			return true
		}
		if _, dup := seen[it.URL]; dup {
			return true
		}
		seen[it.URL] = struct{}{}
		items = append(items, it)
		return len(items) < limit
	})

	if len(items) == 0 {
		c.debugf("habr: no article snippets matched for hub %s", hub)
	}

	if c.ExtractBody {
		for i := range items {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			items[i].Body = c.extractMainText(ctx, items[i].URL)
			if i < len(items)-1 && c.FetchDelay > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(c.FetchDelay):
				}
			}
		}
	}
	return items, nil
}

func (c *Client) parseSnippet(snippet *goquery.Selection, base, hub string) (store.Item, bool) {
	var link *goquery.Selection
	for _, sel := range titleSelectors {
		if found := snippet.Find(sel); found.Length() > 0 {
			link = found.First()
			break
		}
	}
	if link == nil {
		return store.Item{}, false
	}

	href, _ := link.Attr("href")
	href = strings.TrimSpace(href)
	if i := strings.Index(href, "#"); i >= 0 {
		href = href[:i]
	}
	if href == "" || !articlePathRe.MatchString(href) || strings.Contains(href, "/comments/") {
		return store.Item{}, false
	}
	title := strings.TrimSpace(link.Text())
	if title == "" {
		return store.Item{}, false
	}

	url := href
	if strings.HasPrefix(href, "/") {
		url = base + href
	}

	author := strings.TrimSpace(snippet.Find("a.tm-user-info__username").First().Text())
	if author == "" {
		author = "unknown"
	}

	var published time.Time
	if dt, ok := snippet.Find("time[datetime]").First().Attr("datetime"); ok {
		if t, err := time.Parse(time.RFC3339, dt); err == nil {
			published = t.UTC()
		}
	}

	return store.Item{
		Title:       title,
		URL:         url,
		Source:      "habr_" + hub,
		PublishedAt: published,
		Meta: store.HabrMeta{
			Author:   author,
			Score:    parseCounter(snippet.Find(".tm-votes-meter__value").First().Text()),
			Comments: parseCounter(snippet.Find(".tm-article-comments-counter-link__value").First().Text()),
		},
	}, true
}

func (c *Client) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("habr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("habr error %d for %s", resp.StatusCode, url)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("habr parse: %w", err)
	}
	return doc, nil
}

// extractMainText pulls the readable article text; an empty string means
// extraction failed, which is non-fatal for the listing item.
func (c *Client) extractMainText(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", c.UserAgent)
	resp, err := c.HTTPClient.Do(req)
	if err != nil || resp == nil || resp.Body == nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil || len(bodyBytes) == 0 {
		return ""
	}
	res, err := trafilatura.Extract(bytes.NewReader(bodyBytes), trafilatura.Options{
		OriginalURL:    func() *neturl.URL { u, _ := neturl.Parse(url); return u }(),
		EnableFallback: true,
		Focus:          trafilatura.Balanced,
	})
	if err != nil || res == nil {
		c.debugf("habr: extraction failed for %s: %v", url, err)
		return ""
	}
	return strings.TrimSpace(res.ContentText)
}

// parseCounter reads Habr's counter text ("12", "+34", "1.5K") into an
// int, defaulting to 0 on anything unexpected.
func parseCounter(s string) int {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return 0
	}
	mult := 1.0
	if strings.HasSuffix(s, "K") || strings.HasSuffix(s, "k") {
		mult = 1000
		s = s[:len(s)-1]
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return int(f * mult)
}

func (c *Client) debugf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
