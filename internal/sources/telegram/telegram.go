// Package telegram reads public channel messages from the t.me web
// preview, which needs no MTProto session or API credentials.
package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vergotten/news-ai-aggregator/internal/sources"
	"github.com/vergotten/news-ai-aggregator/internal/store"
)

// titleMaxRunes bounds the title derived from a message's first line.
const titleMaxRunes = 120

type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// BaseURL of the preview host; defaults to https://t.me.
	BaseURL string
	Logger  *log.Logger
}

func New(timeout time.Duration, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  "news-ai-aggregator/1.0",
		BaseURL:    "https://t.me",
		Logger:     logger,
	}
}

// Fetch returns up to limit messages from one public channel. The
// preview page only exposes newest-first, so every selection mode serves
// that order. Media-only messages without text are dropped.
func (c *Client) Fetch(ctx context.Context, channel string, limit int, _ sources.Mode) ([]store.Item, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("telegram: non-positive limit %d", limit)
	}

	channel = strings.TrimPrefix(strings.TrimSpace(channel), "@")
	base := strings.TrimSuffix(c.BaseURL, "/")
	url := fmt.Sprintf("%s/s/%s", base, neturl.PathEscape(channel))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("telegram error %d for channel %s", resp.StatusCode, channel)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telegram parse: %w", err)
	}

	messages := doc.Find("div.tgme_widget_message")
	if messages.Length() == 0 {
		return nil, fmt.Errorf("telegram: no messages found for channel %s (private or nonexistent?)", channel)
	}

	var items []store.Item
	// Preview pages list oldest first; walk backwards for newest first.
	nodes := messages.Nodes
	for i := len(nodes) - 1; i >= 0 && len(items) < limit; i-- {
		msg := goquery.NewDocumentFromNode(nodes[i]).Selection

		post, _ := msg.Attr("data-post")
		post = strings.TrimSpace(post)
		text := strings.TrimSpace(msg.Find("div.tgme_widget_message_text").First().Text())
		if post == "" || text == "" {
			c.debugf("telegram: dropping message without text or id in %s", channel)
			continue
		}

		var published time.Time
		if dt, ok := msg.Find("time[datetime]").First().Attr("datetime"); ok {
			if t, err := time.Parse(time.RFC3339, dt); err == nil {
				published = t.UTC()
			}
		}

		items = append(items, store.Item{
			Title:       firstLine(text, titleMaxRunes),
			URL:         base + "/" + post,
			Source:      "telegram_" + channel,
			PublishedAt: published,
			Body:        text,
			Meta: store.TelegramMeta{
				Channel: channel,
				Views:   parseViews(msg.Find("span.tgme_widget_message_views").First().Text()),
			},
		})
	}
	return items, nil
}

func firstLine(s string, maxRunes int) string {
	if i := strings.IndexAny(s, "\n\r"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > maxRunes {
		s = string(r[:maxRunes])
	}
	return s
}

// parseViews reads the preview's view counter ("871", "1.2K", "3M"),
// defaulting to 0 when absent or unparseable.
func parseViews(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		mult = 1e3
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"):
		mult = 1e6
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
