// Package medium fetches Medium tag feeds over RSS.
package medium

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/vergotten/news-ai-aggregator/internal/sources"
	"github.com/vergotten/news-ai-aggregator/internal/store"
)

// summaryMaxRunes bounds the stored summary text.
const summaryMaxRunes = 500

type Client struct {
	// BaseURL of the tag feed endpoint; a tag is appended as a path
	// segment.
	BaseURL string
	Logger  *log.Logger
	parser  *gofeed.Parser
}

func New(timeout time.Duration, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	return &Client{
		BaseURL: "https://medium.com/feed/tag",
		Logger:  logger,
		parser:  p,
	}
}

// Fetch returns up to limit articles for one tag. Medium's RSS exposes a
// single native ordering, so every selection mode serves it. Entries
// without a title or link are dropped.
func (c *Client) Fetch(ctx context.Context, tag string, limit int, _ sources.Mode) ([]store.Item, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("medium: non-positive limit %d", limit)
	}

	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(tag)), " ", "-")
	feedURL := strings.TrimSuffix(c.BaseURL, "/") + "/" + slug

	feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("medium feed %s: %w", slug, err)
	}

	items := make([]store.Item, 0, limit)
	for _, entry := range feed.Items {
		if len(items) >= limit {
			break
		}
		if entry == nil || strings.TrimSpace(entry.Title) == "" || strings.TrimSpace(entry.Link) == "" {
			c.debugf("medium: dropping unparseable entry in %s", slug)
			continue
		}
		author := "Unknown"
		if len(entry.Authors) > 0 && entry.Authors[0] != nil && entry.Authors[0].Name != "" {
			author = entry.Authors[0].Name
		}
		var published time.Time
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}
		items = append(items, store.Item{
			Title:       entry.Title,
			URL:         entry.Link,
			Source:      "medium_" + slug,
			PublishedAt: published,
			Summary:     truncateRunes(htmlToText(entry.Description), summaryMaxRunes),
			Body:        htmlToText(entry.Content),
			Meta: store.MediumMeta{
				Author: author,
				Tags:   entry.Categories,
			},
		})
	}
	return items, nil
}

func (c *Client) debugf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// htmlToText converts a small HTML fragment into plain text by walking
// the node tree and concatenating text nodes with minimal whitespace
// normalization.
func htmlToText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	n, err := html.Parse(strings.NewReader(s))
	if err != nil || n == nil {
		// If parsing fails, fall back to a naive strip of angle-bracket tags.
		out := regexp.MustCompile(`<[^>]+>`).ReplaceAllString(s, " ")
		return strings.Join(strings.Fields(out), " ")
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				if b.Len() > 0 {
					b.WriteString(" ")
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
