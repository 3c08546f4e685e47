// Package reddit fetches subreddit listings through Reddit's public JSON
// API, optionally authenticated with an app-only OAuth token when script
// credentials are configured.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vergotten/news-ai-aggregator/internal/sources"
	"github.com/vergotten/news-ai-aggregator/internal/store"
)

// maxListingLimit is the upper bound Reddit accepts for one listing page.
const maxListingLimit = 100

type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// BaseURL of the listing API; defaults to the public endpoint, or the
	// OAuth endpoint once a token is held.
	BaseURL string
	// TokenURL is the client-credentials token endpoint.
	TokenURL string
	// ClientID/ClientSecret enable app-only OAuth. Left empty, the client
	// uses the public JSON listings.
	ClientID     string
	ClientSecret string
	Logger       *log.Logger

	token       string
	tokenExpiry time.Time
}

func New(userAgent, clientID, clientSecret string, logger *log.Logger) *Client {
	if userAgent == "" {
		userAgent = "news-ai-aggregator/1.0"
	}
	return &Client{
		HTTPClient:   &http.Client{Timeout: 20 * time.Second},
		UserAgent:    userAgent,
		BaseURL:      "https://www.reddit.com",
		TokenURL:     "https://www.reddit.com/api/v1/access_token",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Logger:       logger,
	}
}

type listingResponse struct {
	Data struct {
		Children []struct {
			Data listingPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type listingPost struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Selftext      string  `json:"selftext"`
	Author        string  `json:"author"`
	Subreddit     string  `json:"subreddit"`
	Permalink     string  `json:"permalink"`
	Score         int     `json:"score"`
	NumComments   int     `json:"num_comments"`
	LinkFlairText string  `json:"link_flair_text"`
	IsSelf        bool    `json:"is_self"`
	CreatedUTC    float64 `json:"created_utc"`
}

// Fetch returns up to limit posts from one subreddit. Posts without a
// title or permalink are dropped.
func (c *Client) Fetch(ctx context.Context, subreddit string, limit int, mode sources.Mode) ([]store.Item, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("reddit: non-positive limit %d", limit)
	}
	if limit > maxListingLimit {
		limit = maxListingLimit
	}

	listing := "hot"
	switch mode {
	case sources.ModeRecency:
		listing = "new"
	case sources.ModeTop:
		listing = "top"
	}

	base := strings.TrimSuffix(c.BaseURL, "/")
	authed := c.ClientID != "" && c.ClientSecret != ""
	if authed && base == "https://www.reddit.com" {
		// Authenticated listings go through the OAuth host.
		base = "https://oauth.reddit.com"
	}
	u := fmt.Sprintf("%s/r/%s/%s.json?limit=%d&raw_json=1",
		base, url.PathEscape(subreddit), listing, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	if authed {
		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &sources.AuthError{Platform: "reddit", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("reddit error %d: %s", resp.StatusCode, body)
	}

	var listingResp listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&listingResp); err != nil {
		return nil, fmt.Errorf("reddit decode: %w", err)
	}

	items := make([]store.Item, 0, len(listingResp.Data.Children))
	for _, child := range listingResp.Data.Children {
		p := child.Data
		if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Permalink) == "" {
			c.debugf("reddit: dropping unparseable post id=%s", p.ID)
			continue
		}
		if len(items) >= limit {
			break
		}
		sub := p.Subreddit
		if sub == "" {
			sub = subreddit
		}
		author := p.Author
		if author == "" {
			author = "[deleted]"
		}
		body := ""
		if p.IsSelf {
			body = p.Selftext
		}
		items = append(items, store.Item{
			Title:       p.Title,
			URL:         "https://reddit.com" + p.Permalink,
			Source:      "reddit_" + sub,
			PublishedAt: time.Unix(int64(p.CreatedUTC), 0).UTC(),
			Body:        body,
			Meta: store.RedditMeta{
				Author:      author,
				Score:       p.Score,
				NumComments: p.NumComments,
				Flair:       p.LinkFlairText,
			},
		})
	}
	return items, nil
}

// accessToken returns a cached app-only token, requesting a fresh one
// when missing or within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ClientID, c.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reddit token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", &sources.AuthError{Platform: "reddit", Err: fmt.Errorf("token status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("reddit token error %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("reddit token decode: %w", err)
	}
	if tok.AccessToken == "" {
		return "", &sources.AuthError{Platform: "reddit", Err: fmt.Errorf("empty access token")}
	}
	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

func (c *Client) debugf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
