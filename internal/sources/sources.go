// Package sources defines the boundary between the ingestion loop and the
// external platforms it pulls from. One Client per platform; each Fetch
// returns normalized store rows ready for the idempotent insert.
package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/vergotten/news-ai-aggregator/internal/store"
)

// Mode is the sort/selection strategy requested from a platform listing.
// Platforms that only expose a single native ordering serve it for every
// mode.
type Mode string

const (
	// ModePrimary is the platform's default ranking (Reddit "hot").
	ModePrimary Mode = "primary"
	// ModeRecency is newest-first.
	ModeRecency Mode = "recency"
	// ModeTop is the platform's top/best ranking.
	ModeTop Mode = "top"
)

// ParseMode maps user input to a Mode, falling back to ModePrimary for
// anything it does not recognize.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRecency:
		return ModeRecency
	case ModeTop:
		return ModeTop
	default:
		return ModePrimary
	}
}

// Client fetches a bounded page of candidate items from one sub-source of
// a platform (a subreddit, a tag, a hub, a channel). Records that cannot
// be normalized into a titled, addressable item are dropped, not errored.
// A failure of the listing itself aborts the whole fetch.
type Client interface {
	Fetch(ctx context.Context, id string, limit int, mode Mode) ([]store.Item, error)
}

// AuthError reports rejected credentials. The ingestion loop does not
// retry these.
type AuthError struct {
	Platform string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s auth: %v", e.Platform, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Registry maps platform names to their clients. Source identifiers are
// "platform/subsource", e.g. "reddit/golang" or "medium/programming".
type Registry map[string]Client

// Split breaks a qualified source identifier into platform and
// sub-source.
func Split(sourceID string) (platform, sub string, err error) {
	platform, sub, ok := strings.Cut(strings.TrimSpace(sourceID), "/")
	if !ok || platform == "" || sub == "" {
		return "", "", fmt.Errorf("malformed source id %q (want platform/subsource)", sourceID)
	}
	return platform, sub, nil
}

// Lookup resolves the client responsible for a qualified source id.
func (r Registry) Lookup(sourceID string) (Client, string, error) {
	platform, sub, err := Split(sourceID)
	if err != nil {
		return nil, "", err
	}
	c, ok := r[platform]
	if !ok {
		return nil, "", fmt.Errorf("unknown platform %q in source id %q", platform, sourceID)
	}
	return c, sub, nil
}
