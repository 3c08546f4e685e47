// Package ingest drives the save-if-new pipeline: fetch a bounded page
// per source, insert each candidate once, report per-source counts. One
// source failing never stops the rest.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vergotten/news-ai-aggregator/internal/sources"
	"github.com/vergotten/news-ai-aggregator/internal/store"
)

// Store is what the loop needs from the content store.
type Store interface {
	Ping(ctx context.Context) error
	InsertIfAbsent(ctx context.Context, it store.Item) (bool, error)
}

// Result is the outcome for one source. Every requested source produces
// exactly one Result, in request order.
type Result struct {
	Source  string   `json:"source"`
	Saved   int      `json:"saved"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// Policy controls fetch retries. Auth rejections are never retried.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// DefaultPolicy retries a fetch three times with exponential backoff
// (2s, 4s).
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		},
	}
}

type Runner struct {
	Store    Store
	Registry sources.Registry
	Policy   Policy
	Logger   *log.Logger
}

// Run processes the sources strictly in the given order. A fetch or
// insert failure is recorded in that source's Result and the loop moves
// on; the only whole-run failure is an unusable store handle. Between
// sources (not after the last) the loop pauses for delay as courtesy
// rate limiting.
func (r *Runner) Run(ctx context.Context, sourceIDs []string, limit int, mode sources.Mode, delay time.Duration) ([]Result, error) {
	if len(sourceIDs) == 0 {
		return nil, fmt.Errorf("no sources given")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("non-positive limit %d", limit)
	}
	if err := r.Store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("content store unavailable: %w", err)
	}

	r.logf("ingest start: sources=%d limit=%d mode=%s delay=%s", len(sourceIDs), limit, mode, delay)

	results := make([]Result, 0, len(sourceIDs))
	for i, id := range sourceIDs {
		res := r.runOne(ctx, id, limit, mode)
		results = append(results, res)
		r.logf("ingest source done: source=%s saved=%d skipped=%d errors=%d",
			res.Source, res.Saved, res.Skipped, len(res.Errors))

		if i < len(sourceIDs)-1 && delay > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	var saved, skipped, failed int
	for _, res := range results {
		saved += res.Saved
		skipped += res.Skipped
		if len(res.Errors) > 0 {
			failed++
		}
	}
	r.logf("ingest done: sources=%d saved=%d skipped=%d sources_with_errors=%d",
		len(results), saved, skipped, failed)
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, sourceID string, limit int, mode sources.Mode) Result {
	res := Result{Source: sourceID, Errors: []string{}}

	client, sub, err := r.Registry.Lookup(sourceID)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	items, err := r.fetchWithRetry(ctx, client, sub, limit, mode)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("fetch: %v", err))
		return res
	}

	for _, it := range items {
		saved, err := r.Store.InsertIfAbsent(ctx, it)
		if err != nil {
			// One bad item must not sink the rest of the batch.
			res.Errors = append(res.Errors, fmt.Sprintf("save %s: %v", it.URL, err))
			continue
		}
		if saved {
			res.Saved++
		} else {
			res.Skipped++
		}
	}
	return res
}

func (r *Runner) fetchWithRetry(ctx context.Context, client sources.Client, sub string, limit int, mode sources.Mode) ([]store.Item, error) {
	attempts := r.Policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		items, err := client.Fetch(ctx, sub, limit, mode)
		if err == nil {
			return items, nil
		}
		lastErr = err

		var authErr *sources.AuthError
		if errors.As(err, &authErr) || ctx.Err() != nil {
			return nil, err
		}
		if attempt == attempts {
			break
		}
		wait := time.Duration(0)
		if r.Policy.Backoff != nil {
			wait = r.Policy.Backoff(attempt)
		}
		r.logf("fetch failed for %s (attempt %d/%d): %v; retrying in %s", sub, attempt, attempts, err, wait)
		if wait > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return nil, lastErr
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}
