package stats

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/vergotten/news-ai-aggregator/internal/config"
	"github.com/vergotten/news-ai-aggregator/internal/store"
)

// Run prints per-platform item counts and the overall total.
func Run(ctx context.Context, cfg config.Config) error {
	if _, err := os.Stat(cfg.DatabasePath); err != nil {
		fmt.Printf("Database not found at %s\n", cfg.DatabasePath)
		fmt.Println("Hint: run 'newsagg ingest' first to create and populate it.")
		return nil
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	counts, err := store.CountsByBucket(ctx, db)
	if err != nil {
		return fmt.Errorf("count items: %w", err)
	}
	total, err := store.CountAll(ctx, db)
	if err != nil {
		return fmt.Errorf("count items: %w", err)
	}

	buckets := make([]string, 0, len(counts))
	for b := range counts {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)

	fmt.Println("Items by platform:")
	for _, b := range buckets {
		fmt.Printf("  %-10s %d\n", b, counts[b])
	}
	fmt.Printf("Total: %d\n", total)
	return nil
}
