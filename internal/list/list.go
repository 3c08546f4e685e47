package list

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vergotten/news-ai-aggregator/internal/config"
	"github.com/vergotten/news-ai-aggregator/internal/store"
)

// Run prints stored items, filtered by an exact source or a source
// prefix, newest first.
func Run(ctx context.Context, cfg config.Config, source, prefix string, limit int) error {
	if limit <= 0 {
		limit = 50
	}
	if source != "" && prefix != "" {
		return fmt.Errorf("use either --source or --prefix, not both")
	}

	if !fileExists(cfg.DatabasePath) {
		fmt.Printf("Database not found at %s\n", cfg.DatabasePath)
		fmt.Println("Hint: run 'newsagg ingest' first to create and populate it.")
		return nil
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var items []store.Item
	switch {
	case prefix != "":
		items, err = store.GetBySourcePrefix(ctx, db, prefix, limit)
	case source != "":
		items, err = store.GetBySource(ctx, db, source, limit)
	default:
		items, err = store.GetBySourcePrefix(ctx, db, "", limit)
	}
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no such table") {
			fmt.Println("Database is present but not initialized (missing tables)")
			fmt.Println("Hint: run 'newsagg ingest' once to initialize the schema.")
			return nil
		}
		return fmt.Errorf("query failed: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("No items found.")
		return nil
	}

	fmt.Printf("Found %d items:\n\n", len(items))
	for _, it := range items {
		fmt.Printf("Title: %s\n", it.Title)
		fmt.Printf("URL: %s\n", it.URL)
		fmt.Printf("Source: %s\n", it.Source)
		fmt.Printf("Published: %s\n", it.PublishedAt.Format("2006-01-02 15:04:05"))
		if line := metaLine(it.Meta); line != "" {
			fmt.Printf("Meta: %s\n", line)
		}
		if it.Summary != "" {
			preview := it.Summary
			if len(preview) > 200 {
				preview = preview[:200] + "..."
			}
			fmt.Printf("Summary: %s\n", preview)
		}
		fmt.Println(strings.Repeat("-", 80))
	}
	return nil
}

func metaLine(m store.Meta) string {
	switch v := m.(type) {
	case store.RedditMeta:
		return fmt.Sprintf("u/%s score=%d comments=%d", v.Author, v.Score, v.NumComments)
	case store.MediumMeta:
		return fmt.Sprintf("by %s", v.Author)
	case store.HabrMeta:
		return fmt.Sprintf("by %s score=%d comments=%d", v.Author, v.Score, v.Comments)
	case store.TelegramMeta:
		return fmt.Sprintf("@%s views=%d", v.Channel, v.Views)
	}
	return ""
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
