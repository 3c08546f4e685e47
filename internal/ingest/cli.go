package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vergotten/news-ai-aggregator/internal/config"
	"github.com/vergotten/news-ai-aggregator/internal/sources"
	"github.com/vergotten/news-ai-aggregator/internal/sources/habr"
	"github.com/vergotten/news-ai-aggregator/internal/sources/medium"
	"github.com/vergotten/news-ai-aggregator/internal/sources/reddit"
	"github.com/vergotten/news-ai-aggregator/internal/sources/telegram"
	"github.com/vergotten/news-ai-aggregator/internal/store"
)

// Options allow overriding config values from CLI flags. Zero values
// mean "use the config".
type Options struct {
	Sources      []string
	Limit        int
	Mode         string
	DelaySeconds int
	LogFile      string
}

// Run executes a single ingestion run against the configured sources
// and prints the per-source results as JSON. Scheduling is delegated to
// cron/systemd/launchd.
func Run(ctx context.Context, opts Options, cfg config.Config) error {
	srcs := cfg.Ingest.Sources
	if len(opts.Sources) > 0 {
		srcs = opts.Sources
	}
	limit := cfg.Ingest.Limit
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	modeStr := cfg.Ingest.Mode
	if strings.TrimSpace(opts.Mode) != "" {
		modeStr = opts.Mode
	}
	delaySec := cfg.Ingest.DelaySeconds
	if opts.DelaySeconds > 0 {
		delaySec = opts.DelaySeconds
	}

	logger := log.New(os.Stderr, "[newsagg] ", log.LstdFlags)
	var closeLog func() error = func() error { return nil }
	if logFile := strings.TrimSpace(opts.LogFile); logFile != "" {
		logFile = config.ExpandPath(logFile)
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err == nil {
			if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				logger.SetOutput(f)
				closeLog = f.Close
			}
		}
	}
	defer closeLog()

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := store.InitSchema(db); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	runner := &Runner{
		Store:    &store.Handle{DB: db},
		Registry: buildRegistry(cfg, logger),
		Policy:   DefaultPolicy(),
		Logger:   logger,
	}

	results, runErr := runner.Run(ctx, srcs, limit, sources.ParseMode(modeStr),
		time.Duration(delaySec)*time.Second)

	if len(results) > 0 {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	}
	return runErr
}

func buildRegistry(cfg config.Config, logger *log.Logger) sources.Registry {
	timeout := time.Duration(cfg.Scrape.TimeoutSeconds) * time.Second

	habrClient := habr.New(timeout, logger)
	habrClient.ExtractBody = cfg.Scrape.ExtractBody

	return sources.Registry{
		"reddit":   reddit.New(cfg.Reddit.UserAgent, cfg.Reddit.ClientID, cfg.Reddit.ClientSecret, logger),
		"medium":   medium.New(timeout, logger),
		"habr":     habrClient,
		"telegram": telegram.New(timeout, logger),
	}
}
