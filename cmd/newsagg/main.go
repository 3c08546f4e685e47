package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/vergotten/news-ai-aggregator/internal/config"
	"github.com/vergotten/news-ai-aggregator/internal/ingest"
	"github.com/vergotten/news-ai-aggregator/internal/list"
	"github.com/vergotten/news-ai-aggregator/internal/stats"
)

func main() {
	// Optional; credentials may also come from the real environment.
	_ = godotenv.Load()

	app := &cli.Command{
		Name:  "newsagg",
		Usage: "Multi-source news aggregator",
		Commands: []*cli.Command{
			{
				Name:  "ingest",
				Usage: "Fetch configured sources and save new items",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Usage: "Path to config.yaml"},
					&cli.StringFlag{Name: "sources", Usage: "Comma-separated source ids (reddit/golang,medium/programming)"},
					&cli.IntFlag{Name: "limit", Usage: "Max items to fetch per source"},
					&cli.StringFlag{Name: "mode", Usage: "Selection mode: primary, recency or top"},
					&cli.IntFlag{Name: "delay", Usage: "Seconds to wait between sources"},
					&cli.StringFlag{Name: "log-file", Usage: "Path to log file (default: stderr)"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}
					opts := ingest.Options{
						Sources:      splitSources(c.String("sources")),
						Limit:        c.Int("limit"),
						Mode:         c.String("mode"),
						DelaySeconds: c.Int("delay"),
						LogFile:      c.String("log-file"),
					}
					return ingest.Run(ctx, opts, cfg)
				},
			},
			{
				Name:  "list",
				Usage: "List saved items",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Usage: "Path to config.yaml"},
					&cli.StringFlag{Name: "source", Usage: "Exact source id (e.g. reddit_golang)"},
					&cli.StringFlag{Name: "prefix", Usage: "Source prefix (e.g. reddit)"},
					&cli.IntFlag{Name: "limit", Usage: "Max items to print (default: 50)", Value: 50},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}
					return list.Run(ctx, cfg, c.String("source"), c.String("prefix"), c.Int("limit"))
				},
			},
			{
				Name:  "stats",
				Usage: "Show item counts per platform",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Usage: "Path to config.yaml"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}
					return stats.Run(ctx, cfg)
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func splitSources(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
