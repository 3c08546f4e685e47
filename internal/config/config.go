package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabasePath string `yaml:"database_path"`
	Ingest       Ingest `yaml:"ingest"`
	Reddit       Reddit `yaml:"reddit"`
	Scrape       Scrape `yaml:"scrape"`
}

type Ingest struct {
	// Sources are qualified ids, e.g. "reddit/golang", "medium/programming",
	// "habr/go", "telegram/technews".
	Sources      []string `yaml:"sources"`
	Limit        int      `yaml:"limit"`
	Mode         string   `yaml:"mode"`
	DelaySeconds int      `yaml:"delay_seconds"`
}

type Reddit struct {
	UserAgent string `yaml:"user_agent"`
	// ClientID/ClientSecret come from the environment (.env), never from
	// the config file.
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
}

type Scrape struct {
	TimeoutSeconds int  `yaml:"timeout_seconds"`
	ExtractBody    bool `yaml:"extract_body"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "newsagg.db",
		Ingest: Ingest{
			Sources:      []string{"reddit/python", "medium/programming"},
			Limit:        50,
			Mode:         "primary",
			DelaySeconds: 5,
		},
		Reddit: Reddit{
			UserAgent: "news-ai-aggregator/1.0",
		},
		Scrape: Scrape{
			TimeoutSeconds: 30,
			ExtractBody:    false,
		},
	}
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "newsagg", "config.yaml"), nil
}

// Load reads the config from path; with an empty path it tries
// ./config.yaml, then ~/.config/newsagg/config.yaml, and falls back to
// defaults when neither exists. Reddit credentials are always taken from
// REDDIT_CLIENT_ID / REDDIT_CLIENT_SECRET.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	candidates := []string{}
	if path != "" {
		candidates = append(candidates, path)
	} else {
		candidates = append(candidates, "config.yaml")
		if p, err := defaultConfigPath(); err == nil {
			candidates = append(candidates, p)
		}
	}

	for _, p := range candidates {
		b, err := os.ReadFile(ExpandPath(p))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", p, err)
		}
		break
	}

	cfg.Reddit.ClientID = strings.TrimSpace(os.Getenv("REDDIT_CLIENT_ID"))
	cfg.Reddit.ClientSecret = strings.TrimSpace(os.Getenv("REDDIT_CLIENT_SECRET"))
	cfg.DatabasePath = ExpandPath(cfg.DatabasePath)
	return cfg, nil
}

// ExpandPath expands leading ~ and environment variables in a filesystem
// path.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			if p == "~" {
				p = home
			} else if strings.HasPrefix(p, "~/") {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	return p
}
