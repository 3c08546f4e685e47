package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := DefaultConfig()
	if cfg.Ingest.Limit != def.Ingest.Limit || cfg.Ingest.Mode != def.Ingest.Mode {
		t.Fatalf("missing file should fall back to defaults: %+v", cfg.Ingest)
	}
	if len(cfg.Ingest.Sources) == 0 {
		t.Fatal("defaults should include sources")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database_path: /tmp/news-test.db
ingest:
  sources:
    - reddit/golang
    - habr/go
    - telegram/technews
  limit: 25
  mode: top
  delay_seconds: 2
reddit:
  user_agent: custom-agent/2.0
scrape:
  timeout_seconds: 10
  extract_body: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabasePath != "/tmp/news-test.db" {
		t.Fatalf("unexpected db path %q", cfg.DatabasePath)
	}
	if len(cfg.Ingest.Sources) != 3 || cfg.Ingest.Sources[1] != "habr/go" {
		t.Fatalf("unexpected sources %v", cfg.Ingest.Sources)
	}
	if cfg.Ingest.Limit != 25 || cfg.Ingest.Mode != "top" || cfg.Ingest.DelaySeconds != 2 {
		t.Fatalf("unexpected ingest config %+v", cfg.Ingest)
	}
	if cfg.Reddit.UserAgent != "custom-agent/2.0" {
		t.Fatalf("unexpected user agent %q", cfg.Reddit.UserAgent)
	}
	if cfg.Scrape.TimeoutSeconds != 10 || !cfg.Scrape.ExtractBody {
		t.Fatalf("unexpected scrape config %+v", cfg.Scrape)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("ingest:\n  limit: 7\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Ingest.Limit != 7 {
		t.Fatalf("file value not applied: %d", cfg.Ingest.Limit)
	}
	if cfg.DatabasePath != DefaultConfig().DatabasePath {
		t.Fatalf("unset fields should keep defaults, got %q", cfg.DatabasePath)
	}
}

func TestLoadCredentialsFromEnv(t *testing.T) {
	t.Setenv("REDDIT_CLIENT_ID", "env-id")
	t.Setenv("REDDIT_CLIENT_SECRET", "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Reddit.ClientID != "env-id" || cfg.Reddit.ClientSecret != "env-secret" {
		t.Fatalf("credentials should come from env: %+v", cfg.Reddit)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("ingest: [not: a: mapping"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml should be an error")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := ExpandPath("~/data/news.db"); got != filepath.Join(home, "data", "news.db") {
		t.Fatalf("got %q", got)
	}
	t.Setenv("NEWSAGG_DIR", "/srv/news")
	if got := ExpandPath("$NEWSAGG_DIR/news.db"); got != "/srv/news/news.db" {
		t.Fatalf("got %q", got)
	}
	if got := ExpandPath(""); got != "" {
		t.Fatalf("got %q", got)
	}
}
