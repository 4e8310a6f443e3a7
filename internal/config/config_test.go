package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ncboard/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("NCBOARD_TOKEN", "")
	t.Setenv("NCSTORED_DB_DSN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "ncboard")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.CacheFile != filepath.Join(wantData, "snapshots.json") {
		t.Fatalf("unexpected cache file: %q", cfg.Paths.CacheFile)
	}
	if cfg.Paths.CredentialFile != filepath.Join(wantData, "token") {
		t.Fatalf("unexpected credential file: %q", cfg.Paths.CredentialFile)
	}
	if cfg.Paths.StateFile != filepath.Join(wantData, "session.json") {
		t.Fatalf("unexpected state file: %q", cfg.Paths.StateFile)
	}
	if cfg.Server.DBDSN != filepath.Join(wantData, "candidates.db") {
		t.Fatalf("unexpected sqlite dsn: %q", cfg.Server.DBDSN)
	}
	if cfg.Remote.BaseURL != "http://localhost:5000" {
		t.Fatalf("unexpected base url: %q", cfg.Remote.BaseURL)
	}
	if cfg.Server.Bind != "127.0.0.1:5000" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.RemoteTimeout().Seconds() != 15 {
		t.Fatalf("unexpected remote timeout: %s", cfg.RemoteTimeout())
	}
}

func TestLoadReadsFileAndEnvFallbacks(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("NCBOARD_TOKEN", "env-token")
	t.Setenv("NCSTORED_DB_DSN", "postgres://user@localhost/nc")

	payload := map[string]any{
		"remote":  map[string]any{"base_url": "https://store.example.com/", "timeout_seconds": 3},
		"server":  map[string]any{"db_driver": "Postgres"},
		"logging": map[string]any{"format": "JSON", "level": "Debug"},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit path to resolve, got %q exists=%v", resolved, exists)
	}
	if cfg.Remote.BaseURL != "https://store.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.Token != "env-token" {
		t.Fatalf("expected token from env, got %q", cfg.Remote.Token)
	}
	if cfg.Server.DBDriver != "postgres" {
		t.Fatalf("expected lowercased driver, got %q", cfg.Server.DBDriver)
	}
	if cfg.Server.DBDSN != "postgres://user@localhost/nc" {
		t.Fatalf("expected dsn from env, got %q", cfg.Server.DBDSN)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"driver", func(c *config.Config) { c.Server.DBDriver = "oracle" }, "server.db_driver"},
		{"missing dsn", func(c *config.Config) { c.Server.DBDriver = "mysql"; c.Server.DBDSN = "" }, "server.db_dsn"},
		{"scheme", func(c *config.Config) { c.Remote.BaseURL = "ftp://host" }, "remote.base_url"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Server.DBDSN = "/tmp/candidates.db"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if !cfg.Server.Metrics {
		t.Fatal("expected metrics enabled in sample")
	}
}
