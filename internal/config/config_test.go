package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoad_INIFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "high-lakes.ini")
	content := `
[scrape]
workers = 8
rate = 2.5
timeout = 10s
plants_source = open-data

[output]
data_dir = snapshots

[git]
commit = true
author_name = Lake Bot

[log]
level = debug
format = console
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.Rate != 2.5 {
		t.Errorf("Rate = %v, want 2.5", cfg.Rate)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
	if cfg.PlantsSource != SourceOpenData {
		t.Errorf("PlantsSource = %q, want open-data", cfg.PlantsSource)
	}
	if cfg.DataDir != "snapshots" {
		t.Errorf("DataDir = %q, want snapshots", cfg.DataDir)
	}
	if !cfg.Commit {
		t.Error("Commit should be true")
	}
	if cfg.AuthorName != "Lake Bot" {
		t.Errorf("AuthorName = %q, want Lake Bot", cfg.AuthorName)
	}
	// Unset keys keep their defaults
	if cfg.AuthorEmail != Default().AuthorEmail {
		t.Errorf("AuthorEmail = %q, want default", cfg.AuthorEmail)
	}
	if cfg.LogConf.Format != "console" {
		t.Errorf("Log format = %q, want console", cfg.LogConf.Format)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.ini")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HIGH_LAKES_DATA_DIR", "/tmp/lakes")
	t.Setenv("HIGH_LAKES_WORKERS", "2")
	t.Setenv("GITHUB_TOKEN", "secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DataDir != "/tmp/lakes" {
		t.Errorf("DataDir = %q, want /tmp/lakes", cfg.DataDir)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
	if cfg.Token != "secret" {
		t.Errorf("Token = %q, want secret", cfg.Token)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("HIGH_LAKES_WORKERS", "many")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "HIGH_LAKES_WORKERS") {
		t.Errorf("Load() error = %v, want HIGH_LAKES_WORKERS error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad source", func(c *Config) { c.PlantsSource = "rss" }, "invalid plants source"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"zero rate", func(c *Config) { c.Rate = 0 }, "rate"},
		{"zero max plants", func(c *Config) { c.MaxPlants = 0 }, "max plants"},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, "data directory"},
		{"bad log format", func(c *Config) { c.LogConf.Format = "xml" }, "log format"},
		{"bad notify mode", func(c *Config) { c.NotifyConf.Mode = "email" }, "notify mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
