// Package config loads high-lakes settings.
//
// Settings are layered: built-in defaults, then an optional INI file, then a .env file and
// the process environment. Command-line flags are applied last by the cli package.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// ScrapeConf controls fetching and extraction
type ScrapeConf struct {
	HighLakesURL string        `ini:"high_lakes_url"`
	OpenDataURL  string        `ini:"open_data_url"`
	UserAgent    string        `ini:"user_agent"`
	Timeout      time.Duration `ini:"timeout"`
	Workers      int           `ini:"workers"`
	Rate         float64       `ini:"rate"` // requests per second across all workers
	PlantsSource string        `ini:"plants_source"`
	MaxPlants    int           `ini:"max_plants"`
}

// OutputConf controls where snapshot files are written
type OutputConf struct {
	DataDir string `ini:"data_dir"`
}

// GitConf controls the commit step
type GitConf struct {
	Commit      bool   `ini:"commit"`
	Push        bool   `ini:"push"`
	Remote      string `ini:"remote"`
	AuthorName  string `ini:"author_name"`
	AuthorEmail string `ini:"author_email"`
	Token       string `ini:"-"`
}

// HistoryConf controls the SQLite archive
type HistoryConf struct {
	DBPath string `ini:"db_path"`
}

// ScheduleConf controls the watch command
type ScheduleConf struct {
	Spec       string `ini:"spec"`
	RunAtStart bool   `ini:"run_at_start"`
}

// LogConf controls log output
type LogConf struct {
	Level  string `ini:"level"`
	Format string `ini:"format"` // json or console
}

// NotifyConf controls notifications for newly seen plants
type NotifyConf struct {
	Mode string `ini:"mode"` // none, dry-run, twitter or telegram
	Max  int    `ini:"max"`
}

// Config is the complete high-lakes configuration
type Config struct {
	ScrapeConf   `ini:"scrape"`
	OutputConf   `ini:"output"`
	GitConf      `ini:"git"`
	HistoryConf  `ini:"history"`
	ScheduleConf `ini:"schedule"`
	LogConf      `ini:"log"`
	NotifyConf   `ini:"notify"`
}

// Plant sources
const (
	SourcePages    = "pages"
	SourceOpenData = "open-data"
	SourceBoth     = "both"
)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ScrapeConf: ScrapeConf{
			HighLakesURL: "https://wdfw.wa.gov/fishing/locations/high-lakes",
			OpenDataURL:  "https://data.wa.gov/resource/6fex-3r7d.json",
			UserAgent:    "high-lakes/1.0 (github.com/pfrederiksen/high-lakes)",
			Timeout:      30 * time.Second,
			Workers:      4,
			Rate:         1,
			PlantsSource: SourceBoth,
			MaxPlants:    10,
		},
		OutputConf: OutputConf{
			DataDir: "data",
		},
		GitConf: GitConf{
			Remote:      "origin",
			AuthorName:  "Automated",
			AuthorEmail: "actions@users.noreply.github.com",
		},
		ScheduleConf: ScheduleConf{
			Spec: "@daily",
		},
		LogConf: LogConf{
			Level:  "info",
			Format: "json",
		},
		NotifyConf: NotifyConf{
			Mode: "none",
			Max:  10,
		},
	}
}

// Load builds a Config from defaults, the INI file at path (skipped when path is empty),
// a .env file in the working directory if one exists, and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		iniFile, err := ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		if err := iniFile.MapTo(cfg); err != nil {
			return nil, fmt.Errorf("mapping config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	overrideString(&cfg.DataDir, "HIGH_LAKES_DATA_DIR")
	overrideString(&cfg.HistoryConf.DBPath, "HIGH_LAKES_HISTORY_DB")
	overrideString(&cfg.LogConf.Level, "HIGH_LAKES_LOG_LEVEL")
	overrideString(&cfg.LogConf.Format, "HIGH_LAKES_LOG_FORMAT")
	overrideString(&cfg.PlantsSource, "HIGH_LAKES_PLANTS_SOURCE")
	overrideString(&cfg.GitConf.Token, "GITHUB_TOKEN")

	if err := overrideInt(&cfg.Workers, "HIGH_LAKES_WORKERS"); err != nil {
		return err
	}
	return nil
}

func overrideString(target *string, envName string) {
	if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
		*target = v
	}
}

func overrideInt(target *int, envName string) error {
	v := strings.TrimSpace(os.Getenv(envName))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", envName, err)
	}
	*target = n
	return nil
}

// Validate checks settings that would otherwise fail halfway through a run
func (c *Config) Validate() error {
	switch c.PlantsSource {
	case SourcePages, SourceOpenData, SourceBoth:
	default:
		return fmt.Errorf("invalid plants source: %s (must be 'pages', 'open-data' or 'both')", c.PlantsSource)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be positive, got %v", c.Rate)
	}
	if c.MaxPlants < 1 {
		return fmt.Errorf("max plants must be at least 1, got %d", c.MaxPlants)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}

	switch c.LogConf.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s (must be 'json' or 'console')", c.LogConf.Format)
	}

	switch c.NotifyConf.Mode {
	case "none", "dry-run", "twitter", "telegram":
	default:
		return fmt.Errorf("invalid notify mode: %s (must be 'none', 'dry-run', 'twitter' or 'telegram')", c.NotifyConf.Mode)
	}

	return nil
}
