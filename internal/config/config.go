// Package config loads the bot configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/trainingbot/core/config"
	"github.com/m3rciful/trainingbot/core/database"
	"github.com/m3rciful/trainingbot/internal/session"
)

// Config is the application configuration. The core section is inlined so
// telegram, webhook, logging and rate_limit stay top-level keys.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database  database.Config `yaml:"database"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Session   SessionConfig   `yaml:"session"`
	API       APIConfig       `yaml:"api"`
	Reporting ReportingConfig `yaml:"reporting"`
}

// CatalogConfig points at the program catalog (YAML or TOML).
type CatalogConfig struct {
	Path string `yaml:"path" envconfig:"CATALOG_PATH"`
}

// SessionConfig controls expiry of abandoned sessions.
type SessionConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout" envconfig:"SESSION_IDLE_TIMEOUT"`
	// SweepEvery is a cron spec, e.g. "@every 5m".
	SweepEvery string `yaml:"sweep_every" envconfig:"SESSION_SWEEP_EVERY"`
}

// APIConfig enables the read-only HTTP API when Listen is set.
type APIConfig struct {
	Listen string `yaml:"listen" envconfig:"API_LISTEN"`
}

// ReportingConfig tunes the history views.
type ReportingConfig struct {
	HistoryLimit int `yaml:"history_limit" envconfig:"HISTORY_LIMIT"`
}

// DefaultHistoryLimit is how many trainings /history lists.
const DefaultHistoryLimit = 4

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// Load reads a complete configuration for running the bot.
func Load(path string) (*Config, error) {
	cfg, err := LoadStorage(path)
	if err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStorage reads the configuration without requiring Telegram
// settings, for commands that only touch the database or the catalog.
func LoadStorage(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the application sections and fills defaults.
func (c *Config) Normalize() error {
	if err := c.Database.Normalize(); err != nil {
		return err
	}
	c.Catalog.Path = strings.TrimSpace(c.Catalog.Path)
	if c.Session.IdleTimeout < 0 {
		return fmt.Errorf("session.idle_timeout must be >= 0")
	}
	if c.Session.IdleTimeout == 0 {
		c.Session.IdleTimeout = session.DefaultIdleTimeout
	}
	if strings.TrimSpace(c.Session.SweepEvery) == "" {
		c.Session.SweepEvery = session.DefaultSweepSpec
	}
	c.API.Listen = strings.TrimSpace(c.API.Listen)
	if c.Reporting.HistoryLimit < 0 {
		return fmt.Errorf("reporting.history_limit must be >= 0")
	}
	if c.Reporting.HistoryLimit == 0 {
		c.Reporting.HistoryLimit = DefaultHistoryLimit
	}
	return nil
}
