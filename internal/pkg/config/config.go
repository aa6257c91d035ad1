package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Feed     FeedConfig     `yaml:"feed"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type FeedConfig struct {
	BaseURL   string        `yaml:"base_url"`
	MirrorURL string        `yaml:"mirror_url"` // Mirror URL to resolve actual baseURL; ignored when base_url is set
	Path      string        `yaml:"path"`       // Feed endpoint path on the resolved base URL
	Query     string        `yaml:"query"`      // Fixed query string (order matters for the upstream)
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // Outbound requests per second
	RateBurst int           `yaml:"rate_burst"`
	UserAgent string        `yaml:"user_agent"`
}

type IngestConfig struct {
	Interval      time.Duration `yaml:"interval"`       // Match ingestion cadence
	BatchInterval time.Duration `yaml:"batch_interval"` // Secondary hook cadence (line-movement scan)
}

type TelegramConfig struct {
	BotToken             string  `yaml:"bot_token"` // Empty disables the notifier
	ChatID               int64   `yaml:"chat_id"`
	MoveThresholdPercent float64 `yaml:"move_threshold_percent"` // Min relative 1X2 move to alert on
}

const (
	DefaultPort          = 5000
	DefaultFeedTimeout   = 10 * time.Second
	DefaultInterval      = 120 * time.Second
	DefaultBatchInterval = 600 * time.Second
)

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	config.applyEnv()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = 10 * time.Second
	}
	if c.Feed.Timeout <= 0 {
		c.Feed.Timeout = DefaultFeedTimeout
	}
	if c.Feed.RateLimit <= 0 {
		c.Feed.RateLimit = 2.0
	}
	if c.Feed.RateBurst <= 0 {
		c.Feed.RateBurst = 1
	}
	if c.Ingest.Interval <= 0 {
		c.Ingest.Interval = DefaultInterval
	}
	if c.Ingest.BatchInterval <= 0 {
		c.Ingest.BatchInterval = DefaultBatchInterval
	}
}

// applyEnv lets the environment override the load-bearing knobs:
// PORT for the listener, DATABASE_URL for the store DSN.
func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Postgres.DSN = dsn
	}
}
