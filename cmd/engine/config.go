// Package main provides the Firewatch engine CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/firewatch/internal/models"
	"github.com/good-yellow-bee/firewatch/internal/settings"
)

// Config represents the engine configuration. The analysis and alerting
// sections are runtime-mutable: the engine watches the config file and
// applies changes to them without a restart. Server, database, metrics
// and stats settings are read once at startup.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Alerting AlertingConfig `yaml:"alerting"`
	Stats    StatsConfig    `yaml:"stats"`
	Verbose  bool           `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Address        string `yaml:"address"`              // HTTP listen address (default: :8080)
	RateLimitPerIP int    `yaml:"rate_limit_per_ip"`    // intake requests per minute per IP
	QueryTimeout   int    `yaml:"query_timeout_seconds"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite database file path
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // metrics listen address (default: :9090)
}

// AnalysisConfig contains AI analysis settings.
type AnalysisConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Provider       string `yaml:"provider"`       // disabled, openai, ollama
	Model          string `yaml:"model"`          // model identifier for cloud providers
	APIKey         string `yaml:"api_key"`        // cloud API key; FIREWATCH_AI_API_KEY overrides
	EndpointURL    string `yaml:"endpoint_url"`   // base URL for self-hosted providers
	PromptTemplate string `yaml:"prompt_template"`
}

// AlertingConfig contains notification settings.
type AlertingConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Severities      []string `yaml:"severities"`       // alert-eligible severities
	CooldownMinutes int      `yaml:"cooldown_minutes"` // per-resource alert cooldown
	BotToken        string   `yaml:"bot_token"`        // FIREWATCH_BOT_TOKEN overrides
	ChatID          string   `yaml:"chat_id"`
}

// StatsConfig contains usage-counter settings.
type StatsConfig struct {
	FlushInterval int `yaml:"flush_interval_seconds"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	cfg.applyEnvOverrides()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.RateLimitPerIP == 0 {
		c.Server.RateLimitPerIP = 300
	}
	if c.Server.QueryTimeout == 0 {
		c.Server.QueryTimeout = 10
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/firewatch.db"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.Analysis.Provider == "" {
		c.Analysis.Provider = string(settings.ProviderDisabled)
	}
	if len(c.Alerting.Severities) == 0 {
		c.Alerting.Severities = []string{"ERROR", "CRITICAL"}
	}
	if c.Alerting.CooldownMinutes == 0 {
		c.Alerting.CooldownMinutes = 30
	}
	if c.Stats.FlushInterval == 0 {
		c.Stats.FlushInterval = 60
	}
}

// applyEnvOverrides lets secrets come from the environment instead of the
// config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FIREWATCH_AI_API_KEY"); v != "" {
		c.Analysis.APIKey = v
	}
	if v := os.Getenv("FIREWATCH_BOT_TOKEN"); v != "" {
		c.Alerting.BotToken = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Alerting.CooldownMinutes < 0 {
		return fmt.Errorf("alerting.cooldown_minutes must not be negative")
	}
	return c.RuntimeSettings().Validate()
}

// RuntimeSettings maps the mutable config sections onto a settings
// snapshot.
func (c *Config) RuntimeSettings() settings.Settings {
	s := settings.Settings{
		EnableAIAnalysis: c.Analysis.Enabled,
		AIProvider:       settings.Provider(c.Analysis.Provider),
		AIModel:          c.Analysis.Model,
		AIAPIKey:         c.Analysis.APIKey,
		LocalEndpointURL: c.Analysis.EndpointURL,
		PromptTemplate:   c.Analysis.PromptTemplate,

		AlertCooldown: time.Duration(c.Alerting.CooldownMinutes) * time.Minute,

		EnableNotifications: c.Alerting.Enabled,
		TelegramBotToken:    c.Alerting.BotToken,
		TelegramChatID:      c.Alerting.ChatID,
	}
	for _, sev := range c.Alerting.Severities {
		s.AlertSeverities = append(s.AlertSeverities, models.Severity(sev))
	}
	s.Normalize()
	return s
}
