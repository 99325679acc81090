package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/good-yellow-bee/firewatch/internal/models"
	"github.com/good-yellow-bee/firewatch/internal/settings"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Address != ":8080" {
		t.Errorf("Server.Address = %q", cfg.Server.Address)
	}
	if cfg.Database.Path != "data/firewatch.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Alerting.CooldownMinutes != 30 {
		t.Errorf("Alerting.CooldownMinutes = %d", cfg.Alerting.CooldownMinutes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9000"
  rate_limit_per_ip: 60
database:
  path: /var/lib/firewatch/fw.db
analysis:
  enabled: true
  provider: ollama
  endpoint_url: http://localhost:11434
  model: llama3
alerting:
  enabled: true
  severities: [warning, error, critical]
  cooldown_minutes: 15
  bot_token: tg-token
  chat_id: "42"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.Address != ":9000" || cfg.Server.RateLimitPerIP != 60 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Database.Path != "/var/lib/firewatch/fw.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}

	rs := cfg.RuntimeSettings()
	if rs.AIProvider != settings.ProviderOllama || rs.LocalEndpointURL != "http://localhost:11434" {
		t.Errorf("runtime AI settings = %+v", rs)
	}
	if rs.AlertCooldown != 15*time.Minute {
		t.Errorf("AlertCooldown = %v, want 15m", rs.AlertCooldown)
	}
	if len(rs.AlertSeverities) != 3 || rs.AlertSeverities[0] != models.SeverityWarning {
		t.Errorf("AlertSeverities = %v, want normalized upper case", rs.AlertSeverities)
	}
	if !rs.AlertEligible(models.SeverityWarning) {
		t.Error("WARNING not alert-eligible after load")
	}
	if rs.TelegramBotToken != "tg-token" || rs.TelegramChatID != "42" {
		t.Errorf("telegram settings = %q/%q", rs.TelegramBotToken, rs.TelegramChatID)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "openai without key",
			content: `
analysis:
  enabled: true
  provider: openai
  model: gpt-4o-mini
`,
		},
		{
			name: "unknown provider",
			content: `
analysis:
  provider: mystery
`,
		},
		{
			name: "negative cooldown",
			content: `
alerting:
  cooldown_minutes: -5
`,
		},
		{
			name:    "malformed yaml",
			content: "server: [broken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := LoadConfig(path); err == nil {
				t.Error("LoadConfig succeeded, want error")
			}
		})
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("FIREWATCH_AI_API_KEY", "env-key")
	t.Setenv("FIREWATCH_BOT_TOKEN", "env-token")

	path := writeConfig(t, `
analysis:
  enabled: true
  provider: openai
  model: gpt-4o-mini
  api_key: file-key
alerting:
  bot_token: file-token
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Analysis.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want environment override", cfg.Analysis.APIKey)
	}
	if cfg.Alerting.BotToken != "env-token" {
		t.Errorf("BotToken = %q, want environment override", cfg.Alerting.BotToken)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig succeeded for missing file, want error")
	}
}
