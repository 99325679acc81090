// Package settings holds the runtime-mutable engine settings: AI analysis,
// alert eligibility, cooldown, and notification toggles. The active snapshot
// is swapped atomically on config reload; in-flight requests keep whatever
// snapshot they started with.
package settings

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/good-yellow-bee/firewatch/internal/models"
)

// Provider identifies the configured AI backend.
type Provider string

const (
	// ProviderDisabled turns off AI analysis regardless of other settings.
	ProviderDisabled Provider = "disabled"
	// ProviderOpenAI is the cloud chat-completion API (API key + model).
	ProviderOpenAI Provider = "openai"
	// ProviderOllama is a self-hosted endpoint (URL only).
	ProviderOllama Provider = "ollama"
)

// Settings is one immutable snapshot of the runtime configuration.
type Settings struct {
	EnableAIAnalysis bool
	AIProvider       Provider
	AIModel          string
	AIAPIKey         string
	LocalEndpointURL string
	PromptTemplate   string

	AlertSeverities []models.Severity
	AlertCooldown   time.Duration

	EnableNotifications bool
	TelegramBotToken    string
	TelegramChatID      string
}

// AlertEligible reports whether the severity is in the configured
// alert-eligible set. Severities are compared in canonical upper case.
func (s Settings) AlertEligible(sev models.Severity) bool {
	sev = models.NormalizeSeverity(string(sev))
	for _, eligible := range s.AlertSeverities {
		if eligible == sev {
			return true
		}
	}
	return false
}

// Normalize canonicalizes the severity set and provider value in place.
func (s *Settings) Normalize() {
	for i, sev := range s.AlertSeverities {
		s.AlertSeverities[i] = models.NormalizeSeverity(string(sev))
	}
	if s.AIProvider == "" {
		s.AIProvider = ProviderDisabled
	}
}

// Validate checks snapshot consistency.
func (s Settings) Validate() error {
	switch s.AIProvider {
	case ProviderDisabled:
	case ProviderOpenAI:
		if s.EnableAIAnalysis && s.AIAPIKey == "" {
			return fmt.Errorf("ai provider %q requires an API key", s.AIProvider)
		}
		if s.EnableAIAnalysis && s.AIModel == "" {
			return fmt.Errorf("ai provider %q requires a model identifier", s.AIProvider)
		}
	case ProviderOllama:
		if s.EnableAIAnalysis && s.LocalEndpointURL == "" {
			return fmt.Errorf("ai provider %q requires an endpoint URL", s.AIProvider)
		}
	default:
		return fmt.Errorf("unknown ai provider %q", s.AIProvider)
	}
	if s.AlertCooldown < 0 {
		return fmt.Errorf("alert cooldown must not be negative")
	}
	return nil
}

// Store is the shared holder for the active settings snapshot.
type Store struct {
	current atomic.Pointer[Settings]
}

// NewStore creates a store seeded with the given snapshot.
func NewStore(s Settings) *Store {
	st := &Store{}
	st.Replace(s)
	return st
}

// Current returns the active snapshot.
func (st *Store) Current() Settings {
	return *st.current.Load()
}

// Replace swaps in a new snapshot.
func (st *Store) Replace(s Settings) {
	st.current.Store(&s)
}
