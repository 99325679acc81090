// Package models contains the core data structures for Firewatch.
package models

import (
	"strings"
	"time"
)

// Severity is the urgency classification of an incident.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// NormalizeSeverity canonicalizes a free-form severity string to one of the
// four known levels. Unknown values map to INFO.
func NormalizeSeverity(s string) Severity {
	switch Severity(strings.ToUpper(strings.TrimSpace(s))) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityError:
		return SeverityError
	case SeverityWarning:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// LogEntry is a single timestamped log line from an agent's batch.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// IncidentReport is the normalized payload an agent submits for one flagged
// resource. Resource identity must always be present; everything else is
// best-effort context.
type IncidentReport struct {
	// ResourceKey identifies the monitored entity (namespace/pod, hostname).
	// Stable across reports about the same resource.
	ResourceKey string `json:"resource_key"`

	// InitialReasons are the short human-readable strings that caused the
	// agent to flag the resource.
	InitialReasons []string `json:"initial_reasons"`

	// EnvironmentContext is free text describing surrounding system state.
	// Opaque to the engine; stored and forwarded to the classifier.
	EnvironmentContext string `json:"environment_context"`

	// Logs is a bounded, time-ascending sample of log lines.
	Logs []LogEntry `json:"logs"`

	// Provenance metadata, stored for attribution.
	AgentID         string `json:"agent_id"`
	EnvironmentName string `json:"environment_name"`
	EnvironmentType string `json:"environment_type,omitempty"`

	// CollectedAt is the agent-side collection instant, informational only.
	CollectedAt time.Time `json:"collection_timestamp"`
}

// ReasonsText joins the initial reasons into a single display string.
func (r *IncidentReport) ReasonsText() string {
	return strings.Join(r.InitialReasons, ", ")
}

// AnalysisResult is the classification outcome for one report. All four
// fields are always populated by the time it is persisted; missing
// sub-fields are defaulted to "N/A".
type AnalysisResult struct {
	Severity             Severity `json:"severity"`
	Summary              string   `json:"summary"`
	RootCause            string   `json:"root_cause"`
	TroubleshootingSteps string   `json:"troubleshooting_steps"`
}

// FieldPlaceholder fills the value of any unset analysis sub-field.
const FieldPlaceholder = "N/A"

// FillDefaults replaces empty sub-fields with the placeholder and
// normalizes the severity.
func (a *AnalysisResult) FillDefaults() {
	a.Severity = NormalizeSeverity(string(a.Severity))
	if a.Summary == "" {
		a.Summary = FieldPlaceholder
	}
	if a.RootCause == "" {
		a.RootCause = FieldPlaceholder
	}
	if a.TroubleshootingSteps == "" {
		a.TroubleshootingSteps = FieldPlaceholder
	}
}

// Incident is one persisted intake. Created exactly once per /collect call,
// never mutated or deleted by the engine.
type Incident struct {
	ID                   string    `json:"id"`
	ResourceKey          string    `json:"resource_key"`
	InitialReasons       []string  `json:"initial_reasons"`
	EnvironmentContext   string    `json:"environment_context"`
	Logs                 []LogEntry `json:"logs,omitempty"`
	AgentID              string    `json:"agent_id"`
	EnvironmentName      string    `json:"environment_name"`
	EnvironmentType      string    `json:"environment_type,omitempty"`
	Severity             Severity  `json:"severity"`
	Summary              string    `json:"summary"`
	RootCause            string    `json:"root_cause"`
	TroubleshootingSteps string    `json:"troubleshooting_steps"`
	RawAIResponse        string    `json:"raw_ai_response,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// CooldownEntry is the transient per-resource alert suppression window.
// At most one live entry per resource key.
type CooldownEntry struct {
	ResourceKey   string    `json:"resource_key"`
	CooldownUntil time.Time `json:"cooldown_until"`
}

// DailyStats holds the aggregate counters for one UTC calendar day.
type DailyStats struct {
	Date              string `json:"date"` // YYYY-MM-DD, UTC
	ModelCalls        int64  `json:"model_calls"`
	NotificationsSent int64  `json:"notifications_sent"`
	IncidentCount     int64  `json:"incident_count"`
}

// DayKey formats an instant as the UTC calendar-day key used by DailyStats.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
