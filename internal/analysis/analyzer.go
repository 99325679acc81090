// Package analysis orchestrates incident classification: it renders the
// analysis prompt, drives the AI adapter, and falls back to the rule-based
// classifier whenever the AI path is disabled or fails. Perform never
// errors and always yields a fully-populated result.
package analysis

import (
	"context"
	"fmt"

	"github.com/good-yellow-bee/firewatch/internal/ai"
	"github.com/good-yellow-bee/firewatch/internal/classify"
	"github.com/good-yellow-bee/firewatch/internal/metrics"
	"github.com/good-yellow-bee/firewatch/internal/models"
	"github.com/good-yellow-bee/firewatch/internal/settings"
)

// Fixed fallback strings recorded when AI analysis did not produce a
// usable result. Exported so the notifier can recognize and omit them.
const (
	FallbackRootCause = "AI analysis unavailable; root cause not determined."
	FallbackSteps     = "Review the attached logs and environment context and investigate the resource manually."

	failedRawMarker = "ai analysis failed or unavailable"
)

// Provider is the AI adapter contract the orchestrator drives.
type Provider interface {
	Analyze(ctx context.Context, cfg settings.Settings, prompt string) (*ai.Result, string, bool)
}

// Outcome carries the classification plus the artifacts persisted with the
// incident for diagnostics.
type Outcome struct {
	Result      models.AnalysisResult
	Prompt      string
	RawResponse string
}

// Analyzer coordinates AI classification with the rule-based fallback.
type Analyzer struct {
	provider Provider
}

// New creates an analyzer backed by the given AI provider.
func New(provider Provider) *Analyzer {
	return &Analyzer{provider: provider}
}

// Perform classifies one report under the given settings snapshot.
func (a *Analyzer) Perform(ctx context.Context, report *models.IncidentReport, cfg settings.Settings) Outcome {
	if !cfg.EnableAIAnalysis || cfg.AIProvider == settings.ProviderDisabled {
		metrics.AIFallbacksTotal.Inc()
		return Outcome{
			Result:      fallbackResult(report),
			RawResponse: "",
		}
	}

	prompt := renderPrompt(cfg.PromptTemplate, report)
	parsed, raw, failed := a.provider.Analyze(ctx, cfg, prompt)

	outcome := Outcome{Prompt: prompt, RawResponse: raw}

	if failed || parsed == nil {
		if outcome.RawResponse == "" {
			outcome.RawResponse = failedRawMarker
		}
		metrics.AIFallbacksTotal.Inc()
		outcome.Result = fallbackResult(report)
		return outcome
	}

	outcome.Result = models.AnalysisResult{
		Severity:             models.NormalizeSeverity(parsed.Severity),
		Summary:              parsed.Summary,
		RootCause:            parsed.RootCause,
		TroubleshootingSteps: parsed.TroubleshootingSteps,
	}
	outcome.Result.FillDefaults()
	return outcome
}

// fallbackResult builds the rule-based classification with the fixed
// generic root-cause and remediation strings.
func fallbackResult(report *models.IncidentReport) models.AnalysisResult {
	severity := classify.Severity(report.ReasonsText(), report.Logs)

	summary := fmt.Sprintf("Detected %s condition", severity)
	if reasons := report.ReasonsText(); reasons != "" {
		summary += ": " + reasons
	}
	summary += " (AI analysis unavailable)"

	result := models.AnalysisResult{
		Severity:             severity,
		Summary:              summary,
		RootCause:            FallbackRootCause,
		TroubleshootingSteps: FallbackSteps,
	}
	result.FillDefaults()
	return result
}
