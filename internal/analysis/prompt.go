package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"github.com/good-yellow-bee/firewatch/internal/models"
)

// Excerpt caps keep the rendered prompt inside provider context limits.
const (
	maxContextChars  = 10000
	maxPromptLogs    = 15
	maxLogLineChars  = 500
	maxLogBlockChars = 20000
)

// DefaultPromptTemplate is used when the configuration does not supply one.
const DefaultPromptTemplate = `You are an SRE assistant. Analyze the following incident and respond with a
single JSON object with exactly these fields:
"severity" (one of INFO, WARNING, ERROR, CRITICAL), "summary", "root_cause",
"troubleshooting_steps".

Resource: {{.resource}}
Initial reasons: {{.reasons}}

Environment context:
{{.context}}

Recent logs:
{{.logs}}
`

// Resource identity is pulled out of the free-text environment context when
// present. Absence is tolerated, never fatal.
var (
	reNamespace = regexp.MustCompile(`(?i)namespace[:=\s"']+([a-z0-9][a-z0-9.-]*)`)
	rePod       = regexp.MustCompile(`(?i)pod(?:[ _-]?name)?[:=\s"']+([a-z0-9][a-z0-9.-]*)`)
)

// unknownResource is the sentinel used when no identity can be extracted.
const unknownResource = "unknown"

// extractResourceIdentity derives a display identity for the resource,
// preferring the structured resource key and falling back to a best-effort
// regex over the environment context.
func extractResourceIdentity(resourceKey, envContext string) string {
	if resourceKey != "" {
		return resourceKey
	}

	ns := firstMatch(reNamespace, envContext)
	pod := firstMatch(rePod, envContext)
	switch {
	case ns != "" && pod != "":
		return ns + "/" + pod
	case pod != "":
		return pod
	case ns != "":
		return ns
	}
	return unknownResource
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// renderPrompt fills the configured template with the report's excerpts.
// Template errors degrade to a minimal inline prompt with the same semantic
// content rather than failing the analysis.
func renderPrompt(template string, report *models.IncidentReport) string {
	if template == "" {
		template = DefaultPromptTemplate
	}

	values := map[string]any{
		"resource": extractResourceIdentity(report.ResourceKey, report.EnvironmentContext),
		"reasons":  report.ReasonsText(),
		"context":  truncate(report.EnvironmentContext, maxContextChars),
		"logs":     formatLogExcerpt(report.Logs),
	}

	tmpl := prompts.PromptTemplate{
		Template:       template,
		InputVariables: []string{"resource", "reasons", "context", "logs"},
		TemplateFormat: prompts.TemplateFormatGoTemplate,
	}

	rendered, err := tmpl.Format(values)
	if err != nil {
		return minimalPrompt(values)
	}
	return rendered
}

// minimalPrompt is the degraded rendering used when the configured template
// cannot be formatted.
func minimalPrompt(values map[string]any) string {
	return fmt.Sprintf(
		"Analyze this incident and respond with a JSON object containing "+
			"severity, summary, root_cause, troubleshooting_steps.\n"+
			"Resource: %v\nInitial reasons: %v\nContext:\n%v\nLogs:\n%v\n",
		values["resource"], values["reasons"], values["context"], values["logs"],
	)
}

// formatLogExcerpt renders at most maxPromptLogs entries as
// "[timestamp] message" lines, bounding both per-line and overall size.
func formatLogExcerpt(logs []models.LogEntry) string {
	if len(logs) == 0 {
		return "(no logs collected)"
	}

	limit := len(logs)
	if limit > maxPromptLogs {
		limit = maxPromptLogs
	}

	var b strings.Builder
	for i := 0; i < limit; i++ {
		line := fmt.Sprintf("[%s] %s",
			logs[i].Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
			truncate(logs[i].Message, maxLogLineChars))

		if b.Len()+len(line)+1 > maxLogBlockChars {
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
