package notifier

import (
	"fmt"
	"strings"

	"github.com/good-yellow-bee/firewatch/internal/analysis"
	"github.com/good-yellow-bee/firewatch/internal/models"
)

// Telegram rejects messages longer than this.
const maxMessageLen = 4096

// truncationMarker is appended when the message had to be cut.
const truncationMarker = "\n… (truncated)"

// maxSampleLogs bounds the log excerpt included in a message.
const maxSampleLogs = 5

// BuildMessage renders the Telegram HTML alert body for an incident.
// Root-cause and remediation sections appear only when they carry real
// AI-derived content rather than the generic fallback placeholders.
func BuildMessage(incident *models.Incident) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s <b>%s alert</b>: %s\n\n",
		severityEmoji(incident.Severity),
		escapeHTML(string(incident.Severity)),
		escapeHTML(incident.ResourceKey))

	fmt.Fprintf(&b, "<b>Summary:</b> %s\n", escapeHTML(incident.Summary))

	if hasRealContent(incident.RootCause, analysis.FallbackRootCause) {
		fmt.Fprintf(&b, "<b>Root cause:</b> %s\n", escapeHTML(incident.RootCause))
	}
	if hasRealContent(incident.TroubleshootingSteps, analysis.FallbackSteps) {
		fmt.Fprintf(&b, "<b>Remediation:</b> %s\n", escapeHTML(incident.TroubleshootingSteps))
	}

	if len(incident.InitialReasons) > 0 {
		fmt.Fprintf(&b, "<b>Reasons:</b> %s\n", escapeHTML(strings.Join(incident.InitialReasons, ", ")))
	}

	fmt.Fprintf(&b, "<b>Time:</b> %s\n", incident.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	if len(incident.Logs) > 0 {
		b.WriteString("\n<b>Sample logs:</b>\n<pre>")
		limit := len(incident.Logs)
		if limit > maxSampleLogs {
			limit = maxSampleLogs
		}
		for i := 0; i < limit; i++ {
			fmt.Fprintf(&b, "%s %s\n",
				incident.Logs[i].Timestamp.UTC().Format("15:04:05"),
				escapeHTML(incident.Logs[i].Message))
		}
		b.WriteString("</pre>")
	}

	return truncateAtLine(b.String(), maxMessageLen)
}

// hasRealContent reports whether a detail field carries AI-derived text
// rather than a placeholder.
func hasRealContent(value, fallback string) bool {
	return value != "" && value != models.FieldPlaceholder && value != fallback
}

// escapeHTML neutralizes the characters Telegram's HTML parse mode treats
// specially.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// truncateAtLine cuts the message to max bytes on a whole-line boundary
// and appends the truncation marker.
func truncateAtLine(s string, max int) string {
	if len(s) <= max {
		return s
	}

	cut := max - len(truncationMarker)
	if idx := strings.LastIndexByte(s[:cut], '\n'); idx > 0 {
		cut = idx
	}
	return s[:cut] + truncationMarker
}

func severityEmoji(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "\U0001F534" // red circle
	case models.SeverityError:
		return "\U0001F7E0" // orange circle
	case models.SeverityWarning:
		return "\U0001F7E1" // yellow circle
	default:
		return "⚪" // white circle
	}
}
