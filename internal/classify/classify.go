// Package classify derives incident severity from report text without any
// external calls. It is the fallback path when AI analysis is disabled or
// fails, and must never error.
package classify

import (
	"strings"

	"github.com/good-yellow-bee/firewatch/internal/models"
)

// maxScannedLogs bounds how many log messages the keyword scan inspects.
const maxScannedLogs = 20

// Keyword tiers checked against upper-cased initial reasons.
var (
	reasonCritical = []string{"OOMKILLED", "FAILED"}
	reasonError    = []string{"ERROR", "CRASHLOOPBACKOFF"}
	reasonWarning  = []string{"UNSCHEDULABLE", "IMAGEPULLBACKOFF", "BACKOFF", "WAITING"}
)

// Keyword tiers checked against upper-cased log messages.
var (
	logCritical = []string{"CRITICAL", "ALERT", "EMERGENCY", "PANIC", "FATAL"}
	logError    = []string{"ERROR", "EXCEPTION", "DENIED", "REFUSED", "UNAUTHORIZED"}
	logWarning  = []string{"WARNING", "WARN", "TIMEOUT", "UNABLE", "SLOW"}
)

// Severity classifies a report from its initial reasons and a bounded log
// sample. Deterministic and pure: identical input always yields the
// identical severity.
func Severity(initialReasons string, logs []models.LogEntry) models.Severity {
	severity := fromReasons(initialReasons)

	// Reason-derived ERROR or CRITICAL is already definitive; only lower
	// severities can be escalated by log content.
	if severity == models.SeverityError || severity == models.SeverityCritical {
		return severity
	}

	return scanLogs(severity, logs)
}

func fromReasons(reasons string) models.Severity {
	upper := strings.ToUpper(reasons)

	if containsAny(upper, reasonCritical) {
		return models.SeverityCritical
	}
	if containsAny(upper, reasonError) {
		return models.SeverityError
	}
	if containsAny(upper, reasonWarning) {
		return models.SeverityWarning
	}
	return models.SeverityInfo
}

// scanLogs escalates severity based on keyword hits in the first
// maxScannedLogs messages. A critical-tier hit wins immediately; an
// error-tier hit keeps scanning since a later critical hit still wins.
func scanLogs(severity models.Severity, logs []models.LogEntry) models.Severity {
	limit := len(logs)
	if limit > maxScannedLogs {
		limit = maxScannedLogs
	}

	for i := 0; i < limit; i++ {
		msg := logs[i].Message
		if msg == "" {
			continue
		}
		upper := strings.ToUpper(msg)

		if containsAny(upper, logCritical) {
			return models.SeverityCritical
		}
		if containsAny(upper, logError) {
			severity = models.SeverityError
			continue
		}
		if severity == models.SeverityInfo && containsAny(upper, logWarning) {
			severity = models.SeverityWarning
		}
	}

	return severity
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
