package classify

import (
	"fmt"
	"strings"
	"testing"

	"github.com/good-yellow-bee/firewatch/internal/models"
)

func logLines(messages ...string) []models.LogEntry {
	entries := make([]models.LogEntry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, models.LogEntry{Message: m})
	}
	return entries
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		name    string
		reasons string
		logs    []models.LogEntry
		want    models.Severity
	}{
		{
			name: "empty report defaults to info",
			want: models.SeverityInfo,
		},
		{
			name:    "oomkilled reason is critical",
			reasons: "OOMKilled",
			want:    models.SeverityCritical,
		},
		{
			name:    "failed reason is critical",
			reasons: "ContainerStatusUnknown, Failed",
			want:    models.SeverityCritical,
		},
		{
			name:    "crashloop reason is error",
			reasons: "CrashLoopBackOff",
			want:    models.SeverityError,
		},
		{
			name:    "backoff reason alone is warning",
			reasons: "BackOff",
			want:    models.SeverityWarning,
		},
		{
			name:    "imagepull reason is warning",
			reasons: "ImagePullBackOff",
			want:    models.SeverityWarning,
		},
		{
			name:    "reason matching is case insensitive",
			reasons: "unschedulable",
			want:    models.SeverityWarning,
		},
		{
			name:    "reason error is not escalated by warning logs",
			reasons: "CrashLoopBackOff",
			logs:    logLines("request timeout talking to upstream"),
			want:    models.SeverityError,
		},
		{
			name: "panic log is critical",
			logs: logLines("all good", "panic: runtime error: index out of range"),
			want: models.SeverityCritical,
		},
		{
			name: "fatal log is critical",
			logs: logLines("FATAL: could not open relation"),
			want: models.SeverityCritical,
		},
		{
			name: "error log escalates info",
			logs: logLines("connection refused by database"),
			want: models.SeverityError,
		},
		{
			name: "error log then critical log ends critical",
			logs: logLines("unhandled exception in worker", "EMERGENCY: disk full"),
			want: models.SeverityCritical,
		},
		{
			name: "warning log escalates info only",
			logs: logLines("response was slow"),
			want: models.SeverityWarning,
		},
		{
			name:    "warning reason not demoted by clean logs",
			reasons: "Waiting",
			logs:    logLines("everything nominal"),
			want:    models.SeverityWarning,
		},
		{
			name: "empty log messages are skipped",
			logs: logLines("", "", "WARN: low memory"),
			want: models.SeverityWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Severity(tt.reasons, tt.logs)
			if got != tt.want {
				t.Errorf("Severity() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSeverityScanBound(t *testing.T) {
	// A critical keyword past the scan window must not be seen.
	logs := make([]models.LogEntry, 0, maxScannedLogs+1)
	for i := 0; i < maxScannedLogs; i++ {
		logs = append(logs, models.LogEntry{Message: fmt.Sprintf("line %d ok", i)})
	}
	logs = append(logs, models.LogEntry{Message: "PANIC: beyond the window"})

	if got := Severity("", logs); got != models.SeverityInfo {
		t.Errorf("Severity() = %s, want %s for keyword past scan window", got, models.SeverityInfo)
	}

	// The same keyword inside the window is seen.
	logs[maxScannedLogs-1].Message = "PANIC: inside the window"
	if got := Severity("", logs); got != models.SeverityCritical {
		t.Errorf("Severity() = %s, want %s for keyword inside scan window", got, models.SeverityCritical)
	}
}

func TestSeverityDeterministic(t *testing.T) {
	logs := logLines("unhandled exception", "request timeout", strings.Repeat("x", 2000))
	first := Severity("BackOff", logs)
	for i := 0; i < 10; i++ {
		if got := Severity("BackOff", logs); got != first {
			t.Fatalf("Severity() not deterministic: got %s then %s", first, got)
		}
	}
}
