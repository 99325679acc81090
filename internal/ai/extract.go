package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result is the structured object extracted from a provider response.
// Field names match what the prompt instructs the model to emit.
type Result struct {
	Severity             string `json:"severity"`
	Summary              string `json:"summary"`
	RootCause            string `json:"root_cause"`
	TroubleshootingSteps string `json:"troubleshooting_steps"`
}

// ExtractResult pulls the first top-level JSON object out of free-form
// model output. Models routinely wrap JSON in Markdown code fences and
// surround it with prose; both are tolerated.
func ExtractResult(raw string) (*Result, error) {
	cleaned := stripCodeFences(raw)

	region, ok := braceRegion(cleaned)
	if !ok {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	// Reject non-object payloads (arrays, scalars) up front so a stray
	// bracket does not decode into a zero Result.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(region), &probe); err != nil {
		return nil, fmt.Errorf("decode response object: %w", err)
	}

	var result Result
	if err := json.Unmarshal([]byte(region), &result); err != nil {
		return nil, fmt.Errorf("decode response fields: %w", err)
	}
	return &result, nil
}

// stripCodeFences removes a leading ```/```json fence and its closing fence.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// Drop a language tag like "json" on the fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "" || isFenceTag(first) {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// braceRegion returns the greedy first-'{' to last-'}' slice of s.
func braceRegion(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
