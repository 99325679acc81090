// Package intake implements the /collect endpoint: the entry point through
// which agents submit incident reports. Each request is validated,
// analyzed, persisted, checked for alert eligibility against the
// per-resource cooldown, and acknowledged.
package intake

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/firewatch/internal/analysis"
	"github.com/good-yellow-bee/firewatch/internal/api/respond"
	"github.com/good-yellow-bee/firewatch/internal/clock"
	"github.com/good-yellow-bee/firewatch/internal/metrics"
	"github.com/good-yellow-bee/firewatch/internal/models"
	"github.com/good-yellow-bee/firewatch/internal/notifier"
	"github.com/good-yellow-bee/firewatch/internal/settings"
	"github.com/good-yellow-bee/firewatch/internal/storage"
)

// Handler processes incident report submissions.
type Handler struct {
	store      storage.Storage
	analyzer   *analysis.Analyzer
	dispatcher notifier.Notifier
	settings   *settings.Store
	clock      clock.Clock
	verbose    bool
}

// NewHandler creates an intake handler.
func NewHandler(store storage.Storage, analyzer *analysis.Analyzer, dispatcher notifier.Notifier, st *settings.Store, clk clock.Clock, verbose bool) *Handler {
	return &Handler{
		store:      store,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		settings:   st,
		clock:      clk,
		verbose:    verbose,
	}
}

// logPayload is one log line in the wire format agents submit.
type logPayload struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// collectRequest is the /collect request body. Older agents use the
// pod_key / k8s_context / cluster_name field names; both spellings are
// accepted.
type collectRequest struct {
	ResourceKey        string        `json:"resource_key"`
	PodKey             string        `json:"pod_key"`
	EnvironmentContext string        `json:"environment_context"`
	K8sContext         string        `json:"k8s_context"`
	Logs               *[]logPayload `json:"logs"`
	InitialReasons     *[]string     `json:"initial_reasons"`
	CollectionTime     string        `json:"collection_timestamp"`
	AgentID            string        `json:"agent_id"`
	EnvironmentName    string        `json:"environment_name"`
	ClusterName        string        `json:"cluster_name"`
	EnvironmentType    string        `json:"environment_type"`
}

// collectResponse acknowledges a processed report.
type collectResponse struct {
	Status     string `json:"status"`
	IncidentID string `json:"incident_id"`
	Severity   string `json:"severity"`
}

// Collect handles POST /collect.
func (h *Handler) Collect(w http.ResponseWriter, r *http.Request) {
	var req collectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.IntakeReportsTotal.WithLabelValues("rejected").Inc()
		respond.JSONError(w, respond.NewBadRequest("invalid JSON body"))
		return
	}

	report, missing := buildReport(&req)
	if len(missing) > 0 {
		metrics.IntakeReportsTotal.WithLabelValues("rejected").Inc()
		respond.JSONError(w, respond.NewValidationError(
			"missing required fields: "+strings.Join(missing, ", ")))
		return
	}

	cfg := h.settings.Current()
	ctx := r.Context()

	// Analysis never fails; a provider error degrades to the rule-based
	// classifier inside the orchestrator.
	outcome := h.analyzer.Perform(ctx, report, cfg)

	incident := &models.Incident{
		ID:                   uuid.New().String(),
		ResourceKey:          report.ResourceKey,
		InitialReasons:       report.InitialReasons,
		EnvironmentContext:   report.EnvironmentContext,
		Logs:                 report.Logs,
		AgentID:              report.AgentID,
		EnvironmentName:      report.EnvironmentName,
		EnvironmentType:      report.EnvironmentType,
		Severity:             outcome.Result.Severity,
		Summary:              outcome.Result.Summary,
		RootCause:            outcome.Result.RootCause,
		TroubleshootingSteps: outcome.Result.TroubleshootingSteps,
		RawAIResponse:        outcome.RawResponse,
		CreatedAt:            h.clock.Now(),
	}

	eligible := cfg.AlertEligible(incident.Severity)

	// Persistence is the one step that must not silently drop data: a
	// failed insert fails the whole request.
	if err := h.store.Incidents().Record(ctx, incident, eligible); err != nil {
		log.Printf("intake: record incident for %s: %v", incident.ResourceKey, err)
		metrics.IntakeReportsTotal.WithLabelValues("error").Inc()
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}

	metrics.IntakeReportsTotal.WithLabelValues("accepted").Inc()
	metrics.IntakeIncidentsBySeverity.WithLabelValues(string(incident.Severity)).Inc()

	if eligible && cfg.EnableNotifications {
		h.maybeAlert(r, cfg, incident)
	}

	if h.verbose {
		log.Printf("intake: recorded incident %s resource=%s severity=%s agent=%s",
			incident.ID, incident.ResourceKey, incident.Severity, incident.AgentID)
	}

	respond.OK(w, collectResponse{
		Status:     "ok",
		IncidentID: incident.ID,
		Severity:   string(incident.Severity),
	})
}

// maybeAlert sends the notification when the resource is not in cooldown,
// and sets a fresh cooldown only after a confirmed send. All failures here
// are soft: the request has already been acknowledged as handled.
func (h *Handler) maybeAlert(r *http.Request, cfg settings.Settings, incident *models.Incident) {
	ctx := r.Context()
	now := h.clock.Now()

	inCooldown, err := h.store.Cooldowns().InCooldown(ctx, incident.ResourceKey, now)
	if err != nil {
		// Can't tell; skip the alert rather than risk spam.
		log.Printf("intake: cooldown check for %s: %v", incident.ResourceKey, err)
		return
	}
	if inCooldown {
		metrics.NotificationsSuppressed.Inc()
		if h.verbose {
			log.Printf("intake: alert for %s suppressed by cooldown", incident.ResourceKey)
		}
		return
	}

	if !h.dispatcher.Notify(ctx, cfg, incident) {
		return
	}

	if cfg.AlertCooldown > 0 {
		if err := h.store.Cooldowns().Set(ctx, incident.ResourceKey, now.Add(cfg.AlertCooldown)); err != nil {
			log.Printf("intake: set cooldown for %s: %v", incident.ResourceKey, err)
		}
	}
}

// buildReport normalizes the wire payload into an IncidentReport and
// returns the names of any missing required fields.
func buildReport(req *collectRequest) (*models.IncidentReport, []string) {
	resourceKey := req.ResourceKey
	if resourceKey == "" {
		resourceKey = req.PodKey
	}
	envContext := req.EnvironmentContext
	if envContext == "" {
		envContext = req.K8sContext
	}
	envName := req.EnvironmentName
	if envName == "" {
		envName = req.ClusterName
	}

	var missing []string
	if resourceKey == "" {
		missing = append(missing, "resource_key")
	}
	if envContext == "" {
		missing = append(missing, "environment_context")
	}
	if req.Logs == nil {
		missing = append(missing, "logs")
	}
	if req.InitialReasons == nil {
		missing = append(missing, "initial_reasons")
	}
	if req.CollectionTime == "" {
		missing = append(missing, "collection_timestamp")
	}
	if req.AgentID == "" {
		missing = append(missing, "agent_id")
	}
	if envName == "" {
		missing = append(missing, "environment_name")
	}
	if len(missing) > 0 {
		return nil, missing
	}

	report := &models.IncidentReport{
		ResourceKey:        resourceKey,
		InitialReasons:     *req.InitialReasons,
		EnvironmentContext: envContext,
		AgentID:            req.AgentID,
		EnvironmentName:    envName,
		EnvironmentType:    req.EnvironmentType,
		CollectedAt:        parseTime(req.CollectionTime),
	}
	for _, entry := range *req.Logs {
		report.Logs = append(report.Logs, models.LogEntry{
			Timestamp: parseTime(entry.Timestamp),
			Message:   entry.Message,
		})
	}
	return report, nil
}

// parseTime accepts the timestamp formats agents are known to send. A
// value that parses as none of them yields the zero time; log content is
// still usable without it.
func parseTime(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
