package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/good-yellow-bee/firewatch/internal/metrics"
	"github.com/good-yellow-bee/firewatch/internal/models"
)

type sqliteIncidentRepo struct {
	db *sql.DB
}

func (r *sqliteIncidentRepo) Record(ctx context.Context, incident *models.Incident, alertEligible bool) error {
	start := time.Now()
	defer func() {
		metrics.StorageQueryDuration.WithLabelValues("record_incident").Observe(time.Since(start).Seconds())
	}()

	reasonsJSON, err := json.Marshal(incident.InitialReasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}
	logsJSON, err := json.Marshal(incident.Logs)
	if err != nil {
		return fmt.Errorf("marshal logs: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("record_incident").Inc()
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO incidents (id, resource_key, initial_reasons_json, environment_context,
			logs_json, agent_id, environment_name, environment_type, severity, summary,
			root_cause, troubleshooting_steps, raw_ai_response, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		incident.ID, incident.ResourceKey, string(reasonsJSON), incident.EnvironmentContext,
		string(logsJSON), incident.AgentID, incident.EnvironmentName, incident.EnvironmentType,
		string(incident.Severity), incident.Summary, incident.RootCause,
		incident.TroubleshootingSteps, incident.RawAIResponse, incident.CreatedAt,
	)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("record_incident").Inc()
		return fmt.Errorf("insert incident: %w", err)
	}

	// Alert-eligible incidents bump today's counter inside the same
	// transaction, so there is no insert-without-count window.
	if alertEligible {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO daily_stats (date, incident_count) VALUES (?, 1)
			ON CONFLICT(date) DO UPDATE SET incident_count = incident_count + 1
		`, models.DayKey(incident.CreatedAt))
		if err != nil {
			metrics.StorageErrors.WithLabelValues("record_incident").Inc()
			return fmt.Errorf("increment incident count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.StorageErrors.WithLabelValues("record_incident").Inc()
		return fmt.Errorf("commit incident: %w", err)
	}
	return nil
}

const incidentColumns = `id, resource_key, initial_reasons_json, environment_context,
	logs_json, agent_id, environment_name, environment_type, severity, summary,
	root_cause, troubleshooting_steps, raw_ai_response, created_at`

func (r *sqliteIncidentRepo) GetByID(ctx context.Context, id string) (*models.Incident, error) {
	query := "SELECT " + incidentColumns + " FROM incidents WHERE id = ?"
	incident, err := scanIncident(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		metrics.StorageErrors.WithLabelValues("get_incident").Inc()
		return nil, err
	}
	return incident, nil
}

func (r *sqliteIncidentRepo) List(ctx context.Context, filter IncidentFilter) ([]*models.Incident, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.ResourceKey != "" {
		where += " AND resource_key = ?"
		args = append(args, filter.ResourceKey)
	}
	if filter.Severity != "" {
		where += " AND severity = ?"
		args = append(args, string(models.NormalizeSeverity(string(filter.Severity))))
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM incidents"+where, args...).Scan(&total); err != nil {
		metrics.StorageErrors.WithLabelValues("list_incidents").Inc()
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + incidentColumns + " FROM incidents" + where +
		" ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("list_incidents").Inc()
		return nil, 0, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	var incidents []*models.Incident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, 0, err
		}
		incidents = append(incidents, incident)
	}
	return incidents, total, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIncident(row scanner) (*models.Incident, error) {
	incident := &models.Incident{}
	var reasonsJSON, logsJSON string
	var envContext, agentID, envName, envType sql.NullString
	var summary, rootCause, steps, rawResponse sql.NullString
	var severity string

	err := row.Scan(
		&incident.ID, &incident.ResourceKey, &reasonsJSON, &envContext,
		&logsJSON, &agentID, &envName, &envType, &severity, &summary,
		&rootCause, &steps, &rawResponse, &incident.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan incident: %w", err)
	}

	incident.EnvironmentContext = envContext.String
	incident.AgentID = agentID.String
	incident.EnvironmentName = envName.String
	incident.EnvironmentType = envType.String
	incident.Severity = models.Severity(severity)
	incident.Summary = summary.String
	incident.RootCause = rootCause.String
	incident.TroubleshootingSteps = steps.String
	incident.RawAIResponse = rawResponse.String

	if err := json.Unmarshal([]byte(reasonsJSON), &incident.InitialReasons); err != nil {
		return nil, fmt.Errorf("unmarshal reasons: %w", err)
	}
	if logsJSON != "" {
		if err := json.Unmarshal([]byte(logsJSON), &incident.Logs); err != nil {
			return nil, fmt.Errorf("unmarshal logs: %w", err)
		}
	}

	return incident, nil
}
