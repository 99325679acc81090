package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/firewatch/internal/metrics"
	"github.com/good-yellow-bee/firewatch/internal/models"
)

type sqliteStatsRepo struct {
	db *sql.DB
}

// AddCounters applies both deltas as a single additive upsert. There is no
// read-modify-write gap, so concurrent drains cannot double-apply or lose
// an update.
func (r *sqliteStatsRepo) AddCounters(ctx context.Context, day string, modelCalls, notifications int64) error {
	if modelCalls == 0 && notifications == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_stats (date, model_calls, notifications_sent) VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			model_calls = model_calls + excluded.model_calls,
			notifications_sent = notifications_sent + excluded.notifications_sent
	`, day, modelCalls, notifications)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("stats_add").Inc()
		return fmt.Errorf("add daily counters: %w", err)
	}
	return nil
}

func (r *sqliteStatsRepo) GetByDay(ctx context.Context, day string) (*models.DailyStats, error) {
	stats := &models.DailyStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT date, model_calls, notifications_sent, incident_count
		FROM daily_stats WHERE date = ?
	`, day).Scan(&stats.Date, &stats.ModelCalls, &stats.NotificationsSent, &stats.IncidentCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		metrics.StorageErrors.WithLabelValues("stats_get").Inc()
		return nil, fmt.Errorf("get daily stats: %w", err)
	}
	return stats, nil
}

func (r *sqliteStatsRepo) ListRecent(ctx context.Context, days int) ([]*models.DailyStats, error) {
	if days <= 0 || days > 365 {
		days = 30
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT date, model_calls, notifications_sent, incident_count
		FROM daily_stats ORDER BY date DESC LIMIT ?
	`, days)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("stats_list").Inc()
		return nil, fmt.Errorf("list daily stats: %w", err)
	}
	defer rows.Close()

	var result []*models.DailyStats
	for rows.Next() {
		stats := &models.DailyStats{}
		if err := rows.Scan(&stats.Date, &stats.ModelCalls, &stats.NotificationsSent, &stats.IncidentCount); err != nil {
			return nil, fmt.Errorf("scan daily stats: %w", err)
		}
		result = append(result, stats)
	}
	return result, rows.Err()
}
