package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/firewatch/internal/metrics"
)

type sqliteCooldownRepo struct {
	db *sql.DB
}

// InCooldown reads the resource's entry and lazily expires it. The read and
// the possible delete run in one transaction so a concurrent Set for the
// same key never observes a half-deleted row.
func (r *sqliteCooldownRepo) InCooldown(ctx context.Context, resourceKey string, now time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("cooldown_check").Inc()
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var until time.Time
	err = tx.QueryRowContext(ctx,
		"SELECT cooldown_until FROM alert_cooldown WHERE resource_key = ?",
		resourceKey,
	).Scan(&until)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		metrics.StorageErrors.WithLabelValues("cooldown_check").Inc()
		return false, fmt.Errorf("read cooldown: %w", err)
	}

	if now.Before(until) {
		return true, nil
	}

	// Expired: remove the stale entry so the table only holds live windows.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM alert_cooldown WHERE resource_key = ?", resourceKey,
	); err != nil {
		metrics.StorageErrors.WithLabelValues("cooldown_check").Inc()
		return false, fmt.Errorf("delete expired cooldown: %w", err)
	}
	if err := tx.Commit(); err != nil {
		metrics.StorageErrors.WithLabelValues("cooldown_check").Inc()
		return false, fmt.Errorf("commit cooldown expiry: %w", err)
	}
	return false, nil
}

// Set upserts the cooldown window, replacing any existing entry.
func (r *sqliteCooldownRepo) Set(ctx context.Context, resourceKey string, until time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_cooldown (resource_key, cooldown_until) VALUES (?, ?)
		ON CONFLICT(resource_key) DO UPDATE SET cooldown_until = excluded.cooldown_until
	`, resourceKey, until)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("cooldown_set").Inc()
		return fmt.Errorf("set cooldown: %w", err)
	}
	return nil
}

func (r *sqliteCooldownRepo) ActiveCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alert_cooldown").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cooldowns: %w", err)
	}
	return count, nil
}
