package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Incident log, append-only
			CREATE TABLE IF NOT EXISTS incidents (
				id TEXT PRIMARY KEY,
				resource_key TEXT NOT NULL,
				initial_reasons_json TEXT NOT NULL,
				environment_context TEXT,
				logs_json TEXT,
				agent_id TEXT,
				environment_name TEXT,
				environment_type TEXT,
				severity TEXT NOT NULL,
				summary TEXT,
				root_cause TEXT,
				troubleshooting_steps TEXT,
				raw_ai_response TEXT,
				created_at DATETIME NOT NULL
			);

			-- Aggregate counters, one row per UTC calendar day
			CREATE TABLE IF NOT EXISTS daily_stats (
				date TEXT PRIMARY KEY,
				model_calls INTEGER NOT NULL DEFAULT 0,
				notifications_sent INTEGER NOT NULL DEFAULT 0,
				incident_count INTEGER NOT NULL DEFAULT 0
			);

			-- Alert suppression windows, one transient row per resource
			CREATE TABLE IF NOT EXISTS alert_cooldown (
				resource_key TEXT PRIMARY KEY,
				cooldown_until DATETIME NOT NULL
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_incidents_resource ON incidents(resource_key);
			CREATE INDEX IF NOT EXISTS idx_incidents_created ON incidents(created_at);
			CREATE INDEX IF NOT EXISTS idx_incidents_severity ON incidents(severity);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	// Create migrations table if not exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	// Apply pending migrations
	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		// Run migration in transaction
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		_, err = tx.Exec(m.Up)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
