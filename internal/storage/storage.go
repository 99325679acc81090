// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"time"

	"github.com/good-yellow-bee/firewatch/internal/models"
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// Ping verifies the database connection for health checks.
	Ping(ctx context.Context) error

	// Repository accessors
	Incidents() IncidentRepository
	Cooldowns() CooldownRepository
	Stats() StatsRepository
}

// IncidentRepository defines operations for the append-only incident log.
type IncidentRepository interface {
	// Record inserts one incident row. When alertEligible is true, the same
	// transaction creates today's daily_stats row if needed and increments
	// its incident_count, so the insert and the count never diverge.
	Record(ctx context.Context, incident *models.Incident, alertEligible bool) error
	GetByID(ctx context.Context, id string) (*models.Incident, error)
	List(ctx context.Context, filter IncidentFilter) ([]*models.Incident, int64, error)
}

// IncidentFilter narrows and pages incident listings.
type IncidentFilter struct {
	ResourceKey string
	Severity    models.Severity
	Limit       int
	Offset      int
}

// CooldownRepository manages the per-resource alert suppression window.
type CooldownRepository interface {
	// InCooldown reports whether the resource has an unexpired entry. An
	// expired entry is deleted on the way out (lazy expiry) and reported
	// as not in cooldown.
	InCooldown(ctx context.Context, resourceKey string, now time.Time) (bool, error)
	// Set upserts cooldown_until for the resource, replacing any existing
	// entry unconditionally.
	Set(ctx context.Context, resourceKey string, until time.Time) error
	// ActiveCount returns the number of stored cooldown entries.
	ActiveCount(ctx context.Context) (int64, error)
}

// StatsRepository manages the one-row-per-UTC-day aggregate counters.
type StatsRepository interface {
	// AddCounters adds both deltas to the given day's row, creating it if
	// absent. One additive statement per invocation, so concurrent calls
	// never lose an update.
	AddCounters(ctx context.Context, day string, modelCalls, notifications int64) error
	GetByDay(ctx context.Context, day string) (*models.DailyStats, error)
	ListRecent(ctx context.Context, days int) ([]*models.DailyStats, error)
}
