package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/firewatch/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	store := NewSQLiteStorage(dbPath)
	if err := store.Open(); err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate database: %v", err)
	}
	return store
}

func testIncident(severity models.Severity) *models.Incident {
	return &models.Incident{
		ID:                 uuid.New().String(),
		ResourceKey:        "prod/api-7c4d",
		InitialReasons:     []string{"CrashLoopBackOff", "BackOff"},
		EnvironmentContext: "namespace: prod\nrestarts: 12",
		Logs: []models.LogEntry{
			{Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), Message: "connection refused"},
		},
		AgentID:              "agent-1",
		EnvironmentName:      "prod-cluster",
		EnvironmentType:      "kubernetes",
		Severity:             severity,
		Summary:              "api pod crash looping",
		RootCause:            "db unreachable",
		TroubleshootingSteps: "check db service",
		RawAIResponse:        `{"severity":"ERROR"}`,
		CreatedAt:            time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC),
	}
}

func TestRecordAndGetIncident(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	incident := testIncident(models.SeverityError)
	if err := store.Incidents().Record(ctx, incident, false); err != nil {
		t.Fatalf("record incident: %v", err)
	}

	got, err := store.Incidents().GetByID(ctx, incident.ID)
	if err != nil {
		t.Fatalf("get incident: %v", err)
	}
	if got == nil {
		t.Fatal("incident not found after record")
	}

	if got.ResourceKey != incident.ResourceKey {
		t.Errorf("ResourceKey = %q, want %q", got.ResourceKey, incident.ResourceKey)
	}
	if len(got.InitialReasons) != 2 || got.InitialReasons[0] != "CrashLoopBackOff" {
		t.Errorf("InitialReasons = %v, want round-tripped", got.InitialReasons)
	}
	if len(got.Logs) != 1 || got.Logs[0].Message != "connection refused" {
		t.Errorf("Logs = %v, want round-tripped", got.Logs)
	}
	if got.Severity != models.SeverityError {
		t.Errorf("Severity = %s, want ERROR", got.Severity)
	}
	if got.RawAIResponse != incident.RawAIResponse {
		t.Errorf("RawAIResponse = %q, want preserved", got.RawAIResponse)
	}
}

func TestGetIncidentNotFound(t *testing.T) {
	store := setupTestDB(t)

	got, err := store.Incidents().GetByID(context.Background(), uuid.New().String())
	if err != nil {
		t.Fatalf("get incident: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for unknown id", got)
	}
}

func TestRecordEligibleIncrementsDailyCount(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	eligible := testIncident(models.SeverityCritical)
	ineligible := testIncident(models.SeverityInfo)

	if err := store.Incidents().Record(ctx, eligible, true); err != nil {
		t.Fatalf("record eligible: %v", err)
	}
	if err := store.Incidents().Record(ctx, ineligible, false); err != nil {
		t.Fatalf("record ineligible: %v", err)
	}

	day := models.DayKey(eligible.CreatedAt)
	stats, err := store.Stats().GetByDay(ctx, day)
	if err != nil {
		t.Fatalf("get daily stats: %v", err)
	}
	if stats == nil {
		t.Fatal("no daily_stats row after eligible record")
	}
	if stats.IncidentCount != 1 {
		t.Errorf("IncidentCount = %d, want 1 (only the eligible incident counts)", stats.IncidentCount)
	}
}

func TestListIncidentsFiltering(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, sev := range []models.Severity{models.SeverityError, models.SeverityError, models.SeverityWarning} {
		inc := testIncident(sev)
		inc.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if i == 2 {
			inc.ResourceKey = "prod/other-1"
		}
		if err := store.Incidents().Record(ctx, inc, false); err != nil {
			t.Fatalf("record incident %d: %v", i, err)
		}
	}

	t.Run("all newest first", func(t *testing.T) {
		items, total, err := store.Incidents().List(ctx, IncidentFilter{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 3 || len(items) != 3 {
			t.Fatalf("total = %d, len = %d, want 3/3", total, len(items))
		}
		if !items[0].CreatedAt.After(items[2].CreatedAt) {
			t.Error("incidents not ordered newest first")
		}
	})

	t.Run("by severity", func(t *testing.T) {
		items, total, err := store.Incidents().List(ctx, IncidentFilter{Severity: "error"})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 2 || len(items) != 2 {
			t.Errorf("total = %d, len = %d, want 2/2 (severity normalized)", total, len(items))
		}
	})

	t.Run("by resource key", func(t *testing.T) {
		items, total, err := store.Incidents().List(ctx, IncidentFilter{ResourceKey: "prod/other-1"})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 1 || len(items) != 1 {
			t.Errorf("total = %d, len = %d, want 1/1", total, len(items))
		}
	})

	t.Run("paging", func(t *testing.T) {
		items, total, err := store.Incidents().List(ctx, IncidentFilter{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 3 || len(items) != 1 {
			t.Errorf("total = %d, len = %d, want 3/1", total, len(items))
		}
	})
}

func TestCooldownLifecycle(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key := "prod/api-7c4d"

	inCd, err := store.Cooldowns().InCooldown(ctx, key, now)
	if err != nil {
		t.Fatalf("check empty cooldown: %v", err)
	}
	if inCd {
		t.Error("InCooldown = true with no entry")
	}

	if err := store.Cooldowns().Set(ctx, key, now.Add(30*time.Minute)); err != nil {
		t.Fatalf("set cooldown: %v", err)
	}

	inCd, err = store.Cooldowns().InCooldown(ctx, key, now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("check live cooldown: %v", err)
	}
	if !inCd {
		t.Error("InCooldown = false inside the window")
	}

	// Other resources are unaffected.
	inCd, err = store.Cooldowns().InCooldown(ctx, "prod/other-1", now)
	if err != nil {
		t.Fatalf("check other resource: %v", err)
	}
	if inCd {
		t.Error("InCooldown = true for unrelated resource")
	}
}

func TestCooldownLazyExpiry(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key := "prod/api-7c4d"

	if err := store.Cooldowns().Set(ctx, key, now.Add(30*time.Minute)); err != nil {
		t.Fatalf("set cooldown: %v", err)
	}

	// Past the window: reported clear and the row is removed.
	inCd, err := store.Cooldowns().InCooldown(ctx, key, now.Add(31*time.Minute))
	if err != nil {
		t.Fatalf("check expired cooldown: %v", err)
	}
	if inCd {
		t.Error("InCooldown = true after expiry")
	}

	count, err := store.Cooldowns().ActiveCount(ctx)
	if err != nil {
		t.Fatalf("active count: %v", err)
	}
	if count != 0 {
		t.Errorf("ActiveCount = %d, want 0 after lazy expiry", count)
	}
}

func TestCooldownSetReplaces(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key := "prod/api-7c4d"

	if err := store.Cooldowns().Set(ctx, key, now.Add(10*time.Minute)); err != nil {
		t.Fatalf("set cooldown: %v", err)
	}
	if err := store.Cooldowns().Set(ctx, key, now.Add(60*time.Minute)); err != nil {
		t.Fatalf("replace cooldown: %v", err)
	}

	inCd, err := store.Cooldowns().InCooldown(ctx, key, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("check replaced cooldown: %v", err)
	}
	if !inCd {
		t.Error("InCooldown = false, want true under the extended window")
	}

	count, err := store.Cooldowns().ActiveCount(ctx)
	if err != nil {
		t.Fatalf("active count: %v", err)
	}
	if count != 1 {
		t.Errorf("ActiveCount = %d, want 1 (upsert must not duplicate)", count)
	}
}

func TestAddCountersAccumulates(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	day := "2026-03-01"
	if err := store.Stats().AddCounters(ctx, day, 3, 1); err != nil {
		t.Fatalf("add counters: %v", err)
	}
	if err := store.Stats().AddCounters(ctx, day, 2, 4); err != nil {
		t.Fatalf("add counters again: %v", err)
	}

	stats, err := store.Stats().GetByDay(ctx, day)
	if err != nil {
		t.Fatalf("get daily stats: %v", err)
	}
	if stats == nil {
		t.Fatal("no daily_stats row")
	}
	if stats.ModelCalls != 5 || stats.NotificationsSent != 5 {
		t.Errorf("counters = (%d, %d), want (5, 5)", stats.ModelCalls, stats.NotificationsSent)
	}
}

func TestAddCountersZeroDeltaWritesNothing(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.Stats().AddCounters(ctx, "2026-03-01", 0, 0); err != nil {
		t.Fatalf("add zero counters: %v", err)
	}
	stats, err := store.Stats().GetByDay(ctx, "2026-03-01")
	if err != nil {
		t.Fatalf("get daily stats: %v", err)
	}
	if stats != nil {
		t.Errorf("row created for zero deltas: %+v", stats)
	}
}

func TestListRecentStats(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	for _, day := range []string{"2026-02-27", "2026-02-28", "2026-03-01"} {
		if err := store.Stats().AddCounters(ctx, day, 1, 0); err != nil {
			t.Fatalf("add counters for %s: %v", day, err)
		}
	}

	recent, err := store.Stats().ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].Date != "2026-03-01" || recent[1].Date != "2026-02-28" {
		t.Errorf("order = [%s, %s], want newest first", recent[0].Date, recent[1].Date)
	}
}

func TestPing(t *testing.T) {
	store := setupTestDB(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}
