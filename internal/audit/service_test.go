package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/muninn_media/internal/events"
	"github.com/friendsincode/muninn_media/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return NewService(database, events.NewBus(), zerolog.Nop())
}

func TestLogFillsDefaults(t *testing.T) {
	svc := newTestService(t)

	entry := &models.AuditLog{Action: models.AuditActionScheduleCreate}
	if err := svc.Log(context.Background(), entry); err != nil {
		t.Fatalf("log: %v", err)
	}
	if entry.ID == "" || entry.Timestamp.IsZero() || entry.Details == nil {
		t.Fatalf("defaults not filled: %+v", entry)
	}
}

func TestLogAuditEntryExtractsPayload(t *testing.T) {
	svc := newTestService(t)

	actorID := uuid.NewString()
	stationID := uuid.NewString()
	scheduleID := uuid.NewString()

	svc.logAuditEntry(context.Background(), models.AuditActionScheduleDelete, events.Payload{
		"actor_id":    actorID,
		"station_id":  stationID,
		"schedule_id": scheduleID,
		"title":       "Morning Drive",
	})

	var stored models.AuditLog
	if err := svc.db.First(&stored).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if stored.Action != models.AuditActionScheduleDelete {
		t.Fatalf("action = %q", stored.Action)
	}
	if stored.ActorID == nil || *stored.ActorID != actorID {
		t.Fatal("actor_id not extracted")
	}
	if stored.StationID == nil || *stored.StationID != stationID {
		t.Fatal("station_id not extracted")
	}
	if stored.ResourceID != scheduleID {
		t.Fatal("schedule_id not extracted")
	}
	if stored.Details["title"] != "Morning Drive" {
		t.Fatalf("details = %v", stored.Details)
	}
	if _, leaked := stored.Details["actor_id"]; leaked {
		t.Fatal("extracted fields must not be duplicated in details")
	}
}

func TestQueryFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	actorA := uuid.NewString()
	actorB := uuid.NewString()
	station := uuid.NewString()

	entries := []*models.AuditLog{
		{Action: models.AuditActionScheduleCreate, ActorID: &actorA, StationID: &station, Timestamp: time.Now().Add(-2 * time.Hour)},
		{Action: models.AuditActionScheduleUpdate, ActorID: &actorA, StationID: &station, Timestamp: time.Now().Add(-time.Hour)},
		{Action: models.AuditActionScheduleDelete, ActorID: &actorB, StationID: &station, Timestamp: time.Now()},
	}
	for _, entry := range entries {
		if err := svc.Log(ctx, entry); err != nil {
			t.Fatalf("log: %v", err)
		}
	}

	logs, total, err := svc.Query(ctx, QueryFilters{ActorID: &actorA})
	if err != nil {
		t.Fatalf("query by actor: %v", err)
	}
	if total != 2 || len(logs) != 2 {
		t.Fatalf("actor filter: total=%d rows=%d", total, len(logs))
	}

	action := models.AuditActionScheduleDelete
	logs, total, err = svc.Query(ctx, QueryFilters{Action: &action})
	if err != nil {
		t.Fatalf("query by action: %v", err)
	}
	if total != 1 || logs[0].ActorID == nil || *logs[0].ActorID != actorB {
		t.Fatalf("action filter: total=%d", total)
	}

	cutoff := time.Now().Add(-90 * time.Minute)
	_, total, err = svc.Query(ctx, QueryFilters{StartTime: &cutoff})
	if err != nil {
		t.Fatalf("query by time: %v", err)
	}
	if total != 2 {
		t.Fatalf("time filter: total=%d", total)
	}

	// Most recent first.
	logs, _, err = svc.Query(ctx, QueryFilters{})
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(logs) != 3 || logs[0].Action != models.AuditActionScheduleDelete {
		t.Fatalf("ordering wrong: first action %q", logs[0].Action)
	}
}
