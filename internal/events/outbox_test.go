package events

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOutbox(t *testing.T) (*Outbox, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&OutboxRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return NewOutbox(db, node), db
}

func TestPublishStoresEvent(t *testing.T) {
	outbox, db := setupOutbox(t)

	err := outbox.Publish(context.Background(), Event{
		Type:    EventCalculationCompleted,
		Payload: map[string]any{"month": "2026-05", "calculated": 10},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	var record OutboxRecord
	if err := db.First(&record).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if record.EventType != EventCalculationCompleted || record.Published {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.Payload["month"] != "2026-05" {
		t.Fatalf("payload lost: %v", record.Payload)
	}
}

func TestPublishRejectsMissingType(t *testing.T) {
	outbox, _ := setupOutbox(t)
	if err := outbox.Publish(context.Background(), Event{Payload: map[string]any{"a": 1}}); err == nil {
		t.Fatalf("expected missing type error")
	}
}

func TestPublishDedupeKeyIsIdempotent(t *testing.T) {
	outbox, db := setupOutbox(t)
	event := Event{
		Type:      EventImportCompleted,
		Payload:   map[string]any{"filename": "export.csv"},
		DedupeKey: "import:export.csv:2026-05-20",
	}

	for i := 0; i < 3; i++ {
		if err := outbox.Publish(context.Background(), event); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	var count int64
	if err := db.Model(&OutboxRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("dedupe key must keep one record, got %d", count)
	}
}
