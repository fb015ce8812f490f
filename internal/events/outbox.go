package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event describes a commission pipeline event to store in the outbox.
type Event struct {
	Type      string
	Payload   map[string]any
	DedupeKey string
}

// OutboxRecord is one stored event awaiting a consumer.
type OutboxRecord struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	EventType string            `gorm:"type:text;not null" json:"event_type"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb" json:"payload"`
	DedupeKey *string           `gorm:"type:text;uniqueIndex" json:"dedupe_key,omitempty"`
	Published bool              `gorm:"not null;default:false" json:"published"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (OutboxRecord) TableName() string { return "commission_events" }

// Outbox inserts pipeline events into the commission_events table.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node) *Outbox {
	return &Outbox{db: db, genID: genID}
}

// Publish stores an event using the default database connection.
func (o *Outbox) Publish(ctx context.Context, event Event) error {
	return o.publish(ctx, o.db, event)
}

// PublishTx stores an event using an existing transaction, so the
// event commits with the mutation it describes.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event Event) error {
	if o == nil || db == nil || o.genID == nil {
		return errors.New("outbox_unavailable")
	}
	name := strings.TrimSpace(event.Type)
	if name == "" {
		return errors.New("missing_event_type")
	}

	payload := datatypes.JSONMap{}
	for key, value := range event.Payload {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	record := OutboxRecord{
		ID:        o.genID.Generate(),
		EventType: name,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if dedupe := strings.TrimSpace(event.DedupeKey); dedupe != "" {
		record.DedupeKey = &dedupe
		var existing OutboxRecord
		err := db.WithContext(ctx).Where("dedupe_key = ?", dedupe).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	return db.WithContext(ctx).Create(&record).Error
}
