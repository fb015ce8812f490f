package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// ListFilter narrows audit log queries.
type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
}

// Repository persists audit records. Insert accepts the caller's db
// handle so appends can join an enclosing transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}
