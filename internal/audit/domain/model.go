package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Actions recorded against the commission ledger and its inputs.
const (
	ActionRateEdit           = "commission.rate_edit"
	ActionExclusionToggle    = "commission.exclusion_toggle"
	ActionMonthMove          = "commission.month_move"
	ActionCustomerCorrection = "order.customer_correction"
	ActionAliasAdd           = "customer.alias_add"
	ActionImport             = "import.line_items"
	ActionDedup              = "line_items.dedup"
)

// AuditLog captures an immutable record of a manual correction or
// bulk maintenance action.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Action     string            `gorm:"type:text;not null;index" json:"action"`
	TargetType string            `gorm:"type:text;not null" json:"target_type"`
	TargetID   string            `gorm:"type:text;not null;index" json:"target_id"`
	Actor      string            `gorm:"type:text;not null" json:"actor"`
	Reason     string            `gorm:"type:text" json:"reason,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "commission_audit_logs" }
