// Package domain contains the materialized monthly commission summaries.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
)

// MonthlySummary aggregates one (sales person, commission month)
// ledger partition. It is a materialized view: always re-derivable
// from the ledger, never a source of truth.
type MonthlySummary struct {
	SalesPerson     string      `gorm:"primaryKey;type:text" json:"sales_person"`
	CommissionMonth month.Month `gorm:"primaryKey;type:text" json:"commission_month"`

	TotalOrders     int             `gorm:"not null;default:0" json:"total_orders"`
	TotalRevenue    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_revenue"`
	TotalCommission decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_commission"`

	TotalExcluded      int             `gorm:"not null;default:0" json:"total_excluded"`
	ExcludedRevenue    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"excluded_revenue"`
	ExcludedCommission decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"excluded_commission"`

	LastRecalculated time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"last_recalculated"`
	UpdatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (MonthlySummary) TableName() string { return "monthly_commission_summaries" }
