// Package domain contains the per-order commission ledger.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
)

// LedgerEntry is one computed commission row, keyed by the order it
// pays on. CommissionAmount is always recomputable as
// OrderRevenue * CommissionRate / 100; every rate mutation rewrites
// the amount in the same update so the two can never drift.
type LedgerEntry struct {
	SONumber    string `gorm:"primaryKey;type:text" json:"so_number"`
	SalesPerson string `gorm:"type:text;not null;index:ix_ledger_partition,priority:1" json:"sales_person"`

	CustomerID   string                     `gorm:"type:text" json:"customer_id"`
	CustomerName string                     `gorm:"type:text" json:"customer_name"`
	AccountType  customerdomain.AccountType `gorm:"type:text" json:"account_type"`

	OrderRevenue     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"order_revenue"`
	CommissionRate   decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"commission_rate"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"commission_amount"`

	ExcludeFromCommission bool `gorm:"not null;default:false" json:"exclude_from_commission"`

	// RateModified marks a manual override. OriginalRate is written on
	// the first edit only and preserves provenance back to the
	// system-calculated value.
	RateModified bool             `gorm:"not null;default:false" json:"rate_modified"`
	OriginalRate *decimal.Decimal `gorm:"type:decimal(5,2)" json:"original_rate,omitempty"`
	RateComment  string           `gorm:"type:text" json:"rate_comment,omitempty"`

	CommissionMonth month.Month  `gorm:"type:text;not null;index:ix_ledger_partition,priority:2" json:"commission_month"`
	MonthMoved      bool         `gorm:"not null;default:false" json:"month_moved"`
	MovedFromMonth  *month.Month `gorm:"type:text" json:"moved_from_month,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "commission_ledger_entries" }

// Amount computes revenue * rate / 100 rounded to cents.
func Amount(revenue, rate decimal.Decimal) decimal.Decimal {
	return revenue.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
}
