// Package domain contains imported sales orders and their line items.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
)

// SalesOrder is one order from the source ERP. CustomerID stays nil
// when the raw reference could not be resolved; such orders are
// surfaced for manual correction instead of being guessed at.
type SalesOrder struct {
	SONumber     string  `gorm:"primaryKey;type:text" json:"so_number"`
	SalesOrderID string  `gorm:"type:text;not null;index" json:"sales_order_id"`
	CustomerID   *string `gorm:"type:text;index" json:"customer_id,omitempty"`
	CustomerName string  `gorm:"type:text" json:"customer_name"`

	// RawCustomerRef preserves the unresolved reference for the
	// correction UI when CustomerID is nil.
	RawCustomerRef string `gorm:"type:text" json:"raw_customer_ref,omitempty"`

	// AccountType is a snapshot at order time and may diverge from the
	// customer's current segment.
	AccountType customerdomain.AccountType `gorm:"type:text" json:"account_type"`

	SalesPerson     string      `gorm:"type:text;index" json:"sales_person"`
	PostingDate     *time.Time  `json:"posting_date,omitempty"`
	CommissionMonth month.Month `gorm:"type:text;index" json:"commission_month"`

	// ManuallyLinked marks orders whose customer linkage was corrected
	// by hand; re-imports must not overwrite it.
	ManuallyLinked bool `gorm:"not null;default:false" json:"manually_linked"`

	ExcludeFromCommission bool `gorm:"not null;default:false" json:"exclude_from_commission"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (SalesOrder) TableName() string { return "sales_orders" }

// LineItem is a line within a sales order. The logical identity is
// (SalesOrderID, normalized SOItemID); cosmetically different raw ids
// (with and without thousands-separator commas) are the same item.
type LineItem struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	SONumber     string       `gorm:"type:text;not null;index" json:"so_number"`
	SalesOrderID string       `gorm:"type:text;not null;index:ix_line_item_identity,priority:1" json:"sales_order_id"`
	SOItemID     string       `gorm:"type:text;not null" json:"so_item_id"`

	// NormalizedItemID is SOItemID with formatting artifacts stripped.
	// The importer upserts on (SalesOrderID, NormalizedItemID); the
	// dedup sweep repairs data that predates normalized imports.
	NormalizedItemID string `gorm:"type:text;not null;index:ix_line_item_identity,priority:2" json:"-"`

	CustomerID  string `gorm:"type:text;index" json:"customer_id"`
	ProductNum  string `gorm:"type:text" json:"product_num"`
	ProductName string `gorm:"type:text" json:"product_name"`

	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_price"`

	SalesPerson     string      `gorm:"type:text" json:"sales_person"`
	CommissionMonth month.Month `gorm:"type:text;index" json:"commission_month"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "sales_order_line_items" }

// NormalizeItemID strips the formatting artifacts seen in ERP exports
// (thousands-separator commas, whitespace) so two renderings of the
// same raw id compare equal.
func NormalizeItemID(raw string) string {
	return customerdomain.SanitizeRef(raw)
}

// DerivedTotal returns the line total, deriving quantity times unit
// price when the stored total is zero but both inputs are available.
func (li LineItem) DerivedTotal() decimal.Decimal {
	if li.TotalPrice.IsZero() && li.Quantity.IsPositive() && li.UnitPrice.IsPositive() {
		return li.Quantity.Mul(li.UnitPrice).Round(2)
	}
	return li.TotalPrice
}
