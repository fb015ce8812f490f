// Package domain contains the canonical customer records that order
// imports resolve against.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType segments customers for commission rate lookup.
type AccountType string

const (
	AccountTypeRetail      AccountType = "Retail"
	AccountTypeWholesale   AccountType = "Wholesale"
	AccountTypeDistributor AccountType = "Distributor"
)

// ValidAccountType reports whether t is a known segment.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountTypeRetail, AccountTypeWholesale, AccountTypeDistributor:
		return true
	}
	return false
}

// Customer is the canonical sales account. The ERP customer id is the
// primary key; historical and duplicate ids resolve to it via aliases.
// Customers are archived, never hard-deleted.
type Customer struct {
	CustomerID     string          `gorm:"primaryKey;type:text" json:"customer_id"`
	Name           string          `gorm:"type:text;not null" json:"name"`
	AccountType    AccountType     `gorm:"type:text;not null;default:'Retail'" json:"account_type"`
	FirstOrderDate *time.Time      `json:"first_order_date,omitempty"`
	TotalSales     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_sales"`
	Archived       bool            `gorm:"not null;default:false" json:"archived"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`

	// Aliases is populated on read from customer_aliases.
	Aliases []string `gorm:"-" json:"aliases,omitempty"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }

// CustomerAlias maps a historical or duplicate id to its canonical
// customer. The primary key makes alias overlap between two customers
// impossible.
type CustomerAlias struct {
	Alias      string    `gorm:"primaryKey;type:text" json:"alias"`
	CustomerID string    `gorm:"type:text;not null;index" json:"customer_id"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (CustomerAlias) TableName() string { return "customer_aliases" }
