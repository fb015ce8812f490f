// Package domain contains the configurable commission rate tables.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
)

// DefaultTitle is the rate table title applied to every sales person
// until a per-rep roster with titles exists.
const DefaultTitle = "Account Executive"

// CustomerStatus is derived from tenure at calculation time, never
// stored, so the same inputs reproduce the same status at audit time.
type CustomerStatus string

const (
	// StatusNewBusiness covers the first six months after a customer's
	// first order.
	StatusNewBusiness CustomerStatus = "new_business"
	StatusEstablished CustomerStatus = "established"
)

// DeriveStatus is a pure function of the customer's first order date
// and the order being commissioned.
func DeriveStatus(firstOrderDate, orderDate time.Time) CustomerStatus {
	if firstOrderDate.IsZero() {
		return StatusNewBusiness
	}
	if orderDate.Before(firstOrderDate.AddDate(0, 6, 0)) {
		return StatusNewBusiness
	}
	return StatusEstablished
}

// RateRule is one configured percentage, keyed by the rep's title, the
// customer segment and the tenure-derived status.
type RateRule struct {
	ID         snowflake.ID               `gorm:"primaryKey" json:"id"`
	Title      string                     `gorm:"type:text;not null;uniqueIndex:ux_rate_rule,priority:1" json:"title"`
	Segment    customerdomain.AccountType `gorm:"type:text;not null;uniqueIndex:ux_rate_rule,priority:2" json:"segment"`
	Status     CustomerStatus             `gorm:"type:text;not null;uniqueIndex:ux_rate_rule,priority:3" json:"status"`
	Percentage decimal.Decimal            `gorm:"type:decimal(5,2);not null" json:"percentage"`
	Active     bool                       `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time                  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt  time.Time                  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (RateRule) TableName() string { return "commission_rate_rules" }
