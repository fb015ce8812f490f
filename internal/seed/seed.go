// Package seed bootstraps the schema and default rate configuration.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	auditdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/audit/domain"
	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/events"
	ledgerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/ledger/domain"
	orderdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/order/domain"
	ratedomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/rate/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/scheduler"
	summarydomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/summary/domain"
)

// AutoMigrate creates the schema for development and test databases.
// Production schemas are managed by the embedded SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	return db.AutoMigrate(
		&customerdomain.Customer{},
		&customerdomain.CustomerAlias{},
		&orderdomain.SalesOrder{},
		&orderdomain.LineItem{},
		&ratedomain.RateRule{},
		&ledgerdomain.LedgerEntry{},
		&summarydomain.MonthlySummary{},
		&auditdomain.AuditLog{},
		&events.OutboxRecord{},
		&scheduler.JobLock{},
	)
}

// defaultRateRules are the commission percentages the pipeline ships
// with: new business earns the higher rate for the customer's first
// six months, then the established rate applies.
func defaultRateRules() []ratedomain.RateRule {
	return []ratedomain.RateRule{
		{
			Title:      ratedomain.DefaultTitle,
			Segment:    customerdomain.AccountTypeWholesale,
			Status:     ratedomain.StatusNewBusiness,
			Percentage: decimal.NewFromInt(3),
		},
		{
			Title:      ratedomain.DefaultTitle,
			Segment:    customerdomain.AccountTypeWholesale,
			Status:     ratedomain.StatusEstablished,
			Percentage: decimal.NewFromInt(2),
		},
		{
			Title:      ratedomain.DefaultTitle,
			Segment:    customerdomain.AccountTypeDistributor,
			Status:     ratedomain.StatusNewBusiness,
			Percentage: decimal.NewFromInt(5),
		},
		{
			Title:      ratedomain.DefaultTitle,
			Segment:    customerdomain.AccountTypeDistributor,
			Status:     ratedomain.StatusEstablished,
			Percentage: decimal.NewFromInt(2),
		},
	}
}

// EnsureDefaultRateRules inserts the shipped rate table on first
// startup. Existing rules, including edited percentages, are left
// untouched.
func EnsureDefaultRateRules(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rule := range defaultRateRules() {
			var existing ratedomain.RateRule
			err := tx.WithContext(ctx).
				Where("title = ? AND segment = ? AND status = ?", rule.Title, rule.Segment, rule.Status).
				First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			now := time.Now().UTC()
			rule.ID = node.Generate()
			rule.Active = true
			rule.CreatedAt = now
			rule.UpdatedAt = now
			if err := tx.WithContext(ctx).Create(&rule).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
