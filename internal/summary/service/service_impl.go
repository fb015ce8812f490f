package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/clock"
	ledgerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/ledger/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
	summarydomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/summary/domain"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
	clk clock.Clock
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

func NewService(p ServiceParam) summarydomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("summary.service"),
		clk: p.Clock,
	}
}

func (s *Service) Recalculate(ctx context.Context, salesPerson string, m month.Month) (*summarydomain.MonthlySummary, error) {
	salesPerson = strings.TrimSpace(salesPerson)
	if salesPerson == "" {
		return nil, summarydomain.ErrInvalidSalesPerson
	}
	if !m.Valid() {
		return nil, month.ErrInvalidMonth
	}

	var entries []*ledgerdomain.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("sales_person = ? AND commission_month = ?", salesPerson, m).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	summary := &summarydomain.MonthlySummary{
		SalesPerson:        salesPerson,
		CommissionMonth:    m,
		TotalRevenue:       decimal.Zero,
		TotalCommission:    decimal.Zero,
		ExcludedRevenue:    decimal.Zero,
		ExcludedCommission: decimal.Zero,
		LastRecalculated:   s.clk.Now(),
		UpdatedAt:          s.clk.Now(),
	}
	for _, entry := range entries {
		if entry.ExcludeFromCommission {
			summary.TotalExcluded++
			summary.ExcludedRevenue = summary.ExcludedRevenue.Add(entry.OrderRevenue)
			summary.ExcludedCommission = summary.ExcludedCommission.Add(entry.CommissionAmount)
			continue
		}
		summary.TotalOrders++
		summary.TotalRevenue = summary.TotalRevenue.Add(entry.OrderRevenue)
		summary.TotalCommission = summary.TotalCommission.Add(entry.CommissionAmount)
	}
	summary.TotalRevenue = summary.TotalRevenue.Round(2)
	summary.TotalCommission = summary.TotalCommission.Round(2)
	summary.ExcludedRevenue = summary.ExcludedRevenue.Round(2)
	summary.ExcludedCommission = summary.ExcludedCommission.Round(2)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing summarydomain.MonthlySummary
		err := tx.Where("sales_person = ? AND commission_month = ?", salesPerson, m).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(summary).Error
		case err != nil:
			return err
		}
		return tx.Model(&summarydomain.MonthlySummary{}).
			Where("sales_person = ? AND commission_month = ?", salesPerson, m).
			Updates(map[string]any{
				"total_orders":        summary.TotalOrders,
				"total_revenue":       summary.TotalRevenue,
				"total_commission":    summary.TotalCommission,
				"total_excluded":      summary.TotalExcluded,
				"excluded_revenue":    summary.ExcludedRevenue,
				"excluded_commission": summary.ExcludedCommission,
				"last_recalculated":   summary.LastRecalculated,
				"updated_at":          summary.UpdatedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("summary recalculated",
		zap.String("sales_person", salesPerson),
		zap.String("month", m.String()),
		zap.Int("orders", summary.TotalOrders),
		zap.String("commission", summary.TotalCommission.String()),
	)
	return summary, nil
}

func (s *Service) Get(ctx context.Context, salesPerson string, m month.Month) (*summarydomain.MonthlySummary, error) {
	var summary summarydomain.MonthlySummary
	err := s.db.WithContext(ctx).
		Where("sales_person = ? AND commission_month = ?", strings.TrimSpace(salesPerson), m).
		First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, summarydomain.ErrSummaryNotFound
		}
		return nil, err
	}
	return &summary, nil
}

func (s *Service) ListForMonth(ctx context.Context, m month.Month) ([]*summarydomain.MonthlySummary, error) {
	if !m.Valid() {
		return nil, month.ErrInvalidMonth
	}
	var summaries []*summarydomain.MonthlySummary
	err := s.db.WithContext(ctx).
		Where("commission_month = ?", m).
		Order("sales_person ASC").
		Find(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
