package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/audit/domain"
	auditservice "github.com/OGcaptYETI/notanothercrm-sub003/internal/audit/service"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/clock"
	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/events"
	ledgerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/ledger/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
	orderdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/order/domain"
	ratedomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/rate/domain"
	summarydomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/summary/domain"
)

// maxCalculateErrors bounds the per-order error list a calculation
// pass accumulates before further failures are only counted.
const maxCalculateErrors = 50

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clk         clock.Clock
	customerSvc customerdomain.Service
	rateSvc     ratedomain.Service
	summarySvc  summarydomain.Service
	auditSvc    *auditservice.Service
	outbox      *events.Outbox
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	CustomerSvc customerdomain.Service
	RateSvc     ratedomain.Service
	SummarySvc  summarydomain.Service
	AuditSvc    *auditservice.Service
	Outbox      *events.Outbox
}

func NewService(p ServiceParam) ledgerdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("ledger.service"),
		clk:         p.Clock,
		customerSvc: p.CustomerSvc,
		rateSvc:     p.RateSvc,
		summarySvc:  p.SummarySvc,
		auditSvc:    p.AuditSvc,
		outbox:      p.Outbox,
	}
}

func (s *Service) Calculate(ctx context.Context, m month.Month) (*ledgerdomain.CalculateStats, error) {
	if !m.Valid() {
		return nil, month.ErrInvalidMonth
	}

	// One rate table snapshot for the whole pass.
	snapshot, err := s.rateSvc.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	var items []*orderdomain.LineItem
	if err := s.db.WithContext(ctx).
		Where("commission_month = ?", m).
		Find(&items).Error; err != nil {
		return nil, err
	}

	itemsByOrder := make(map[string][]*orderdomain.LineItem)
	for _, item := range items {
		itemsByOrder[item.SONumber] = append(itemsByOrder[item.SONumber], item)
	}

	stats := &ledgerdomain.CalculateStats{
		Month:           m,
		TotalRevenue:    decimal.Zero,
		TotalCommission: decimal.Zero,
	}
	repStats := make(map[string]*ledgerdomain.RepStats)
	affected := make(map[string]month.Month)

	soNumbers := make([]string, 0, len(itemsByOrder))
	for soNumber := range itemsByOrder {
		soNumbers = append(soNumbers, soNumber)
	}
	sort.Strings(soNumbers)

	for _, soNumber := range soNumbers {
		stats.TotalOrders++

		order, err := s.loadOrder(ctx, soNumber)
		if err != nil {
			stats.AddError(maxCalculateErrors, fmt.Sprintf("%s: %v", soNumber, err))
			continue
		}

		salesPerson := strings.TrimSpace(order.SalesPerson)
		upper := strings.ToUpper(salesPerson)
		if upper == "" || upper == "ADMIN" || upper == "HOUSE" {
			stats.SkippedHouse++
			continue
		}
		if upper == "SHOPIFY" || upper == "COMMERCE" || strings.HasPrefix(soNumber, "Sh") {
			stats.SkippedEcommerce++
			continue
		}

		customer, err := s.resolveOrderCustomer(ctx, order)
		if err != nil {
			if errors.Is(err, customerdomain.ErrNotFound) || errors.Is(err, customerdomain.ErrInvalidCustomerRef) {
				stats.SkippedNoCustomer++
				continue
			}
			return nil, err
		}
		if customer.AccountType == customerdomain.AccountTypeRetail {
			stats.SkippedRetail++
			continue
		}

		revenue := decimal.Zero
		for _, item := range itemsByOrder[soNumber] {
			revenue = revenue.Add(item.DerivedTotal())
		}
		revenue = revenue.Round(2)

		orderDate := s.clk.Now()
		if order.PostingDate != nil {
			orderDate = *order.PostingDate
		}
		firstOrder := orderDate
		if customer.FirstOrderDate != nil {
			firstOrder = *customer.FirstOrderDate
		}
		status := ratedomain.DeriveStatus(firstOrder, orderDate)

		title := repTitle(salesPerson)
		rateValue, err := snapshot.Lookup(title, customer.AccountType, status)
		if err != nil {
			stats.RateMisses++
			stats.AddError(maxCalculateErrors, fmt.Sprintf("%s: %v", soNumber, err))
			continue
		}

		entry, err := s.upsertEntry(ctx, order, customer, revenue, rateValue)
		if err != nil {
			return nil, err
		}

		stats.Calculated++
		stats.TotalRevenue = stats.TotalRevenue.Add(entry.OrderRevenue)
		stats.TotalCommission = stats.TotalCommission.Add(entry.CommissionAmount)

		rep, ok := repStats[entry.SalesPerson]
		if !ok {
			rep = &ledgerdomain.RepStats{
				SalesPerson: entry.SalesPerson,
				Revenue:     decimal.Zero,
				Commission:  decimal.Zero,
			}
			repStats[entry.SalesPerson] = rep
		}
		rep.Orders++
		rep.Revenue = rep.Revenue.Add(entry.OrderRevenue)
		rep.Commission = rep.Commission.Add(entry.CommissionAmount)

		affected[entry.SalesPerson+"|"+entry.CommissionMonth.String()] = entry.CommissionMonth
		if _, exists := affected[entry.SalesPerson+"|"+m.String()]; !exists {
			affected[entry.SalesPerson+"|"+m.String()] = m
		}
	}

	stats.TotalRevenue = stats.TotalRevenue.Round(2)
	stats.TotalCommission = stats.TotalCommission.Round(2)
	for _, rep := range repStats {
		stats.ByRep = append(stats.ByRep, *rep)
	}
	sort.Slice(stats.ByRep, func(i, j int) bool {
		return stats.ByRep[i].Revenue.GreaterThan(stats.ByRep[j].Revenue)
	})

	// Scoped recalculation of every partition this pass touched.
	for key, partitionMonth := range affected {
		salesPerson := key[:strings.LastIndex(key, "|")]
		if _, err := s.summarySvc.Recalculate(ctx, salesPerson, partitionMonth); err != nil {
			stats.AddError(maxCalculateErrors, fmt.Sprintf("summary %s: %v", key, err))
		}
	}

	if err := s.outbox.Publish(ctx, events.Event{
		Type: events.EventCalculationCompleted,
		Payload: events.CalculationCompletedPayload{
			Month:           m.String(),
			TotalOrders:     stats.TotalOrders,
			Calculated:      stats.Calculated,
			RateMisses:      stats.RateMisses,
			TotalCommission: stats.TotalCommission.String(),
		}.ToMap(),
	}); err != nil {
		s.log.Warn("outbox publish failed", zap.Error(err))
	}

	s.log.Info("commission calculation complete",
		zap.String("month", m.String()),
		zap.Int("total_orders", stats.TotalOrders),
		zap.Int("calculated", stats.Calculated),
		zap.Int("rate_misses", stats.RateMisses),
		zap.String("total_commission", stats.TotalCommission.String()),
	)
	return stats, nil
}

func (s *Service) Get(ctx context.Context, soNumber string) (*ledgerdomain.LedgerEntry, error) {
	return s.loadEntry(ctx, soNumber)
}

func (s *Service) List(ctx context.Context, req ledgerdomain.ListRequest) ([]*ledgerdomain.LedgerEntry, error) {
	query := s.db.WithContext(ctx).Model(&ledgerdomain.LedgerEntry{})
	if !req.Month.IsZero() {
		query = query.Where("commission_month = ?", req.Month)
	}
	if req.SalesPerson != "" {
		query = query.Where("sales_person = ?", req.SalesPerson)
	}
	limit := req.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	var entries []*ledgerdomain.LedgerEntry
	if err := query.Order("so_number ASC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Service) SetRate(ctx context.Context, soNumber string, newRate decimal.Decimal, comment, actor string) (*ledgerdomain.MutationResult, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, ledgerdomain.ErrCommentRequired
	}
	if newRate.IsNegative() || newRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, ledgerdomain.ErrInvalidRate
	}

	entry, err := s.loadEntry(ctx, soNumber)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"commission_rate":   newRate,
		"commission_amount": ledgerdomain.Amount(entry.OrderRevenue, newRate),
		"rate_modified":     true,
		"rate_comment":      comment,
		"updated_at":        s.clk.Now(),
	}
	// OriginalRate preserves the system-calculated value across any
	// number of subsequent edits.
	if !entry.RateModified {
		updates["original_rate"] = entry.CommissionRate
	}

	previousRate := entry.CommissionRate
	if err := s.db.WithContext(ctx).Model(entry).Updates(updates).Error; err != nil {
		return nil, err
	}

	_ = s.auditSvc.Append(ctx, nil, auditdomain.ActionRateEdit, "ledger_entry", entry.SONumber, nonEmpty(actor, "admin"), comment,
		map[string]any{
			"previous_rate": previousRate.String(),
			"new_rate":      newRate.String(),
			"month":         entry.CommissionMonth.String(),
		})

	updated, err := s.loadEntry(ctx, soNumber)
	if err != nil {
		return nil, err
	}
	return s.withSummaryRecalc(ctx, updated, updated.CommissionMonth)
}

func (s *Service) SetExclusion(ctx context.Context, soNumber string, exclude bool, actor string) (*ledgerdomain.MutationResult, error) {
	entry, err := s.loadEntry(ctx, soNumber)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(entry).Updates(map[string]any{
		"exclude_from_commission": exclude,
		"updated_at":              s.clk.Now(),
	}).Error; err != nil {
		return nil, err
	}

	_ = s.auditSvc.Append(ctx, nil, auditdomain.ActionExclusionToggle, "ledger_entry", entry.SONumber, nonEmpty(actor, "admin"), "",
		map[string]any{
			"exclude": exclude,
			"month":   entry.CommissionMonth.String(),
		})

	updated, err := s.loadEntry(ctx, soNumber)
	if err != nil {
		return nil, err
	}
	return s.withSummaryRecalc(ctx, updated, updated.CommissionMonth)
}

func (s *Service) MoveMonth(ctx context.Context, soNumber string, from, to month.Month, reason, actor string) (*ledgerdomain.MutationResult, error) {
	if !from.Valid() || !to.Valid() {
		return nil, month.ErrInvalidMonth
	}
	if from.Equal(to) {
		return nil, ledgerdomain.ErrSameMonthMove
	}

	entry, err := s.loadEntry(ctx, soNumber)
	if err != nil {
		return nil, err
	}
	if !entry.CommissionMonth.Equal(from) {
		return nil, &ledgerdomain.MonthConflictError{
			SONumber: entry.SONumber,
			Expected: from,
			Actual:   entry.CommissionMonth,
		}
	}

	if err := s.db.WithContext(ctx).Model(entry).Updates(map[string]any{
		"commission_month": to,
		"month_moved":      true,
		"moved_from_month": from,
		"updated_at":       s.clk.Now(),
	}).Error; err != nil {
		return nil, err
	}

	_ = s.auditSvc.Append(ctx, nil, auditdomain.ActionMonthMove, "ledger_entry", entry.SONumber, nonEmpty(actor, "admin"), reason,
		map[string]any{
			"from_month": from.String(),
			"to_month":   to.String(),
		})

	updated, err := s.loadEntry(ctx, soNumber)
	if err != nil {
		return nil, err
	}

	// Both the source and destination partitions change.
	var warnings []string
	if _, err := s.summarySvc.Recalculate(ctx, updated.SalesPerson, from); err != nil {
		warnings = append(warnings, fmt.Sprintf("summary recalculation failed for %s: %v", from, err))
	}
	if _, err := s.summarySvc.Recalculate(ctx, updated.SalesPerson, to); err != nil {
		warnings = append(warnings, fmt.Sprintf("summary recalculation failed for %s: %v", to, err))
	}
	result := &ledgerdomain.MutationResult{Entry: updated}
	if len(warnings) > 0 {
		result.Warning = strings.Join(warnings, "; ")
		s.log.Warn("move committed with stale summaries",
			zap.String("so_number", soNumber),
			zap.String("warning", result.Warning),
		)
	}
	return result, nil
}

// withSummaryRecalc runs the scoped recalculation after a point edit.
// A failure leaves the summary stale but never rolls the edit back.
func (s *Service) withSummaryRecalc(ctx context.Context, entry *ledgerdomain.LedgerEntry, m month.Month) (*ledgerdomain.MutationResult, error) {
	result := &ledgerdomain.MutationResult{Entry: entry}
	if _, err := s.summarySvc.Recalculate(ctx, entry.SalesPerson, m); err != nil {
		result.Warning = fmt.Sprintf("summary recalculation failed for %s: %v", m, err)
		s.log.Warn("edit committed with stale summary",
			zap.String("so_number", entry.SONumber),
			zap.String("month", m.String()),
			zap.Error(err),
		)
	}
	return result, nil
}

func (s *Service) upsertEntry(
	ctx context.Context,
	order *orderdomain.SalesOrder,
	customer *customerdomain.Customer,
	revenue decimal.Decimal,
	calculatedRate decimal.Decimal,
) (*ledgerdomain.LedgerEntry, error) {
	now := s.clk.Now()

	var existing ledgerdomain.LedgerEntry
	err := s.db.WithContext(ctx).Where("so_number = ?", order.SONumber).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		entry := ledgerdomain.LedgerEntry{
			SONumber:              order.SONumber,
			SalesPerson:           strings.TrimSpace(order.SalesPerson),
			CustomerID:            customer.CustomerID,
			CustomerName:          customer.Name,
			AccountType:           customer.AccountType,
			OrderRevenue:          revenue,
			CommissionRate:        calculatedRate,
			CommissionAmount:      ledgerdomain.Amount(revenue, calculatedRate),
			ExcludeFromCommission: order.ExcludeFromCommission,
			CommissionMonth:       order.CommissionMonth,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
			return nil, err
		}
		return &entry, nil
	case err != nil:
		return nil, err
	}

	// Recalculation refreshes revenue and the system rate but never
	// clobbers manual state: overrides, exclusion and month moves
	// survive re-runs.
	rate := calculatedRate
	if existing.RateModified {
		rate = existing.CommissionRate
	}
	updates := map[string]any{
		"sales_person":      strings.TrimSpace(order.SalesPerson),
		"customer_id":       customer.CustomerID,
		"customer_name":     customer.Name,
		"account_type":      customer.AccountType,
		"order_revenue":     revenue,
		"commission_rate":   rate,
		"commission_amount": ledgerdomain.Amount(revenue, rate),
		"updated_at":        now,
	}
	if !existing.MonthMoved {
		updates["commission_month"] = order.CommissionMonth
	}
	if err := s.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return nil, err
	}

	var updated ledgerdomain.LedgerEntry
	if err := s.db.WithContext(ctx).Where("so_number = ?", order.SONumber).First(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Service) resolveOrderCustomer(ctx context.Context, order *orderdomain.SalesOrder) (*customerdomain.Customer, error) {
	if order.CustomerID != nil && *order.CustomerID != "" {
		return s.customerSvc.Get(ctx, *order.CustomerID)
	}
	return s.customerSvc.Resolve(ctx, order.RawCustomerRef)
}

func (s *Service) loadOrder(ctx context.Context, soNumber string) (*orderdomain.SalesOrder, error) {
	var order orderdomain.SalesOrder
	err := s.db.WithContext(ctx).Where("so_number = ?", soNumber).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderdomain.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Service) loadEntry(ctx context.Context, soNumber string) (*ledgerdomain.LedgerEntry, error) {
	soNumber = strings.TrimSpace(soNumber)
	if soNumber == "" {
		return nil, ledgerdomain.ErrEntryNotFound
	}
	var entry ledgerdomain.LedgerEntry
	err := s.db.WithContext(ctx).Where("so_number = ?", soNumber).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledgerdomain.ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// repTitle returns the rate table title for a sales person. Rep
// identity is an opaque canonical string; per-rep titles come from the
// rate configuration itself, so every rep shares the default title
// until a dedicated roster exists.
func repTitle(string) string { return ratedomain.DefaultTitle }

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
