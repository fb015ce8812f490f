package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/audit/domain"
	auditservice "github.com/OGcaptYETI/notanothercrm-sub003/internal/audit/service"
	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	customerservice "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/service"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
	orderdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/order/domain"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	auditSvc *auditservice.Service
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	AuditSvc *auditservice.Service
}

func NewService(p ServiceParam) orderdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("order.service"),
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Get(ctx context.Context, soNumber string) (*orderdomain.SalesOrder, error) {
	soNumber = strings.TrimSpace(soNumber)
	if soNumber == "" {
		return nil, orderdomain.ErrInvalidOrder
	}
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

func (s *Service) List(ctx context.Context, req orderdomain.ListRequest) ([]*orderdomain.SalesOrder, error) {
	query := s.db.WithContext(ctx).Model(&orderdomain.SalesOrder{})
	if !req.Month.IsZero() {
		query = query.Where("commission_month = ?", req.Month)
	}
	if req.SalesPerson != "" {
		query = query.Where("sales_person = ?", req.SalesPerson)
	}
	if req.UnresolvedOnly {
		query = query.Where("customer_id IS NULL")
	}
	limit := req.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	var orders []*orderdomain.SalesOrder
	if err := query.Order("so_number ASC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) LineItems(ctx context.Context, soNumber string) ([]*orderdomain.LineItem, error) {
	var items []*orderdomain.LineItem
	err := s.db.WithContext(ctx).
		Where("so_number = ?", strings.TrimSpace(soNumber)).
		Order("normalized_item_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) OrderRevenue(ctx context.Context, soNumber string) (decimal.Decimal, error) {
	items, err := s.LineItems(ctx, soNumber)
	if err != nil {
		return decimal.Zero, err
	}
	revenue := decimal.Zero
	for _, item := range items {
		revenue = revenue.Add(item.DerivedTotal())
	}
	return revenue.Round(2), nil
}

func (s *Service) DedupLineItems(ctx context.Context, m month.Month, dryRun bool) (*orderdomain.DedupStats, error) {
	if !m.Valid() {
		return nil, month.ErrInvalidMonth
	}

	var items []*orderdomain.LineItem
	err := s.db.WithContext(ctx).
		Where("commission_month = ?", m).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]*orderdomain.LineItem)
	for _, item := range items {
		key := item.SalesOrderID + "_" + item.NormalizedItemID
		groups[key] = append(groups[key], item)
	}

	stats := &orderdomain.DedupStats{
		LineItemsScanned: len(items),
		DuplicateRevenue: decimal.Zero,
		DryRun:           dryRun,
	}

	var toDelete []*orderdomain.LineItem
	for _, group := range groups {
		if len(group) <= 1 {
			continue
		}
		stats.DuplicateGroups++

		// Keep the record without corruption artifacts; raw ids with
		// commas are the double-imported copies.
		sort.SliceStable(group, func(i, j int) bool {
			iClean := !strings.Contains(group[i].SOItemID, ",")
			jClean := !strings.Contains(group[j].SOItemID, ",")
			if iClean != jClean {
				return iClean
			}
			return group[i].CreatedAt.Before(group[j].CreatedAt)
		})
		for _, dup := range group[1:] {
			stats.Deleted++
			stats.DuplicateRevenue = stats.DuplicateRevenue.Add(dup.DerivedTotal())
			toDelete = append(toDelete, dup)
		}
	}
	stats.DuplicateRevenue = stats.DuplicateRevenue.Round(2)

	if dryRun || len(toDelete) == 0 {
		return stats, nil
	}

	// Ordered fixed-size batches, matching the import write discipline.
	const batchSize = 450
	for start := 0; start < len(toDelete); start += batchSize {
		end := start + batchSize
		if end > len(toDelete) {
			end = len(toDelete)
		}
		ids := make([]any, 0, end-start)
		for _, item := range toDelete[start:end] {
			ids = append(ids, item.ID)
		}
		if err := s.db.WithContext(ctx).
			Where("id IN ?", ids).
			Delete(&orderdomain.LineItem{}).Error; err != nil {
			return nil, err
		}
	}

	_ = s.auditSvc.Append(ctx, nil, auditdomain.ActionDedup, "commission_month", m.String(), "system", "",
		map[string]any{
			"duplicate_groups":  stats.DuplicateGroups,
			"deleted":           stats.Deleted,
			"duplicate_revenue": stats.DuplicateRevenue.String(),
		})

	s.log.Info("line item dedup complete",
		zap.String("month", m.String()),
		zap.Int("duplicate_groups", stats.DuplicateGroups),
		zap.Int("deleted", stats.Deleted),
	)
	return stats, nil
}

func (s *Service) BackfillTotals(ctx context.Context, m month.Month) (*orderdomain.BackfillStats, error) {
	if !m.Valid() {
		return nil, month.ErrInvalidMonth
	}

	var items []*orderdomain.LineItem
	err := s.db.WithContext(ctx).
		Where("commission_month = ?", m).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	salesPersonByOrder := make(map[string]string)
	stats := &orderdomain.BackfillStats{LineItemsScanned: len(items)}

	for _, item := range items {
		updates := map[string]any{}

		if item.TotalPrice.IsZero() && item.Quantity.IsPositive() && item.UnitPrice.IsPositive() {
			updates["total_price"] = item.Quantity.Mul(item.UnitPrice).Round(2)
			stats.TotalsDerived++
		}

		if strings.TrimSpace(item.SalesPerson) == "" {
			salesPerson, ok := salesPersonByOrder[item.SONumber]
			if !ok {
				order, err := s.Get(ctx, item.SONumber)
				if err != nil && !errors.Is(err, orderdomain.ErrOrderNotFound) {
					return nil, err
				}
				if order != nil {
					salesPerson = order.SalesPerson
				}
				salesPersonByOrder[item.SONumber] = salesPerson
			}
			if salesPerson != "" {
				updates["sales_person"] = salesPerson
				stats.SalesPersonFixed++
			}
		}

		if len(updates) == 0 {
			continue
		}
		updates["updated_at"] = time.Now().UTC()
		if err := s.db.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (s *Service) CorrectCustomer(ctx context.Context, req orderdomain.CorrectCustomerRequest) (*orderdomain.CorrectCustomerResult, error) {
	soNumber := strings.TrimSpace(req.SONumber)
	newCustomerID := customerdomain.SanitizeRef(req.NewCustomerID)
	if soNumber == "" || newCustomerID == "" {
		return nil, orderdomain.ErrInvalidOrder
	}
	if req.NewAccountType != "" && !customerdomain.ValidAccountType(req.NewAccountType) {
		return nil, customerdomain.ErrInvalidAccountType
	}
	actor := strings.TrimSpace(req.CorrectedBy)
	if actor == "" {
		actor = "admin"
	}

	var result *orderdomain.CorrectCustomerResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order orderdomain.SalesOrder
		err := tx.Where("so_number = ?", soNumber).First(&order).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return orderdomain.ErrOrderNotFound
			}
			return err
		}

		var newCustomer customerdomain.Customer
		err = tx.Where("customer_id = ?", newCustomerID).First(&newCustomer).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return customerdomain.ErrNotFound
			}
			return err
		}

		oldRef := order.RawCustomerRef
		if order.CustomerID != nil {
			oldRef = *order.CustomerID
		}

		accountType := newCustomer.AccountType
		if req.NewAccountType != "" {
			accountType = req.NewAccountType
		}

		now := time.Now().UTC()
		if err := tx.Model(&order).Updates(map[string]any{
			"customer_id":     newCustomerID,
			"customer_name":   newCustomer.Name,
			"account_type":    accountType,
			"manually_linked": true,
			"updated_at":      now,
		}).Error; err != nil {
			return err
		}

		lineItems := tx.Model(&orderdomain.LineItem{}).
			Where("so_number = ?", soNumber).
			Updates(map[string]any{
				"customer_id": newCustomerID,
				"updated_at":  now,
			})
		if lineItems.Error != nil {
			return lineItems.Error
		}

		aliasAdded := false
		if req.RememberCorrection && oldRef != "" && oldRef != newCustomerID {
			if err := customerservice.AddAliasTx(ctx, tx, newCustomerID, oldRef); err != nil {
				return err
			}
			aliasAdded = true
		}

		if err := s.auditSvc.Append(ctx, tx, auditdomain.ActionCustomerCorrection, "sales_order", soNumber, actor, req.Reason,
			map[string]any{
				"old_customer_id":       oldRef,
				"new_customer_id":       newCustomerID,
				"new_customer_name":     newCustomer.Name,
				"account_type":          string(accountType),
				"account_type_override": req.NewAccountType != "",
				"remember_correction":   req.RememberCorrection,
				"line_items_updated":    lineItems.RowsAffected,
			}); err != nil {
			return err
		}

		result = &orderdomain.CorrectCustomerResult{
			SONumber:         soNumber,
			OldCustomerID:    oldRef,
			NewCustomerID:    newCustomerID,
			NewCustomerName:  newCustomer.Name,
			AccountType:      accountType,
			LineItemsUpdated: int(lineItems.RowsAffected),
			AliasAdded:       aliasAdded,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order customer corrected",
		zap.String("so_number", soNumber),
		zap.String("old_customer_id", result.OldCustomerID),
		zap.String("new_customer_id", result.NewCustomerID),
	)
	return result, nil
}
