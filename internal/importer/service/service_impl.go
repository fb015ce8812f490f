package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/audit/domain"
	auditservice "github.com/OGcaptYETI/notanothercrm-sub003/internal/audit/service"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/clock"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/config"
	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	customerservice "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/service"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/events"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/importer/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
	orderdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/order/domain"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	cfg   config.Config
	clk   clock.Clock
	genID *snowflake.Node

	customerSvc customerdomain.Service
	auditSvc    *auditservice.Service
	outbox      *events.Outbox
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	Clock       clock.Clock
	GenID       *snowflake.Node
	CustomerSvc customerdomain.Service
	AuditSvc    *auditservice.Service
	Outbox      *events.Outbox
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("importer.service"),
		cfg:         p.Cfg,
		clk:         p.Clock,
		genID:       p.GenID,
		customerSvc: p.CustomerSvc,
		auditSvc:    p.AuditSvc,
		outbox:      p.Outbox,
	}
}

func (s *Service) ImportLineItems(ctx context.Context, req domain.ImportRequest) (*domain.ImportStats, error) {
	headers, rawRows, err := readRows(req.Filename, req.File)
	if err != nil {
		return nil, err
	}
	indexes, err := mapHeaders(headers)
	if err != nil {
		return nil, err
	}
	if len(rawRows) == 0 {
		return nil, domain.ErrEmptyFile
	}

	stats := &domain.ImportStats{}
	rows := make([]*domain.Row, 0, len(rawRows))
	for i, raw := range rawRows {
		if isBlankRow(raw) {
			continue
		}
		stats.RowsRead++
		row, err := parseRow(i+2, raw, indexes)
		if err != nil {
			stats.SkippedRows++
			s.addError(stats, err.Error())
			continue
		}
		rows = append(rows, row)
	}
	rows = dedupeRows(rows)

	monthsTouched := make(map[month.Month]struct{})
	for _, row := range rows {
		if row.IssuedDate != nil {
			monthsTouched[month.Of(*row.IssuedDate)] = struct{}{}
		}
	}
	for m := range monthsTouched {
		stats.Months = append(stats.Months, m)
	}
	sort.Slice(stats.Months, func(i, j int) bool { return stats.Months[i].Before(stats.Months[j]) })

	if req.DryRun {
		return stats, nil
	}

	customersTouched := make(map[string]struct{})

	// Batches commit in file order so a mid-import failure leaves a
	// clean prefix of the file applied rather than interleaved holes.
	batchSize := s.cfg.ImportBatchSize
	if batchSize <= 0 {
		batchSize = 450
	}
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, row := range batch {
				if err := s.applyRow(ctx, tx, row, stats, customersTouched); err != nil {
					stats.SkippedRows++
					s.addError(stats, fmt.Sprintf("row %d: %v", row.Line, err))
				}
			}
			return nil
		})
		if err != nil {
			return stats, fmt.Errorf("import batch %d: %w", start/batchSize+1, err)
		}
	}

	if len(customersTouched) > 0 {
		ids := make([]string, 0, len(customersTouched))
		for id := range customersTouched {
			ids = append(ids, id)
		}
		if err := s.customerSvc.RecomputeTotalSales(ctx, ids); err != nil {
			s.addError(stats, fmt.Sprintf("recompute total sales: %v", err))
		}
	}

	_ = s.auditSvc.Append(ctx, nil, auditdomain.ActionImport, "import", req.Filename, actorOr(req.Actor), "",
		map[string]any{
			"rows_read":      stats.RowsRead,
			"orders_created": stats.OrdersCreated,
			"items_created":  stats.ItemsCreated,
			"items_updated":  stats.ItemsUpdated,
			"skipped_rows":   stats.SkippedRows,
		})

	if err := s.outbox.Publish(ctx, events.Event{
		Type: events.EventImportCompleted,
		Payload: events.ImportCompletedPayload{
			Filename:     req.Filename,
			RowsRead:     stats.RowsRead,
			ItemsCreated: stats.ItemsCreated,
			ItemsUpdated: stats.ItemsUpdated,
			SkippedRows:  stats.SkippedRows,
		}.ToMap(),
	}); err != nil {
		s.log.Warn("outbox publish failed", zap.Error(err))
	}

	s.log.Info("line item import complete",
		zap.String("filename", req.Filename),
		zap.Int("rows_read", stats.RowsRead),
		zap.Int("orders_created", stats.OrdersCreated),
		zap.Int("items_created", stats.ItemsCreated),
		zap.Int("skipped_rows", stats.SkippedRows),
	)
	return stats, nil
}

// applyRow upserts the customer, order and line item one parsed row
// describes, inside the enclosing batch transaction.
func (s *Service) applyRow(ctx context.Context, tx *gorm.DB, row *domain.Row, stats *domain.ImportStats, customersTouched map[string]struct{}) error {
	customer, err := s.ensureCustomer(ctx, tx, row, stats)
	if err != nil {
		return err
	}

	if err := s.upsertOrder(ctx, tx, row, customer, stats); err != nil {
		return err
	}
	if err := s.upsertLineItem(ctx, tx, row, customer, stats); err != nil {
		return err
	}
	if customer != nil {
		customersTouched[customer.CustomerID] = struct{}{}
	}
	return nil
}

// ensureCustomer resolves the row's customer reference, creating the
// customer on first sight. A row with no reference at all leaves the
// order unresolved for manual correction. All lookups and writes run
// on the batch transaction so a rolled back batch leaves no customers
// behind and mid-batch rows see customers earlier rows just created.
func (s *Service) ensureCustomer(ctx context.Context, tx *gorm.DB, row *domain.Row, stats *domain.ImportStats) (*customerdomain.Customer, error) {
	if row.CustomerRef == "" {
		stats.Unresolved++
		return nil, nil
	}

	customer, err := customerservice.ResolveTx(ctx, tx, row.CustomerRef)
	if err != nil && !errors.Is(err, customerdomain.ErrNotFound) {
		return nil, err
	}

	upsert := customerdomain.UpsertRequest{
		CustomerID:  row.CustomerRef,
		Name:        row.CustomerName,
		AccountType: customerdomain.AccountTypeWholesale,
		OrderDate:   row.IssuedDate,
		OrderTotal:  row.TotalPrice,
	}
	if customer != nil {
		// Resolved through the canonical id or an alias: refresh the
		// existing record, never mint a duplicate under the alias.
		upsert.CustomerID = customer.CustomerID
		upsert.AccountType = customer.AccountType
		if customer.Name != "" {
			upsert.Name = customer.Name
		}
	}

	updated, err := customerservice.UpsertTx(ctx, tx, upsert)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		stats.CustomersUpserted++
	}
	return updated, nil
}

func (s *Service) upsertOrder(ctx context.Context, tx *gorm.DB, row *domain.Row, customer *customerdomain.Customer, stats *domain.ImportStats) error {
	now := s.clk.Now()

	commissionMonth := month.Month{}
	if row.IssuedDate != nil {
		commissionMonth = month.Of(*row.IssuedDate)
	}

	var existing orderdomain.SalesOrder
	err := tx.Where("so_number = ?", row.SONumber).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		order := orderdomain.SalesOrder{
			SONumber:        row.SONumber,
			SalesOrderID:    row.SalesOrderID,
			CustomerName:    row.CustomerName,
			RawCustomerRef:  row.CustomerRef,
			SalesPerson:     row.SalesRep,
			PostingDate:     row.IssuedDate,
			CommissionMonth: commissionMonth,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if customer != nil {
			id := customer.CustomerID
			order.CustomerID = &id
			order.CustomerName = customer.Name
			order.AccountType = customer.AccountType
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		stats.OrdersCreated++
		return nil
	case err != nil:
		return err
	}

	updates := map[string]any{
		"sales_order_id": row.SalesOrderID,
		"sales_person":   row.SalesRep,
		"updated_at":     now,
	}
	if row.IssuedDate != nil {
		updates["posting_date"] = row.IssuedDate
		updates["commission_month"] = commissionMonth
	}
	// Manual customer corrections outlive re-imports.
	if !existing.ManuallyLinked && customer != nil {
		updates["customer_id"] = customer.CustomerID
		updates["customer_name"] = customer.Name
		updates["account_type"] = customer.AccountType
		updates["raw_customer_ref"] = row.CustomerRef
	}
	if err := tx.Model(&existing).Updates(updates).Error; err != nil {
		return err
	}
	stats.OrdersUpdated++
	return nil
}

func (s *Service) upsertLineItem(ctx context.Context, tx *gorm.DB, row *domain.Row, customer *customerdomain.Customer, stats *domain.ImportStats) error {
	now := s.clk.Now()
	normalized := orderdomain.NormalizeItemID(row.SOItemID)

	customerID := ""
	if customer != nil {
		customerID = customer.CustomerID
	}
	commissionMonth := month.Month{}
	if row.IssuedDate != nil {
		commissionMonth = month.Of(*row.IssuedDate)
	}

	var existing orderdomain.LineItem
	err := tx.Where("sales_order_id = ? AND normalized_item_id = ?", row.SalesOrderID, normalized).
		Order("created_at ASC").First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		item := orderdomain.LineItem{
			ID:               s.genID.Generate(),
			SONumber:         row.SONumber,
			SalesOrderID:     row.SalesOrderID,
			SOItemID:         row.SOItemID,
			NormalizedItemID: normalized,
			CustomerID:       customerID,
			ProductNum:       row.ProductNum,
			ProductName:      row.ProductName,
			Quantity:         row.Quantity,
			UnitPrice:        row.UnitPrice,
			TotalPrice:       row.TotalPrice,
			SalesPerson:      row.SalesRep,
			CommissionMonth:  commissionMonth,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		stats.ItemsCreated++
		return nil
	case err != nil:
		return err
	}

	updates := map[string]any{
		"so_number":    row.SONumber,
		"product_num":  row.ProductNum,
		"quantity":     row.Quantity,
		"unit_price":   row.UnitPrice,
		"total_price":  row.TotalPrice,
		"sales_person": row.SalesRep,
		"updated_at":   now,
	}
	if row.ProductName != "" {
		updates["product_name"] = row.ProductName
	}
	if customerID != "" {
		updates["customer_id"] = customerID
	}
	if !commissionMonth.IsZero() {
		updates["commission_month"] = commissionMonth
	}
	// Prefer the clean rendering of the raw item id.
	if strings.Contains(existing.SOItemID, ",") && !strings.Contains(row.SOItemID, ",") {
		updates["so_item_id"] = row.SOItemID
	}
	if err := tx.Model(&existing).Updates(updates).Error; err != nil {
		return err
	}
	stats.ItemsUpdated++
	return nil
}

func (s *Service) addError(stats *domain.ImportStats, msg string) {
	if len(stats.Errors) < s.maxRowErrors() {
		stats.Errors = append(stats.Errors, msg)
	}
}

func (s *Service) maxRowErrors() int {
	if s.cfg.ImportMaxRowErrors > 0 {
		return s.cfg.ImportMaxRowErrors
	}
	return 50
}

// dedupeRows collapses rows sharing a logical line item identity
// within one file, preferring the comma-free rendering of the item id.
func dedupeRows(rows []*domain.Row) []*domain.Row {
	seen := make(map[string]int, len(rows))
	out := make([]*domain.Row, 0, len(rows))
	for _, row := range rows {
		key := row.SalesOrderID + "|" + orderdomain.NormalizeItemID(row.SOItemID)
		if i, ok := seen[key]; ok {
			if strings.Contains(out[i].SOItemID, ",") && !strings.Contains(row.SOItemID, ",") {
				out[i] = row
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, row)
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func actorOr(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return "admin"
	}
	return strings.TrimSpace(actor)
}
