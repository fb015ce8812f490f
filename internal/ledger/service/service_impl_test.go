package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	auditdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/audit/domain"
	auditrepository "github.com/OGcaptYETI/notanothercrm-sub003/internal/audit/repository"
	auditservice "github.com/OGcaptYETI/notanothercrm-sub003/internal/audit/service"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/clock"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/config"
	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	customerservice "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/service"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/events"
	ledgerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/ledger/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
	orderdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/order/domain"
	ratedomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/rate/domain"
	rateservice "github.com/OGcaptYETI/notanothercrm-sub003/internal/rate/service"
	summarydomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/summary/domain"
	summaryservice "github.com/OGcaptYETI/notanothercrm-sub003/internal/summary/service"
)

var testNow = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func setupLedgerService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&customerdomain.Customer{},
		&customerdomain.CustomerAlias{},
		&orderdomain.SalesOrder{},
		&orderdomain.LineItem{},
		&ratedomain.RateRule{},
		&ledgerdomain.LedgerEntry{},
		&summarydomain.MonthlySummary{},
		&auditdomain.AuditLog{},
		&events.OutboxRecord{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	log := zap.NewNop()
	auditSvc := auditservice.NewService(auditservice.ServiceParam{
		DB: db, Log: log, Repo: auditrepository.Provide(), GenID: node,
	})
	customerSvc := customerservice.NewService(customerservice.ServiceParam{
		DB: db, Log: log, Cfg: config.Config{ResolverCacheTTL: time.Minute},
	})
	rateSvc := rateservice.NewService(rateservice.ServiceParam{DB: db, Log: log, GenID: node})
	summarySvc := summaryservice.NewService(summaryservice.ServiceParam{DB: db, Log: log, Clock: clock.Fixed(testNow)})

	svc := &Service{
		db:          db,
		log:         log,
		clk:         clock.Fixed(testNow),
		customerSvc: customerSvc,
		rateSvc:     rateSvc,
		summarySvc:  summarySvc,
		auditSvc:    auditSvc,
		outbox:      events.NewOutbox(db, node),
	}
	return svc, db
}

func seedRates(t *testing.T, db *gorm.DB) {
	t.Helper()
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	rules := []ratedomain.RateRule{
		{Segment: customerdomain.AccountTypeDistributor, Status: ratedomain.StatusNewBusiness, Percentage: decimal.NewFromInt(5)},
		{Segment: customerdomain.AccountTypeDistributor, Status: ratedomain.StatusEstablished, Percentage: decimal.NewFromInt(2)},
		{Segment: customerdomain.AccountTypeWholesale, Status: ratedomain.StatusNewBusiness, Percentage: decimal.NewFromInt(3)},
		{Segment: customerdomain.AccountTypeWholesale, Status: ratedomain.StatusEstablished, Percentage: decimal.NewFromInt(2)},
	}
	for _, rule := range rules {
		rule.ID = node.Generate()
		rule.Title = ratedomain.DefaultTitle
		rule.Active = true
		if err := db.Create(&rule).Error; err != nil {
			t.Fatalf("seed rule: %v", err)
		}
	}
}

var seedOrderNode *snowflake.Node

func seedOrder(t *testing.T, db *gorm.DB, order orderdomain.SalesOrder, total decimal.Decimal) {
	t.Helper()
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("insert order %s: %v", order.SONumber, err)
	}
	if seedOrderNode == nil {
		node, err := snowflake.NewNode(3)
		if err != nil {
			t.Fatalf("snowflake: %v", err)
		}
		seedOrderNode = node
	}
	node := seedOrderNode
	item := orderdomain.LineItem{
		ID:               node.Generate(),
		SONumber:         order.SONumber,
		SalesOrderID:     order.SalesOrderID,
		SOItemID:         "1",
		NormalizedItemID: "1",
		TotalPrice:       total,
		SalesPerson:      order.SalesPerson,
		CommissionMonth:  order.CommissionMonth,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("insert item for %s: %v", order.SONumber, err)
	}
}

func strPtr(s string) *string { return &s }

func TestCalculateComputesCommissionAndSkips(t *testing.T) {
	svc, db := setupLedgerService(t)
	seedRates(t, db)
	m, _ := month.Parse("2026-05")
	posting := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	firstOrder := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	customers := []customerdomain.Customer{
		{CustomerID: "D100", Name: "Distributor New", AccountType: customerdomain.AccountTypeDistributor, FirstOrderDate: &firstOrder},
		{CustomerID: "R200", Name: "Retail Walk-In", AccountType: customerdomain.AccountTypeRetail},
	}
	for _, c := range customers {
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("insert customer: %v", err)
		}
	}

	seedOrder(t, db, orderdomain.SalesOrder{
		SONumber: "SO-100", SalesOrderID: "100", CustomerID: strPtr("D100"),
		SalesPerson: "Alex", PostingDate: &posting, CommissionMonth: m,
	}, decimal.NewFromInt(1000))
	seedOrder(t, db, orderdomain.SalesOrder{
		SONumber: "SO-101", SalesOrderID: "101", CustomerID: strPtr("D100"),
		SalesPerson: "HOUSE", PostingDate: &posting, CommissionMonth: m,
	}, decimal.NewFromInt(999))
	seedOrder(t, db, orderdomain.SalesOrder{
		SONumber: "Sh-102", SalesOrderID: "102", CustomerID: strPtr("D100"),
		SalesPerson: "Alex", PostingDate: &posting, CommissionMonth: m,
	}, decimal.NewFromInt(999))
	seedOrder(t, db, orderdomain.SalesOrder{
		SONumber: "SO-103", SalesOrderID: "103",
		RawCustomerRef: "no-such-customer",
		SalesPerson:    "Alex", PostingDate: &posting, CommissionMonth: m,
	}, decimal.NewFromInt(999))
	seedOrder(t, db, orderdomain.SalesOrder{
		SONumber: "SO-104", SalesOrderID: "104", CustomerID: strPtr("R200"),
		SalesPerson: "Alex", PostingDate: &posting, CommissionMonth: m,
	}, decimal.NewFromInt(999))

	stats, err := svc.Calculate(context.Background(), m)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if stats.TotalOrders != 5 {
		t.Fatalf("expected 5 orders scanned, got %d", stats.TotalOrders)
	}
	if stats.Calculated != 1 || stats.SkippedHouse != 1 || stats.SkippedEcommerce != 1 ||
		stats.SkippedNoCustomer != 1 || stats.SkippedRetail != 1 {
		t.Fatalf("unexpected skip counters: %+v", stats)
	}
	if !stats.TotalCommission.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected commission 50, got %s", stats.TotalCommission)
	}

	entry, err := svc.Get(context.Background(), "SO-100")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if !entry.CommissionRate.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected new business distributor rate 5, got %s", entry.CommissionRate)
	}
	if !entry.CommissionAmount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected amount 50, got %s", entry.CommissionAmount)
	}

	var summary summarydomain.MonthlySummary
	if err := db.Where("sales_person = ? AND commission_month = ?", "Alex", m).First(&summary).Error; err != nil {
		t.Fatalf("summary missing: %v", err)
	}
	if summary.TotalOrders != 1 || !summary.TotalCommission.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestCalculateMissingRateFailsLoudly(t *testing.T) {
	svc, db := setupLedgerService(t)
	m, _ := month.Parse("2026-05")
	posting := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	if err := db.Create(&customerdomain.Customer{
		CustomerID: "D100", Name: "Distributor", AccountType: customerdomain.AccountTypeDistributor,
	}).Error; err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	seedOrder(t, db, orderdomain.SalesOrder{
		SONumber: "SO-100", SalesOrderID: "100", CustomerID: strPtr("D100"),
		SalesPerson: "Alex", PostingDate: &posting, CommissionMonth: m,
	}, decimal.NewFromInt(1000))

	stats, err := svc.Calculate(context.Background(), m)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if stats.Calculated != 0 || stats.RateMisses != 1 {
		t.Fatalf("expected a loud rate miss, got %+v", stats)
	}
	if len(stats.Errors) != 1 {
		t.Fatalf("expected 1 recorded error, got %d", len(stats.Errors))
	}

	if _, err := svc.Get(context.Background(), "SO-100"); !errors.Is(err, ledgerdomain.ErrEntryNotFound) {
		t.Fatalf("rate miss must not write a zero-rate entry, got %v", err)
	}
}

func calculateOneEntry(t *testing.T, svc *Service, db *gorm.DB) month.Month {
	t.Helper()
	seedRates(t, db)
	m, _ := month.Parse("2026-05")
	posting := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	firstOrder := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if err := db.Create(&customerdomain.Customer{
		CustomerID: "D100", Name: "Distributor", AccountType: customerdomain.AccountTypeDistributor,
		FirstOrderDate: &firstOrder,
	}).Error; err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	seedOrder(t, db, orderdomain.SalesOrder{
		SONumber: "SO-100", SalesOrderID: "100", CustomerID: strPtr("D100"),
		SalesPerson: "Alex", PostingDate: &posting, CommissionMonth: m,
	}, decimal.NewFromInt(1000))

	if _, err := svc.Calculate(context.Background(), m); err != nil {
		t.Fatalf("calculate: %v", err)
	}
	return m
}

func TestSetRatePreservesOriginalRateAcrossEdits(t *testing.T) {
	svc, db := setupLedgerService(t)
	calculateOneEntry(t, svc, db)
	ctx := context.Background()

	if _, err := svc.SetRate(ctx, "SO-100", decimal.NewFromInt(7), "", "ops"); !errors.Is(err, ledgerdomain.ErrCommentRequired) {
		t.Fatalf("expected ErrCommentRequired, got %v", err)
	}

	result, err := svc.SetRate(ctx, "SO-100", decimal.NewFromInt(7), "spiff for Q2 push", "ops")
	if err != nil {
		t.Fatalf("set rate: %v", err)
	}
	entry := result.Entry
	if !entry.CommissionRate.Equal(decimal.NewFromInt(7)) || !entry.CommissionAmount.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("rate edit not applied: %+v", entry)
	}
	if !entry.RateModified || entry.OriginalRate == nil || !entry.OriginalRate.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("original rate must capture the calculated value, got %+v", entry.OriginalRate)
	}

	result, err = svc.SetRate(ctx, "SO-100", decimal.NewFromInt(8), "second adjustment", "ops")
	if err != nil {
		t.Fatalf("second set rate: %v", err)
	}
	if !result.Entry.OriginalRate.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("original rate must survive later edits, got %s", result.Entry.OriginalRate)
	}

	// Recalculation refreshes revenue but keeps the override.
	m, _ := month.Parse("2026-05")
	if _, err := svc.Calculate(ctx, m); err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	entryAfter, err := svc.Get(ctx, "SO-100")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !entryAfter.CommissionRate.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("override lost on recalculation, got %s", entryAfter.CommissionRate)
	}
}

func TestSetExclusionMovesEntryIntoExcludedBuckets(t *testing.T) {
	svc, db := setupLedgerService(t)
	m := calculateOneEntry(t, svc, db)
	ctx := context.Background()

	result, err := svc.SetExclusion(ctx, "SO-100", true, "ops")
	if err != nil {
		t.Fatalf("set exclusion: %v", err)
	}
	if !result.Entry.ExcludeFromCommission {
		t.Fatalf("exclusion not applied")
	}

	var summary summarydomain.MonthlySummary
	if err := db.Where("sales_person = ? AND commission_month = ?", "Alex", m).First(&summary).Error; err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalOrders != 0 || summary.TotalExcluded != 1 {
		t.Fatalf("excluded entry still counted: %+v", summary)
	}
	if !summary.ExcludedCommission.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected excluded commission 50, got %s", summary.ExcludedCommission)
	}
}

func TestExclusionRoundTripRestoresSummary(t *testing.T) {
	svc, db := setupLedgerService(t)
	m := calculateOneEntry(t, svc, db)
	ctx := context.Background()

	// A prior rate edit must survive the round-trip too.
	if _, err := svc.SetRate(ctx, "SO-100", decimal.NewFromInt(7), "corrected tier", "ops"); err != nil {
		t.Fatalf("set rate: %v", err)
	}

	loadSummary := func() summarydomain.MonthlySummary {
		t.Helper()
		var summary summarydomain.MonthlySummary
		if err := db.Where("sales_person = ? AND commission_month = ?", "Alex", m).First(&summary).Error; err != nil {
			t.Fatalf("summary: %v", err)
		}
		return summary
	}

	before := loadSummary()
	if before.TotalOrders != 1 || !before.TotalCommission.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("unexpected baseline summary: %+v", before)
	}

	if _, err := svc.SetExclusion(ctx, "SO-100", true, "ops"); err != nil {
		t.Fatalf("exclude: %v", err)
	}
	excluded := loadSummary()
	if excluded.TotalOrders != 0 || !excluded.TotalCommission.IsZero() || excluded.TotalExcluded != 1 {
		t.Fatalf("exclusion not reflected: %+v", excluded)
	}

	if _, err := svc.SetExclusion(ctx, "SO-100", false, "ops"); err != nil {
		t.Fatalf("re-include: %v", err)
	}
	after := loadSummary()
	if after.TotalOrders != before.TotalOrders ||
		!after.TotalRevenue.Equal(before.TotalRevenue) ||
		!after.TotalCommission.Equal(before.TotalCommission) {
		t.Fatalf("re-include must restore the summary: before=%+v after=%+v", before, after)
	}
	if after.TotalExcluded != 0 || !after.ExcludedCommission.IsZero() {
		t.Fatalf("excluded buckets must drain on re-include: %+v", after)
	}
	if !after.TotalRevenue.Equal(decimal.NewFromInt(1000)) || !after.TotalCommission.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected 1000 revenue and 70 commission, got %+v", after)
	}
}

func TestMoveMonthChecksCurrentMonthAndRepartitions(t *testing.T) {
	svc, db := setupLedgerService(t)
	from := calculateOneEntry(t, svc, db)
	to, _ := month.Parse("2026-06")
	wrong, _ := month.Parse("2026-04")
	ctx := context.Background()

	if _, err := svc.MoveMonth(ctx, "SO-100", from, from, "dup", "ops"); !errors.Is(err, ledgerdomain.ErrSameMonthMove) {
		t.Fatalf("expected ErrSameMonthMove, got %v", err)
	}

	_, err := svc.MoveMonth(ctx, "SO-100", wrong, to, "late shipment", "ops")
	var conflict *ledgerdomain.MonthConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected month conflict, got %v", err)
	}
	if !conflict.Actual.Equal(from) {
		t.Fatalf("conflict must report the stored month, got %s", conflict.Actual)
	}

	result, err := svc.MoveMonth(ctx, "SO-100", from, to, "late shipment", "ops")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	entry := result.Entry
	if !entry.CommissionMonth.Equal(to) || !entry.MonthMoved {
		t.Fatalf("move not applied: %+v", entry)
	}
	if entry.MovedFromMonth == nil || !entry.MovedFromMonth.Equal(from) {
		t.Fatalf("moved_from_month not recorded")
	}

	var source, dest summarydomain.MonthlySummary
	if err := db.Where("sales_person = ? AND commission_month = ?", "Alex", from).First(&source).Error; err != nil {
		t.Fatalf("source summary: %v", err)
	}
	if err := db.Where("sales_person = ? AND commission_month = ?", "Alex", to).First(&dest).Error; err != nil {
		t.Fatalf("destination summary: %v", err)
	}
	if source.TotalOrders != 0 || dest.TotalOrders != 1 {
		t.Fatalf("partitions not refreshed: source=%d dest=%d", source.TotalOrders, dest.TotalOrders)
	}

	var auditCount int64
	if err := db.Model(&auditdomain.AuditLog{}).
		Where("action = ?", auditdomain.ActionMonthMove).
		Count(&auditCount).Error; err != nil {
		t.Fatalf("count audit: %v", err)
	}
	if auditCount != 1 {
		t.Fatalf("expected 1 move audit record, got %d", auditCount)
	}
}
