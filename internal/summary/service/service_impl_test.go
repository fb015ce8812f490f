package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/clock"
	ledgerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/ledger/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
	summarydomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/summary/domain"
)

var summaryTestNow = time.Date(2026, time.May, 20, 12, 0, 0, 0, time.UTC)

func newSummaryService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&ledgerdomain.LedgerEntry{}, &summarydomain.MonthlySummary{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &Service{db: db, log: zap.NewNop(), clk: clock.Fixed(summaryTestNow)}, db
}

func insertEntry(t *testing.T, db *gorm.DB, soNumber, salesPerson string, m month.Month, revenue, commission int64, excluded bool) {
	t.Helper()
	entry := ledgerdomain.LedgerEntry{
		SONumber:              soNumber,
		SalesPerson:           salesPerson,
		OrderRevenue:          decimal.NewFromInt(revenue),
		CommissionRate:        decimal.NewFromInt(5),
		CommissionAmount:      decimal.NewFromInt(commission),
		ExcludeFromCommission: excluded,
		CommissionMonth:       m,
	}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("insert entry: %v", err)
	}
}

func TestRecalculateSplitsExcludedFromIncluded(t *testing.T) {
	svc, db := newSummaryService(t)
	m, _ := month.Parse("2026-05")

	insertEntry(t, db, "SO-1", "Alex", m, 1000, 50, false)
	insertEntry(t, db, "SO-2", "Alex", m, 2000, 100, false)
	insertEntry(t, db, "SO-3", "Alex", m, 400, 20, true)
	// Other partitions must not bleed in.
	insertEntry(t, db, "SO-4", "Brook", m, 9999, 999, false)
	other, _ := month.Parse("2026-04")
	insertEntry(t, db, "SO-5", "Alex", other, 9999, 999, false)

	summary, err := svc.Recalculate(context.Background(), "Alex", m)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if summary.TotalOrders != 2 || summary.TotalExcluded != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if !summary.TotalRevenue.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected revenue 3000, got %s", summary.TotalRevenue)
	}
	if !summary.TotalCommission.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected commission 150, got %s", summary.TotalCommission)
	}
	if !summary.ExcludedRevenue.Equal(decimal.NewFromInt(400)) || !summary.ExcludedCommission.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("excluded buckets wrong: %+v", summary)
	}
}

func TestRecalculateIsIdempotentAndRefreshesTheRow(t *testing.T) {
	svc, db := newSummaryService(t)
	m, _ := month.Parse("2026-05")

	insertEntry(t, db, "SO-1", "Alex", m, 1000, 50, false)
	if _, err := svc.Recalculate(context.Background(), "Alex", m); err != nil {
		t.Fatalf("first recalculate: %v", err)
	}

	insertEntry(t, db, "SO-2", "Alex", m, 500, 25, false)
	if _, err := svc.Recalculate(context.Background(), "Alex", m); err != nil {
		t.Fatalf("second recalculate: %v", err)
	}

	var rows []summarydomain.MonthlySummary
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one summary row, got %d", len(rows))
	}
	if rows[0].TotalOrders != 2 || !rows[0].TotalCommission.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("row not refreshed: %+v", rows[0])
	}
	if !rows[0].LastRecalculated.Equal(summaryTestNow) {
		t.Fatalf("last recalculated must come from the injected clock, got %s", rows[0].LastRecalculated)
	}
}

func TestRecalculateEmptyPartitionZeroesTheSummary(t *testing.T) {
	svc, _ := newSummaryService(t)
	m, _ := month.Parse("2026-05")

	summary, err := svc.Recalculate(context.Background(), "Alex", m)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if summary.TotalOrders != 0 || !summary.TotalCommission.IsZero() {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}

func TestGetAndListForMonth(t *testing.T) {
	svc, db := newSummaryService(t)
	m, _ := month.Parse("2026-05")

	insertEntry(t, db, "SO-1", "Alex", m, 1000, 50, false)
	insertEntry(t, db, "SO-2", "Brook", m, 2000, 40, false)
	for _, rep := range []string{"Alex", "Brook"} {
		if _, err := svc.Recalculate(context.Background(), rep, m); err != nil {
			t.Fatalf("recalculate %s: %v", rep, err)
		}
	}

	got, err := svc.Get(context.Background(), "Alex", m)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.TotalCommission.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected 50, got %s", got.TotalCommission)
	}

	if _, err := svc.Get(context.Background(), "Casey", m); !errors.Is(err, summarydomain.ErrSummaryNotFound) {
		t.Fatalf("expected ErrSummaryNotFound, got %v", err)
	}

	list, err := svc.ListForMonth(context.Background(), m)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].SalesPerson != "Alex" || list[1].SalesPerson != "Brook" {
		t.Fatalf("unexpected list order: %+v", list)
	}
}
