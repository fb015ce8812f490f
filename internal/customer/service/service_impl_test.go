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

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/cache"
	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	orderdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/order/domain"
)

func setupCustomerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&customerdomain.Customer{},
		&customerdomain.CustomerAlias{},
		&orderdomain.LineItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newCustomerService(db *gorm.DB) *Service {
	return &Service{
		db:       db,
		log:      zap.NewNop(),
		resolved: cache.NewTTLMap[string, string](time.Minute),
	}
}

func insertCustomer(t *testing.T, db *gorm.DB, id, name string, accountType customerdomain.AccountType) {
	t.Helper()
	if err := db.Create(&customerdomain.Customer{
		CustomerID:  id,
		Name:        name,
		AccountType: accountType,
	}).Error; err != nil {
		t.Fatalf("insert customer: %v", err)
	}
}

func TestResolveSanitizesCommaCorruptedRef(t *testing.T) {
	db := setupCustomerTestDB(t)
	svc := newCustomerService(db)
	insertCustomer(t, db, "16384", "Acme Wholesale", customerdomain.AccountTypeWholesale)

	customer, err := svc.Resolve(context.Background(), " 16,384 ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if customer.CustomerID != "16384" {
		t.Fatalf("expected canonical id 16384, got %s", customer.CustomerID)
	}
}

func TestResolveThroughAlias(t *testing.T) {
	db := setupCustomerTestDB(t)
	svc := newCustomerService(db)
	insertCustomer(t, db, "2001", "Northwind", customerdomain.AccountTypeDistributor)

	if err := svc.AddAlias(context.Background(), "2001", "NW-OLD-REF"); err != nil {
		t.Fatalf("add alias: %v", err)
	}

	customer, err := svc.Resolve(context.Background(), "NW-OLD-REF")
	if err != nil {
		t.Fatalf("resolve alias: %v", err)
	}
	if customer.CustomerID != "2001" {
		t.Fatalf("expected 2001, got %s", customer.CustomerID)
	}
	if len(customer.Aliases) != 1 || customer.Aliases[0] != "NW-OLD-REF" {
		t.Fatalf("expected alias set [NW-OLD-REF], got %v", customer.Aliases)
	}
}

func TestResolveUnknownRefFailsInsteadOfGuessing(t *testing.T) {
	db := setupCustomerTestDB(t)
	svc := newCustomerService(db)

	_, err := svc.Resolve(context.Background(), "no-such-ref")
	if !errors.Is(err, customerdomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddAliasRejectsCrossCustomerCollision(t *testing.T) {
	db := setupCustomerTestDB(t)
	svc := newCustomerService(db)
	insertCustomer(t, db, "3001", "First", customerdomain.AccountTypeWholesale)
	insertCustomer(t, db, "3002", "Second", customerdomain.AccountTypeWholesale)

	if err := svc.AddAlias(context.Background(), "3001", "shared-ref"); err != nil {
		t.Fatalf("first alias: %v", err)
	}
	err := svc.AddAlias(context.Background(), "3002", "shared-ref")
	if !errors.Is(err, customerdomain.ErrAliasTaken) {
		t.Fatalf("expected ErrAliasTaken, got %v", err)
	}

	// Re-adding the existing mapping stays a no-op.
	if err := svc.AddAlias(context.Background(), "3001", "shared-ref"); err != nil {
		t.Fatalf("re-add alias: %v", err)
	}
}

func TestAddAliasRejectsCanonicalIDOfAnotherCustomer(t *testing.T) {
	db := setupCustomerTestDB(t)
	svc := newCustomerService(db)
	insertCustomer(t, db, "4001", "First", customerdomain.AccountTypeWholesale)
	insertCustomer(t, db, "4002", "Second", customerdomain.AccountTypeWholesale)

	err := svc.AddAlias(context.Background(), "4001", "4002")
	if !errors.Is(err, customerdomain.ErrAliasTaken) {
		t.Fatalf("expected ErrAliasTaken, got %v", err)
	}
}

func TestUpsertRollsFirstOrderDateBackward(t *testing.T) {
	db := setupCustomerTestDB(t)
	svc := newCustomerService(db)

	later := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)

	if _, err := svc.Upsert(context.Background(), customerdomain.UpsertRequest{
		CustomerID: "5001",
		Name:       "Gamma",
		OrderDate:  &later,
	}); err != nil {
		t.Fatalf("upsert create: %v", err)
	}
	if _, err := svc.Upsert(context.Background(), customerdomain.UpsertRequest{
		CustomerID: "5001",
		OrderDate:  &earlier,
	}); err != nil {
		t.Fatalf("upsert update: %v", err)
	}

	customer, err := svc.Get(context.Background(), "5001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if customer.FirstOrderDate == nil || !customer.FirstOrderDate.Equal(earlier) {
		t.Fatalf("expected first order date %v, got %v", earlier, customer.FirstOrderDate)
	}
}

func TestRecomputeTotalSales(t *testing.T) {
	db := setupCustomerTestDB(t)
	svc := newCustomerService(db)
	insertCustomer(t, db, "6001", "Delta", customerdomain.AccountTypeWholesale)

	items := []orderdomain.LineItem{
		{ID: 1, SONumber: "SO-1", SalesOrderID: "100", SOItemID: "1", NormalizedItemID: "1", CustomerID: "6001", TotalPrice: decimal.NewFromInt(150)},
		{ID: 2, SONumber: "SO-2", SalesOrderID: "101", SOItemID: "2", NormalizedItemID: "2", CustomerID: "6001", TotalPrice: decimal.NewFromInt(250)},
	}
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("insert line item: %v", err)
		}
	}

	if err := svc.RecomputeTotalSales(context.Background(), []string{"6001"}); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	customer, err := svc.Get(context.Background(), "6001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !customer.TotalSales.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected total sales 400, got %s", customer.TotalSales)
	}
}

func TestArchiveEvictsCachedResolutions(t *testing.T) {
	db := setupCustomerTestDB(t)
	svc := newCustomerService(db)
	insertCustomer(t, db, "7001", "Echo", customerdomain.AccountTypeWholesale)

	if _, err := svc.Resolve(context.Background(), "7001"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, ok := svc.resolved.Get("7001"); !ok {
		t.Fatalf("resolution should be cached")
	}

	if err := svc.Archive(context.Background(), "7001", true); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, ok := svc.resolved.Get("7001"); ok {
		t.Fatalf("archive must evict cached resolutions for the customer")
	}
}
