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

	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	ratedomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/rate/domain"
)

func newRateService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&ratedomain.RateRule{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return &Service{db: db, log: zap.NewNop(), genID: node}
}

func TestDeriveStatusSixMonthBoundary(t *testing.T) {
	firstOrder := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		orderDate time.Time
		want      ratedomain.CustomerStatus
	}{
		{"day before boundary", time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), ratedomain.StatusNewBusiness},
		{"exactly six months", time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC), ratedomain.StatusEstablished},
		{"well past boundary", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), ratedomain.StatusEstablished},
		{"same day as first order", firstOrder, ratedomain.StatusNewBusiness},
	}
	for _, tc := range cases {
		if got := ratedomain.DeriveStatus(firstOrder, tc.orderDate); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}

	if got := ratedomain.DeriveStatus(time.Time{}, firstOrder); got != ratedomain.StatusNewBusiness {
		t.Fatalf("missing first order date must default to new business, got %s", got)
	}
}

func TestSnapshotLookupFailsLoudlyOnMiss(t *testing.T) {
	snap := ratedomain.NewSnapshot([]ratedomain.RateRule{
		{
			Title:      ratedomain.DefaultTitle,
			Segment:    customerdomain.AccountTypeWholesale,
			Status:     ratedomain.StatusNewBusiness,
			Percentage: decimal.NewFromInt(3),
			Active:     true,
		},
		{
			Title:      ratedomain.DefaultTitle,
			Segment:    customerdomain.AccountTypeDistributor,
			Status:     ratedomain.StatusNewBusiness,
			Percentage: decimal.NewFromInt(5),
			Active:     false,
		},
	})
	if snap.Len() != 1 {
		t.Fatalf("inactive rules must be excluded, len=%d", snap.Len())
	}

	rate, err := snap.Lookup(ratedomain.DefaultTitle, customerdomain.AccountTypeWholesale, ratedomain.StatusNewBusiness)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected 3, got %s", rate)
	}

	_, err = snap.Lookup(ratedomain.DefaultTitle, customerdomain.AccountTypeDistributor, ratedomain.StatusNewBusiness)
	if !errors.Is(err, ratedomain.ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound for inactive rule, got %v", err)
	}
}

func TestUpsertRuleValidation(t *testing.T) {
	svc := newRateService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  ratedomain.UpsertRuleRequest
		want error
	}{
		{
			"blank title",
			ratedomain.UpsertRuleRequest{Segment: customerdomain.AccountTypeWholesale, Status: ratedomain.StatusNewBusiness, Percentage: decimal.NewFromInt(3)},
			ratedomain.ErrInvalidRate,
		},
		{
			"retail segment has no commission",
			ratedomain.UpsertRuleRequest{Title: ratedomain.DefaultTitle, Segment: customerdomain.AccountTypeRetail, Status: ratedomain.StatusNewBusiness, Percentage: decimal.NewFromInt(3)},
			ratedomain.ErrInvalidSegment,
		},
		{
			"unknown status",
			ratedomain.UpsertRuleRequest{Title: ratedomain.DefaultTitle, Segment: customerdomain.AccountTypeWholesale, Status: "tbd", Percentage: decimal.NewFromInt(3)},
			ratedomain.ErrInvalidStatus,
		},
		{
			"percentage over 100",
			ratedomain.UpsertRuleRequest{Title: ratedomain.DefaultTitle, Segment: customerdomain.AccountTypeWholesale, Status: ratedomain.StatusNewBusiness, Percentage: decimal.NewFromInt(101)},
			ratedomain.ErrInvalidRate,
		},
	}
	for _, tc := range cases {
		if _, err := svc.UpsertRule(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestUpsertRuleCreateThenUpdateKeepsOneRow(t *testing.T) {
	svc := newRateService(t)
	ctx := context.Background()

	created, err := svc.UpsertRule(ctx, ratedomain.UpsertRuleRequest{
		Title:      ratedomain.DefaultTitle,
		Segment:    customerdomain.AccountTypeWholesale,
		Status:     ratedomain.StatusEstablished,
		Percentage: decimal.NewFromInt(2),
		Active:     true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.UpsertRule(ctx, ratedomain.UpsertRuleRequest{
		Title:      ratedomain.DefaultTitle,
		Segment:    customerdomain.AccountTypeWholesale,
		Status:     ratedomain.StatusEstablished,
		Percentage: decimal.NewFromFloat(2.5),
		Active:     true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("update must reuse the existing rule, got new id %d", updated.ID)
	}

	rules, err := svc.ListRules(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	if !rules[0].Percentage.Equal(decimal.NewFromFloat(2.5)) {
		t.Fatalf("expected 2.5, got %s", rules[0].Percentage)
	}
}
