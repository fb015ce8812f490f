package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
)

var (
	ErrOrderNotFound = errors.New("order_not_found")
	ErrInvalidOrder  = errors.New("invalid_order")
)

// DedupStats reports one comma-duplicate sweep.
type DedupStats struct {
	LineItemsScanned int             `json:"line_items_scanned"`
	DuplicateGroups  int             `json:"duplicate_groups"`
	Deleted          int             `json:"deleted"`
	DuplicateRevenue decimal.Decimal `json:"duplicate_revenue"`
	DryRun           bool            `json:"dry_run"`
}

// BackfillStats reports one derived-total repair pass.
type BackfillStats struct {
	LineItemsScanned int `json:"line_items_scanned"`
	TotalsDerived    int `json:"totals_derived"`
	SalesPersonFixed int `json:"sales_person_fixed"`
}

// CorrectCustomerRequest rewrites an order's customer linkage.
type CorrectCustomerRequest struct {
	SONumber      string
	NewCustomerID string
	// NewAccountType overrides the customer's segment for this order
	// when set.
	NewAccountType customerdomain.AccountType
	// RememberCorrection adds the order's previous reference as a
	// permanent alias on the new customer.
	RememberCorrection bool
	Reason             string
	CorrectedBy        string
}

// CorrectCustomerResult reports what a correction touched.
type CorrectCustomerResult struct {
	SONumber         string                     `json:"so_number"`
	OldCustomerID    string                     `json:"old_customer_id"`
	NewCustomerID    string                     `json:"new_customer_id"`
	NewCustomerName  string                     `json:"new_customer_name"`
	AccountType      customerdomain.AccountType `json:"account_type"`
	LineItemsUpdated int                        `json:"line_items_updated"`
	AliasAdded       bool                       `json:"alias_added"`
}

// ListRequest narrows order listings.
type ListRequest struct {
	Month       month.Month
	SalesPerson string
	// UnresolvedOnly filters to orders awaiting customer correction.
	UnresolvedOnly bool
	Limit          int
}

// Service owns imported orders and line items.
type Service interface {
	Get(ctx context.Context, soNumber string) (*SalesOrder, error)
	List(ctx context.Context, req ListRequest) ([]*SalesOrder, error)
	LineItems(ctx context.Context, soNumber string) ([]*LineItem, error)

	// OrderRevenue sums line item totals for one order. Totals are
	// derived from quantity and unit price when stored as zero;
	// exclusion is a ledger concern, not applied here.
	OrderRevenue(ctx context.Context, soNumber string) (decimal.Decimal, error)

	// DedupLineItems removes comma-formatted duplicates within a
	// month, keeping the uncorrupted record of each group.
	DedupLineItems(ctx context.Context, m month.Month, dryRun bool) (*DedupStats, error)

	// BackfillTotals repairs zero totals and missing line item
	// salespersons for a month.
	BackfillTotals(ctx context.Context, m month.Month) (*BackfillStats, error)

	// CorrectCustomer transactionally rewrites the order, its line
	// items, the optional alias memorization and one audit record.
	CorrectCustomer(ctx context.Context, req CorrectCustomerRequest) (*CorrectCustomerResult, error)
}
