package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
)

var (
	ErrEntryNotFound   = errors.New("ledger_entry_not_found")
	ErrCommentRequired = errors.New("rate_comment_required")
	ErrInvalidRate     = errors.New("invalid_commission_rate")
	ErrSameMonthMove   = errors.New("move_to_same_month")
	ErrMonthConflict   = errors.New("commission_month_conflict")
)

// MonthConflictError rejects a move against stale UI state and carries
// the entry's actual month so the client can refresh.
type MonthConflictError struct {
	SONumber string
	Expected month.Month
	Actual   month.Month
}

func (e *MonthConflictError) Error() string {
	return fmt.Sprintf("order %s is not in month %s (current month: %s)", e.SONumber, e.Expected, e.Actual)
}

func (e *MonthConflictError) Unwrap() error { return ErrMonthConflict }

// RepStats aggregates one rep's share of a calculation pass.
type RepStats struct {
	SalesPerson string          `json:"sales_person"`
	Orders      int             `json:"orders"`
	Revenue     decimal.Decimal `json:"revenue"`
	Commission  decimal.Decimal `json:"commission"`
}

// CalculateStats reports one calculation pass. Per-order problems are
// counted and sampled rather than aborting the pass; commission data
// for the rest of the month must not be blocked by one bad row.
type CalculateStats struct {
	Month             month.Month     `json:"month"`
	TotalOrders       int             `json:"total_orders"`
	Calculated        int             `json:"calculated"`
	SkippedRetail     int             `json:"skipped_retail"`
	SkippedNoCustomer int             `json:"skipped_no_customer"`
	SkippedHouse      int             `json:"skipped_house"`
	SkippedEcommerce  int             `json:"skipped_ecommerce"`
	RateMisses        int             `json:"rate_misses"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalCommission   decimal.Decimal `json:"total_commission"`
	ByRep             []RepStats      `json:"by_rep"`

	// Errors holds the first bounded batch of per-order failures.
	Errors []string `json:"errors,omitempty"`
}

// AddError records a per-order failure up to the given bound; later
// failures are reflected in the counters only.
func (s *CalculateStats) AddError(limit int, msg string) {
	if len(s.Errors) < limit {
		s.Errors = append(s.Errors, msg)
	}
}

// MutationResult reports a point edit. Warning is set when the edit
// committed but the synchronous summary recalculation failed; the
// summary is stale until recalculated manually.
type MutationResult struct {
	Entry   *LedgerEntry `json:"entry"`
	Warning string       `json:"warning,omitempty"`
}

// ListRequest narrows ledger listings.
type ListRequest struct {
	Month       month.Month
	SalesPerson string
	Limit       int
}

// Service computes and maintains the commission ledger. Every point
// edit synchronously recalculates the summaries of the one or two
// affected (sales person, month) partitions.
type Service interface {
	// Calculate runs a full pass for a month: one rate table snapshot,
	// line items grouped by order, customers resolved, entries
	// upserted idempotently. Manual state on existing entries
	// (exclusion, rate override, month move) is preserved.
	Calculate(ctx context.Context, m month.Month) (*CalculateStats, error)

	Get(ctx context.Context, soNumber string) (*LedgerEntry, error)
	List(ctx context.Context, req ListRequest) ([]*LedgerEntry, error)

	// SetRate overrides the entry's rate. The comment is mandatory;
	// OriginalRate is recorded on the first edit only.
	SetRate(ctx context.Context, soNumber string, newRate decimal.Decimal, comment, actor string) (*MutationResult, error)

	// SetExclusion toggles the reversible exclusion flag.
	SetExclusion(ctx context.Context, soNumber string, exclude bool, actor string) (*MutationResult, error)

	// MoveMonth reassigns the entry to another commission month. The
	// caller's view of the current month must match or the move is
	// rejected with a MonthConflictError.
	MoveMonth(ctx context.Context, soNumber string, from, to month.Month, reason, actor string) (*MutationResult, error)
}
