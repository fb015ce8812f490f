package domain

import (
	"context"
	"errors"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
)

var (
	ErrInvalidSalesPerson = errors.New("invalid_sales_person")
	ErrSummaryNotFound    = errors.New("summary_not_found")
)

// Service maintains the monthly summaries. Recalculation is always
// scoped to one (sales person, month) partition so a point edit stays
// sub-second regardless of total ledger size.
type Service interface {
	Recalculate(ctx context.Context, salesPerson string, m month.Month) (*MonthlySummary, error)
	Get(ctx context.Context, salesPerson string, m month.Month) (*MonthlySummary, error)
	ListForMonth(ctx context.Context, m month.Month) ([]*MonthlySummary, error)
}
