package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound           = errors.New("customer_not_found")
	ErrInvalidCustomerRef = errors.New("invalid_customer_ref")
	ErrInvalidAccountType = errors.New("invalid_account_type")
	ErrAliasTaken         = errors.New("alias_belongs_to_another_customer")
)

// UpsertRequest carries the fields an import knows about a customer.
type UpsertRequest struct {
	CustomerID  string
	Name        string
	AccountType AccountType
	OrderDate   *time.Time
	OrderTotal  decimal.Decimal
}

// ListRequest narrows customer listings.
type ListRequest struct {
	Name            string
	AccountType     AccountType
	IncludeArchived bool
	Limit           int
}

// Service resolves raw customer references and maintains alias sets.
type Service interface {
	// Resolve maps a raw reference from an imported order onto a
	// canonical customer. It strips known corruption (embedded
	// thousands-separator commas, surrounding whitespace) before
	// lookup, checks canonical ids first and aliases second, and
	// returns ErrNotFound rather than guessing.
	Resolve(ctx context.Context, rawRef string) (*Customer, error)

	Get(ctx context.Context, customerID string) (*Customer, error)
	List(ctx context.Context, req ListRequest) ([]*Customer, error)

	// Upsert creates or refreshes a customer during import, rolling
	// first-order date and cached total sales forward.
	Upsert(ctx context.Context, req UpsertRequest) (*Customer, error)

	// AddAlias permanently maps alias onto customerID so future
	// imports auto-resolve. Appending an alias another customer
	// already owns fails with ErrAliasTaken; re-adding an existing
	// mapping is a no-op.
	AddAlias(ctx context.Context, customerID, alias string) error

	Archive(ctx context.Context, customerID string, archived bool) error

	// RecomputeTotalSales refreshes the cached total_sales figure for
	// the given customers from their imported line items.
	RecomputeTotalSales(ctx context.Context, customerIDs []string) error
}

// SanitizeRef strips the corruption patterns observed in ERP exports:
// embedded thousands-separator commas and surrounding whitespace.
func SanitizeRef(raw string) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case ',', ' ', '\t', '\n', '\r':
		default:
			out = append(out, raw[i])
		}
	}
	return string(out)
}
