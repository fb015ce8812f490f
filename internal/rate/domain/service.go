package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
)

var (
	ErrRateNotFound   = errors.New("commission_rate_not_found")
	ErrInvalidRate    = errors.New("invalid_commission_rate")
	ErrInvalidSegment = errors.New("invalid_rate_segment")
	ErrInvalidStatus  = errors.New("invalid_rate_status")
)

// Snapshot is one immutable view of the rate tables, loaded at the
// start of a calculation pass so every order in the pass sees the same
// configuration.
type Snapshot struct {
	rates map[string]decimal.Decimal
}

// NewSnapshot builds a snapshot from active rules.
func NewSnapshot(rules []RateRule) *Snapshot {
	rates := make(map[string]decimal.Decimal, len(rules))
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		rates[snapshotKey(rule.Title, rule.Segment, rule.Status)] = rule.Percentage
	}
	return &Snapshot{rates: rates}
}

// Lookup returns the configured percentage. Misses fail loudly so a
// calculation never produces an invisible zero-rate commission.
func (s *Snapshot) Lookup(title string, segment customerdomain.AccountType, status CustomerStatus) (decimal.Decimal, error) {
	rate, ok := s.rates[snapshotKey(title, segment, status)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s/%s/%s", ErrRateNotFound, title, segment, status)
	}
	return rate, nil
}

// Len reports how many active rules the snapshot holds.
func (s *Snapshot) Len() int { return len(s.rates) }

func snapshotKey(title string, segment customerdomain.AccountType, status CustomerStatus) string {
	return title + "|" + string(segment) + "|" + string(status)
}

// UpsertRuleRequest creates or updates one configured rate.
type UpsertRuleRequest struct {
	Title      string
	Segment    customerdomain.AccountType
	Status     CustomerStatus
	Percentage decimal.Decimal
	Active     bool
}

// Service owns the configurable rate tables.
type Service interface {
	// LoadSnapshot reads all active rules once; calculation passes
	// thread the snapshot through the call chain instead of re-reading
	// per row.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)

	ListRules(ctx context.Context) ([]*RateRule, error)
	UpsertRule(ctx context.Context, req UpsertRuleRequest) (*RateRule, error)
}
