package events

// Commission pipeline event types for downstream consumers.
const (
	EventImportCompleted      = "import.completed"
	EventCalculationCompleted = "calculation.completed"
	EventRateOverridden       = "commission.rate_overridden"
	EventMonthMoved           = "commission.month_moved"
)

// ImportCompletedPayload captures the minimal data needed to react to
// a finished line item import.
type ImportCompletedPayload struct {
	Filename     string `json:"filename"`
	RowsRead     int    `json:"rows_read"`
	ItemsCreated int    `json:"items_created"`
	ItemsUpdated int    `json:"items_updated"`
	SkippedRows  int    `json:"skipped_rows"`
}

// ToMap converts the payload into an outbox-friendly map.
func (p ImportCompletedPayload) ToMap() map[string]any {
	return map[string]any{
		"filename":      p.Filename,
		"rows_read":     p.RowsRead,
		"items_created": p.ItemsCreated,
		"items_updated": p.ItemsUpdated,
		"skipped_rows":  p.SkippedRows,
	}
}

// CalculationCompletedPayload captures one finished calculation pass.
type CalculationCompletedPayload struct {
	Month           string `json:"month"`
	TotalOrders     int    `json:"total_orders"`
	Calculated      int    `json:"calculated"`
	RateMisses      int    `json:"rate_misses"`
	TotalCommission string `json:"total_commission"`
}

// ToMap converts the payload into an outbox-friendly map.
func (p CalculationCompletedPayload) ToMap() map[string]any {
	return map[string]any{
		"month":            p.Month,
		"total_orders":     p.TotalOrders,
		"calculated":       p.Calculated,
		"rate_misses":      p.RateMisses,
		"total_commission": p.TotalCommission,
	}
}
