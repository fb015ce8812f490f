// Package domain defines the bulk line item import contract.
package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
)

var (
	ErrEmptyFile         = errors.New("empty_import_file")
	ErrUnsupportedFormat = errors.New("unsupported_import_format")
	ErrMissingColumns    = errors.New("missing_required_columns")
)

// Row is one parsed line from an ERP export after header mapping and
// identifier sanitization.
type Row struct {
	// Line number in the source file, for error reporting.
	Line int

	SONumber     string
	SalesOrderID string
	CustomerRef  string
	CustomerName string
	SalesRep     string
	IssuedDate   *time.Time

	SOItemID    string
	ProductNum  string
	ProductName string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// ImportRequest carries one uploaded export file.
type ImportRequest struct {
	Filename string
	File     io.Reader
	Actor    string

	// DryRun parses and validates without writing.
	DryRun bool
}

// ImportStats reports one completed import.
type ImportStats struct {
	RowsRead          int `json:"rows_read"`
	OrdersCreated     int `json:"orders_created"`
	OrdersUpdated     int `json:"orders_updated"`
	ItemsCreated      int `json:"items_created"`
	ItemsUpdated      int `json:"items_updated"`
	CustomersUpserted int `json:"customers_upserted"`
	SkippedRows       int `json:"skipped_rows"`
	Unresolved        int `json:"unresolved_customers"`

	// Months lists every commission month the file touched, so callers
	// know which partitions to recalculate.
	Months []month.Month `json:"months"`

	// Errors holds the first bounded batch of row failures; SkippedRows
	// keeps counting past the bound.
	Errors []string `json:"errors,omitempty"`
}

// Service ingests ERP line item exports.
type Service interface {
	// ImportLineItems parses a CSV or XLSX export and upserts
	// customers, orders and line items in bounded ordered batches.
	// Malformed rows are skipped and reported, never fatal; manual
	// customer corrections on existing orders are preserved.
	ImportLineItems(ctx context.Context, req ImportRequest) (*ImportStats, error)
}
