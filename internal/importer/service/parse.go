package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/importer/domain"
)

// Canonical column names for an ERP line item export.
const (
	colSONumber     = "Sales order Number"
	colSalesOrderID = "Sales Order ID"
	colAccountID    = "Account ID"
	colCustomerName = "Customer Name"
	colSalesRep     = "Sales Rep"
	colIssuedDate   = "Issued date"
	colSOItemID     = "SO Item ID"
	colProductNum   = "SO Item Product Number"
	colProductDesc  = "Product Description"
	colQty          = "Qty fulfilled"
	colUnitPrice    = "Unit price"
	colTotalPrice   = "Total Price"
)

// headerAliases maps each canonical column to the spellings seen in
// exports from different ERP report templates.
var headerAliases = map[string][]string{
	colSONumber:     {"SO Number", "Order Number", "Order #"},
	colSalesOrderID: {"SO ID", "SalesOrderID"},
	colAccountID:    {"Customer id", "Account id", "CustomerId", "accountNumber"},
	colCustomerName: {"Customer", "Billing Name", "Bill to name"},
	colSalesRep:     {"Sales person", "Salesperson", "SalesRep", "Rep"},
	colIssuedDate:   {"Posting Date", "Issue Date", "Order Date", "Date"},
	colSOItemID:     {"Sales Order Product ID", "Line Item ID", "SOItemID", "ItemID"},
	colProductNum:   {"Product", "Product ID", "SKU", "Part Number"},
	colProductDesc:  {"Product desc", "Description", "Item Description"},
	colQty:          {"Quantity", "Qty", "Quantity Fulfilled", "Fulfilled Quantity"},
	colUnitPrice:    {"Unit Price", "UnitPrice", "Price"},
	colTotalPrice:   {"Revenue", "Order value", "Total", "Line Total", "Amount"},
}

var requiredColumns = []string{
	colSONumber, colSalesOrderID, colAccountID, colCustomerName,
	colSalesRep, colIssuedDate, colSOItemID, colProductNum, colTotalPrice,
}

// normalizeHeader strips everything but letters and digits and lowers
// the rest, so "SO Number", "so_number" and "SO-Number" compare equal.
func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range h {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// mapHeaders resolves a file's header row onto canonical column
// indexes. Missing required columns are reported together.
func mapHeaders(headers []string) (map[string]int, error) {
	lookup := make(map[string]string, len(headerAliases)*4)
	for canonical, aliases := range headerAliases {
		lookup[normalizeHeader(canonical)] = canonical
		for _, alias := range aliases {
			lookup[normalizeHeader(alias)] = canonical
		}
	}

	indexes := make(map[string]int, len(headers))
	for i, h := range headers {
		canonical, ok := lookup[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, taken := indexes[canonical]; !taken {
			indexes[canonical] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := indexes[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingColumns, strings.Join(missing, ", "))
	}
	return indexes, nil
}

// readRows returns the header row and data rows of a CSV or XLSX file.
func readRows(filename string, r io.Reader) ([]string, [][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", "":
		return readCSV(r)
	case ".xlsx", ".xlsm":
		return readXLSX(r)
	default:
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, domain.ErrEmptyFile
	}
	return records[0], records[1:], nil
}

func readXLSX(r io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, domain.ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, domain.ErrEmptyFile
	}
	return rows[0], rows[1:], nil
}

// cell returns the row's value for a mapped column, or "" when the row
// is shorter than the header.
func cell(row []string, indexes map[string]int, col string) string {
	i, ok := indexes[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseMoney reads a currency cell, tolerating "$1,234.56" style
// formatting. Empty and unparseable cells read as zero.
func parseMoney(raw string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, raw)
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var dateLayouts = []string{
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1-2-2006 15:04:05",
	"1-2-2006 15:04",
	"1/2/2006",
	"1-2-2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"January 2006",
}

// parseDate reads a posting date cell. Exports mix US-ordered dates
// with and without timestamps, ISO dates, and raw Excel serial
// numbers. Years outside 2000..2100 are treated as parse failures.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 1000 {
		t := excelSerialDate(serial)
		if plausibleYear(t) {
			return t, nil
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil && plausibleYear(t) {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// excelSerialDate converts days-since-1900 serials, using the Dec 30
// 1899 epoch that absorbs Excel's leap year bug.
func excelSerialDate(serial float64) time.Time {
	epoch := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
	return epoch.Add(time.Duration(serial * float64(24*time.Hour)))
}

func plausibleYear(t time.Time) bool {
	return t.Year() >= 2000 && t.Year() <= 2100
}

// parseRow maps one data row onto a domain Row, sanitizing identifiers
// and deriving a missing line total from quantity and unit price.
func parseRow(line int, row []string, indexes map[string]int) (*domain.Row, error) {
	soNumber := customerdomain.SanitizeRef(cell(row, indexes, colSONumber))
	salesOrderID := customerdomain.SanitizeRef(cell(row, indexes, colSalesOrderID))
	soItemID := cell(row, indexes, colSOItemID)
	if soNumber == "" || salesOrderID == "" {
		return nil, fmt.Errorf("row %d: missing order identifiers", line)
	}
	if customerdomain.SanitizeRef(soItemID) == "" {
		return nil, fmt.Errorf("row %d: missing SO item id", line)
	}

	parsed := &domain.Row{
		Line:         line,
		SONumber:     soNumber,
		SalesOrderID: salesOrderID,
		CustomerRef:  customerdomain.SanitizeRef(cell(row, indexes, colAccountID)),
		CustomerName: cell(row, indexes, colCustomerName),
		SalesRep:     cell(row, indexes, colSalesRep),
		SOItemID:     soItemID,
		ProductNum:   cell(row, indexes, colProductNum),
		ProductName:  cell(row, indexes, colProductDesc),
		UnitPrice:    parseMoney(cell(row, indexes, colUnitPrice)),
		TotalPrice:   parseMoney(cell(row, indexes, colTotalPrice)),
	}

	// Exports without a fulfilled quantity column ship one unit rows.
	if qtyRaw := cell(row, indexes, colQty); qtyRaw != "" {
		parsed.Quantity = parseMoney(qtyRaw)
	}
	if parsed.Quantity.IsZero() {
		parsed.Quantity = decimal.NewFromInt(1)
	}
	if parsed.TotalPrice.IsZero() && parsed.UnitPrice.IsPositive() {
		parsed.TotalPrice = parsed.Quantity.Mul(parsed.UnitPrice).Round(2)
	}

	if raw := cell(row, indexes, colIssuedDate); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %v", line, err)
		}
		parsed.IssuedDate = &t
	}
	return parsed, nil
}
