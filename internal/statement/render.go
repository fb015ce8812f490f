// Package statement renders per-rep monthly commission statements.
package statement

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	ledgerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/ledger/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
	summarydomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/summary/domain"
)

// RenderInput is the deterministic input for one statement.
type RenderInput struct {
	CompanyName string
	SalesPerson string
	Month       month.Month
	Summary     *summarydomain.MonthlySummary
	Entries     []*ledgerdomain.LedgerEntry
}

type Renderer interface {
	RenderHTML(input RenderInput) (string, error)
}

const statementHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Commission Statement {{.Month}}</title>
  <style>
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 32px;
      font-family: "Helvetica Neue", Arial, sans-serif;
      color: #111827;
      background: #ffffff;
    }
    .statement { max-width: 900px; margin: 0 auto; }
    .header {
      display: flex;
      justify-content: space-between;
      align-items: flex-start;
      border-bottom: 2px solid #111827;
      padding-bottom: 16px;
      margin-bottom: 24px;
    }
    .meta { text-align: right; font-size: 14px; }
    .meta .label {
      color: #6b7280;
      text-transform: uppercase;
      letter-spacing: 0.04em;
      font-size: 11px;
    }
    table { width: 100%; border-collapse: collapse; font-size: 13px; }
    th, td {
      padding: 8px 10px;
      border-bottom: 1px solid #e5e7eb;
      text-align: left;
    }
    th {
      text-transform: uppercase;
      font-size: 11px;
      letter-spacing: 0.04em;
      color: #6b7280;
    }
    td.num, th.num { text-align: right; }
    tr.excluded td { color: #9ca3af; text-decoration: line-through; }
    .totals {
      margin-top: 16px;
      display: flex;
      justify-content: flex-end;
      gap: 24px;
      font-size: 15px;
    }
    .footer {
      margin-top: 32px;
      border-top: 1px solid #e5e7eb;
      padding-top: 16px;
      font-size: 12px;
      color: #6b7280;
    }
  </style>
</head>
<body>
  <div class="statement">
    <div class="header">
      <div>
        <div><strong>{{.CompanyName}}</strong></div>
        <div>{{.SalesPerson}}</div>
      </div>
      <div class="meta">
        <div class="label">Commission Statement</div>
        <div><strong>{{.Month}}</strong></div>
      </div>
    </div>

    <table>
      <thead>
        <tr>
          <th>Order</th>
          <th>Customer</th>
          <th>Segment</th>
          <th class="num">Revenue</th>
          <th class="num">Rate</th>
          <th class="num">Commission</th>
          <th>Notes</th>
        </tr>
      </thead>
      <tbody>
        {{range .Entries}}
        <tr{{if .ExcludeFromCommission}} class="excluded"{{end}}>
          <td>{{.SONumber}}</td>
          <td>{{.CustomerName}}</td>
          <td>{{.AccountType}}</td>
          <td class="num">{{formatMoney .OrderRevenue}}</td>
          <td class="num">{{formatRate .CommissionRate}}</td>
          <td class="num">{{formatMoney .CommissionAmount}}</td>
          <td>{{entryNote .}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <div class="totals">
      <span>Revenue <strong>{{formatMoney .Summary.TotalRevenue}}</strong></span>
      <span>Commission <strong>{{formatMoney .Summary.TotalCommission}}</strong></span>
    </div>

    <div class="footer">
      <div>{{len .Entries}} orders. Excluded orders are shown struck through and do not count toward totals.</div>
    </div>
  </div>
</body>
</html>
`

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	funcs := template.FuncMap{
		"formatMoney": formatMoney,
		"formatRate":  formatRate,
		"entryNote":   entryNote,
	}
	return &HTMLRenderer{
		tpl: template.Must(template.New("statement").Funcs(funcs).Parse(statementHTMLTemplate)),
	}
}

func (r *HTMLRenderer) RenderHTML(input RenderInput) (string, error) {
	if input.CompanyName == "" {
		input.CompanyName = "Commission Statement"
	}
	if input.Summary == nil {
		input.Summary = &summarydomain.MonthlySummary{
			TotalRevenue:    decimal.Zero,
			TotalCommission: decimal.Zero,
		}
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, input); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatMoney(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

func formatRate(rate decimal.Decimal) string {
	return rate.StringFixed(2) + "%"
}

// entryNote summarizes manual state for the statement's notes column.
func entryNote(entry *ledgerdomain.LedgerEntry) string {
	var notes []string
	if entry.RateModified && entry.OriginalRate != nil {
		notes = append(notes, fmt.Sprintf("rate adjusted from %s%%", entry.OriginalRate.StringFixed(2)))
	}
	if entry.MonthMoved && entry.MovedFromMonth != nil {
		notes = append(notes, fmt.Sprintf("moved from %s", entry.MovedFromMonth))
	}
	if entry.ExcludeFromCommission {
		notes = append(notes, "excluded")
	}
	return strings.Join(notes, "; ")
}
