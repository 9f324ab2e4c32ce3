package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forecourt-hq/sentinel/internal/review"
)

// Defaults applied when a source column carries no value.
const (
	DefaultRegisterID = "REG-01"
	DefaultEmployee   = "Unknown"
	DefaultStoreID    = "STORE-01"
)

// RowIssue describes a normalization problem on a single row. Fatal issues
// cause the row to be skipped; the rest are surfaced alongside the result.
type RowIssue struct {
	Field  string
	Reason string
	Fatal  bool
}

func (i RowIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Reason)
}

// Alternate source-column names per canonical field, in priority order.
var (
	idColumns       = []string{"transaction_id", "TransactionID", "id"}
	dateColumns     = []string{"date", "Date", "transaction_date", "timestamp"}
	registerColumns = []string{"register_id", "RegisterID", "register"}
	employeeColumns = []string{"employee_name", "employee", "EmployeeName", "cashier", "cashier_name"}
	typeColumns     = []string{"transaction_type", "TransactionType", "type"}
	amountColumns   = []string{"amount", "Amount", "total", "net_amount", "gross_amount"}
	storeColumns    = []string{"store_id", "StoreID", "store"}
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006",
}

// Normalize maps one raw row from either dialect onto a canonical draft.
// The returned issues record every degraded or rejected field.
func Normalize(row RawRow) (review.TransactionDraft, []RowIssue) {
	var issues []RowIssue

	draft := review.TransactionDraft{
		ID:           resolve(row, idColumns, ""),
		RegisterID:   resolve(row, registerColumns, DefaultRegisterID),
		EmployeeName: resolve(row, employeeColumns, DefaultEmployee),
		Type:         resolve(row, typeColumns, ""),
		StoreID:      resolve(row, storeColumns, DefaultStoreID),
	}

	if draft.ID == "" {
		// Collision-resistant synthesized id; the legacy composite of
		// timestamp plus small random number could collide across
		// concurrent ingests.
		draft.ID = "TXN-" + uuid.NewString()
	}

	rawAmount := resolve(row, amountColumns, "")
	amount, ok := CleanAmount(rawAmount)
	draft.Amount = amount
	if !ok && rawAmount != "" {
		issues = append(issues, RowIssue{Field: "amount", Reason: fmt.Sprintf("unparsable value %q defaulted to 0", rawAmount)})
	}

	rawDate := resolve(row, dateColumns, "")
	if rawDate == "" {
		issues = append(issues, RowIssue{Field: "date", Reason: "missing", Fatal: true})
		return draft, issues
	}
	date, err := parseDate(rawDate)
	if err != nil {
		issues = append(issues, RowIssue{Field: "date", Reason: fmt.Sprintf("unparsable value %q", rawDate), Fatal: true})
		return draft, issues
	}
	draft.Date = date

	return draft, issues
}

// CleanAmount strips currency symbols and thousands separators before
// decimal parsing. Failure yields zero and false, never an error: bulk
// ingestion must not abort on a malformed cell.
func CleanAmount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return decimal.Zero, false
	}
	// Accounting-style negatives: (12.34)
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + strings.Trim(cleaned, "()")
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

func resolve(row RawRow, columns []string, fallback string) string {
	for _, name := range columns {
		if value, ok := row[name]; ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return fallback
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("ingest: unrecognised date %q", raw)
}
