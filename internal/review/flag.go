package review

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Reason strings are displayed to end users and kept verbatim from the
// legacy dashboard for compatibility.
const (
	ReasonHighValueRefund = "High value refund"
	ReasonHighValueVoid   = "High value void"
	ReasonNoSale          = "No sale transaction"
	ReasonSuspiciousType  = "Suspicious transaction type"
	ReasonHighValue       = "High value transaction"
)

var (
	refundThreshold    = decimal.NewFromInt(50)
	voidThreshold      = decimal.NewFromInt(100)
	highValueThreshold = decimal.NewFromInt(200)

	suspiciousTypes = []string{"refund", "void", "no sale", "cancellation", "manual discount"}
)

// Flag decides whether a transaction needs manager review. It is pure:
// the decision depends only on the transaction type and cleaned amount.
func Flag(txType string, amount decimal.Decimal) (bool, string) {
	t := strings.ToLower(strings.TrimSpace(txType))

	suspicious := false
	for _, s := range suspiciousTypes {
		if strings.Contains(t, s) {
			suspicious = true
			break
		}
	}

	if suspicious {
		switch {
		case strings.Contains(t, "refund") && amount.GreaterThan(refundThreshold):
			return true, ReasonHighValueRefund
		case strings.Contains(t, "void") && amount.GreaterThan(voidThreshold):
			return true, ReasonHighValueVoid
		case strings.Contains(t, "no sale"):
			return true, ReasonNoSale
		default:
			return true, ReasonSuspiciousType
		}
	}

	if amount.GreaterThan(highValueThreshold) {
		return true, ReasonHighValue
	}

	return false, ""
}

// Apply stamps the flag decision onto a draft, producing the initial record.
// Flagged transactions start pending; everything else starts approved.
func Apply(draft TransactionDraft) Transaction {
	flagged, reason := Flag(draft.Type, draft.Amount)
	status := StatusApproved
	if flagged {
		status = StatusPending
	}
	return Transaction{
		ID:            draft.ID,
		Date:          draft.Date,
		RegisterID:    draft.RegisterID,
		EmployeeName:  draft.EmployeeName,
		Type:          draft.Type,
		Amount:        draft.Amount,
		Status:        status,
		IsFlagged:     flagged,
		FlaggedReason: reason,
		StoreID:       draft.StoreID,
		BatchID:       draft.BatchID,
	}
}
