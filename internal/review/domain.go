package review

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates the review lifecycle of a transaction.
type Status string

const (
	// StatusPending marks a flagged transaction awaiting review.
	StatusPending Status = "pending"
	// StatusApproved marks a transaction cleared for no further action.
	StatusApproved Status = "approved"
	// StatusInvestigate marks a transaction under active investigation.
	StatusInvestigate Status = "investigate"
	// StatusEscalate marks a transaction escalated beyond store level.
	StatusEscalate Status = "escalate"
)

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusApproved, StatusInvestigate, StatusEscalate:
		return Status(raw), nil
	}
	return "", ErrInvalidStatus
}

// Transaction is the canonical post-normalization POS transaction.
type Transaction struct {
	ID            string
	Date          time.Time
	RegisterID    string
	EmployeeName  string
	Type          string
	Amount        decimal.Decimal
	Status        Status
	IsFlagged     bool
	FlaggedReason string
	StoreID       string
	BatchID       string
	AIRiskScore   *float64
	AIRiskNote    string
	CreatedAt     time.Time
}

// TransactionDraft is a transaction before flagging assigns status.
type TransactionDraft struct {
	ID           string
	Date         time.Time
	RegisterID   string
	EmployeeName string
	Type         string
	Amount       decimal.Decimal
	StoreID      string
	BatchID      string
}

// Note is an immutable manager annotation on a transaction.
type Note struct {
	ID            int64
	TransactionID string
	Content       string
	Author        string
	CreatedAt     time.Time
}

// AuditEntry records one status transition. Entries are written only by the
// status-update path, never directly by callers.
type AuditEntry struct {
	ID             int64
	TransactionID  string
	Action         Status
	PreviousStatus Status
	Actor          string
	Detail         string
	CreatedAt      time.Time
}

// Clip is video-clip metadata linked to a transaction.
type Clip struct {
	ID            int64
	TransactionID string
	StoredName    string
	Filename      string
	Size          int64
	Duration      *float64
	UploadedBy    string
	CreatedAt     time.Time
}

// Detail bundles a transaction with its attachments for the detail view.
type Detail struct {
	Transaction Transaction
	Clip        *Clip
	Notes       []Note
}

// Filter narrows transaction listings.
type Filter struct {
	Search string
	Type   string
	Status Status
}

// Stats aggregates dashboard counters.
type Stats struct {
	Pending      int64
	FlaggedToday int64
	Approved     int64
	VideoClips   int64
}

var (
	// ErrInvalidStatus indicates an unknown review status value.
	ErrInvalidStatus = errors.New("review: invalid status")
)
