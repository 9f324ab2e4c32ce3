package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	InsertTransaction(ctx context.Context, t Transaction) error
	List(ctx context.Context, filter Filter) ([]Transaction, error)
	Get(ctx context.Context, id string) (Detail, error)
	InsertNote(ctx context.Context, note Note) (Note, error)
	Stats(ctx context.Context) (Stats, error)
	AuditTrail(ctx context.Context, transactionID string) ([]AuditEntry, error)
}

// Service coordinates transaction review operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Record persists a newly ingested transaction after the flag decision.
func (s *Service) Record(ctx context.Context, draft TransactionDraft) (Transaction, error) {
	if draft.ID == "" {
		return Transaction{}, errors.New("review: transaction id required")
	}
	t := Apply(draft)
	if err := s.repo.InsertTransaction(ctx, t); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// UpdateStatus moves a transaction to a new review status and writes exactly
// one audit entry carrying both the previous and the new status. The previous
// status is read under row lock in the same transaction as the write.
func (s *Service) UpdateStatus(ctx context.Context, id string, target Status, actor string) (AuditEntry, error) {
	if id == "" {
		return AuditEntry{}, errors.New("review: transaction id required")
	}
	if _, err := ParseStatus(string(target)); err != nil {
		return AuditEntry{}, err
	}
	if actor == "" {
		actor = "manager"
	}

	var entry AuditEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		previous, err := tx.GetStatusForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.SetStatus(ctx, id, target); err != nil {
			return err
		}
		entry = AuditEntry{
			TransactionID:  id,
			Action:         target,
			PreviousStatus: previous,
			Actor:          actor,
			Detail:         fmt.Sprintf("Status changed from %s to %s by %s", previous, target, actor),
		}
		return tx.InsertAuditEntry(ctx, entry)
	})
	if err != nil {
		return AuditEntry{}, err
	}
	return entry, nil
}

// AddNote appends an immutable note to a transaction.
func (s *Service) AddNote(ctx context.Context, transactionID, content, author string) (Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Note{}, errors.New("review: note content required")
	}
	if author == "" {
		author = "manager"
	}
	return s.repo.InsertNote(ctx, Note{TransactionID: transactionID, Content: content, Author: author})
}

// List returns the full matching transaction set.
func (s *Service) List(ctx context.Context, filter Filter) ([]Transaction, error) {
	return s.repo.List(ctx, filter)
}

// Get returns a transaction with its clip and notes.
func (s *Service) Get(ctx context.Context, id string) (Detail, error) {
	return s.repo.Get(ctx, id)
}

// Stats returns dashboard counters.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

// AuditTrail lists the status history of a transaction.
func (s *Service) AuditTrail(ctx context.Context, transactionID string) ([]AuditEntry, error) {
	return s.repo.AuditTrail(ctx, transactionID)
}
