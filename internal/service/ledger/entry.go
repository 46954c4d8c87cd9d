package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolfin/backend/internal/domain"
	"github.com/schoolfin/backend/internal/logging"
)

type LineInput struct {
	AccountID   uuid.UUID
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	StudentID   *uuid.UUID
}

type EntryParams struct {
	SchoolID    uuid.UUID
	Date        time.Time
	Reference   string
	Description string
	Lines       []LineInput
	InvoiceID   *uuid.UUID
	PaymentID   *uuid.UUID

	// System marks entries generated by settlement flows. They bypass the
	// allow_manual_entries restriction on control accounts.
	System bool
}

// CreateJournalEntry creates a draft entry. The balance invariant is not
// checked here; it guards the transition to posted.
func (s *Service) CreateJournalEntry(ctx context.Context, p EntryParams) (*domain.JournalEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateJournalEntry: %w", err)
	}
	defer tx.Rollback()

	e, err := s.CreateEntryTx(ctx, tx, p)
	if err != nil {
		return nil, fmt.Errorf("CreateJournalEntry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CreateJournalEntry: commit: %w", err)
	}

	logging.FromContext(ctx).Info("journal entry created",
		"entry_id", e.ID, "entry_number", e.EntryNumber, "lines", len(e.Lines))
	return e, nil
}

// CreateEntryTx creates a draft entry inside the caller's transaction, so
// settlement flows can create and post an entry atomically with their own
// records.
func (s *Service) CreateEntryTx(ctx context.Context, tx *sql.Tx, p EntryParams) (*domain.JournalEntry, error) {
	if p.Date.Before(s.fyStart) || p.Date.After(s.fyEnd) {
		return nil, fmt.Errorf("CreateEntryTx: date %s: %w", p.Date.Format("2006-01-02"), domain.ErrDateOutOfRange)
	}

	now := time.Now().UTC()
	e := &domain.JournalEntry{
		ID:          uuid.New(),
		SchoolID:    p.SchoolID,
		Date:        p.Date,
		Reference:   p.Reference,
		Description: p.Description,
		Status:      domain.EntryStatusDraft,
		InvoiceID:   p.InvoiceID,
		PaymentID:   p.PaymentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, in := range p.Lines {
		e.Lines = append(e.Lines, domain.JournalLine{
			ID:          uuid.New(),
			EntryID:     e.ID,
			AccountID:   in.AccountID,
			LineNumber:  i + 1,
			Description: in.Description,
			Debit:       in.Debit,
			Credit:      in.Credit,
			StudentID:   in.StudentID,
			CreatedAt:   now,
		})
	}

	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("CreateEntryTx: %w", err)
	}
	e.ComputeTotals()

	if err := s.checkLineAccounts(ctx, e, p.System); err != nil {
		return nil, fmt.Errorf("CreateEntryTx: %w", err)
	}

	number, err := s.nextEntryNumber(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("CreateEntryTx: %w", err)
	}
	e.EntryNumber = number

	if err := s.journal.CreateEntry(ctx, tx, e); err != nil {
		return nil, fmt.Errorf("CreateEntryTx: %w", err)
	}
	return e, nil
}

func (s *Service) checkLineAccounts(ctx context.Context, e *domain.JournalEntry, system bool) error {
	for _, l := range e.Lines {
		a, err := s.accounts.GetByID(ctx, l.AccountID)
		if err != nil {
			return fmt.Errorf("checkLineAccounts: line %d: %w", l.LineNumber, err)
		}
		if a.SchoolID != e.SchoolID {
			return fmt.Errorf("checkLineAccounts: line %d: account in another school: %w", l.LineNumber, domain.ErrNotFound)
		}
		if !a.IsActive {
			return fmt.Errorf("checkLineAccounts: line %d: account %s: %w", l.LineNumber, a.Code, domain.ErrAccountInactive)
		}
		if !system && !a.AllowManualEntries {
			return fmt.Errorf("checkLineAccounts: line %d: account %s: %w", l.LineNumber, a.Code, domain.ErrManualEntryNotAllowed)
		}
	}
	return nil
}

func (s *Service) nextEntryNumber(ctx context.Context, tx *sql.Tx) (string, error) {
	// Entry numbers are unique across schools, so the sequence scope is
	// keyed on the fiscal year alone.
	scope := fmt.Sprintf("journal:%d", s.fyStart.Year())
	n, err := s.seq.Next(ctx, tx, scope)
	if err != nil {
		return "", fmt.Errorf("nextEntryNumber: %w", err)
	}
	return fmt.Sprintf("JE%d%06d", s.fyStart.Year(), n), nil
}
