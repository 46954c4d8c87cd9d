package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolfin/backend/internal/domain"
	"github.com/schoolfin/backend/internal/logging"
)

// PostEntry transitions a draft entry to posted and applies every line to its
// account's running balance, atomically. Posted lines are immutable from
// here on.
func (s *Service) PostEntry(ctx context.Context, entryID uuid.UUID) (*domain.JournalEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("PostEntry: %w", err)
	}
	defer tx.Rollback()

	e, err := s.PostEntryTx(ctx, tx, entryID)
	if err != nil {
		return nil, fmt.Errorf("PostEntry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("PostEntry: commit: %w", err)
	}

	logging.FromContext(ctx).Info("journal entry posted",
		"entry_id", e.ID, "entry_number", e.EntryNumber,
		"total_debit", e.TotalDebit, "total_credit", e.TotalCredit)
	return e, nil
}

// PostEntryTx is PostEntry inside the caller's transaction.
func (s *Service) PostEntryTx(ctx context.Context, tx *sql.Tx, entryID uuid.UUID) (*domain.JournalEntry, error) {
	e, err := s.journal.GetEntryForUpdate(ctx, tx, entryID)
	if err != nil {
		return nil, fmt.Errorf("PostEntryTx: %w", err)
	}
	if e.Status != domain.EntryStatusDraft {
		return nil, fmt.Errorf("PostEntryTx: entry %s is %s: %w", e.EntryNumber, e.Status, domain.ErrInvalidState)
	}

	e.ComputeTotals()
	if !e.Balanced() {
		return nil, fmt.Errorf("PostEntryTx: entry %s: debit %s credit %s: %w",
			e.EntryNumber, e.TotalDebit, e.TotalCredit, domain.ErrUnbalancedEntry)
	}

	if err := s.applyToAccounts(ctx, tx, e); err != nil {
		return nil, fmt.Errorf("PostEntryTx: %w", err)
	}

	now := time.Now().UTC()
	if err := s.journal.UpdateStatus(ctx, tx, e.ID, domain.EntryStatusPosted, &now); err != nil {
		return nil, fmt.Errorf("PostEntryTx: %w", err)
	}
	e.Status = domain.EntryStatusPosted
	e.PostedAt = &now

	if s.metrics != nil {
		s.metrics.EntriesPosted.Inc()
	}
	return e, nil
}

// applyToAccounts locks the touched accounts in a deterministic order and
// moves each running balance by the entry's net effect on it.
func (s *Service) applyToAccounts(ctx context.Context, tx *sql.Tx, e *domain.JournalEntry) error {
	type sums struct{ debit, credit decimal.Decimal }
	perAccount := map[uuid.UUID]*sums{}
	for _, l := range e.Lines {
		agg, ok := perAccount[l.AccountID]
		if !ok {
			agg = &sums{debit: decimal.Zero, credit: decimal.Zero}
			perAccount[l.AccountID] = agg
		}
		agg.debit = agg.debit.Add(l.Debit)
		agg.credit = agg.credit.Add(l.Credit)
	}

	ids := make([]uuid.UUID, 0, len(perAccount))
	for id := range perAccount {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		a, err := s.accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("applyToAccounts: %w", err)
		}
		agg := perAccount[id]
		delta := a.Type.BalanceDelta(agg.debit, agg.credit)
		if err := s.accounts.UpdateBalance(ctx, tx, id, a.Balance.Add(delta), a.Version+1); err != nil {
			return fmt.Errorf("applyToAccounts: account %s: %w", a.Code, err)
		}
	}
	return nil
}

// CancelEntry cancels an entry. Draft entries cancel directly with no side
// effects. Posted entries are offset by a reversal entry (lines swapped)
// created and posted atomically with the cancellation; the reversal is
// returned alongside the cancelled entry.
func (s *Service) CancelEntry(ctx context.Context, entryID uuid.UUID) (cancelled, reversal *domain.JournalEntry, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("CancelEntry: %w", err)
	}
	defer tx.Rollback()

	cancelled, reversal, err = s.CancelEntryTx(ctx, tx, entryID)
	if err != nil {
		return nil, nil, fmt.Errorf("CancelEntry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("CancelEntry: commit: %w", err)
	}

	log := logging.FromContext(ctx)
	if reversal != nil {
		log.Info("journal entry reversed",
			"entry_id", cancelled.ID, "reversal_id", reversal.ID, "reversal_number", reversal.EntryNumber)
	} else {
		log.Info("draft journal entry cancelled", "entry_id", cancelled.ID)
	}
	return cancelled, reversal, nil
}

// CancelEntryTx is CancelEntry inside the caller's transaction.
func (s *Service) CancelEntryTx(ctx context.Context, tx *sql.Tx, entryID uuid.UUID) (*domain.JournalEntry, *domain.JournalEntry, error) {
	e, err := s.journal.GetEntryForUpdate(ctx, tx, entryID)
	if err != nil {
		return nil, nil, fmt.Errorf("CancelEntryTx: %w", err)
	}

	switch e.Status {
	case domain.EntryStatusDraft:
		if err := s.journal.UpdateStatus(ctx, tx, e.ID, domain.EntryStatusCancelled, nil); err != nil {
			return nil, nil, fmt.Errorf("CancelEntryTx: %w", err)
		}
		e.Status = domain.EntryStatusCancelled
		if s.metrics != nil {
			s.metrics.EntriesCancelled.Inc()
		}
		return e, nil, nil

	case domain.EntryStatusPosted:
		reversal, err := s.reverseEntryTx(ctx, tx, e)
		if err != nil {
			return nil, nil, fmt.Errorf("CancelEntryTx: %w", err)
		}
		if err := s.journal.UpdateStatus(ctx, tx, e.ID, domain.EntryStatusCancelled, nil); err != nil {
			return nil, nil, fmt.Errorf("CancelEntryTx: %w", err)
		}
		e.Status = domain.EntryStatusCancelled
		if s.metrics != nil {
			s.metrics.EntriesCancelled.Inc()
		}
		return e, reversal, nil

	default:
		return nil, nil, fmt.Errorf("CancelEntryTx: entry %s already cancelled: %w", e.EntryNumber, domain.ErrInvalidState)
	}
}

func (s *Service) reverseEntryTx(ctx context.Context, tx *sql.Tx, original *domain.JournalEntry) (*domain.JournalEntry, error) {
	lines := make([]LineInput, 0, len(original.Lines))
	for _, l := range original.Lines {
		lines = append(lines, LineInput{
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Credit,
			Credit:      l.Debit,
			StudentID:   l.StudentID,
		})
	}

	reversal, err := s.CreateEntryTx(ctx, tx, EntryParams{
		SchoolID:    original.SchoolID,
		Date:        original.Date,
		Reference:   original.EntryNumber,
		Description: fmt.Sprintf("Reversal of %s", original.EntryNumber),
		Lines:       lines,
		InvoiceID:   original.InvoiceID,
		PaymentID:   original.PaymentID,
		System:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("reverseEntryTx: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE journal_entries SET reversal_of = $1 WHERE id = $2`, original.ID, reversal.ID)
	if err != nil {
		return nil, fmt.Errorf("reverseEntryTx: link reversal: %w", err)
	}

	posted, err := s.PostEntryTx(ctx, tx, reversal.ID)
	if err != nil {
		return nil, fmt.Errorf("reverseEntryTx: %w", err)
	}
	return posted, nil
}
