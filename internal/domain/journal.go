package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryStatus string

const (
	EntryStatusDraft     EntryStatus = "draft"
	EntryStatusPosted    EntryStatus = "posted"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// JournalEntry is a double-entry accounting record. Lines are immutable once
// the entry is posted; the only way to undo a posted entry is a reversal.
type JournalEntry struct {
	ID          uuid.UUID
	SchoolID    uuid.UUID
	EntryNumber string
	Date        time.Time
	Reference   string
	Description string
	Status      EntryStatus
	InvoiceID   *uuid.UUID
	PaymentID   *uuid.UUID
	ReversalOf  *uuid.UUID
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	PostedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Lines       []JournalLine
}

type JournalLine struct {
	ID          uuid.UUID
	EntryID     uuid.UUID
	AccountID   uuid.UUID
	LineNumber  int
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	StudentID   *uuid.UUID
	CreatedAt   time.Time
}

// Balanced reports exact equality of total debits and credits. No tolerance:
// amounts are fixed-precision decimals and must match to the cent.
func (e *JournalEntry) Balanced() bool {
	return e.TotalDebit.Equal(e.TotalCredit)
}

// ComputeTotals recalculates TotalDebit/TotalCredit from the lines.
func (e *JournalEntry) ComputeTotals() {
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	e.TotalDebit = debit
	e.TotalCredit = credit
}

// Validate checks line shape: at least one line, and per line exactly one of
// debit/credit set, both non-negative.
func (e *JournalEntry) Validate() error {
	if len(e.Lines) == 0 {
		return ErrEmptyEntry
	}
	for _, l := range e.Lines {
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return ErrMalformedLine
		}
		if l.Debit.IsPositive() == l.Credit.IsPositive() {
			return ErrMalformedLine
		}
	}
	return nil
}
