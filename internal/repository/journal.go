package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/schoolfin/backend/internal/domain"
)

const entryColumns = `id, school_id, entry_number, date, reference, description,
	status, invoice_id, payment_id, reversal_of, total_debit, total_credit,
	posted_at, created_at, updated_at`

const lineColumns = `id, entry_id, account_id, line_number, description,
	debit, credit, student_id, created_at`

type JournalRepository struct {
	db *sql.DB
}

func NewJournalRepository(db *sql.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

func (r *JournalRepository) CreateEntry(ctx context.Context, tx *sql.Tx, e *domain.JournalEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO journal_entries (
			id, school_id, entry_number, date, reference, description,
			status, invoice_id, payment_id, reversal_of, total_debit, total_credit,
			posted_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID, e.SchoolID, e.EntryNumber, e.Date, e.Reference, e.Description,
		e.Status, e.InvoiceID, e.PaymentID, e.ReversalOf, e.TotalDebit, e.TotalCredit,
		e.PostedAt, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("CreateEntry: %w", err)
	}

	for _, l := range e.Lines {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO journal_lines (
				id, entry_id, account_id, line_number, description,
				debit, credit, student_id, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			l.ID, l.EntryID, l.AccountID, l.LineNumber, l.Description,
			l.Debit, l.Credit, l.StudentID, l.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("CreateEntry: line %d: %w", l.LineNumber, err)
		}
	}
	return nil
}

func (r *JournalRepository) GetEntry(ctx context.Context, id uuid.UUID) (*domain.JournalEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM journal_entries WHERE id = $1`, id,
	)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetEntry: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetEntry: %w", err)
	}

	e.Lines, err = r.getLines(ctx, r.db.QueryContext, id)
	if err != nil {
		return nil, fmt.Errorf("GetEntry: %w", err)
	}
	return e, nil
}

// GetEntryForUpdate locks the entry row and loads its lines inside the
// caller's transaction.
func (r *JournalRepository) GetEntryForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.JournalEntry, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM journal_entries WHERE id = $1 FOR UPDATE`, id,
	)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetEntryForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetEntryForUpdate: %w", err)
	}

	e.Lines, err = r.getLines(ctx, tx.QueryContext, id)
	if err != nil {
		return nil, fmt.Errorf("GetEntryForUpdate: %w", err)
	}
	return e, nil
}

type queryFunc func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func (r *JournalRepository) getLines(ctx context.Context, query queryFunc, entryID uuid.UUID) ([]domain.JournalLine, error) {
	rows, err := query(ctx,
		`SELECT `+lineColumns+` FROM journal_lines WHERE entry_id = $1 ORDER BY line_number`, entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("getLines: %w", err)
	}
	defer rows.Close()

	var lines []domain.JournalLine
	for rows.Next() {
		var l domain.JournalLine
		err := rows.Scan(
			&l.ID, &l.EntryID, &l.AccountID, &l.LineNumber, &l.Description,
			&l.Debit, &l.Credit, &l.StudentID, &l.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("getLines: scan: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("getLines: rows: %w", err)
	}
	return lines, nil
}

func (r *JournalRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.EntryStatus, postedAt *time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE journal_entries SET status = $1, posted_at = COALESCE($2, posted_at), updated_at = $3
		 WHERE id = $4`,
		status, postedAt, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *JournalRepository) ListPosted(ctx context.Context, schoolID uuid.UUID, from, to time.Time) ([]domain.JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM journal_entries
		 WHERE school_id = $1 AND status = 'posted' AND date >= $2 AND date <= $3
		 ORDER BY date, entry_number`,
		schoolID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("ListPosted: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ListPosted: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListPosted: rows: %w", err)
	}

	for i := range entries {
		entries[i].Lines, err = r.getLines(ctx, r.db.QueryContext, entries[i].ID)
		if err != nil {
			return nil, fmt.Errorf("ListPosted: %w", err)
		}
	}
	return entries, nil
}

// GetPostedInvoiceEntry finds the posted entry that recognized an invoice's
// receivable, excluding payment entries linked to the same invoice.
func (r *JournalRepository) GetPostedInvoiceEntry(ctx context.Context, tx *sql.Tx, invoiceID uuid.UUID) (*domain.JournalEntry, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM journal_entries
		 WHERE invoice_id = $1 AND payment_id IS NULL AND status = 'posted'`, invoiceID,
	)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetPostedInvoiceEntry: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetPostedInvoiceEntry: %w", err)
	}
	return e, nil
}

// HasPostedLines reports whether any posted entry references the account.
func (r *JournalRepository) HasPostedLines(ctx context.Context, accountID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM journal_lines l
			JOIN journal_entries e ON e.id = l.entry_id
			WHERE l.account_id = $1 AND e.status = 'posted'
		)`, accountID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("HasPostedLines: %w", err)
	}
	return exists, nil
}

func scanEntry(s scanner) (*domain.JournalEntry, error) {
	var e domain.JournalEntry
	err := s.Scan(
		&e.ID, &e.SchoolID, &e.EntryNumber, &e.Date, &e.Reference, &e.Description,
		&e.Status, &e.InvoiceID, &e.PaymentID, &e.ReversalOf, &e.TotalDebit, &e.TotalCredit,
		&e.PostedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
