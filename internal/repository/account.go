package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/schoolfin/backend/internal/domain"
)

const accountColumns = `id, school_id, code, name, account_type, parent_id,
	is_active, is_system, allow_manual_entries,
	opening_balance, opening_balance_side, balance, version,
	description, created_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, tx *sql.Tx, a *domain.Account) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (
			id, school_id, code, name, account_type, parent_id,
			is_active, is_system, allow_manual_entries,
			opening_balance, opening_balance_side, balance, version,
			description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		a.ID, a.SchoolID, a.Code, a.Name, a.Type, a.ParentID,
		a.IsActive, a.IsSystem, a.AllowManualEntries,
		a.OpeningBalance, a.OpeningBalanceSide, a.Balance, a.Version,
		a.Description, a.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateCode)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByCode(ctx context.Context, schoolID uuid.UUID, code string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE school_id = $1 AND code = $2`,
		schoolID, code,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByCode: %s: %w", code, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByCode: %w", err)
	}
	return a, nil
}

// GetForUpdate locks the account row for the duration of the transaction.
// Callers lock multiple accounts in code order to avoid deadlocks.
func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) List(ctx context.Context, schoolID uuid.UUID) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE school_id = $1 ORDER BY code`, schoolID,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return accounts, nil
}

// UpdateBalance writes the new running balance guarded by the optimistic
// version; a concurrent update of the same row surfaces as ErrVersionConflict.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, balance decimal.Decimal, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, version = $2 WHERE id = $3 AND version = $4`,
		balance, newVersion, id, newVersion-1,
	)
	if err != nil {
		return fmt.Errorf("UpdateBalance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateBalance: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateBalance: %w", domain.ErrVersionConflict)
	}
	return nil
}

func (r *AccountRepository) SetActive(ctx context.Context, tx *sql.Tx, id uuid.UUID, active bool) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET is_active = $1 WHERE id = $2`, active, id,
	)
	if err != nil {
		return fmt.Errorf("SetActive: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetActive: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("SetActive: %w", domain.ErrNotFound)
	}
	return nil
}

// Delete removes an account row. Rows still referenced elsewhere (journal
// lines, child accounts) fail the foreign key and map to ErrInvalidState.
func (r *AccountRepository) Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return fmt.Errorf("Delete: %w", domain.ErrInvalidState)
		}
		return fmt.Errorf("Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// PostedSums sums journal lines of every entry that has ever been posted
// against the account, optionally up to an inclusive date. Entries keep
// their posted_at through cancellation, so a reversed original and its
// reversal both stay in the sum and net to zero. Sign convention is applied
// by the caller.
func (r *AccountRepository) PostedSums(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (debit, credit decimal.Decimal, err error) {
	query := `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE l.account_id = $1 AND e.posted_at IS NOT NULL`
	args := []any{accountID}
	if asOf != nil {
		query += ` AND e.date <= $2`
		args = append(args, *asOf)
	}

	err = r.db.QueryRowContext(ctx, query, args...).Scan(&debit, &credit)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("PostedSums: %w", err)
	}
	return debit, credit, nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(
		&a.ID, &a.SchoolID, &a.Code, &a.Name, &a.Type, &a.ParentID,
		&a.IsActive, &a.IsSystem, &a.AllowManualEntries,
		&a.OpeningBalance, &a.OpeningBalanceSide, &a.Balance, &a.Version,
		&a.Description, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
