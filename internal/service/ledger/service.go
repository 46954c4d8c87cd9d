// Package ledger implements the double-entry core: chart of accounts,
// journal entries, posting and balance computation. It performs no
// authorization; callers go through the access gate first.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolfin/backend/internal/config"
	"github.com/schoolfin/backend/internal/domain"
	"github.com/schoolfin/backend/internal/logging"
	"github.com/schoolfin/backend/internal/metrics"
	"github.com/schoolfin/backend/internal/repository"
)

type Service struct {
	db       *repository.DB
	accounts *repository.AccountRepository
	journal  *repository.JournalRepository
	seq      *repository.SequenceRepository
	metrics  *metrics.Metrics

	fyStart time.Time
	fyEnd   time.Time
}

func NewService(
	db *repository.DB,
	accounts *repository.AccountRepository,
	journal *repository.JournalRepository,
	seq *repository.SequenceRepository,
	m *metrics.Metrics,
	cfg *config.Config,
) (*Service, error) {
	start, end, err := cfg.FiscalYear()
	if err != nil {
		return nil, fmt.Errorf("ledger.NewService: %w", err)
	}
	return &Service{
		db:       db,
		accounts: accounts,
		journal:  journal,
		seq:      seq,
		metrics:  m,
		fyStart:  start,
		fyEnd:    end,
	}, nil
}

type CreateAccountParams struct {
	SchoolID           uuid.UUID
	Code               string
	Name               string
	Type               domain.AccountType
	ParentID           *uuid.UUID
	OpeningBalance     decimal.Decimal
	OpeningBalanceSide domain.BalanceSide
	AllowManualEntries bool
	IsSystem           bool
	Description        string
}

func (s *Service) CreateAccount(ctx context.Context, p CreateAccountParams) (*domain.Account, error) {
	if p.Code == "" || p.Name == "" {
		return nil, fmt.Errorf("CreateAccount: empty code or name: %w", domain.ErrInvalidAccount)
	}
	if !p.Type.IsValid() {
		return nil, fmt.Errorf("CreateAccount: unknown account type %q: %w", p.Type, domain.ErrInvalidAccount)
	}
	if p.OpeningBalance.IsNegative() {
		return nil, fmt.Errorf("CreateAccount: negative opening balance: %w", domain.ErrInvalidAmount)
	}
	if p.OpeningBalanceSide == "" {
		p.OpeningBalanceSide = domain.BalanceSideDebit
	}

	if p.ParentID != nil {
		if err := s.checkHierarchy(ctx, p.SchoolID, *p.ParentID); err != nil {
			return nil, fmt.Errorf("CreateAccount: %w", err)
		}
	}

	now := time.Now().UTC()
	a := &domain.Account{
		ID:                 uuid.New(),
		SchoolID:           p.SchoolID,
		Code:               p.Code,
		Name:               p.Name,
		Type:               p.Type,
		ParentID:           p.ParentID,
		IsActive:           true,
		IsSystem:           p.IsSystem,
		AllowManualEntries: p.AllowManualEntries,
		OpeningBalance:     p.OpeningBalance,
		OpeningBalanceSide: p.OpeningBalanceSide,
		Description:        p.Description,
		CreatedAt:          now,
	}
	a.Balance = a.OpeningDelta()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}
	defer tx.Rollback()

	if err := s.accounts.Create(ctx, tx, a); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CreateAccount: commit: %w", err)
	}

	logging.FromContext(ctx).Info("account created",
		"account_id", a.ID, "code", a.Code, "type", a.Type)
	return a, nil
}

// checkHierarchy verifies the parent exists in the same school and that the
// parent chain is loop-free. New accounts have no children, so walking up
// from the parent is sufficient.
func (s *Service) checkHierarchy(ctx context.Context, schoolID, parentID uuid.UUID) error {
	seen := map[uuid.UUID]bool{}
	current := parentID
	for {
		if seen[current] {
			return fmt.Errorf("checkHierarchy: cycle through %s: %w", current, domain.ErrInvalidHierarchy)
		}
		seen[current] = true

		parent, err := s.accounts.GetByID(ctx, current)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("checkHierarchy: parent %s: %w", current, domain.ErrInvalidHierarchy)
			}
			return fmt.Errorf("checkHierarchy: %w", err)
		}
		if parent.SchoolID != schoolID {
			return fmt.Errorf("checkHierarchy: parent belongs to another school: %w", domain.ErrInvalidHierarchy)
		}
		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}
}

// DeactivateAccount soft-deactivates an account. Accounts referenced by
// posted entries can only be deactivated, never deleted.
func (s *Service) DeactivateAccount(ctx context.Context, accountID uuid.UUID) error {
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("DeactivateAccount: %w", err)
	}
	if a.IsSystem {
		return fmt.Errorf("DeactivateAccount: %w", domain.ErrSystemAccount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("DeactivateAccount: %w", err)
	}
	defer tx.Rollback()

	if err := s.accounts.SetActive(ctx, tx, accountID, false); err != nil {
		return fmt.Errorf("DeactivateAccount: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("DeactivateAccount: commit: %w", err)
	}

	logging.FromContext(ctx).Info("account deactivated", "account_id", accountID, "code", a.Code)
	return nil
}

// DeleteAccount removes an account that never took a posted line. Accounts
// referenced by posted entries must be deactivated instead.
func (s *Service) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	if a.IsSystem {
		return fmt.Errorf("DeleteAccount: %w", domain.ErrSystemAccount)
	}

	posted, err := s.journal.HasPostedLines(ctx, accountID)
	if err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	if posted {
		return fmt.Errorf("DeleteAccount: account %s has posted entries: %w", a.Code, domain.ErrInvalidState)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	defer tx.Rollback()

	if err := s.accounts.Delete(ctx, tx, accountID); err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("DeleteAccount: commit: %w", err)
	}

	logging.FromContext(ctx).Info("account deleted", "account_id", accountID, "code", a.Code)
	return nil
}

// AccountBalance recomputes the signed balance from posted lines up to asOf
// (inclusive), plus the opening balance, in the account type's sign
// convention. Pure read; the cached running balance is not consulted.
func (s *Service) AccountBalance(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (decimal.Decimal, error) {
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("AccountBalance: %w", err)
	}

	debit, credit, err := s.accounts.PostedSums(ctx, accountID, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("AccountBalance: %w", err)
	}

	return a.OpeningDelta().Add(a.Type.BalanceDelta(debit, credit)), nil
}

func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	return a, nil
}

func (s *Service) GetAccountByCode(ctx context.Context, schoolID uuid.UUID, code string) (*domain.Account, error) {
	a, err := s.accounts.GetByCode(ctx, schoolID, code)
	if err != nil {
		return nil, fmt.Errorf("GetAccountByCode: %w", err)
	}
	return a, nil
}

func (s *Service) GetEntry(ctx context.Context, entryID uuid.UUID) (*domain.JournalEntry, error) {
	e, err := s.journal.GetEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("GetEntry: %w", err)
	}
	return e, nil
}

// PostedEntryForInvoice returns the posted issue entry of an invoice, the one
// created at issue time rather than by a payment.
func (s *Service) PostedEntryForInvoice(ctx context.Context, tx *sql.Tx, invoiceID uuid.UUID) (*domain.JournalEntry, error) {
	e, err := s.journal.GetPostedInvoiceEntry(ctx, tx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("PostedEntryForInvoice: %w", err)
	}
	return e, nil
}

func (s *Service) ListPostedEntries(ctx context.Context, schoolID uuid.UUID, from, to time.Time) ([]domain.JournalEntry, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("ListPostedEntries: %w", domain.ErrInvalidDateRange)
	}
	entries, err := s.journal.ListPosted(ctx, schoolID, from, to)
	if err != nil {
		return nil, fmt.Errorf("ListPostedEntries: %w", err)
	}
	return entries, nil
}
