// Package reporting builds read-only views over the ledger and billing
// data: trial balance, account ledgers, invoice and payment listings.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolfin/backend/internal/domain"
	"github.com/schoolfin/backend/internal/repository"
	"github.com/schoolfin/backend/internal/service/ledger"
)

type Service struct {
	accounts *repository.AccountRepository
	invoices *repository.InvoiceRepository
	payments *repository.PaymentRepository
	ledger   *ledger.Service
}

func NewService(
	accounts *repository.AccountRepository,
	invoices *repository.InvoiceRepository,
	payments *repository.PaymentRepository,
	ledgerSvc *ledger.Service,
) *Service {
	return &Service{
		accounts: accounts,
		invoices: invoices,
		payments: payments,
		ledger:   ledgerSvc,
	}
}

// TrialBalanceRow carries one account's balance expressed on its natural
// side: debit-increasing accounts with positive balances land in the debit
// column, credit-increasing ones in the credit column. A negative balance
// flips the side.
type TrialBalanceRow struct {
	AccountID   uuid.UUID
	AccountCode string
	AccountName string
	AccountType domain.AccountType
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

type TrialBalance struct {
	SchoolID    uuid.UUID
	AsOf        *time.Time
	Rows        []TrialBalanceRow
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Balanced    bool
}

// BuildTrialBalance computes per-account balances as of the given date (nil
// means current) across a school's active accounts. A ledger where every
// entry was balanced at posting time yields TotalDebit == TotalCredit.
func (s *Service) BuildTrialBalance(ctx context.Context, schoolID uuid.UUID, asOf *time.Time) (*TrialBalance, error) {
	accounts, err := s.accounts.List(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("BuildTrialBalance: %w", err)
	}

	tb := &TrialBalance{
		SchoolID:    schoolID,
		AsOf:        asOf,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for i := range accounts {
		a := &accounts[i]
		if !a.IsActive {
			continue
		}
		balance, err := s.ledger.AccountBalance(ctx, a.ID, asOf)
		if err != nil {
			return nil, fmt.Errorf("BuildTrialBalance: account %s: %w", a.Code, err)
		}
		if balance.IsZero() {
			continue
		}

		row := TrialBalanceRow{
			AccountID:   a.ID,
			AccountCode: a.Code,
			AccountName: a.Name,
			AccountType: a.Type,
			Debit:       decimal.Zero,
			Credit:      decimal.Zero,
		}
		onDebitSide := a.Type.DebitIncreases() == balance.IsPositive()
		if onDebitSide {
			row.Debit = balance.Abs()
		} else {
			row.Credit = balance.Abs()
		}
		tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
		tb.Rows = append(tb.Rows, row)
	}
	tb.Balanced = tb.TotalDebit.Equal(tb.TotalCredit)
	return tb, nil
}

// AccountBalance reports one account's balance, optionally as of a date.
func (s *Service) AccountBalance(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (decimal.Decimal, error) {
	b, err := s.ledger.AccountBalance(ctx, accountID, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reporting.AccountBalance: %w", err)
	}
	return b, nil
}

// JournalReport lists a school's posted entries with their lines for a
// date range.
func (s *Service) JournalReport(ctx context.Context, schoolID uuid.UUID, from, to time.Time) ([]domain.JournalEntry, error) {
	entries, err := s.ledger.ListPostedEntries(ctx, schoolID, from, to)
	if err != nil {
		return nil, fmt.Errorf("JournalReport: %w", err)
	}
	return entries, nil
}

func (s *Service) ListInvoices(ctx context.Context, f repository.InvoiceFilter) ([]domain.Invoice, error) {
	invoices, err := s.invoices.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("ListInvoices: %w", err)
	}
	return invoices, nil
}

func (s *Service) ListPayments(ctx context.Context, f repository.PaymentFilter) ([]domain.Payment, error) {
	payments, err := s.payments.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("ListPayments: %w", err)
	}
	return payments, nil
}
