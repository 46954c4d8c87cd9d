package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolfin/backend/internal/domain"
	"github.com/schoolfin/backend/internal/logging"
	"github.com/schoolfin/backend/internal/service/ledger"
)

type RecordPaymentParams struct {
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	Method    domain.PaymentMethod
	Date      time.Time
	Reference string
}

// RecordPayment applies a payment against an issued invoice. Cash and card
// payments complete immediately and post to the ledger; cheque and bank
// transfer payments start out pending and only hit the books once confirmed.
func (s *Service) RecordPayment(ctx context.Context, p RecordPaymentParams) (*domain.Payment, error) {
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("RecordPayment: amount must be positive: %w", domain.ErrInvalidAmount)
	}
	if !p.Method.IsValid() {
		return nil, fmt.Errorf("RecordPayment: method %q: %w", p.Method, domain.ErrInvalidPaymentMethod)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("RecordPayment: %w", err)
	}
	defer tx.Rollback()

	inv, err := s.invoices.GetForUpdate(ctx, tx, p.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("RecordPayment: %w", err)
	}
	if inv.Status == domain.InvoiceStatusDraft || inv.Status == domain.InvoiceStatusCancelled {
		return nil, fmt.Errorf("RecordPayment: invoice %s is %s: %w", inv.InvoiceNumber, inv.Status, domain.ErrInvalidState)
	}
	if p.Amount.GreaterThan(inv.BalanceAmount) {
		return nil, fmt.Errorf("RecordPayment: amount %s exceeds balance %s on %s: %w",
			p.Amount, inv.BalanceAmount, inv.InvoiceNumber, domain.ErrOverpayment)
	}

	paymentNumber, err := s.nextNumber(ctx, tx, "payment", "PAY", p.Date)
	if err != nil {
		return nil, fmt.Errorf("RecordPayment: %w", err)
	}
	receiptNumber, err := s.nextNumber(ctx, tx, "receipt", "REC", p.Date)
	if err != nil {
		return nil, fmt.Errorf("RecordPayment: %w", err)
	}

	now := time.Now().UTC()
	pay := &domain.Payment{
		ID:            uuid.New(),
		SchoolID:      inv.SchoolID,
		InvoiceID:     inv.ID,
		PaymentNumber: paymentNumber,
		ReceiptNumber: receiptNumber,
		Date:          p.Date,
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        domain.PaymentStatusPending,
		Reference:     p.Reference,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.payments.Create(ctx, tx, pay); err != nil {
		return nil, fmt.Errorf("RecordPayment: %w", err)
	}

	if !p.Method.RequiresConfirmation() {
		if err := s.applyPaymentTx(ctx, tx, pay, inv); err != nil {
			return nil, fmt.Errorf("RecordPayment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("RecordPayment: commit: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PaymentsRecorded.WithLabelValues(string(p.Method)).Inc()
	}
	logging.FromContext(ctx).Info("payment recorded",
		"payment_id", pay.ID, "payment_number", pay.PaymentNumber,
		"invoice_number", inv.InvoiceNumber, "amount", pay.Amount,
		"method", pay.Method, "status", pay.Status)
	return pay, nil
}

// ConfirmPayment completes a pending cheque or bank transfer payment once the
// funds have cleared. The overpayment check runs again because the balance
// may have moved while the payment sat pending.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ConfirmPayment: %w", err)
	}
	defer tx.Rollback()

	pay, err := s.payments.GetForUpdate(ctx, tx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("ConfirmPayment: %w", err)
	}
	if pay.Status != domain.PaymentStatusPending {
		return nil, fmt.Errorf("ConfirmPayment: payment %s is %s: %w", pay.PaymentNumber, pay.Status, domain.ErrInvalidState)
	}

	inv, err := s.invoices.GetForUpdate(ctx, tx, pay.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("ConfirmPayment: %w", err)
	}
	if inv.Status == domain.InvoiceStatusCancelled {
		return nil, fmt.Errorf("ConfirmPayment: invoice %s is cancelled: %w", inv.InvoiceNumber, domain.ErrInvalidState)
	}
	if pay.Amount.GreaterThan(inv.BalanceAmount) {
		return nil, fmt.Errorf("ConfirmPayment: amount %s exceeds balance %s on %s: %w",
			pay.Amount, inv.BalanceAmount, inv.InvoiceNumber, domain.ErrOverpayment)
	}

	if err := s.applyPaymentTx(ctx, tx, pay, inv); err != nil {
		return nil, fmt.Errorf("ConfirmPayment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ConfirmPayment: commit: %w", err)
	}

	logging.FromContext(ctx).Info("payment confirmed",
		"payment_id", pay.ID, "payment_number", pay.PaymentNumber,
		"invoice_number", inv.InvoiceNumber, "amount", pay.Amount)
	return pay, nil
}

// CancelPayment voids a payment. A pending payment is simply marked
// cancelled; a completed payment additionally restores the invoice balance
// and reverses its journal entry, all in one transaction.
func (s *Service) CancelPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CancelPayment: %w", err)
	}
	defer tx.Rollback()

	pay, err := s.payments.GetForUpdate(ctx, tx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("CancelPayment: %w", err)
	}
	if pay.Status == domain.PaymentStatusCancelled {
		return nil, fmt.Errorf("CancelPayment: payment %s: %w", pay.PaymentNumber, domain.ErrInvalidState)
	}

	inv, err := s.invoices.GetForUpdate(ctx, tx, pay.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("CancelPayment: %w", err)
	}
	if inv.Status == domain.InvoiceStatusCancelled {
		return nil, fmt.Errorf("CancelPayment: invoice %s is cancelled: %w", inv.InvoiceNumber, domain.ErrInvalidState)
	}

	if pay.Status == domain.PaymentStatusCompleted {
		inv.PaidAmount = inv.PaidAmount.Sub(pay.Amount)
		inv.BalanceAmount = inv.TotalAmount.Sub(inv.PaidAmount)
		inv.Status = inv.DeriveStatus(time.Now().UTC())
		if err := s.invoices.UpdateSettlement(ctx, tx, inv); err != nil {
			return nil, fmt.Errorf("CancelPayment: %w", err)
		}
		if pay.JournalEntryID != nil {
			if _, _, err := s.ledger.CancelEntryTx(ctx, tx, *pay.JournalEntryID); err != nil {
				return nil, fmt.Errorf("CancelPayment: %w", err)
			}
		}
	}

	pay.Status = domain.PaymentStatusCancelled
	pay.UpdatedAt = time.Now().UTC()
	if err := s.payments.UpdateStatus(ctx, tx, pay); err != nil {
		return nil, fmt.Errorf("CancelPayment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CancelPayment: commit: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PaymentsCancelled.Inc()
	}
	logging.FromContext(ctx).Info("payment cancelled",
		"payment_id", pay.ID, "payment_number", pay.PaymentNumber,
		"invoice_number", inv.InvoiceNumber, "amount", pay.Amount)
	return pay, nil
}

// applyPaymentTx settles a payment against its invoice and posts the cash
// receipt: Dr Cash or Bank / Cr Accounts Receivable. Caller holds row locks
// on both the payment and the invoice.
func (s *Service) applyPaymentTx(ctx context.Context, tx *sql.Tx, pay *domain.Payment, inv *domain.Invoice) error {
	debitCode := s.cfg.BankAccountCode
	if pay.Method == domain.PaymentMethodCash || pay.Method == domain.PaymentMethodCard {
		debitCode = s.cfg.CashAccountCode
	}
	debitAccount, err := s.ledger.GetAccountByCode(ctx, inv.SchoolID, debitCode)
	if err != nil {
		return fmt.Errorf("applyPaymentTx: debit account: %w", err)
	}
	receivable, err := s.ledger.GetAccountByCode(ctx, inv.SchoolID, s.cfg.ReceivableAccountCode)
	if err != nil {
		return fmt.Errorf("applyPaymentTx: receivable: %w", err)
	}

	e, err := s.ledger.CreateEntryTx(ctx, tx, ledger.EntryParams{
		SchoolID:    inv.SchoolID,
		Date:        pay.Date,
		Reference:   pay.PaymentNumber,
		Description: fmt.Sprintf("Payment %s for invoice %s", pay.PaymentNumber, inv.InvoiceNumber),
		Lines: []ledger.LineInput{
			{
				AccountID:   debitAccount.ID,
				Description: fmt.Sprintf("Payment %s received", pay.PaymentNumber),
				Debit:       pay.Amount,
				StudentID:   &inv.StudentID,
			},
			{
				AccountID:   receivable.ID,
				Description: fmt.Sprintf("Payment %s applied to %s", pay.PaymentNumber, inv.InvoiceNumber),
				Credit:      pay.Amount,
				StudentID:   &inv.StudentID,
			},
		},
		InvoiceID: &inv.ID,
		PaymentID: &pay.ID,
		System:    true,
	})
	if err != nil {
		return fmt.Errorf("applyPaymentTx: %w", err)
	}
	if _, err := s.ledger.PostEntryTx(ctx, tx, e.ID); err != nil {
		return fmt.Errorf("applyPaymentTx: %w", err)
	}

	now := time.Now().UTC()
	pay.Status = domain.PaymentStatusCompleted
	pay.JournalEntryID = &e.ID
	pay.CompletedAt = &now
	pay.UpdatedAt = now
	if err := s.payments.UpdateStatus(ctx, tx, pay); err != nil {
		return fmt.Errorf("applyPaymentTx: %w", err)
	}

	inv.PaidAmount = inv.PaidAmount.Add(pay.Amount)
	inv.BalanceAmount = inv.TotalAmount.Sub(inv.PaidAmount)
	inv.Status = inv.DeriveStatus(now)
	if err := s.invoices.UpdateSettlement(ctx, tx, inv); err != nil {
		return fmt.Errorf("applyPaymentTx: %w", err)
	}
	return nil
}
