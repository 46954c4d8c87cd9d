package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/schoolfin/backend/internal/domain"
	"github.com/schoolfin/backend/internal/logging"
	"github.com/schoolfin/backend/internal/service/ledger"
)

// IssueInvoice locks the invoice structure and recognizes the receivable in
// the ledger: Dr Accounts Receivable for the total, Cr Revenue for the net
// amount, Cr VAT Payable for the tax. Invoice update and posted entry commit
// atomically.
func (s *Service) IssueInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("IssueInvoice: %w", err)
	}
	defer tx.Rollback()

	inv, err := s.invoices.GetForUpdate(ctx, tx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("IssueInvoice: %w", err)
	}
	if inv.Status != domain.InvoiceStatusDraft {
		return nil, fmt.Errorf("IssueInvoice: invoice %s is %s: %w", inv.InvoiceNumber, inv.Status, domain.ErrInvalidState)
	}
	if len(inv.Items) == 0 {
		return nil, fmt.Errorf("IssueInvoice: invoice %s: %w", inv.InvoiceNumber, domain.ErrEmptyInvoice)
	}

	// Recompute totals at the moment of issue; the discount window is
	// evaluated against the issue date and the result is locked in.
	t := computeTotals(inv.Items, inv.Discount, inv.IssueDate, s.cfg.VATRate())
	inv.Subtotal = t.Subtotal
	inv.DiscountAmount = t.DiscountAmount
	inv.VATAmount = t.VATAmount
	inv.TotalAmount = t.Total
	inv.BalanceAmount = t.Total.Sub(inv.PaidAmount)

	// Move off draft before deriving; DeriveStatus leaves drafts alone, and
	// an invoice issued past its due date should land on overdue right away.
	inv.Status = domain.InvoiceStatusPendingPayment
	inv.Status = inv.DeriveStatus(time.Now().UTC())
	if err := s.invoices.UpdateTotals(ctx, tx, inv); err != nil {
		return nil, fmt.Errorf("IssueInvoice: %w", err)
	}

	if _, err := s.postInvoiceEntry(ctx, tx, inv); err != nil {
		return nil, fmt.Errorf("IssueInvoice: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("IssueInvoice: commit: %w", err)
	}

	if s.metrics != nil {
		s.metrics.InvoicesIssued.Inc()
	}
	logging.FromContext(ctx).Info("invoice issued",
		"invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber, "total", inv.TotalAmount)
	return inv, nil
}

func (s *Service) postInvoiceEntry(ctx context.Context, tx *sql.Tx, inv *domain.Invoice) (*domain.JournalEntry, error) {
	receivable, err := s.ledger.GetAccountByCode(ctx, inv.SchoolID, s.cfg.ReceivableAccountCode)
	if err != nil {
		return nil, fmt.Errorf("postInvoiceEntry: receivable: %w", err)
	}
	revenue, err := s.ledger.GetAccountByCode(ctx, inv.SchoolID, s.cfg.RevenueAccountCode)
	if err != nil {
		return nil, fmt.Errorf("postInvoiceEntry: revenue: %w", err)
	}

	lines := []ledger.LineInput{
		{
			AccountID:   receivable.ID,
			Description: fmt.Sprintf("Invoice %s", inv.InvoiceNumber),
			Debit:       inv.TotalAmount,
			StudentID:   &inv.StudentID,
		},
		{
			AccountID:   revenue.ID,
			Description: fmt.Sprintf("Revenue - Invoice %s", inv.InvoiceNumber),
			Credit:      inv.TotalAmount.Sub(inv.VATAmount),
			StudentID:   &inv.StudentID,
		},
	}
	if inv.VATAmount.IsPositive() {
		vat, err := s.ledger.GetAccountByCode(ctx, inv.SchoolID, s.cfg.VATAccountCode)
		if err != nil {
			return nil, fmt.Errorf("postInvoiceEntry: vat payable: %w", err)
		}
		lines = append(lines, ledger.LineInput{
			AccountID:   vat.ID,
			Description: fmt.Sprintf("VAT collected - Invoice %s", inv.InvoiceNumber),
			Credit:      inv.VATAmount,
		})
	}

	e, err := s.ledger.CreateEntryTx(ctx, tx, ledger.EntryParams{
		SchoolID:    inv.SchoolID,
		Date:        inv.IssueDate,
		Reference:   inv.InvoiceNumber,
		Description: fmt.Sprintf("Invoice %s", inv.InvoiceNumber),
		Lines:       lines,
		InvoiceID:   &inv.ID,
		System:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("postInvoiceEntry: %w", err)
	}
	if _, err := s.ledger.PostEntryTx(ctx, tx, e.ID); err != nil {
		return nil, fmt.Errorf("postInvoiceEntry: %w", err)
	}
	return e, nil
}

// CancelInvoice cancels a draft invoice directly. An issued invoice can only
// be cancelled while no payments are applied; its issue entry is reversed in
// the same transaction.
func (s *Service) CancelInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CancelInvoice: %w", err)
	}
	defer tx.Rollback()

	inv, err := s.invoices.GetForUpdate(ctx, tx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("CancelInvoice: %w", err)
	}

	switch {
	case inv.Status == domain.InvoiceStatusCancelled:
		return nil, fmt.Errorf("CancelInvoice: invoice %s: %w", inv.InvoiceNumber, domain.ErrInvalidState)

	case inv.Status == domain.InvoiceStatusDraft:
		// Never issued, nothing in the ledger to undo.

	case inv.PaidAmount.IsPositive():
		return nil, fmt.Errorf("CancelInvoice: invoice %s has applied payments: %w", inv.InvoiceNumber, domain.ErrInvalidState)

	default:
		issueEntry, err := s.ledger.PostedEntryForInvoice(ctx, tx, inv.ID)
		if err != nil {
			return nil, fmt.Errorf("CancelInvoice: %w", err)
		}
		if _, _, err := s.ledger.CancelEntryTx(ctx, tx, issueEntry.ID); err != nil {
			return nil, fmt.Errorf("CancelInvoice: %w", err)
		}
	}

	inv.Status = domain.InvoiceStatusCancelled
	if err := s.invoices.UpdateSettlement(ctx, tx, inv); err != nil {
		return nil, fmt.Errorf("CancelInvoice: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CancelInvoice: commit: %w", err)
	}

	logging.FromContext(ctx).Info("invoice cancelled",
		"invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber)
	return inv, nil
}
