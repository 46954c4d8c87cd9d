package billing_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolfin/backend/internal/domain"
	"github.com/schoolfin/backend/internal/service/billing"
	"github.com/schoolfin/backend/internal/testutil"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return v
}

// tuitionInvoice creates a draft for 1000 of tuition with a 10% discount.
// With 15% VAT the issued total is 1035: 1000 − 100 discount = 900 net,
// plus 135 VAT.
func tuitionInvoice(f *testutil.Fixture, t *testing.T) *domain.Invoice {
	t.Helper()
	inv, err := f.Billing.CreateInvoice(context.Background(), billing.CreateInvoiceParams{
		SchoolID:  f.SchoolID,
		StudentID: f.StudentID,
		IssueDate: time.Now().UTC(),
		DueDate:   time.Now().UTC().AddDate(0, 1, 0),
		Items: []billing.ItemInput{
			{FeeCategoryID: f.Tuition.ID, Description: "Tuition term 1", Quantity: 1, UnitPrice: dec(t, "1000")},
		},
		Discount: &domain.Discount{Type: domain.DiscountTypePercentage, Value: dec(t, "10")},
	})
	require.NoError(t, err)
	return inv
}

func issuedTuitionInvoice(f *testutil.Fixture, t *testing.T) *domain.Invoice {
	t.Helper()
	inv := tuitionInvoice(f, t)
	issued, err := f.Billing.IssueInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	return issued
}

func TestIssueInvoice_TotalsAndLedgerPosting(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	inv := tuitionInvoice(f, t)
	assert.Equal(t, domain.InvoiceStatusDraft, inv.Status)
	assert.True(t, strings.HasPrefix(inv.InvoiceNumber, "INV"), "invoice number %s", inv.InvoiceNumber)

	issued, err := f.Billing.IssueInvoice(ctx, inv.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.InvoiceStatusPendingPayment, issued.Status)
	assert.True(t, issued.Subtotal.Equal(dec(t, "1000")), "subtotal %s", issued.Subtotal)
	assert.True(t, issued.DiscountAmount.Equal(dec(t, "100")), "discount %s", issued.DiscountAmount)
	assert.True(t, issued.VATAmount.Equal(dec(t, "135")), "vat %s", issued.VATAmount)
	assert.True(t, issued.TotalAmount.Equal(dec(t, "1035")), "total %s", issued.TotalAmount)
	assert.True(t, issued.BalanceAmount.Equal(dec(t, "1035")), "balance %s", issued.BalanceAmount)

	// Dr AR 1035 / Cr Revenue 900 / Cr VAT Payable 135.
	assert.True(t, f.Balance(t, "1200").Equal(dec(t, "1035")), "receivable %s", f.Balance(t, "1200"))
	assert.True(t, f.Balance(t, "4000").Equal(dec(t, "900")), "revenue %s", f.Balance(t, "4000"))
	assert.True(t, f.Balance(t, "2100").Equal(dec(t, "135")), "vat payable %s", f.Balance(t, "2100"))

	// Issuing twice is a state error.
	_, err = f.Billing.IssueInvoice(ctx, inv.ID)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestIssueInvoice_EmptyInvoiceRejected(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	inv, err := f.Billing.CreateInvoice(ctx, billing.CreateInvoiceParams{
		SchoolID:  f.SchoolID,
		StudentID: f.StudentID,
		IssueDate: time.Now().UTC(),
		DueDate:   time.Now().UTC().AddDate(0, 1, 0),
	})
	require.NoError(t, err)

	_, err = f.Billing.IssueInvoice(ctx, inv.ID)
	require.ErrorIs(t, err, domain.ErrEmptyInvoice)
}

func TestCreateInvoice_Validation(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	base := billing.CreateInvoiceParams{
		SchoolID:  f.SchoolID,
		StudentID: f.StudentID,
		IssueDate: time.Now().UTC(),
		DueDate:   time.Now().UTC().AddDate(0, 1, 0),
	}

	t.Run("due before issue", func(t *testing.T) {
		p := base
		p.DueDate = p.IssueDate.AddDate(0, 0, -1)
		_, err := f.Billing.CreateInvoice(ctx, p)
		require.ErrorIs(t, err, domain.ErrInvalidDateRange)
	})

	t.Run("zero quantity", func(t *testing.T) {
		p := base
		p.Items = []billing.ItemInput{{FeeCategoryID: f.Tuition.ID, Quantity: 0, UnitPrice: dec(t, "10")}}
		_, err := f.Billing.CreateInvoice(ctx, p)
		require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})

	t.Run("negative unit price", func(t *testing.T) {
		p := base
		p.Items = []billing.ItemInput{{FeeCategoryID: f.Tuition.ID, Quantity: 1, UnitPrice: dec(t, "-10")}}
		_, err := f.Billing.CreateInvoice(ctx, p)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("unknown fee category", func(t *testing.T) {
		p := base
		p.Items = []billing.ItemInput{{FeeCategoryID: f.StudentID, Quantity: 1, UnitPrice: dec(t, "10")}}
		_, err := f.Billing.CreateInvoice(ctx, p)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestRecordPayment_PartialThenFull(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	inv := issuedTuitionInvoice(f, t)

	p1, err := f.Billing.RecordPayment(ctx, billing.RecordPaymentParams{
		InvoiceID: inv.ID,
		Amount:    dec(t, "500"),
		Method:    domain.PaymentMethodCash,
		Date:      time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, p1.Status)
	assert.True(t, strings.HasPrefix(p1.PaymentNumber, "PAY"), "payment number %s", p1.PaymentNumber)
	assert.True(t, strings.HasPrefix(p1.ReceiptNumber, "REC"), "receipt number %s", p1.ReceiptNumber)
	require.NotNil(t, p1.JournalEntryID)
	require.NotNil(t, p1.CompletedAt)

	got, err := f.Billing.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPartiallyPaid, got.Status)
	assert.True(t, got.PaidAmount.Equal(dec(t, "500")))
	assert.True(t, got.BalanceAmount.Equal(dec(t, "535")))

	// Cash payments debit the cash account and relieve the receivable.
	assert.True(t, f.Balance(t, "1100").Equal(dec(t, "500")), "cash %s", f.Balance(t, "1100"))
	assert.True(t, f.Balance(t, "1200").Equal(dec(t, "535")), "receivable %s", f.Balance(t, "1200"))

	p2, err := f.Billing.RecordPayment(ctx, billing.RecordPaymentParams{
		InvoiceID: inv.ID,
		Amount:    dec(t, "535"),
		Method:    domain.PaymentMethodCard,
		Date:      time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, p2.Status)

	got, err = f.Billing.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, got.Status)
	assert.True(t, got.BalanceAmount.IsZero())

	assert.True(t, f.Balance(t, "1100").Equal(dec(t, "1035")), "cash %s", f.Balance(t, "1100"))
	assert.True(t, f.Balance(t, "1200").IsZero(), "receivable %s", f.Balance(t, "1200"))
}

func TestRecordPayment_Validation(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	inv := issuedTuitionInvoice(f, t)

	t.Run("overpayment rejected atomically", func(t *testing.T) {
		_, err := f.Billing.RecordPayment(ctx, billing.RecordPaymentParams{
			InvoiceID: inv.ID,
			Amount:    dec(t, "2000"),
			Method:    domain.PaymentMethodCash,
			Date:      time.Now().UTC(),
		})
		require.ErrorIs(t, err, domain.ErrOverpayment)

		got, err := f.Billing.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, got.PaidAmount.IsZero())
		assert.True(t, f.Balance(t, "1100").IsZero())
	})

	t.Run("non positive amount", func(t *testing.T) {
		_, err := f.Billing.RecordPayment(ctx, billing.RecordPaymentParams{
			InvoiceID: inv.ID,
			Amount:    decimal.Zero,
			Method:    domain.PaymentMethodCash,
			Date:      time.Now().UTC(),
		})
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := f.Billing.RecordPayment(ctx, billing.RecordPaymentParams{
			InvoiceID: inv.ID,
			Amount:    dec(t, "100"),
			Method:    domain.PaymentMethod("barter"),
			Date:      time.Now().UTC(),
		})
		require.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)
	})

	t.Run("draft invoice", func(t *testing.T) {
		draft := tuitionInvoice(f, t)
		_, err := f.Billing.RecordPayment(ctx, billing.RecordPaymentParams{
			InvoiceID: draft.ID,
			Amount:    dec(t, "100"),
			Method:    domain.PaymentMethodCash,
			Date:      time.Now().UTC(),
		})
		require.ErrorIs(t, err, domain.ErrInvalidState)
	})
}

func TestRecordPayment_ChequeRequiresConfirmation(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	inv := issuedTuitionInvoice(f, t)

	p, err := f.Billing.RecordPayment(ctx, billing.RecordPaymentParams{
		InvoiceID: inv.ID,
		Amount:    dec(t, "1035"),
		Method:    domain.PaymentMethodCheque,
		Date:      time.Now().UTC(),
		Reference: "CHQ-0042",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, p.Status)
	assert.Nil(t, p.JournalEntryID)

	// Pending payments do not touch the invoice or the books.
	got, err := f.Billing.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.IsZero())
	assert.True(t, f.Balance(t, "1110").IsZero())

	confirmed, err := f.Billing.ConfirmPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, confirmed.Status)
	require.NotNil(t, confirmed.JournalEntryID)

	got, err = f.Billing.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, got.Status)

	// Cheques settle through the bank account, not cash.
	assert.True(t, f.Balance(t, "1110").Equal(dec(t, "1035")), "bank %s", f.Balance(t, "1110"))
	assert.True(t, f.Balance(t, "1100").IsZero(), "cash %s", f.Balance(t, "1100"))

	_, err = f.Billing.ConfirmPayment(ctx, p.ID)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestCancelPayment_RestoresBalanceAndReversesEntry(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	inv := issuedTuitionInvoice(f, t)

	p, err := f.Billing.RecordPayment(ctx, billing.RecordPaymentParams{
		InvoiceID: inv.ID,
		Amount:    dec(t, "535"),
		Method:    domain.PaymentMethodCash,
		Date:      time.Now().UTC(),
	})
	require.NoError(t, err)

	cancelled, err := f.Billing.CancelPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCancelled, cancelled.Status)

	got, err := f.Billing.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.IsZero())
	assert.True(t, got.BalanceAmount.Equal(dec(t, "1035")))
	assert.Equal(t, domain.InvoiceStatusPendingPayment, got.Status)

	// The cash receipt was reversed, leaving only the issue entry behind.
	assert.True(t, f.Balance(t, "1100").IsZero(), "cash %s", f.Balance(t, "1100"))
	assert.True(t, f.Balance(t, "1200").Equal(dec(t, "1035")), "receivable %s", f.Balance(t, "1200"))

	_, err = f.Billing.CancelPayment(ctx, p.ID)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestCancelPayment_PendingJustCancels(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	inv := issuedTuitionInvoice(f, t)

	p, err := f.Billing.RecordPayment(ctx, billing.RecordPaymentParams{
		InvoiceID: inv.ID,
		Amount:    dec(t, "100"),
		Method:    domain.PaymentMethodBankTransfer,
		Date:      time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusPending, p.Status)

	cancelled, err := f.Billing.CancelPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCancelled, cancelled.Status)
	assert.True(t, f.Balance(t, "1110").IsZero())

	_, err = f.Billing.ConfirmPayment(ctx, p.ID)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestCancelInvoice(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	t.Run("draft cancels directly", func(t *testing.T) {
		inv := tuitionInvoice(f, t)
		got, err := f.Billing.CancelInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusCancelled, got.Status)
		assert.True(t, f.Balance(t, "1200").IsZero())
	})

	t.Run("issued without payments reverses the issue entry", func(t *testing.T) {
		inv := issuedTuitionInvoice(f, t)
		require.True(t, f.Balance(t, "1200").Equal(dec(t, "1035")))

		got, err := f.Billing.CancelInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusCancelled, got.Status)

		assert.True(t, f.Balance(t, "1200").IsZero(), "receivable %s", f.Balance(t, "1200"))
		assert.True(t, f.Balance(t, "4000").IsZero(), "revenue %s", f.Balance(t, "4000"))
		assert.True(t, f.Balance(t, "2100").IsZero(), "vat payable %s", f.Balance(t, "2100"))

		_, err = f.Billing.CancelInvoice(ctx, inv.ID)
		require.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("with applied payments refuses", func(t *testing.T) {
		inv := issuedTuitionInvoice(f, t)
		_, err := f.Billing.RecordPayment(ctx, billing.RecordPaymentParams{
			InvoiceID: inv.ID,
			Amount:    dec(t, "200"),
			Method:    domain.PaymentMethodCash,
			Date:      time.Now().UTC(),
		})
		require.NoError(t, err)

		_, err = f.Billing.CancelInvoice(ctx, inv.ID)
		require.ErrorIs(t, err, domain.ErrInvalidState)

		got, err := f.Billing.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusPartiallyPaid, got.Status)
	})
}

func TestFeeCategories(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	list, err := f.Billing.ListFeeCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Tuition", list[0].Name)
	assert.Equal(t, "Transport", list[1].Name)
}
