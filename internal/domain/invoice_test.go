package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestDiscountAmount(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		discount Discount
		subtotal string
		on       time.Time
		want     string
	}{
		{
			name:     "ten percent",
			discount: Discount{Type: DiscountTypePercentage, Value: d("10"), ValidFrom: from, ValidTo: to},
			subtotal: "1000",
			on:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			want:     "100",
		},
		{
			name:     "percentage over hundred clamps to subtotal",
			discount: Discount{Type: DiscountTypePercentage, Value: d("150"), ValidFrom: from, ValidTo: to},
			subtotal: "200",
			on:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			want:     "200",
		},
		{
			name:     "fixed",
			discount: Discount{Type: DiscountTypeFixed, Value: d("50"), ValidFrom: from, ValidTo: to},
			subtotal: "1000",
			on:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			want:     "50",
		},
		{
			name:     "fixed larger than subtotal clamps",
			discount: Discount{Type: DiscountTypeFixed, Value: d("500"), ValidFrom: from, ValidTo: to},
			subtotal: "300",
			on:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			want:     "300",
		},
		{
			name:     "before window ignored",
			discount: Discount{Type: DiscountTypePercentage, Value: d("10"), ValidFrom: from, ValidTo: to},
			subtotal: "1000",
			on:       time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			want:     "0",
		},
		{
			name:     "after window ignored",
			discount: Discount{Type: DiscountTypeFixed, Value: d("50"), ValidFrom: from, ValidTo: to},
			subtotal: "1000",
			on:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			want:     "0",
		},
		{
			name:     "last day of window still applies",
			discount: Discount{Type: DiscountTypePercentage, Value: d("10"), ValidFrom: from, ValidTo: to},
			subtotal: "1000",
			on:       to,
			want:     "100",
		},
		{
			name:     "open window always applies",
			discount: Discount{Type: DiscountTypePercentage, Value: d("10")},
			subtotal: "1000",
			on:       time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC),
			want:     "100",
		},
		{
			name:     "negative value treated as zero",
			discount: Discount{Type: DiscountTypeFixed, Value: d("-50"), ValidFrom: from, ValidTo: to},
			subtotal: "1000",
			on:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			want:     "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.discount.Amount(d(tt.subtotal), tt.on)
			require.True(t, got.Equal(d(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestInvoiceDeriveStatus(t *testing.T) {
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	after := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)

	inv := func(status InvoiceStatus, total, paid string) *Invoice {
		t := d(total)
		p := d(paid)
		return &Invoice{
			Status:        status,
			DueDate:       due,
			TotalAmount:   t,
			PaidAmount:    p,
			BalanceAmount: t.Sub(p),
		}
	}

	tests := []struct {
		name    string
		invoice *Invoice
		today   time.Time
		want    InvoiceStatus
	}{
		{"draft stays draft", inv(InvoiceStatusDraft, "1035", "0"), before, InvoiceStatusDraft},
		{"cancelled stays cancelled regardless of balance", inv(InvoiceStatusCancelled, "1035", "1035"), before, InvoiceStatusCancelled},
		{"unpaid before due date", inv(InvoiceStatusPendingPayment, "1035", "0"), before, InvoiceStatusPendingPayment},
		{"unpaid on due date", inv(InvoiceStatusPendingPayment, "1035", "0"), due, InvoiceStatusPendingPayment},
		{"unpaid past due date", inv(InvoiceStatusPendingPayment, "1035", "0"), after, InvoiceStatusOverdue},
		{"partially paid before due", inv(InvoiceStatusPendingPayment, "1035", "500"), before, InvoiceStatusPartiallyPaid},
		{"partially paid past due stays partially paid", inv(InvoiceStatusPendingPayment, "1035", "500"), after, InvoiceStatusPartiallyPaid},
		{"fully paid", inv(InvoiceStatusPartiallyPaid, "1035", "1035"), after, InvoiceStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.invoice.DeriveStatus(tt.today))
		})
	}
}

func TestInvoiceBalanceIdentity(t *testing.T) {
	inv := &Invoice{
		Subtotal:       d("1000"),
		DiscountAmount: d("100"),
		VATAmount:      d("135"),
		TotalAmount:    d("1035"),
		PaidAmount:     d("500"),
		BalanceAmount:  d("535"),
	}

	require.True(t, inv.TotalAmount.Equal(inv.Subtotal.Sub(inv.DiscountAmount).Add(inv.VATAmount)))
	require.True(t, inv.BalanceAmount.Equal(inv.TotalAmount.Sub(inv.PaidAmount)))
}
