package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/schoolfin/backend/internal/domain"
)

type totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	VATAmount      decimal.Decimal
	Total          decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// computeTotals derives the invoice money columns from its items:
// subtotal = Σ quantity×unitPrice, discount per its rule as of the issue
// date, VAT on the net amount, total = subtotal − discount + VAT.
// Each derived amount is rounded to 2 decimal places.
func computeTotals(items []domain.InvoiceItem, discount *domain.Discount, issueDate time.Time, vatRatePct decimal.Decimal) totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Total)
	}

	discountAmount := decimal.Zero
	if discount != nil {
		discountAmount = discount.Amount(subtotal, issueDate)
	}

	net := subtotal.Sub(discountAmount)
	vatAmount := net.Mul(vatRatePct).Div(hundred).Round(2)

	return totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		VATAmount:      vatAmount,
		Total:          net.Add(vatAmount),
	}
}

func itemTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
