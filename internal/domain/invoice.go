package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft          InvoiceStatus = "draft"
	InvoiceStatusPendingPayment InvoiceStatus = "pending_payment"
	InvoiceStatusPartiallyPaid  InvoiceStatus = "partially_paid"
	InvoiceStatusPaid           InvoiceStatus = "paid"
	InvoiceStatusOverdue        InvoiceStatus = "overdue"
	InvoiceStatusCancelled      InvoiceStatus = "cancelled"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// Discount is a percentage or fixed reduction with a validity window.
// It is captured at invoice creation and locked on issue.
type Discount struct {
	Type      DiscountType
	Value     decimal.Decimal
	ValidFrom time.Time
	ValidTo   time.Time
}

// Amount computes the discount on a subtotal as of a given date. Outside the
// validity window the discount is ignored; a zero bound leaves that side of
// the window open. Percentage discounts are clamped to [0, subtotal]; fixed
// discounts never exceed the subtotal.
func (d Discount) Amount(subtotal decimal.Decimal, on time.Time) decimal.Decimal {
	day := on.Truncate(24 * time.Hour)
	if !d.ValidFrom.IsZero() && day.Before(d.ValidFrom.Truncate(24*time.Hour)) {
		return decimal.Zero
	}
	if !d.ValidTo.IsZero() && day.After(d.ValidTo.Truncate(24*time.Hour)) {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch d.Type {
	case DiscountTypePercentage:
		amount = subtotal.Mul(d.Value).Div(decimal.NewFromInt(100)).Round(2)
	case DiscountTypeFixed:
		amount = d.Value
	default:
		return decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}

// FeeCategory classifies invoice items: tuition, transport, books and so on.
type FeeCategory struct {
	ID            uuid.UUID
	Name          string
	Description   string
	DefaultAmount decimal.Decimal
	IsMandatory   bool
	IsActive      bool
	DisplayOrder  int
	CreatedAt     time.Time
}

type InvoiceItem struct {
	ID            uuid.UUID
	InvoiceID     uuid.UUID
	FeeCategoryID uuid.UUID
	Description   string
	Quantity      int
	UnitPrice     decimal.Decimal
	Total         decimal.Decimal
}

// Invoice bills a student for a set of fee items. Structure (items, discount)
// is locked once issued; paid amounts change only through recorded payments.
type Invoice struct {
	ID             uuid.UUID
	SchoolID       uuid.UUID
	StudentID      uuid.UUID
	InvoiceNumber  string
	IssueDate      time.Time
	DueDate        time.Time
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	VATAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	PaidAmount     decimal.Decimal
	BalanceAmount  decimal.Decimal
	Status         InvoiceStatus
	Discount       *Discount
	Notes          string
	Items          []InvoiceItem
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DeriveStatus computes the invoice status from its balances and due date.
// Draft and cancelled are lifecycle states and pass through unchanged; status
// is never independently settable truth.
func (i *Invoice) DeriveStatus(today time.Time) InvoiceStatus {
	switch i.Status {
	case InvoiceStatusDraft, InvoiceStatusCancelled:
		return i.Status
	}
	switch {
	case !i.BalanceAmount.IsPositive():
		return InvoiceStatusPaid
	case i.BalanceAmount.LessThan(i.TotalAmount):
		return InvoiceStatusPartiallyPaid
	case today.Truncate(24 * time.Hour).After(i.DueDate.Truncate(24 * time.Hour)):
		return InvoiceStatusOverdue
	default:
		return InvoiceStatusPendingPayment
	}
}
