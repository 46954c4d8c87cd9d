package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodOnline       PaymentMethod = "online"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodCheque, PaymentMethodOnline:
		return true
	}
	return false
}

// RequiresConfirmation reports whether the method settles out of band and the
// payment starts pending until confirmed.
func (m PaymentMethod) RequiresConfirmation() bool {
	return m == PaymentMethodCheque || m == PaymentMethodBankTransfer
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Payment applies money against a single invoice. Only completed payments
// affect the invoice's paid amount; JournalEntryID links the cash posting.
type Payment struct {
	ID             uuid.UUID
	SchoolID       uuid.UUID
	InvoiceID      uuid.UUID
	PaymentNumber  string
	ReceiptNumber  string
	Date           time.Time
	Amount         decimal.Decimal
	Method         PaymentMethod
	Status         PaymentStatus
	Reference      string
	JournalEntryID *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}
