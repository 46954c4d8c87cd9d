package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicateCode         = errors.New("account code already exists")
	ErrInvalidHierarchy      = errors.New("invalid account hierarchy")
	ErrInvalidAccount        = errors.New("account code, name and type are required")
	ErrAccountInactive       = errors.New("account inactive")
	ErrSystemAccount         = errors.New("system account cannot be modified")
	ErrManualEntryNotAllowed = errors.New("account does not allow manual entries")
	ErrEmptyEntry            = errors.New("journal entry has no lines")
	ErrMalformedLine         = errors.New("journal line must have exactly one of debit or credit")
	ErrUnbalancedEntry       = errors.New("journal entry debits and credits do not balance")
	ErrInvalidState          = errors.New("invalid state for operation")
	ErrDateOutOfRange        = errors.New("date outside fiscal year")
	ErrEmptyInvoice          = errors.New("invoice has no items")
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrInvalidQuantity       = errors.New("quantity must be greater than zero")
	ErrInvalidDateRange      = errors.New("invalid date range")
	ErrOverpayment           = errors.New("payment exceeds invoice balance")
	ErrInvalidPaymentMethod  = errors.New("unknown payment method")
	ErrVersionConflict       = errors.New("optimistic lock conflict")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrInvalidCredentials    = errors.New("invalid credentials")
)

// ErrorKind groups sentinel errors into the categories callers translate
// into user-facing responses.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindStateConflict ErrorKind = "state_conflict"
	KindIntegrity     ErrorKind = "integrity_violation"
	KindNotFound      ErrorKind = "not_found"
	KindInternal      ErrorKind = "internal"
)

func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrMalformedLine),
		errors.Is(err, ErrEmptyEntry),
		errors.Is(err, ErrEmptyInvoice),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidDateRange),
		errors.Is(err, ErrDateOutOfRange),
		errors.Is(err, ErrInvalidHierarchy),
		errors.Is(err, ErrInvalidAccount),
		errors.Is(err, ErrInvalidPaymentMethod),
		errors.Is(err, ErrInvalidCredentials):
		return KindValidation
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrOverpayment),
		errors.Is(err, ErrDuplicateCode),
		errors.Is(err, ErrAccountInactive),
		errors.Is(err, ErrSystemAccount),
		errors.Is(err, ErrManualEntryNotAllowed),
		errors.Is(err, ErrPermissionDenied):
		return KindStateConflict
	case errors.Is(err, ErrUnbalancedEntry),
		errors.Is(err, ErrVersionConflict):
		return KindIntegrity
	default:
		return KindInternal
	}
}
