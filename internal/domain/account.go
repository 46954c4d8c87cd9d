package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// DebitIncreases reports whether a debit raises the account's balance.
// Asset and expense accounts carry debit balances; liability, equity and
// revenue accounts carry credit balances.
func (t AccountType) DebitIncreases() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// BalanceDelta is the signed effect of a posted line on the account balance,
// honoring the type's sign convention.
func (t AccountType) BalanceDelta(debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitIncreases() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

type BalanceSide string

const (
	BalanceSideDebit  BalanceSide = "debit"
	BalanceSideCredit BalanceSide = "credit"
)

// Account is one node of the chart of accounts. Balance is a running cache
// maintained under the posting transaction; the authoritative value is always
// recomputable from posted lines plus the opening balance.
type Account struct {
	ID                 uuid.UUID
	SchoolID           uuid.UUID
	Code               string
	Name               string
	Type               AccountType
	ParentID           *uuid.UUID
	IsActive           bool
	IsSystem           bool
	AllowManualEntries bool
	OpeningBalance     decimal.Decimal
	OpeningBalanceSide BalanceSide
	Balance            decimal.Decimal
	Version            int64
	Description        string
	CreatedAt          time.Time
}

// OpeningDelta is the opening balance expressed in the account's sign convention.
func (a *Account) OpeningDelta() decimal.Decimal {
	if a.OpeningBalanceSide == BalanceSideDebit {
		return a.Type.BalanceDelta(a.OpeningBalance, decimal.Zero)
	}
	return a.Type.BalanceDelta(decimal.Zero, a.OpeningBalance)
}
