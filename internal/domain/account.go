package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account within the chart.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
	AccountTypeCash      AccountType = "cash"
	AccountTypeBank      AccountType = "bank"
	AccountTypeSystem    AccountType = "system"
)

var validAccountTypes = map[AccountType]bool{
	AccountTypeAsset:     true,
	AccountTypeLiability: true,
	AccountTypeEquity:    true,
	AccountTypeRevenue:   true,
	AccountTypeExpense:   true,
	AccountTypeCash:      true,
	AccountTypeBank:      true,
	AccountTypeSystem:    true,
}

// IsValid reports whether t is a known account type.
func (t AccountType) IsValid() bool {
	return validAccountTypes[t]
}

// Nature is the side on which an account's balance increases.
type Nature string

const (
	NatureDebit  Nature = "debit"
	NatureCredit Nature = "credit"
)

// IsValid reports whether n is debit or credit.
func (n Nature) IsValid() bool {
	return n == NatureDebit || n == NatureCredit
}

// DefaultNature returns the conventional nature for an account type.
func DefaultNature(t AccountType) Nature {
	switch t {
	case AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue:
		return NatureCredit
	default:
		return NatureDebit
	}
}

// Account is a node in the chart of accounts.
type Account struct {
	ID               string
	Code             string
	Name             string
	Type             AccountType
	Nature           Nature
	ParentID         *string
	OpeningBalance   decimal.Decimal
	Balance          decimal.Decimal
	AllowManualEntry bool
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsRoot reports whether the account has no parent.
func (a *Account) IsRoot() bool {
	return a.ParentID == nil || *a.ParentID == ""
}

// SignedAmount converts a debit/credit pair into the account's balance direction.
func (a *Account) SignedAmount(debit, credit decimal.Decimal) decimal.Decimal {
	if a.Nature == NatureCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// ApplyPosting returns the balance after recording debit and credit.
func (a *Account) ApplyPosting(debit, credit decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(a.SignedAmount(debit, credit))
}

// RevertPosting returns the balance after undoing debit and credit.
func (a *Account) RevertPosting(debit, credit decimal.Decimal) decimal.Decimal {
	return a.Balance.Sub(a.SignedAmount(debit, credit))
}

// AccountNode is an account with its children and rolled-up balance.
type AccountNode struct {
	Account          *Account
	Children         []*AccountNode
	EffectiveBalance decimal.Decimal
}
