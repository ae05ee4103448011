package models

import (
	"github.com/shopspring/decimal"
)

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCredit     AccountType = "credit"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeCash       AccountType = "cash"
	AccountTypeOther      AccountType = "other"
)

// AccountStatus represents the lifecycle status of an account
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
	AccountStatusClosed   AccountStatus = "closed"
)

// Account represents a named store of money owned by exactly one user.
// Balance is a derived aggregate: it must always equal InitialBalance plus
// the signed sum of all completed transactions touching this account, and is
// only ever mutated by the balance mutation path in the transaction service.
type Account struct {
	Base
	UserID         string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name           string          `gorm:"not null" json:"name"`
	Type           AccountType     `gorm:"not null" json:"account_type"`
	Description    string          `json:"description"`
	Balance        decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"balance"`
	InitialBalance decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"initial_balance"`
	Currency       string          `gorm:"not null;default:'USD'" json:"currency"`
	Status         AccountStatus   `gorm:"not null;default:'active'" json:"status"`
	IsDefault      bool            `gorm:"default:false" json:"is_default"`

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:AccountID" json:"transactions,omitempty"`
}

// IsCredit reports whether the account is a credit account. Credit accounts
// carry a non-positive balance (the balance is what is owed, negated).
func (a *Account) IsCredit() bool {
	return a.Type == AccountTypeCredit
}
