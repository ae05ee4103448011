package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome       TransactionType = "income"
	TransactionTypeExpense      TransactionType = "expense"
	TransactionTypeTransfer     TransactionType = "transfer"
	TransactionTypeContribution TransactionType = "contribution"
)

// TransactionStatus represents the lifecycle status of a transaction.
// Only completed transactions carry a balance/budget/goal effect.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// TransferDirection marks which side of a transfer pair a ledger row is.
type TransferDirection string

const (
	TransferDirectionOut TransferDirection = "out"
	TransferDirectionIn  TransferDirection = "in"
)

// Transaction is an append-mostly ledger entry. Amount is always positive;
// direction is encoded by Type, not sign.
type Transaction struct {
	Base
	UserID     string            `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID  string            `gorm:"type:uuid;not null;index" json:"account_id"`
	CategoryID *string           `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Type       TransactionType   `gorm:"not null" json:"type"`
	Status     TransactionStatus `gorm:"not null;default:'completed'" json:"status"`
	Amount     decimal.Decimal   `gorm:"type:numeric(19,4);not null" json:"amount"`
	Notes      string            `json:"notes"`
	Date       time.Time         `gorm:"not null;index" json:"date"`

	// For transfers: the counterparty account, the paired ledger row, and
	// which side of the pair this row is. Each leg carries only its own
	// account's half of the movement, so the pair sums to the full effect.
	TransferAccountID   *string           `gorm:"type:uuid" json:"transfer_account_id,omitempty"`
	LinkedTransactionID *string           `gorm:"type:uuid" json:"linked_transaction_id,omitempty"`
	TransferDirection   TransferDirection `json:"transfer_direction,omitempty"`

	// For goal contributions.
	GoalID *string `gorm:"type:uuid;index" json:"goal_id,omitempty"`

	// Relationships
	Account         Account   `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	TransferAccount *Account  `gorm:"foreignKey:TransferAccountID" json:"transfer_account,omitempty"`
	Category        *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Goal            *Goal     `gorm:"foreignKey:GoalID" json:"goal,omitempty"`
}

// IsCompleted reports whether the transaction currently carries an effect.
func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}
