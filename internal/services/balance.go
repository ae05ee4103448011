package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/Kennong09/budgetme-sub006/internal/errors"
	"github.com/Kennong09/budgetme-sub006/internal/models"
)

// The balance mutation engine. Every change to Account.Balance in this
// codebase flows through applyAccountDeltas so that the reconstruction
// invariant holds: balance == initial_balance + signed sum of the effects
// of all completed transactions on the account.
//
// Deltas are applied as atomic read-modify-write UPDATE expressions
// (balance = balance + δ), so two concurrent mutations against the same
// account serialize at the row and neither delta can be lost.

// accountDelta is the signed monetary impact of one ledger row on one account.
type accountDelta struct {
	accountID string
	amount    decimal.Decimal
	// guarded debits fail with ErrInsufficientFunds instead of driving the
	// balance negative. Only transfers and goal contributions set this;
	// plain expenses are deliberately permissive, matching the source
	// system's asymmetry.
	guarded bool
}

// transactionDeltas computes the signed effect of a ledger row on every
// account it touches. Pending and cancelled rows carry no effect. Each
// transfer leg carries only its own account's half of the movement.
func transactionDeltas(txn *models.Transaction) []accountDelta {
	if !txn.IsCompleted() {
		return nil
	}

	switch txn.Type {
	case models.TransactionTypeIncome:
		return []accountDelta{{accountID: txn.AccountID, amount: txn.Amount}}
	case models.TransactionTypeExpense:
		return []accountDelta{{accountID: txn.AccountID, amount: txn.Amount.Neg()}}
	case models.TransactionTypeContribution:
		return []accountDelta{{accountID: txn.AccountID, amount: txn.Amount.Neg(), guarded: true}}
	case models.TransactionTypeTransfer:
		if txn.TransferDirection == models.TransferDirectionIn {
			return []accountDelta{{accountID: txn.AccountID, amount: txn.Amount}}
		}
		return []accountDelta{{accountID: txn.AccountID, amount: txn.Amount.Neg(), guarded: true}}
	}
	return nil
}

// applyAccountDeltas applies the given deltas to their accounts inside the
// enclosing database transaction. direction is +1 to apply and -1 to
// reverse; reversal never enforces sufficiency. Accounts listed in skip are
// left untouched (used when the account itself is being deleted).
func applyAccountDeltas(tx *gorm.DB, userID string, deltas []accountDelta, direction int, skip map[string]bool) error {
	for _, d := range deltas {
		if skip[d.accountID] {
			continue
		}

		amount := d.amount
		if direction < 0 {
			amount = amount.Neg()
		}

		q := tx.Model(&models.Account{}).Where("id = ? AND user_id = ?", d.accountID, userID)
		guard := d.guarded && direction > 0 && amount.IsNegative()
		if guard {
			q = q.Where("balance >= ?", amount.Neg())
		}

		res := q.Update("balance", gorm.Expr("balance + ?", amount))
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			// Callers verify account existence and ownership before
			// mutating, so a guarded zero-row update means the balance
			// check lost.
			if guard {
				return apperrors.ErrInsufficientFunds
			}
			return apperrors.ErrAccountNotFound
		}
	}
	return nil
}
