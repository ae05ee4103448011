package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"gorm.io/gorm"

	apperrors "github.com/Kennong09/budgetme-sub006/internal/errors"
	"github.com/Kennong09/budgetme-sub006/internal/models"
	"github.com/Kennong09/budgetme-sub006/internal/notify"
)

// The budget aggregation engine. Budget.Spent is a derived aggregate: it
// must always equal the sum of completed expense transactions whose date
// falls inside the budget's window and whose category matches. All changes
// to Spent flow through applyBudgetEffect inside the same database
// transaction as the triggering ledger mutation.

// applyBudgetEffect folds the (possibly reversed) expense effect of a
// ledger row into every matching active budget and runs the alert
// evaluator on each updated budget. It returns the notification events to
// dispatch after the enclosing transaction commits.
func applyBudgetEffect(tx *gorm.DB, txn *models.Transaction, direction int, now time.Time) ([]notify.Event, error) {
	if !txn.IsCompleted() || txn.Type != models.TransactionTypeExpense || txn.CategoryID == nil {
		return nil, nil
	}

	budgets, err := matchingBudgets(tx, txn)
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return nil, nil
	}

	delta := txn.Amount
	if direction < 0 {
		delta = delta.Neg()
	}

	var events []notify.Event
	for i := range budgets {
		budget := &budgets[i]

		// spent = spent + δ, atomically at the row, then floored at zero.
		// Reversals can race a concurrent recompute below zero; the clamp
		// keeps the aggregate in its domain.
		res := tx.Model(&models.Budget{}).Where("id = ?", budget.ID).
			Update("spent", gorm.Expr("spent + ?", delta))
		if res.Error != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if err := tx.Model(&models.Budget{}).Where("id = ? AND spent < 0", budget.ID).
			Update("spent", 0).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// Reload the row the alert evaluator will judge.
		if err := tx.Where("id = ?", budget.ID).First(budget).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		alertEvents, err := evaluateBudgetAlerts(tx, budget, now)
		if err != nil {
			return nil, err
		}
		events = append(events, alertEvents...)
	}

	return events, nil
}

// matchingBudgets returns the owner's active budgets whose window contains
// the transaction date and whose category scope matches the transaction's
// expense category, either by ID or by free-text category name.
func matchingBudgets(tx *gorm.DB, txn *models.Transaction) ([]models.Budget, error) {
	var category models.Category
	if err := tx.Where("id = ?", *txn.CategoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	err := tx.Where("user_id = ? AND status = ?", txn.UserID, models.BudgetStatusActive).
		Where("start_date <= ? AND end_date >= ?", txn.Date, txn.Date).
		Where("category_id = ? OR (category_id IS NULL AND category_name = ?)", *txn.CategoryID, category.Name).
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// recomputeSpentFromLedger rebuilds a budget's spent aggregate from the
// ledger itself. Used by the explicit recompute operation and by rollover
// when seeding a successor window.
func recomputeSpentFromLedger(tx *gorm.DB, budget *models.Budget) error {
	var transactions []models.Transaction
	q := tx.Where("user_id = ? AND type = ? AND status = ?",
		budget.UserID, models.TransactionTypeExpense, models.TransactionStatusCompleted).
		Where("date >= ? AND date <= ?", budget.StartDate, budget.EndDate)

	spent := decimal.Zero
	matched := false
	if budget.CategoryID != nil {
		q = q.Where("category_id = ?", *budget.CategoryID)
		matched = true
	} else if budget.CategoryName != "" {
		q = q.Where("category_id IN (?)",
			tx.Model(&models.Category{}).Select("id").
				Where("user_id = ? AND type = ? AND name = ?",
					budget.UserID, models.CategoryTypeExpense, budget.CategoryName))
		matched = true
	}

	if matched {
		if err := q.Find(&transactions).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for i := range transactions {
			spent = spent.Add(transactions[i].Amount)
		}
	}

	budget.Spent = spent
	if err := tx.Model(&models.Budget{}).Where("id = ?", budget.ID).
		Update("spent", spent).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
