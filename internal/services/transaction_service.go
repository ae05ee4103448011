package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/Kennong09/budgetme-sub006/internal/errors"
	"github.com/Kennong09/budgetme-sub006/internal/models"
	"github.com/Kennong09/budgetme-sub006/internal/notify"
	"github.com/Kennong09/budgetme-sub006/internal/pagination"
)

// transactionService handles the ledger: transaction persistence plus the
// orchestration that keeps account balances, budget spent totals, and goal
// progress synchronized with it. Every mutation runs validation first, then
// a single database transaction covering the ledger row and all derived
// aggregates; notification events are dispatched only after commit.
type transactionService struct {
	db         *gorm.DB
	accounts   AccountServicer
	dispatcher *notify.Dispatcher
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, accounts AccountServicer, dispatcher *notify.Dispatcher) TransactionServicer {
	if dispatcher == nil {
		dispatcher = notify.NewDispatcher(nil)
	}
	return &transactionService{db: db, accounts: accounts, dispatcher: dispatcher}
}

// categoryKindFor returns the category kind a transaction type requires.
func categoryKindFor(txType models.TransactionType) (models.CategoryType, bool) {
	switch txType {
	case models.TransactionTypeIncome:
		return models.CategoryTypeIncome, true
	case models.TransactionTypeExpense:
		return models.CategoryTypeExpense, true
	}
	return "", false
}

// verifyCategory checks that the category exists, belongs to the user, and
// matches the kind required by the transaction type.
func (s *transactionService) verifyCategory(userID, categoryID string, txType models.TransactionType) error {
	kind, ok := categoryKindFor(txType)
	if !ok {
		return apperrors.ErrInvalidTransactionType
	}

	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrCategoryNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if category.Type != kind {
		return apperrors.ErrCategoryMismatch
	}
	return nil
}

// mutableAccount loads an account for a ledger mutation, rejecting closed
// accounts.
func (s *transactionService) mutableAccount(userID, accountID string) (*models.Account, error) {
	account, err := s.accounts.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status == models.AccountStatusClosed {
		return nil, apperrors.ErrAccountClosed
	}
	return account, nil
}

// CreateTransaction creates an income or expense ledger entry and applies
// its effect to the account balance and any matching budgets, atomically.
// Transfers and goal contributions have dedicated operations.
func (s *transactionService) CreateTransaction(userID string, spec TransactionSpec) (*models.Transaction, error) {
	if !spec.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	switch spec.Type {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
	case models.TransactionTypeTransfer:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidTransactionType, "transfers are created via the transfer operation")
	case models.TransactionTypeContribution:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidTransactionType, "contributions are created via the goal contribution operation")
	default:
		return nil, apperrors.ErrInvalidTransactionType
	}

	status := spec.Status
	if status == "" {
		status = models.TransactionStatusCompleted
	}
	switch status {
	case models.TransactionStatusPending, models.TransactionStatusCompleted, models.TransactionStatusCancelled:
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid transaction status")
	}

	date := spec.Date
	if date.IsZero() {
		date = time.Now()
	}

	if _, err := s.mutableAccount(userID, spec.AccountID); err != nil {
		return nil, err
	}

	// Exactly one category reference is required, matching the type.
	if spec.CategoryID == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "a category matching the transaction type is required")
	}
	if err := s.verifyCategory(userID, *spec.CategoryID, spec.Type); err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		UserID:     userID,
		AccountID:  spec.AccountID,
		CategoryID: spec.CategoryID,
		Type:       spec.Type,
		Status:     status,
		Amount:     spec.Amount,
		Notes:      spec.Notes,
		Date:       date,
	}

	var events []notify.Event
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(txn).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := applyAccountDeltas(tx, userID, transactionDeltas(txn), 1, nil); err != nil {
			return err
		}
		var err error
		events, err = applyBudgetEffect(tx, txn, 1, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(events)
	return txn, nil
}

// UpdateTransaction updates an income or expense ledger entry. The net
// result is indistinguishable from deleting the old row and inserting the
// new one as a single step: the old effect is reversed and the new effect
// applied inside one database transaction, covering both the old and new
// account/budget sets.
func (s *transactionService) UpdateTransaction(userID, transactionID string, fields TransactionUpdateFields) (*models.Transaction, error) {
	old, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}
	if old.Type == models.TransactionTypeTransfer || old.Type == models.TransactionTypeContribution {
		return nil, apperrors.ErrTransactionNotEditable
	}

	updated := *old

	if fields.Type != nil {
		switch *fields.Type {
		case models.TransactionTypeIncome, models.TransactionTypeExpense:
			updated.Type = *fields.Type
		default:
			return nil, apperrors.ErrInvalidTypeChange
		}
	}
	if fields.Amount != nil {
		if !fields.Amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		updated.Amount = *fields.Amount
	}
	if fields.Status != nil {
		switch *fields.Status {
		case models.TransactionStatusPending, models.TransactionStatusCompleted, models.TransactionStatusCancelled:
			updated.Status = *fields.Status
		default:
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid transaction status")
		}
	}
	if fields.Date != nil {
		updated.Date = *fields.Date
	}
	if fields.Notes != nil {
		updated.Notes = *fields.Notes
	}
	if fields.AccountID != nil {
		if _, err := s.mutableAccount(userID, *fields.AccountID); err != nil {
			return nil, err
		}
		updated.AccountID = *fields.AccountID
	}
	if fields.ClearCategory {
		updated.CategoryID = nil
	} else if fields.CategoryID != nil {
		updated.CategoryID = fields.CategoryID
	}

	if updated.CategoryID == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "a category matching the transaction type is required")
	}
	if err := s.verifyCategory(userID, *updated.CategoryID, updated.Type); err != nil {
		return nil, err
	}

	now := time.Now()
	var events []notify.Event
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := applyAccountDeltas(tx, userID, transactionDeltas(old), -1, nil); err != nil {
			return err
		}
		reversalEvents, err := applyBudgetEffect(tx, old, -1, now)
		if err != nil {
			return err
		}

		if err := tx.Save(&updated).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := applyAccountDeltas(tx, userID, transactionDeltas(&updated), 1, nil); err != nil {
			return err
		}
		applyEvents, err := applyBudgetEffect(tx, &updated, 1, now)
		if err != nil {
			return err
		}

		events = append(reversalEvents, applyEvents...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(events)
	return &updated, nil
}

// DeleteTransaction removes a ledger entry and reverses its effect on every
// derived aggregate. Deleting either leg of a transfer removes the whole
// pair; deleting a contribution transaction also removes the contribution
// record and rolls the goal back.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	txn, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	now := time.Now()
	var events []notify.Event
	err = s.db.Transaction(func(tx *gorm.DB) error {
		_, cascadeEvents, err := deleteTransactionCascade(tx, txn, nil, now)
		events = cascadeEvents
		return err
	})
	if err != nil {
		return err
	}

	s.dispatcher.Dispatch(events)
	return nil
}

// deleteTransactionCascade removes a ledger row together with its linked
// records and reverses every derived aggregate, inside the caller's
// database transaction. Accounts in skip keep their balance untouched
// (used when the account itself is being deleted). Returns the IDs of all
// removed transactions and the notification events queued by budget
// re-evaluation.
func deleteTransactionCascade(tx *gorm.DB, txn *models.Transaction, skip map[string]bool, now time.Time) ([]string, []notify.Event, error) {
	rows := []*models.Transaction{txn}
	if txn.Type == models.TransactionTypeTransfer {
		other, err := linkedTransferLeg(tx, txn)
		if err != nil {
			return nil, nil, err
		}
		if other != nil {
			rows = append(rows, other)
		}
	}

	var removed []string
	var events []notify.Event
	for _, row := range rows {
		if err := applyAccountDeltas(tx, row.UserID, transactionDeltas(row), -1, skip); err != nil {
			return nil, nil, err
		}

		budgetEvents, err := applyBudgetEffect(tx, row, -1, now)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, budgetEvents...)

		if row.Type == models.TransactionTypeContribution {
			if err := reverseContributionForTransaction(tx, row, now); err != nil {
				return nil, nil, err
			}
		}

		if err := tx.Delete(row).Error; err != nil {
			return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		removed = append(removed, row.ID)
	}

	return removed, events, nil
}

// linkedTransferLeg locates the other row of a transfer pair. A missing
// counterpart is not an error: the pair may already be partially removed by
// an enclosing cascade.
func linkedTransferLeg(tx *gorm.DB, txn *models.Transaction) (*models.Transaction, error) {
	var other models.Transaction
	q := tx.Where("user_id = ?", txn.UserID)
	if txn.LinkedTransactionID != nil {
		q = q.Where("id = ?", *txn.LinkedTransactionID)
	} else {
		q = q.Where("linked_transaction_id = ?", txn.ID)
	}
	if err := q.First(&other).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &other, nil
}

// CreateTransfer moves money between two accounts of the same owner as a
// pair of linked ledger rows, atomically: either both legs land and both
// balances move, or nothing is recorded. Unlike plain expenses, transfers
// enforce sufficient funds on the source account.
func (s *transactionService) CreateTransfer(userID string, spec TransferSpec) (*TransferResult, error) {
	if !spec.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if spec.FromAccountID == spec.ToAccountID {
		return nil, apperrors.ErrSelfTransfer
	}

	from, err := s.mutableAccount(userID, spec.FromAccountID)
	if err != nil {
		return nil, err
	}
	to, err := s.mutableAccount(userID, spec.ToAccountID)
	if err != nil {
		return nil, err
	}

	if from.Balance.LessThan(spec.Amount) {
		return nil, apperrors.ErrInsufficientFunds
	}

	date := spec.Date
	if date.IsZero() {
		date = time.Now()
	}

	var debit, credit *models.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		debit = &models.Transaction{
			UserID:            userID,
			AccountID:         from.ID,
			Type:              models.TransactionTypeTransfer,
			Status:            models.TransactionStatusCompleted,
			Amount:            spec.Amount,
			Notes:             spec.Notes,
			Date:              date,
			TransferAccountID: &to.ID,
			TransferDirection: models.TransferDirectionOut,
		}
		if err := tx.Create(debit).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		credit = &models.Transaction{
			UserID:              userID,
			AccountID:           to.ID,
			Type:                models.TransactionTypeTransfer,
			Status:              models.TransactionStatusCompleted,
			Amount:              spec.Amount,
			Notes:               spec.Notes,
			Date:                date,
			TransferAccountID:   &from.ID,
			LinkedTransactionID: &debit.ID,
			TransferDirection:   models.TransferDirectionIn,
		}
		if err := tx.Create(credit).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// Back-fill the debit leg's link to complete the pair.
		if err := tx.Model(debit).Update("linked_transaction_id", credit.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		debit.LinkedTransactionID = &credit.ID

		if err := applyAccountDeltas(tx, userID, transactionDeltas(debit), 1, nil); err != nil {
			return err
		}
		return applyAccountDeltas(tx, userID, transactionDeltas(credit), 1, nil)
	})
	if err != nil {
		return nil, err
	}

	return &TransferResult{
		DebitTransactionID:  debit.ID,
		CreditTransactionID: credit.ID,
	}, nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// GetUserTransactions retrieves a paginated, filtered list of the user's
// transactions across all accounts.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountTransactions retrieves a paginated, filtered list of transactions for a specific account.
func (s *transactionService) GetAccountTransactions(userID, accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	// First verify the account belongs to the user
	if _, err := s.accounts.GetAccountByID(userID, accountID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ? AND account_id = ?", userID, accountID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.GoalID != nil {
		q = q.Where("goal_id = ?", *f.GoalID)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	return q
}
