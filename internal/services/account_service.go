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

// accountService handles account-related business logic.
type accountService struct {
	db         *gorm.DB
	dispatcher *notify.Dispatcher
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB, dispatcher *notify.Dispatcher) AccountServicer {
	if dispatcher == nil {
		dispatcher = notify.NewDispatcher(nil)
	}
	return &accountService{db: db, dispatcher: dispatcher}
}

// validAccountType reports whether t is one of the recognized account types.
func validAccountType(t models.AccountType) bool {
	switch t {
	case models.AccountTypeChecking, models.AccountTypeSavings, models.AccountTypeCredit,
		models.AccountTypeInvestment, models.AccountTypeCash, models.AccountTypeOther:
		return true
	}
	return false
}

// CreateAccount creates a new account for a user. The opening balance is
// recorded as InitialBalance so the reconstruction invariant starts true:
// balance == initial_balance with zero transactions.
func (s *accountService) CreateAccount(userID string, spec AccountSpec) (*models.Account, error) {
	if spec.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if !validAccountType(spec.Type) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid account type")
	}
	if spec.Type == models.AccountTypeCredit && spec.InitialBalance.IsPositive() {
		return nil, apperrors.ErrCreditBalancePositive
	}

	currency := spec.Currency
	if currency == "" {
		currency = "USD"
	}

	account := &models.Account{
		UserID:         userID,
		Name:           spec.Name,
		Type:           spec.Type,
		Description:    spec.Description,
		Balance:        spec.InitialBalance,
		InitialBalance: spec.InitialBalance,
		Currency:       currency,
		Status:         models.AccountStatusActive,
		IsDefault:      spec.IsDefault,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if spec.IsDefault {
			if err := clearDefaultAccount(tx, userID); err != nil {
				return err
			}
		}
		if err := tx.Create(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// clearDefaultAccount unsets the default flag on the user's current default
// account, if any. There is at most one default account per user.
func clearDefaultAccount(tx *gorm.DB, userID string) error {
	if err := tx.Model(&models.Account{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetUserAccounts retrieves a paginated list of accounts for a user.
func (s *accountService) GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	base := s.db.Model(&models.Account{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at ASC").
		Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an account by ID for a specific user
func (s *accountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount updates an account's configuration. Balance is not among
// the updatable fields: it belongs to the balance engine.
func (s *accountService) UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error) {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Name != nil && *fields.Name != "" {
		updates["name"] = *fields.Name
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.Status != nil {
		updates["status"] = *fields.Status
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if fields.IsDefault != nil {
			if *fields.IsDefault {
				if err := clearDefaultAccount(tx, userID); err != nil {
					return err
				}
			}
			updates["is_default"] = *fields.IsDefault
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(account).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reload to get fresh data
	if err := s.db.Where("id = ?", account.ID).First(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// CloseAccount soft-closes an account by status change. The account and its
// transactions remain on the ledger.
func (s *accountService) CloseAccount(userID, accountID string) error {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return err
	}
	if account.Status == models.AccountStatusClosed {
		return nil
	}
	if err := s.db.Model(account).Update("status", models.AccountStatusClosed).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DeleteAccount removes an account together with every transaction touching
// it. Effects on other accounts (transfer counterparties), budgets, and
// goals are reversed as the rows go, so the surviving aggregates stay
// consistent with the surviving ledger.
func (s *accountService) DeleteAccount(userID, accountID string) error {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return err
	}

	now := time.Now()
	var events []notify.Event
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var involved []models.Transaction
		if err := tx.Where("user_id = ? AND (account_id = ? OR transfer_account_id = ?)",
			userID, accountID, accountID).
			Order("date ASC").
			Find(&involved).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		skip := map[string]bool{accountID: true}
		seen := make(map[string]bool)
		for i := range involved {
			txn := &involved[i]
			if seen[txn.ID] {
				continue
			}
			removed, cascadeEvents, err := deleteTransactionCascade(tx, txn, skip, now)
			if err != nil {
				return err
			}
			events = append(events, cascadeEvents...)
			for _, id := range removed {
				seen[id] = true
			}
		}

		if err := tx.Delete(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.dispatcher.Dispatch(events)
	return nil
}
