package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Kennong09/budgetme-sub006/internal/models"
	"github.com/Kennong09/budgetme-sub006/internal/pagination"
	"github.com/Kennong09/budgetme-sub006/internal/testutil"
)

func TestCreateAccount(t *testing.T) {
	t.Run("balance_starts_at_initial_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db, nil)
		userID := testutil.NewUserID()

		account, err := acctSvc.CreateAccount(userID, AccountSpec{
			Name:           "Checking",
			Type:           models.AccountTypeChecking,
			InitialBalance: testutil.Amount(t, "250.00"),
		})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, testutil.Amount(t, "250.00"), account.Balance, "opening balance")
		testutil.AssertDecimalEqual(t, testutil.Amount(t, "250.00"), account.InitialBalance, "initial balance")
		if account.Status != models.AccountStatusActive {
			t.Errorf("expected active status, got %s", account.Status)
		}
	})

	t.Run("credit_account_rejects_positive_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db, nil)
		userID := testutil.NewUserID()

		_, err := acctSvc.CreateAccount(userID, AccountSpec{
			Name:           "Visa",
			Type:           models.AccountTypeCredit,
			InitialBalance: testutil.Amount(t, "100.00"),
		})
		testutil.AssertAppError(t, err, "CREDIT_BALANCE_POSITIVE")
	})

	t.Run("credit_account_accepts_debt", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db, nil)
		userID := testutil.NewUserID()

		account, err := acctSvc.CreateAccount(userID, AccountSpec{
			Name:           "Visa",
			Type:           models.AccountTypeCredit,
			InitialBalance: testutil.Amount(t, "-400.00"),
		})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, testutil.Amount(t, "-400.00"), account.Balance, "credit debt")
	})

	t.Run("new_default_displaces_previous", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db, nil)
		userID := testutil.NewUserID()

		first, err := acctSvc.CreateAccount(userID, AccountSpec{
			Name:      "First",
			Type:      models.AccountTypeChecking,
			IsDefault: true,
		})
		testutil.AssertNoError(t, err)

		second, err := acctSvc.CreateAccount(userID, AccountSpec{
			Name:      "Second",
			Type:      models.AccountTypeSavings,
			IsDefault: true,
		})
		testutil.AssertNoError(t, err)
		if !second.IsDefault {
			t.Error("expected second account to be default")
		}

		reloaded, err := acctSvc.GetAccountByID(userID, first.ID)
		testutil.AssertNoError(t, err)
		if reloaded.IsDefault {
			t.Error("expected first account to lose default flag")
		}
	})
}

func TestCloseAccount(t *testing.T) {
	t.Run("close_is_idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db, nil)
		userID := testutil.NewUserID()
		account := testutil.CreateTestAccount(t, db, userID)

		testutil.AssertNoError(t, acctSvc.CloseAccount(userID, account.ID))
		testutil.AssertNoError(t, acctSvc.CloseAccount(userID, account.ID))

		reloaded, err := acctSvc.GetAccountByID(userID, account.ID)
		testutil.AssertNoError(t, err)
		if reloaded.Status != models.AccountStatusClosed {
			t.Errorf("expected closed status, got %s", reloaded.Status)
		}
	})

	t.Run("other_users_account_hidden", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db, nil)
		owner := testutil.NewUserID()
		intruder := testutil.NewUserID()
		account := testutil.CreateTestAccount(t, db, owner)

		err := acctSvc.CloseAccount(intruder, account.ID)
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})
}

func TestDeleteAccount(t *testing.T) {
	t.Run("cascade_restores_transfer_counterpart", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db, nil)
		txSvc := NewTransactionService(db, acctSvc, nil)
		userID := testutil.NewUserID()
		doomed := testutil.CreateTestAccountWithBalance(t, db, userID, testutil.Amount(t, "500.00"))
		survivor := testutil.CreateTestAccountWithBalance(t, db, userID, testutil.Amount(t, "100.00"))

		_, err := txSvc.CreateTransfer(userID, TransferSpec{
			FromAccountID: doomed.ID,
			ToAccountID:   survivor.ID,
			Amount:        testutil.Amount(t, "200.00"),
		})
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, acctSvc.DeleteAccount(userID, doomed.ID))

		_, err = acctSvc.GetAccountByID(userID, doomed.ID)
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")

		// The transfer into the surviving account is unwound with its pair.
		reloaded, err := acctSvc.GetAccountByID(userID, survivor.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, testutil.Amount(t, "100.00"), reloaded.Balance, "counterpart balance restored")

		var count int64
		testutil.AssertNoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&count).Error)
		if count != 0 {
			t.Errorf("expected transfer pair removed, got %d rows", count)
		}
	})

	t.Run("cascade_reverses_budget_spent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db, nil)
		txSvc := NewTransactionService(db, acctSvc, nil)
		budgetSvc := NewBudgetService(db, nil)
		userID := testutil.NewUserID()
		account := testutil.CreateTestAccountWithBalance(t, db, userID, testutil.Amount(t, "1000.00"))
		category := testutil.CreateTestCategory(t, db, userID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, userID, &category.ID, testutil.Amount(t, "500.00"))

		_, err := txSvc.CreateTransaction(userID, TransactionSpec{
			AccountID:  account.ID,
			CategoryID: &category.ID,
			Type:       models.TransactionTypeExpense,
			Amount:     testutil.Amount(t, "120.00"),
		})
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, acctSvc.DeleteAccount(userID, account.ID))

		reloaded, err := budgetSvc.GetBudgetByID(userID, budget.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, decimal.Zero, reloaded.Spent, "budget spent after cascade")
	})
}

func TestGetUserAccounts(t *testing.T) {
	t.Run("lists_only_own_accounts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc := NewAccountService(db, nil)
		owner := testutil.NewUserID()
		other := testutil.NewUserID()
		testutil.CreateTestAccount(t, db, owner)
		testutil.CreateTestAccount(t, db, owner)
		testutil.CreateTestAccount(t, db, other)

		result, err := acctSvc.GetUserAccounts(owner, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 accounts, got %d", result.TotalItems)
		}
	})
}
