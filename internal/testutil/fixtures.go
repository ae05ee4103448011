package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Kennong09/budgetme-sub006/internal/models"
	"github.com/Kennong09/budgetme-sub006/internal/uuid"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NewUserID returns a fresh owner ID. Identity lives in an external
// provider, so a user is just a UUID here.
func NewUserID() string {
	return uuid.New()
}

// Amount builds a decimal from its string form, failing the test on a typo.
func Amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid fixture amount %q: %v", s, err)
	}
	return d
}

// CreateTestAccount creates a checking account with zero balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID string) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, userID, decimal.Zero)
}

// CreateTestAccountWithBalance creates a checking account with the given balance.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, userID string, balance decimal.Decimal) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:         userID,
		Name:           fmt.Sprintf("Test Account %d", nextID()),
		Type:           models.AccountTypeChecking,
		Balance:        balance,
		InitialBalance: balance,
		Currency:       "USD",
		Status:         models.AccountStatusActive,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCreditAccount creates a credit account with the given (non-positive) balance.
func CreateTestCreditAccount(t *testing.T, db *gorm.DB, userID string, balance decimal.Decimal) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:         userID,
		Name:           fmt.Sprintf("Test Credit Account %d", nextID()),
		Type:           models.AccountTypeCredit,
		Balance:        balance,
		InitialBalance: balance,
		Currency:       "USD",
		Status:         models.AccountStatusActive,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test credit account: %v", err)
	}
	return account
}

// CreateTestCategory creates a category of the given kind.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID:   userID,
		Name:     fmt.Sprintf("Test Category %d", nextID()),
		Type:     categoryType,
		IsActive: true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a completed transaction of the given type and amount.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, accountID string, categoryID *string, txType models.TransactionType, amount decimal.Decimal) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:     userID,
		AccountID:  accountID,
		CategoryID: categoryID,
		Type:       txType,
		Status:     models.TransactionStatusCompleted,
		Amount:     amount,
		Date:       time.Now(),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates an active month budget bound to the given category,
// with a window covering the current date.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID string, categoryID *string, amount decimal.Decimal) *models.Budget {
	t.Helper()

	now := time.Now()
	budget := &models.Budget{
		UserID:         userID,
		Name:           fmt.Sprintf("Test Budget %d", nextID()),
		Amount:         amount,
		Spent:          decimal.Zero,
		Period:         models.BudgetPeriodMonth,
		StartDate:      now.AddDate(0, 0, -7),
		EndDate:        now.AddDate(0, 0, 21),
		CategoryID:     categoryID,
		Status:         models.BudgetStatusActive,
		AlertThreshold: models.DefaultAlertThreshold,
		AlertEnabled:   true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestGoal creates a goal with the given target amount.
func CreateTestGoal(t *testing.T, db *gorm.DB, userID string, target decimal.Decimal) *models.Goal {
	t.Helper()

	goal := &models.Goal{
		UserID:        userID,
		Name:          fmt.Sprintf("Test Goal %d", nextID()),
		TargetAmount:  target,
		CurrentAmount: decimal.Zero,
		Status:        models.GoalStatusNotStarted,
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}
