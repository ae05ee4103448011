package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kennong09/budgetme-sub006/internal/models"
	"github.com/Kennong09/budgetme-sub006/internal/pagination"
)

// AccountSpec holds the caller-supplied fields for creating an account.
type AccountSpec struct {
	Name           string
	Type           models.AccountType
	Description    string
	InitialBalance decimal.Decimal
	Currency       string
	IsDefault      bool
}

// AccountUpdateFields holds optional fields for updating an account.
// Balance is deliberately absent: it is a derived aggregate and is only
// mutated by the balance engine.
type AccountUpdateFields struct {
	Name        *string
	Description *string
	Status      *models.AccountStatus
	IsDefault   *bool
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(userID string, spec AccountSpec) (*models.Account, error)
	GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error)
	CloseAccount(userID, accountID string) error
	DeleteAccount(userID, accountID string) error
}

// CategorySpec holds the caller-supplied fields for creating a category.
type CategorySpec struct {
	Name          string
	Type          models.CategoryType
	Description   string
	Icon          string
	Color         string
	MonthlyBudget decimal.Decimal
}

// CategoryUpdateFields holds optional fields for updating a category.
type CategoryUpdateFields struct {
	Name          *string
	Description   *string
	Icon          *string
	Color         *string
	IsActive      *bool
	MonthlyBudget *decimal.Decimal
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID string, spec CategorySpec) (*models.Category, error)
	GetUserCategories(userID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID string, fields CategoryUpdateFields) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// TransactionSpec holds the caller-supplied fields for creating a ledger entry.
type TransactionSpec struct {
	AccountID  string
	CategoryID *string
	Type       models.TransactionType
	Status     models.TransactionStatus
	Amount     decimal.Decimal
	Notes      string
	Date       time.Time
}

// TransactionUpdateFields holds optional fields for updating a transaction.
// Type changes are only permitted between income and expense.
type TransactionUpdateFields struct {
	AccountID     *string
	CategoryID    *string
	ClearCategory bool
	Type          *models.TransactionType
	Status        *models.TransactionStatus
	Amount        *decimal.Decimal
	Notes         *string
	Date          *time.Time
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	Status     *models.TransactionStatus
	CategoryID *string
	GoalID     *string
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
}

// TransferSpec holds the caller-supplied fields for a transfer between two
// accounts of the same owner.
type TransferSpec struct {
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	Date          time.Time
	Notes         string
}

// TransferResult identifies the two linked ledger rows of a transfer pair.
type TransferResult struct {
	DebitTransactionID  string `json:"debit_transaction_id"`
	CreditTransactionID string `json:"credit_transaction_id"`
}

// TransactionServicer defines the contract for the ledger: transaction
// persistence plus the orchestration that keeps every derived aggregate
// (account balance, budget spent, goal progress) consistent with it.
type TransactionServicer interface {
	CreateTransaction(userID string, spec TransactionSpec) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, fields TransactionUpdateFields) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetAccountTransactions(userID, accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	CreateTransfer(userID string, spec TransferSpec) (*TransferResult, error)
}

// BudgetSpec holds the caller-supplied fields for creating a budget.
// Spent is deliberately absent: it is a derived aggregate.
type BudgetSpec struct {
	Name            string
	Amount          decimal.Decimal
	Period          models.BudgetPeriod
	StartDate       time.Time
	EndDate         *time.Time
	CategoryID      *string
	CategoryName    string
	AlertThreshold  *decimal.Decimal
	AlertEnabled    *bool
	RolloverEnabled bool
}

// BudgetUpdateFields holds optional fields for updating a budget.
type BudgetUpdateFields struct {
	Name            *string
	Amount          *decimal.Decimal
	Status          *models.BudgetStatus
	AlertThreshold  *decimal.Decimal
	AlertEnabled    *bool
	RolloverEnabled *bool
	EndDate         *time.Time
}

// BudgetProgress contains spending vs ceiling data for a budget.
type BudgetProgress struct {
	BudgetID   string          `json:"budget_id"`
	Budgeted   decimal.Decimal `json:"budgeted"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage decimal.Decimal `json:"percentage"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID string, spec BudgetSpec) (*models.Budget, error)
	GetUserBudgets(userID string, page pagination.PageRequest, status *models.BudgetStatus, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	UpdateBudget(userID, budgetID string, fields BudgetUpdateFields) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	GetBudgetProgress(userID, budgetID string) (*BudgetProgress, error)
	GetBudgetAlerts(userID, budgetID string, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetAlert], error)
	RolloverBudget(userID, budgetID string) (*models.Budget, error)
	RecomputeBudgetSpent(userID, budgetID string) (*models.Budget, error)
}

// GoalSpec holds the caller-supplied fields for creating a goal.
type GoalSpec struct {
	Name         string
	Description  string
	TargetAmount decimal.Decimal
	TargetDate   *time.Time
	FamilyID     *string
	IsFamilyGoal bool
}

// GoalUpdateFields holds optional fields for updating a goal's
// configuration. CurrentAmount is derived and absent; Status here covers
// only the externally-set pause/cancel/resume states.
type GoalUpdateFields struct {
	Name         *string
	Description  *string
	TargetAmount *decimal.Decimal
	TargetDate   *time.Time
	Status       *models.GoalStatus
}

// ContributionSpec holds the caller-supplied fields for contributing to a goal.
type ContributionSpec struct {
	SourceAccountID string
	Amount          decimal.Decimal
	Date            time.Time
	Notes           string
}

// ContributionResult identifies the records created by a goal contribution.
type ContributionResult struct {
	ContributionID string `json:"contribution_id"`
	TransactionID  string `json:"transaction_id"`
}

// GoalServicer defines the contract for goal-related business logic.
type GoalServicer interface {
	CreateGoal(userID string, spec GoalSpec) (*models.Goal, error)
	GetUserGoals(userID string, page pagination.PageRequest, status *models.GoalStatus) (*pagination.PageResponse[models.Goal], error)
	GetGoalByID(callerID, goalID string) (*models.Goal, error)
	UpdateGoal(userID, goalID string, fields GoalUpdateFields) (*models.Goal, error)
	DeleteGoal(userID, goalID string) error
	ContributeToGoal(callerID, goalID string, spec ContributionSpec) (*ContributionResult, error)
	RemoveContribution(callerID, contributionID string) error
	GetGoalContributions(callerID, goalID string, page pagination.PageRequest) (*pagination.PageResponse[models.GoalContribution], error)
}

// FamilyAuthorizer is the external family/authorization collaborator,
// consulted only when a goal is family-shared and the caller is not the
// owner. Implementations live outside this core.
type FamilyAuthorizer interface {
	IsFamilyMember(userID, familyID string) bool
	HasGoalSharePermission(userID, goalID string) bool
}

// DenyAllFamilyAuthorizer refuses every non-owner access. It is the safe
// default when no family module is wired.
type DenyAllFamilyAuthorizer struct{}

// IsFamilyMember implements FamilyAuthorizer.
func (DenyAllFamilyAuthorizer) IsFamilyMember(string, string) bool { return false }

// HasGoalSharePermission implements FamilyAuthorizer.
func (DenyAllFamilyAuthorizer) HasGoalSharePermission(string, string) bool { return false }

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
