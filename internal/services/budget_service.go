package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/Kennong09/budgetme-sub006/internal/errors"
	"github.com/Kennong09/budgetme-sub006/internal/models"
	"github.com/Kennong09/budgetme-sub006/internal/notify"
	"github.com/Kennong09/budgetme-sub006/internal/pagination"
)

// budgetService handles budget configuration and reads. The Spent aggregate
// itself is maintained by the aggregation path in the ledger; this service
// only ever recomputes it wholesale or seeds it for rollover successors.
type budgetService struct {
	db         *gorm.DB
	dispatcher *notify.Dispatcher
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, dispatcher *notify.Dispatcher) BudgetServicer {
	if dispatcher == nil {
		dispatcher = notify.NewDispatcher(nil)
	}
	return &budgetService{db: db, dispatcher: dispatcher}
}

// endOfDay normalizes an end date to the last instant of its day, so a
// budget "ending on the 31st" still covers the 31st's transactions.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// periodEndDate derives the end of a budget window from its period type.
func periodEndDate(period models.BudgetPeriod, start time.Time) time.Time {
	switch period {
	case models.BudgetPeriodWeek:
		return endOfDay(start.AddDate(0, 0, 6))
	case models.BudgetPeriodMonth:
		return endOfDay(start.AddDate(0, 1, -1))
	case models.BudgetPeriodQuarter:
		return endOfDay(start.AddDate(0, 3, -1))
	case models.BudgetPeriodYear:
		return endOfDay(start.AddDate(1, 0, -1))
	}
	return endOfDay(start)
}

// CreateBudget creates a budget. The window end is taken from the explicit
// EndDate for custom periods and derived from the period otherwise. Spent
// is seeded from completed expenses already inside the window, so a budget
// declared mid-month immediately reflects the month's spending.
func (s *budgetService) CreateBudget(userID string, spec BudgetSpec) (*models.Budget, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget name is required")
	}
	if !spec.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if spec.CategoryID == nil && strings.TrimSpace(spec.CategoryName) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "a category id or category name is required")
	}

	switch spec.Period {
	case models.BudgetPeriodWeek, models.BudgetPeriodMonth, models.BudgetPeriodQuarter, models.BudgetPeriodYear:
	case models.BudgetPeriodCustom:
		if spec.EndDate == nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "a custom period requires an end date")
		}
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid budget period")
	}

	startDate := spec.StartDate
	if startDate.IsZero() {
		startDate = time.Now()
	}

	var endDate time.Time
	if spec.Period == models.BudgetPeriodCustom {
		endDate = endOfDay(*spec.EndDate)
	} else {
		endDate = periodEndDate(spec.Period, startDate)
	}
	if endDate.Before(startDate) {
		return nil, apperrors.ErrInvalidDateRange
	}

	if spec.CategoryID != nil {
		var category models.Category
		if err := s.db.Where("id = ? AND user_id = ?", *spec.CategoryID, userID).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrCategoryNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if category.Type != models.CategoryTypeExpense {
			return nil, apperrors.WithMessage(apperrors.ErrCategoryMismatch, "budgets track expense categories")
		}
	}

	threshold := models.DefaultAlertThreshold
	if spec.AlertThreshold != nil {
		if spec.AlertThreshold.IsNegative() || spec.AlertThreshold.GreaterThan(decimal.NewFromInt(1)) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 0 and 1")
		}
		threshold = *spec.AlertThreshold
	}
	alertEnabled := true
	if spec.AlertEnabled != nil {
		alertEnabled = *spec.AlertEnabled
	}

	budget := &models.Budget{
		UserID:          userID,
		Name:            strings.TrimSpace(spec.Name),
		Amount:          spec.Amount,
		Spent:           decimal.Zero,
		Period:          spec.Period,
		StartDate:       startDate,
		EndDate:         endDate,
		CategoryID:      spec.CategoryID,
		CategoryName:    strings.TrimSpace(spec.CategoryName),
		Status:          models.BudgetStatusActive,
		AlertThreshold:  threshold,
		AlertEnabled:    alertEnabled,
		RolloverEnabled: spec.RolloverEnabled,
	}

	var events []notify.Event
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := recomputeSpentFromLedger(tx, budget); err != nil {
			return err
		}
		var err error
		events, err = evaluateBudgetAlerts(tx, budget, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(events)
	return budget, nil
}

// GetUserBudgets retrieves a paginated list of a user's budgets, optionally
// filtered by status and period.
func (s *budgetService) GetUserBudgets(userID string, page pagination.PageRequest, status *models.BudgetStatus, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if status != nil {
		base = base.Where("status = ?", *status)
	}
	if period != nil {
		base = base.Where("period = ?", *period)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Scopes(pagination.Paginate(page)).
		Order("start_date DESC").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBudgetByID retrieves a budget by ID for a specific user.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget updates a budget's configuration. Spent is derived and
// cannot be set; the window's category binding is fixed at creation.
func (s *budgetService) UpdateBudget(userID, budgetID string, fields BudgetUpdateFields) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	if fields.Name != nil {
		if strings.TrimSpace(*fields.Name) == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget name is required")
		}
		budget.Name = strings.TrimSpace(*fields.Name)
	}
	if fields.Amount != nil {
		if !fields.Amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		budget.Amount = *fields.Amount
	}
	if fields.Status != nil {
		switch *fields.Status {
		case models.BudgetStatusActive, models.BudgetStatusPaused, models.BudgetStatusCompleted, models.BudgetStatusArchived:
			budget.Status = *fields.Status
		default:
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid budget status")
		}
	}
	if fields.AlertThreshold != nil {
		if fields.AlertThreshold.IsNegative() || fields.AlertThreshold.GreaterThan(decimal.NewFromInt(1)) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 0 and 1")
		}
		budget.AlertThreshold = *fields.AlertThreshold
	}
	if fields.AlertEnabled != nil {
		budget.AlertEnabled = *fields.AlertEnabled
	}
	if fields.RolloverEnabled != nil {
		budget.RolloverEnabled = *fields.RolloverEnabled
	}
	if fields.EndDate != nil {
		endDate := endOfDay(*fields.EndDate)
		if endDate.Before(budget.StartDate) {
			return nil, apperrors.ErrInvalidDateRange
		}
		budget.EndDate = endDate
	}

	// A ceiling change can move the budget across an alert boundary.
	var events []notify.Event
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		var err error
		events, err = evaluateBudgetAlerts(tx, budget, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(events)
	return budget, nil
}

// DeleteBudget removes a budget and its alert history. Ledger transactions
// are untouched: a budget is an observer of spending, not an owner of it.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("budget_id = ?", budget.ID).Delete(&models.BudgetAlert{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetBudgetProgress returns spending vs ceiling figures for a budget.
func (s *budgetService) GetBudgetProgress(userID, budgetID string) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}
	return &BudgetProgress{
		BudgetID:   budget.ID,
		Budgeted:   budget.Amount,
		Spent:      budget.Spent,
		Remaining:  budget.Remaining(),
		Percentage: budget.Percentage(),
	}, nil
}

// GetBudgetAlerts retrieves a paginated list of the alerts a budget has raised.
func (s *budgetService) GetBudgetAlerts(userID, budgetID string, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetAlert], error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.BudgetAlert{}).Where("budget_id = ?", budget.ID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var alerts []models.BudgetAlert
	if err := base.Scopes(pagination.Paginate(page)).
		Order("triggered_at DESC").
		Find(&alerts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(alerts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// RolloverBudget closes a budget window and opens its successor, starting
// the day after the original ends. When rollover is enabled the unspent
// remainder is added to the successor's ceiling. The successor's Spent is
// seeded from completed expenses already inside the new window.
func (s *budgetService) RolloverBudget(userID, budgetID string) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}
	if budget.Status != models.BudgetStatusActive {
		return nil, apperrors.ErrBudgetNotActive
	}

	nextStart := endOfDay(budget.EndDate).Add(time.Nanosecond)
	var nextEnd time.Time
	if budget.Period == models.BudgetPeriodCustom {
		// Custom windows roll over into a window of the same length.
		length := budget.EndDate.Sub(budget.StartDate)
		nextEnd = endOfDay(nextStart.Add(length))
	} else {
		nextEnd = periodEndDate(budget.Period, nextStart)
	}

	nextAmount := budget.Amount
	if budget.RolloverEnabled {
		nextAmount = nextAmount.Add(budget.Remaining())
	}

	successor := &models.Budget{
		UserID:          budget.UserID,
		Name:            budget.Name,
		Amount:          nextAmount,
		Spent:           decimal.Zero,
		Period:          budget.Period,
		StartDate:       nextStart,
		EndDate:         nextEnd,
		CategoryID:      budget.CategoryID,
		CategoryName:    budget.CategoryName,
		Status:          models.BudgetStatusActive,
		AlertThreshold:  budget.AlertThreshold,
		AlertEnabled:    budget.AlertEnabled,
		RolloverEnabled: budget.RolloverEnabled,
	}

	var events []notify.Event
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Budget{}).
			Where("id = ?", budget.ID).
			Update("status", models.BudgetStatusCompleted).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Create(successor).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := recomputeSpentFromLedger(tx, successor); err != nil {
			return err
		}
		var err error
		events, err = evaluateBudgetAlerts(tx, successor, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(events)
	return successor, nil
}

// RecomputeBudgetSpent rebuilds a budget's Spent from the ledger. It is the
// repair path for aggregates that have drifted, and the invariant check
// used by tests: a freshly recomputed value must match the incrementally
// maintained one.
func (s *budgetService) RecomputeBudgetSpent(userID, budgetID string) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	var events []notify.Event
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := recomputeSpentFromLedger(tx, budget); err != nil {
			return err
		}
		var err error
		events, err = evaluateBudgetAlerts(tx, budget, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(events)
	return budget, nil
}
