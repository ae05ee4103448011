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

// goalService handles savings goals and their contributions. A goal's
// CurrentAmount and derived status are maintained exclusively through the
// contribution path; goal updates never touch them directly.
type goalService struct {
	db         *gorm.DB
	accounts   AccountServicer
	family     FamilyAuthorizer
	dispatcher *notify.Dispatcher
}

// NewGoalService creates a new GoalServicer. A nil family authorizer denies
// all non-owner access.
func NewGoalService(db *gorm.DB, accounts AccountServicer, family FamilyAuthorizer, dispatcher *notify.Dispatcher) GoalServicer {
	if family == nil {
		family = DenyAllFamilyAuthorizer{}
	}
	if dispatcher == nil {
		dispatcher = notify.NewDispatcher(nil)
	}
	return &goalService{db: db, accounts: accounts, family: family, dispatcher: dispatcher}
}

// CreateGoal creates a new savings goal for a user.
func (s *goalService) CreateGoal(userID string, spec GoalSpec) (*models.Goal, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal name is required")
	}
	if !spec.TargetAmount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero")
	}
	if spec.IsFamilyGoal && spec.FamilyID == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "a family goal requires a family id")
	}

	goal := &models.Goal{
		UserID:        userID,
		Name:          strings.TrimSpace(spec.Name),
		Description:   spec.Description,
		TargetAmount:  spec.TargetAmount,
		CurrentAmount: decimal.Zero,
		TargetDate:    spec.TargetDate,
		Status:        models.GoalStatusNotStarted,
		FamilyID:      spec.FamilyID,
		IsFamilyGoal:  spec.IsFamilyGoal,
	}
	if err := s.db.Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goal, nil
}

// GetUserGoals retrieves a paginated list of a user's own goals, optionally
// filtered by status.
func (s *goalService) GetUserGoals(userID string, page pagination.PageRequest, status *models.GoalStatus) (*pagination.PageResponse[models.Goal], error) {
	page.Defaults()

	base := s.db.Model(&models.Goal{}).Where("user_id = ?", userID)
	if status != nil {
		base = base.Where("status = ?", *status)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var goals []models.Goal
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(goals, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetGoalByID retrieves a goal the caller may read: their own, or a
// family-shared goal whose family they belong to.
func (s *goalService) GetGoalByID(callerID, goalID string) (*models.Goal, error) {
	var goal models.Goal
	if err := s.db.Where("id = ?", goalID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if goal.UserID == callerID {
		return &goal, nil
	}
	// Non-owners never learn whether a goal exists.
	if goal.IsFamilyGoal && goal.FamilyID != nil && s.family.IsFamilyMember(callerID, *goal.FamilyID) {
		return &goal, nil
	}
	return nil, apperrors.ErrGoalNotFound
}

// ownedGoal loads a goal and requires the caller to be its owner.
func (s *goalService) ownedGoal(userID, goalID string) (*models.Goal, error) {
	var goal models.Goal
	if err := s.db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &goal, nil
}

// UpdateGoal updates a goal's configuration. CurrentAmount is derived and
// cannot be set here. Explicitly settable statuses are paused and
// cancelled; any other requested status resumes the goal, re-deriving the
// status from its contribution total.
func (s *goalService) UpdateGoal(userID, goalID string, fields GoalUpdateFields) (*models.Goal, error) {
	if _, err := s.ownedGoal(userID, goalID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if fields.Name != nil {
		if strings.TrimSpace(*fields.Name) == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal name is required")
		}
		updates["name"] = strings.TrimSpace(*fields.Name)
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.TargetAmount != nil {
		if !fields.TargetAmount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero")
		}
		updates["target_amount"] = *fields.TargetAmount
	}
	if fields.TargetDate != nil {
		updates["target_date"] = fields.TargetDate
	}
	if fields.Status != nil {
		switch *fields.Status {
		case models.GoalStatusPaused, models.GoalStatusCancelled,
			models.GoalStatusNotStarted, models.GoalStatusInProgress, models.GoalStatusCompleted:
		default:
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid goal status")
		}
	}

	// CurrentAmount belongs to the contribution path. The configuration
	// columns are written first, taking the row lock, and the status is
	// then derived from a fresh read so a concurrent contribution's
	// total is never overwritten with a stale one.
	var goal models.Goal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Goal{}).Where("id = ?", goalID).Updates(updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := tx.Where("id = ?", goalID).First(&goal).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if fields.Status != nil {
			switch *fields.Status {
			case models.GoalStatusPaused, models.GoalStatusCancelled:
				goal.Status = *fields.Status
			default:
				// Resume: the derived states are recomputed, never taken
				// from the caller.
				goal.Status = deriveGoalStatus(&goal)
			}
		}

		// A target change can move the goal across the completion boundary.
		if goal.AcceptsContributions() {
			goal.Status = deriveGoalStatus(&goal)
		}
		syncGoalCompletedAt(&goal, time.Now())

		if err := tx.Model(&models.Goal{}).Where("id = ?", goalID).
			Updates(map[string]interface{}{
				"status":       goal.Status,
				"completed_at": goal.CompletedAt,
			}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

// DeleteGoal removes a goal and all of its contributions. Each
// contribution's ledger transaction is deleted and its account debit
// reversed, so the contributed money returns to the source accounts.
func (s *goalService) DeleteGoal(userID, goalID string) error {
	goal, err := s.ownedGoal(userID, goalID)
	if err != nil {
		return err
	}

	now := time.Now()
	var events []notify.Event
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var contributions []models.GoalContribution
		if err := tx.Where("goal_id = ?", goal.ID).Find(&contributions).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, contribution := range contributions {
			var txn models.Transaction
			if err := tx.Where("id = ?", contribution.TransactionID).First(&txn).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					// Orphaned record: remove it without a ledger reversal.
					if err := tx.Delete(&contribution).Error; err != nil {
						return apperrors.Wrap(apperrors.ErrInternalServer, err)
					}
					continue
				}
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			_, cascadeEvents, err := deleteTransactionCascade(tx, &txn, nil, now)
			if err != nil {
				return err
			}
			events = append(events, cascadeEvents...)
		}
		if err := tx.Delete(goal).Error; err != nil {
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

// ContributeToGoal moves money from one of the caller's accounts into a
// goal: a contribution-type ledger transaction, a guarded account debit, a
// contribution record, and the goal aggregate update land atomically.
// Non-owners may contribute to a family-shared goal when the family module
// grants them share permission.
func (s *goalService) ContributeToGoal(callerID, goalID string, spec ContributionSpec) (*ContributionResult, error) {
	if !spec.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	goal, err := s.GetGoalByID(callerID, goalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID != callerID && !s.family.HasGoalSharePermission(callerID, goal.ID) {
		return nil, apperrors.ErrForbidden
	}
	if !goal.AcceptsContributions() {
		return nil, apperrors.ErrGoalNotAcceptingFunds
	}

	// The source account must be the caller's own.
	account, err := s.accounts.GetAccountByID(callerID, spec.SourceAccountID)
	if err != nil {
		return nil, err
	}
	if account.Status == models.AccountStatusClosed {
		return nil, apperrors.ErrAccountClosed
	}
	if account.Balance.LessThan(spec.Amount) {
		return nil, apperrors.ErrInsufficientFunds
	}

	date := spec.Date
	if date.IsZero() {
		date = time.Now()
	}

	var events []notify.Event
	var txn *models.Transaction
	var contribution *models.GoalContribution
	err = s.db.Transaction(func(tx *gorm.DB) error {
		txn = &models.Transaction{
			UserID:    callerID,
			AccountID: account.ID,
			Type:      models.TransactionTypeContribution,
			Status:    models.TransactionStatusCompleted,
			Amount:    spec.Amount,
			Notes:     spec.Notes,
			Date:      date,
			GoalID:    &goal.ID,
		}
		if err := tx.Create(txn).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := applyAccountDeltas(tx, callerID, transactionDeltas(txn), 1, nil); err != nil {
			return err
		}

		contribution = &models.GoalContribution{
			GoalID:          goal.ID,
			TransactionID:   txn.ID,
			SourceAccountID: account.ID,
			Amount:          spec.Amount,
			Date:            date,
			Notes:           spec.Notes,
		}
		if err := tx.Create(contribution).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var err error
		events, err = applyGoalDelta(tx, goal.ID, spec.Amount, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(events)
	return &ContributionResult{
		ContributionID: contribution.ID,
		TransactionID:  txn.ID,
	}, nil
}

// RemoveContribution deletes a contribution: the linked transaction is
// removed, the source account refunded, and the goal aggregate rolled
// back, atomically. Only the contributor may remove their contribution.
func (s *goalService) RemoveContribution(callerID, contributionID string) error {
	var contribution models.GoalContribution
	if err := s.db.Where("id = ?", contributionID).First(&contribution).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrContributionNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var txn models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", contribution.TransactionID, callerID).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrContributionNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now()
	var events []notify.Event
	err := s.db.Transaction(func(tx *gorm.DB) error {
		_, cascadeEvents, err := deleteTransactionCascade(tx, &txn, nil, now)
		events = cascadeEvents
		return err
	})
	if err != nil {
		return err
	}

	s.dispatcher.Dispatch(events)
	return nil
}

// GetGoalContributions retrieves a paginated list of a goal's contributions.
func (s *goalService) GetGoalContributions(callerID, goalID string, page pagination.PageRequest) (*pagination.PageResponse[models.GoalContribution], error) {
	goal, err := s.GetGoalByID(callerID, goalID)
	if err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.GoalContribution{}).Where("goal_id = ?", goal.ID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var contributions []models.GoalContribution
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&contributions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(contributions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// deriveGoalStatus maps a goal's contribution total onto the derived part
// of the status machine. It is never applied to paused or cancelled goals.
func deriveGoalStatus(goal *models.Goal) models.GoalStatus {
	switch {
	case goal.CurrentAmount.GreaterThanOrEqual(goal.TargetAmount):
		return models.GoalStatusCompleted
	case goal.CurrentAmount.IsZero():
		return models.GoalStatusNotStarted
	default:
		return models.GoalStatusInProgress
	}
}

// syncGoalCompletedAt keeps CompletedAt consistent with the status,
// preserving the original completion time across repeated saves.
func syncGoalCompletedAt(goal *models.Goal, now time.Time) {
	if goal.Status == models.GoalStatusCompleted {
		if goal.CompletedAt == nil {
			goal.CompletedAt = &now
		}
		return
	}
	goal.CompletedAt = nil
}

// applyGoalDelta shifts a goal's contribution total by delta and updates
// the derived status, clamping the total at zero. Paused and cancelled
// goals keep their status: reversals still adjust the total, but never
// re-activate the goal. Crossing the target emits a completion event.
//
// The total moves through a current_amount + δ expression update, never
// an absolute write: two concurrent contributions both land. The update
// also takes the row lock, so the re-read that feeds the status
// derivation cannot go stale before commit.
func applyGoalDelta(tx *gorm.DB, goalID string, delta decimal.Decimal, now time.Time) ([]notify.Event, error) {
	if err := tx.Model(&models.Goal{}).Where("id = ?", goalID).
		Update("current_amount", gorm.Expr("current_amount + ?", delta)).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tx.Model(&models.Goal{}).Where("id = ? AND current_amount < 0", goalID).
		Update("current_amount", 0).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var goal models.Goal
	if err := tx.Where("id = ?", goalID).First(&goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	wasCompleted := goal.Status == models.GoalStatusCompleted

	if goal.AcceptsContributions() {
		goal.Status = deriveGoalStatus(&goal)
	}
	syncGoalCompletedAt(&goal, now)

	updates := map[string]interface{}{
		"status":       goal.Status,
		"completed_at": goal.CompletedAt,
	}
	if err := tx.Model(&models.Goal{}).Where("id = ?", goal.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var events []notify.Event
	if !wasCompleted && goal.Status == models.GoalStatusCompleted {
		events = append(events, notify.Event{
			Type: "goal.completed",
			Payload: map[string]interface{}{
				"goal_id":        goal.ID,
				"user_id":        goal.UserID,
				"target_amount":  goal.TargetAmount.StringFixed(4),
				"current_amount": goal.CurrentAmount.StringFixed(4),
			},
		})
	}
	return events, nil
}

// reverseContributionForTransaction rolls back the goal-side effect of a
// contribution transaction and removes the contribution record. A missing
// record or goal is tolerated: the ledger row is the source of truth and
// its own reversal is handled by the caller.
func reverseContributionForTransaction(tx *gorm.DB, txn *models.Transaction, now time.Time) error {
	var contribution models.GoalContribution
	if err := tx.Where("transaction_id = ?", txn.ID).First(&contribution).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var goal models.Goal
	err := tx.Select("id").Where("id = ?", contribution.GoalID).First(&goal).Error
	switch {
	case err == nil:
		if _, err := applyGoalDelta(tx, goal.ID, contribution.Amount.Neg(), now); err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Goal already gone; only the record remains to clean up.
	default:
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := tx.Delete(&contribution).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
