package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/Kennong09/budgetme-sub006/internal/errors"
	"github.com/Kennong09/budgetme-sub006/internal/models"
	"github.com/Kennong09/budgetme-sub006/internal/notify"
)

// The alert evaluator is a stateless policy over a budget's current
// spent/amount/threshold. It decides whether an alert record should be
// inserted, suppresses duplicates within an hour per (budget, type), and
// queues the notification event for post-commit dispatch.

var oneHundred = decimal.NewFromInt(100)

// alertDecision returns the alert type and severity warranted by the
// budget's current state, or ok=false when no alert applies.
func alertDecision(budget *models.Budget) (models.AlertType, models.AlertSeverity, bool) {
	if !budget.AlertEnabled || !budget.Amount.IsPositive() {
		return "", "", false
	}

	// AlertThreshold is always populated at creation (unset requests get
	// the default), so an explicit zero means "alert on any spending".
	switch {
	case budget.Spent.GreaterThanOrEqual(budget.Amount):
		return models.AlertTypeExceeded, models.AlertSeverityCritical, true
	case budget.Percentage().GreaterThanOrEqual(budget.AlertThreshold):
		return models.AlertTypeThreshold, models.AlertSeverityWarning, true
	}
	return "", "", false
}

// evaluateBudgetAlerts runs the decision table against the budget and, when
// an alert is due and not a duplicate, inserts the alert row inside the
// enclosing transaction. The check-then-insert race between two concurrent
// mutations is closed by the (budget_id, alert_type, hour_bucket) unique
// index together with an insert-on-conflict-do-nothing.
func evaluateBudgetAlerts(tx *gorm.DB, budget *models.Budget, now time.Time) ([]notify.Event, error) {
	alertType, severity, ok := alertDecision(budget)
	if !ok {
		return nil, nil
	}

	// Suppress if an alert of the same type fired within the last hour.
	var recent int64
	err := tx.Model(&models.BudgetAlert{}).
		Where("budget_id = ? AND alert_type = ? AND triggered_at > ?", budget.ID, alertType, now.Add(-time.Hour)).
		Count(&recent).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if recent > 0 {
		return nil, nil
	}

	percentage := budget.Percentage().Mul(oneHundred)
	alert := &models.BudgetAlert{
		BudgetID:    budget.ID,
		AlertType:   alertType,
		Severity:    severity,
		Percentage:  percentage,
		TriggeredAt: now,
		HourBucket:  now.UTC().Truncate(time.Hour),
	}

	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "budget_id"}, {Name: "alert_type"}, {Name: "hour_bucket"}},
		DoNothing: true,
	}).Create(alert)
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		// A concurrent mutation won the insert; nothing to emit.
		return nil, nil
	}

	event := notify.Event{
		Type: "budget." + string(alertType),
		Payload: map[string]any{
			"budget_id":   budget.ID,
			"budget_name": budget.Name,
			"alert_type":  string(alertType),
			"severity":    string(severity),
			"percentage":  percentage.StringFixed(2),
			"spent":       budget.Spent.StringFixed(4),
			"amount":      budget.Amount.StringFixed(4),
		},
	}
	return []notify.Event{event}, nil
}
