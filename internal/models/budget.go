package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodWeek    BudgetPeriod = "week"
	BudgetPeriodMonth   BudgetPeriod = "month"
	BudgetPeriodQuarter BudgetPeriod = "quarter"
	BudgetPeriodYear    BudgetPeriod = "year"
	BudgetPeriodCustom  BudgetPeriod = "custom"
)

// BudgetStatus represents the lifecycle status of a budget
type BudgetStatus string

const (
	BudgetStatusActive    BudgetStatus = "active"
	BudgetStatusPaused    BudgetStatus = "paused"
	BudgetStatusCompleted BudgetStatus = "completed"
	BudgetStatusArchived  BudgetStatus = "archived"
)

// DefaultAlertThreshold is the fraction of the ceiling at which a
// threshold alert fires, applied when a budget is created without an
// explicit threshold. Zero is a valid explicit choice.
var DefaultAlertThreshold = decimal.NewFromFloat(0.80)

// Budget is a declared spending ceiling for a category (or a free-text
// category name) over a date range. Spent is a derived aggregate maintained
// exclusively by the budget aggregation path; it is never client-settable.
type Budget struct {
	Base
	UserID       string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name         string          `gorm:"not null" json:"name"`
	Amount       decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"amount"`
	Spent        decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"spent"`
	Period       BudgetPeriod    `gorm:"not null" json:"period"`
	StartDate    time.Time       `gorm:"not null" json:"start_date"`
	EndDate      time.Time       `gorm:"not null" json:"end_date"`
	CategoryID   *string         `gorm:"type:uuid;index" json:"category_id,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
	Status       BudgetStatus    `gorm:"not null;default:'active'" json:"status"`

	// AlertEnabled carries no column default: GORM omits zero-valued
	// fields that declare one, which would turn an explicit false back
	// into true on insert. The service always sets both alert fields.
	AlertThreshold  decimal.Decimal `gorm:"type:numeric(5,4)" json:"alert_threshold"`
	AlertEnabled    bool            `json:"alert_enabled"`
	RolloverEnabled bool            `gorm:"default:false" json:"rollover_enabled"`

	// Relationships
	Category *Category     `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Alerts   []BudgetAlert `gorm:"foreignKey:BudgetID" json:"alerts,omitempty"`
}

// Remaining returns the unspent portion of the ceiling, floored at zero.
func (b *Budget) Remaining() decimal.Decimal {
	remaining := b.Amount.Sub(b.Spent)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// Percentage returns spent/amount as a fraction, or zero for a zero ceiling.
func (b *Budget) Percentage() decimal.Decimal {
	if b.Amount.IsZero() {
		return decimal.Zero
	}
	return b.Spent.Div(b.Amount)
}

// Covers reports whether the budget's window contains the given date.
func (b *Budget) Covers(date time.Time) bool {
	return !date.Before(b.StartDate) && !date.After(b.EndDate)
}
