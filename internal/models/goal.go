package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoalStatus represents the lifecycle status of a savings goal.
// not_started/in_progress/completed are derived from contribution totals;
// paused and cancelled are set externally and are never overridden by
// aggregate recomputation.
type GoalStatus string

const (
	GoalStatusNotStarted GoalStatus = "not_started"
	GoalStatusInProgress GoalStatus = "in_progress"
	GoalStatusCompleted  GoalStatus = "completed"
	GoalStatusCancelled  GoalStatus = "cancelled"
	GoalStatusPaused     GoalStatus = "paused"
)

// Goal is a savings target. CurrentAmount is a derived aggregate maintained
// exclusively from GoalContribution records.
type Goal struct {
	Base
	UserID        string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name          string          `gorm:"not null" json:"name"`
	Description   string          `json:"description"`
	TargetAmount  decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"target_amount"`
	CurrentAmount decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"current_amount"`
	TargetDate    *time.Time      `json:"target_date,omitempty"`
	Status        GoalStatus      `gorm:"not null;default:'not_started'" json:"status"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`

	// Family sharing is a capability overlay, not joint ownership: UserID
	// remains the sole mutator of goal configuration.
	FamilyID     *string `gorm:"type:uuid;index" json:"family_id,omitempty"`
	IsFamilyGoal bool    `gorm:"default:false" json:"is_family_goal"`

	// Relationships
	Contributions []GoalContribution `gorm:"foreignKey:GoalID" json:"contributions,omitempty"`
}

// AcceptsContributions reports whether the goal is in a state that can
// receive funds. Paused and cancelled goals reject contributions rather
// than being silently re-activated.
func (g *Goal) AcceptsContributions() bool {
	return g.Status != GoalStatusPaused && g.Status != GoalStatusCancelled
}

// GoalContribution links a contribution-type transaction to a goal.
type GoalContribution struct {
	Base
	GoalID          string          `gorm:"type:uuid;not null;index" json:"goal_id"`
	TransactionID   string          `gorm:"type:uuid;not null;uniqueIndex" json:"transaction_id"`
	SourceAccountID string          `gorm:"type:uuid;not null" json:"source_account_id"`
	Amount          decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"amount"`
	Date            time.Time       `gorm:"not null" json:"contribution_date"`
	Notes           string          `json:"notes"`

	// Relationships
	Goal        Goal        `gorm:"foreignKey:GoalID" json:"goal,omitempty"`
	Transaction Transaction `gorm:"foreignKey:TransactionID" json:"transaction,omitempty"`
}
