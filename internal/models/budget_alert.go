package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertType represents the severity tier of a budget alert
type AlertType string

const (
	AlertTypeThreshold AlertType = "threshold"
	AlertTypeExceeded  AlertType = "exceeded"
)

// AlertSeverity maps alert types to notification severity.
type AlertSeverity string

const (
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// BudgetAlert is a notification record produced by threshold evaluation.
// The (budget_id, alert_type, hour_bucket) unique index is the concurrency-safe
// de-duplication window: two racing mutations can both decide to alert, but
// only one insert lands per budget, type, and hour.
type BudgetAlert struct {
	Base
	BudgetID    string          `gorm:"type:uuid;not null;index;uniqueIndex:idx_budget_alerts_dedup" json:"budget_id"`
	AlertType   AlertType       `gorm:"not null;uniqueIndex:idx_budget_alerts_dedup" json:"alert_type"`
	HourBucket  time.Time       `gorm:"not null;uniqueIndex:idx_budget_alerts_dedup" json:"-"`
	Severity    AlertSeverity   `gorm:"not null" json:"severity"`
	Percentage  decimal.Decimal `gorm:"type:numeric(7,4)" json:"percentage"`
	TriggeredAt time.Time       `gorm:"not null" json:"triggered_at"`

	// Relationships
	Budget Budget `gorm:"foreignKey:BudgetID" json:"budget,omitempty"`
}
