package models

import "github.com/shopspring/decimal"

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category represents a user-scoped transaction label. Income and expense
// categories live in the same table, distinguished by Type; a name is unique
// per (user, type).
type Category struct {
	Base
	UserID      string       `gorm:"type:uuid;not null;uniqueIndex:idx_categories_owner_kind_name" json:"user_id"`
	Type        CategoryType `gorm:"not null;uniqueIndex:idx_categories_owner_kind_name" json:"type"`
	Name        string       `gorm:"not null;uniqueIndex:idx_categories_owner_kind_name" json:"name"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Color       string       `json:"color"`
	IsActive    bool         `gorm:"default:true" json:"is_active"`

	// MonthlyBudget is an informational hint on expense categories only.
	// It is not authoritative; real ceilings live on Budget rows.
	MonthlyBudget decimal.Decimal `gorm:"type:numeric(19,4)" json:"monthly_budget,omitempty"`

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:CategoryID" json:"transactions,omitempty"`
	Budgets      []Budget      `gorm:"foreignKey:CategoryID" json:"budgets,omitempty"`
}
