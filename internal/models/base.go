package models

import (
	"time"

	"github.com/Kennong09/budgetme-sub006/internal/uuid"

	"gorm.io/gorm"
)

// Base carries the columns shared by every table: a UUIDv7 primary key,
// timestamps, and a soft-delete marker.
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate assigns a key when the caller did not set one.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}
