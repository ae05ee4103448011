package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"github.com/Kennong09/budgetme-sub006/internal/logger"
	"github.com/Kennong09/budgetme-sub006/internal/models"
)

// auditService records mutating operations. Logging is fire-and-forget: a
// failed audit write never fails the operation it describes.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log writes an audit entry asynchronously.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	go func() {
		entry := models.AuditLog{
			UserID:       userID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			IPAddress:    ipAddress,
		}
		if changes != nil {
			if data, err := json.Marshal(changes); err == nil {
				entry.Changes = string(data)
			}
		}
		if err := s.db.Create(&entry).Error; err != nil {
			logger.Get().Warnw("failed to write audit log",
				"user_id", userID,
				"action", action,
				"error", err)
		}
	}()
}
