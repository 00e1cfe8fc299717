package services

import (
	"encoding/json"

	"monbudget/internal/logger"
	"monbudget/internal/models"

	"gorm.io/gorm"
)

// auditService handles audit log recording.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Errors are logged but never propagate
// to avoid disrupting the main operation.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	s.write(&models.AuditLog{
		UserID:       userID,
		Actor:        "user",
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      marshalChanges(action, changes),
	})
}

// LogJob records an event performed by a scheduled job on behalf of no user.
func (s *auditService) LogJob(job, action, resourceType, resourceID string, changes map[string]any) {
	s.write(&models.AuditLog{
		Actor:        "job:" + job,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Changes:      marshalChanges(action, changes),
	})
}

func (s *auditService) write(entry *models.AuditLog) {
	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", entry.UserID,
			"actor", entry.Actor,
			"action", entry.Action,
			"resource_type", entry.ResourceType,
			"resource_id", entry.ResourceID,
		)
	}
}

func marshalChanges(action string, changes map[string]any) string {
	if changes == nil {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
		return "{}"
	}
	return string(data)
}
