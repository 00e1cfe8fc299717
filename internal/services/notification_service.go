package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "monbudget/internal/errors"
	"monbudget/internal/models"
	"monbudget/internal/pagination"
)

// notificationService serves budget notifications and alert settings.
type notificationService struct {
	db       *gorm.DB
	defaults models.AlertThresholds
}

// NewNotificationService creates a new NotificationServicer.
func NewNotificationService(db *gorm.DB, defaults models.AlertThresholds) NotificationServicer {
	return &notificationService{db: db, defaults: defaults}
}

// GetUserNotifications lists the user's notifications, newest first.
func (s *notificationService) GetUserNotifications(userID string, page pagination.PageRequest, unreadOnly bool) (*pagination.PageResponse[models.BudgetNotification], error) {
	page.Defaults()

	base := s.db.Model(&models.BudgetNotification{}).Where("user_id = ?", userID)
	if unreadOnly {
		base = base.Where("is_read = ?", false)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var notifications []models.BudgetNotification
	if err := base.Scopes(pagination.Paginate(page, "created_at")).Find(&notifications).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(notifications, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// CountUnread returns the number of unread notifications.
func (s *notificationService) CountUnread(userID string) (int64, error) {
	var count int64
	if err := s.db.Model(&models.BudgetNotification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count, nil
}

// MarkAsRead flags one notification as read. Reading twice keeps the first read time.
func (s *notificationService) MarkAsRead(userID, notificationID string) (*models.BudgetNotification, error) {
	var n models.BudgetNotification
	if err := s.db.Where("id = ? AND user_id = ?", notificationID, userID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if n.IsRead {
		return &n, nil
	}

	now := time.Now()
	if err := s.db.Model(&n).Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	n.IsRead = true
	n.ReadAt = &now
	return &n, nil
}

// MarkAllAsRead flags every unread notification of the user and returns how many changed.
func (s *notificationService) MarkAllAsRead(userID string) (int64, error) {
	res := s.db.Model(&models.BudgetNotification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return res.RowsAffected, nil
}

// GetSettings returns the user's effective preference and thresholds.
func (s *notificationService) GetSettings(userID string) (*NotificationSettingsView, error) {
	settings, err := s.findSettings(s.db, userID)
	if err != nil {
		return nil, err
	}
	return &NotificationSettingsView{
		Preference: settings.EffectivePreference(),
		Thresholds: settings.Thresholds(s.defaults),
	}, nil
}

// UpdateSettings changes the preference and/or thresholds, creating the
// settings row on first use. Thresholds must satisfy
// 0 < warning < alert < critical <= 100.
func (s *notificationService) UpdateSettings(userID string, preference *models.NotificationPreference, thresholds *models.AlertThresholds) (*NotificationSettingsView, error) {
	if thresholds != nil {
		if err := thresholds.Validate(); err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidThresholds, err.Error())
		}
	}
	if preference != nil {
		switch *preference {
		case models.PreferenceDisabled, models.PreferenceInAppOnly, models.PreferenceEmailOnly, models.PreferenceBoth:
		default:
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown notification preference")
		}
	}

	var view *NotificationSettingsView
	err := s.db.Transaction(func(tx *gorm.DB) error {
		settings, err := s.findSettings(tx, userID)
		if err != nil {
			return err
		}
		if settings == nil {
			settings = &models.NotificationSettings{UserID: userID, Preference: models.PreferenceInAppOnly}
		}
		if preference != nil {
			settings.Preference = *preference
		}
		if thresholds != nil {
			w, a, c := thresholds.Warning, thresholds.Alert, thresholds.Critical
			settings.WarningThreshold = &w
			settings.AlertThreshold = &a
			settings.CriticalThreshold = &c
		}
		if err := tx.Save(settings).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		view = &NotificationSettingsView{
			Preference: settings.EffectivePreference(),
			Thresholds: settings.Thresholds(s.defaults),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// findSettings returns the user's settings row, or nil when none exists.
func (s *notificationService) findSettings(db *gorm.DB, userID string) (*models.NotificationSettings, error) {
	var settings models.NotificationSettings
	if err := db.Where("user_id = ?", userID).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &settings, nil
}
