package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"monbudget/internal/clock"
	apperrors "monbudget/internal/errors"
	"monbudget/internal/models"
	"monbudget/internal/pagination"
)

// recurrenceService manages recurrence definitions.
type recurrenceService struct {
	db *gorm.DB
}

// NewRecurrenceService creates a new RecurrenceServicer.
func NewRecurrenceService(db *gorm.DB) RecurrenceServicer {
	return &recurrenceService{db: db}
}

// CreateRecurrence validates and stores a recurrence. The first occurrence is
// the start date, moved by the weekend policy.
func (s *recurrenceService) CreateRecurrence(userID string, in RecurrenceInput) (*models.Recurrence, error) {
	if in.Label == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "label is required")
	}
	if in.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !in.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if _, err := GetOccurrenceCalculator(in.Frequency); err != nil {
		return nil, err
	}
	if in.StartDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start date is required")
	}
	if in.Interval == 0 {
		in.Interval = 1
	}
	if in.Interval < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "interval must be at least 1")
	}
	if in.AnchorDay < 0 || in.AnchorDay > 31 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "anchor day must be between 1 and 31")
	}
	if in.WeekendPolicy == "" {
		in.WeekendPolicy = models.WeekendPolicyNone
	}
	if in.MaxExecutions != nil && *in.MaxExecutions < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "max executions must be at least 1")
	}

	start := clock.DateOf(in.StartDate)
	if in.EndDate != nil {
		end := clock.DateOf(*in.EndDate)
		if end.Before(start) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end date must not be before start date")
		}
		in.EndDate = &end
	}

	var account models.Account
	if err := s.db.Where("id = ? AND user_id = ?", in.AccountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !account.IsActive {
		return nil, apperrors.ErrAccountInactive
	}
	if in.CategoryID != nil {
		var count int64
		if err := s.db.Model(&models.Category{}).Where("id = ? AND user_id = ?", *in.CategoryID, userID).Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrCategoryNotFound
		}
	}

	anchor := in.AnchorDay
	if anchor == 0 {
		anchor = start.Day()
	}

	firstDue := AdjustForWeekend(start, in.WeekendPolicy)
	if in.EndDate != nil && firstDue.After(*in.EndDate) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "first occurrence falls after the end date")
	}

	r := &models.Recurrence{
		UserID:        userID,
		AccountID:     account.ID,
		CategoryID:    in.CategoryID,
		Label:         in.Label,
		Amount:        in.Amount,
		Type:          in.Type,
		Frequency:     in.Frequency,
		Interval:      in.Interval,
		AnchorDay:     anchor,
		WeekendPolicy: in.WeekendPolicy,
		StartDate:     start,
		EndDate:       in.EndDate,
		ScheduledDate: start,
		NextDueDate:   firstDue,
		MaxExecutions: in.MaxExecutions,
		AutoValidate:  in.AutoValidate,
		IsActive:      true,
	}

	if err := s.db.Create(r).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return r, nil
}

// GetUserRecurrences lists the user's recurrences by next due date.
func (s *recurrenceService) GetUserRecurrences(userID string, page pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.Recurrence], error) {
	page.Defaults()

	base := s.db.Model(&models.Recurrence{}).Where("user_id = ?", userID)
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var recurrences []models.Recurrence
	if err := base.Scopes(pagination.Paginate(page, "next_due_date")).Find(&recurrences).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(recurrences, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetRecurrenceByID returns a recurrence if it belongs to the user.
func (s *recurrenceService) GetRecurrenceByID(userID, recurrenceID string) (*models.Recurrence, error) {
	var r models.Recurrence
	if err := s.db.Where("id = ? AND user_id = ?", recurrenceID, userID).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecurrenceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &r, nil
}

// DeactivateRecurrence stops a recurrence. Its past transactions are kept.
func (s *recurrenceService) DeactivateRecurrence(userID, recurrenceID string) (*models.Recurrence, error) {
	r, err := s.GetRecurrenceByID(userID, recurrenceID)
	if err != nil {
		return nil, err
	}
	if !r.IsActive {
		return r, nil
	}
	if err := s.db.Model(r).Update("is_active", false).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("deactivate recurrence: %w", err))
	}
	r.IsActive = false
	return r, nil
}
