package models

import (
	"fmt"
	"time"
)

// NotificationType is one of the three ordered budget thresholds.
type NotificationType string

const (
	NotificationTypeWarning  NotificationType = "warning"
	NotificationTypeAlert    NotificationType = "alert"
	NotificationTypeCritical NotificationType = "critical"
)

// Rank orders notification types; 0 means unknown.
func (t NotificationType) Rank() int {
	switch t {
	case NotificationTypeWarning:
		return 1
	case NotificationTypeAlert:
		return 2
	case NotificationTypeCritical:
		return 3
	}
	return 0
}

// BudgetNotification is raised when spending crosses a threshold. Only the
// read flag changes after creation. One row exists at most per
// user, budget, type and calendar period (PeriodMonth is 0 for yearly budgets).
type BudgetNotification struct {
	Base
	UserID      string           `gorm:"type:uuid;not null;uniqueIndex:idx_budget_notifications_period,priority:1" json:"user_id"`
	BudgetID    string           `gorm:"type:uuid;not null;uniqueIndex:idx_budget_notifications_period,priority:2" json:"budget_id"`
	CategoryID  *string          `gorm:"type:uuid" json:"category_id,omitempty"`
	Type        NotificationType `gorm:"not null;uniqueIndex:idx_budget_notifications_period,priority:3" json:"type"`
	PeriodYear  int              `gorm:"not null;uniqueIndex:idx_budget_notifications_period,priority:4" json:"period_year"`
	PeriodMonth int              `gorm:"not null;uniqueIndex:idx_budget_notifications_period,priority:5" json:"period_month"`
	Message     string           `gorm:"not null" json:"message"`
	Percentage  float64          `gorm:"not null" json:"percentage"`
	Threshold   float64          `gorm:"not null" json:"threshold"`
	Spent       int64            `gorm:"type:bigint;not null" json:"spent"`
	Allocated   int64            `gorm:"type:bigint;not null" json:"allocated"`
	AmountOver  int64            `gorm:"type:bigint;not null" json:"amount_over"`
	IsRead      bool             `gorm:"not null;index" json:"is_read"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	EmailSent   bool             `gorm:"not null" json:"email_sent"`
}

// NotificationPreference controls which channels receive budget alerts.
type NotificationPreference string

const (
	PreferenceDisabled  NotificationPreference = "disabled"
	PreferenceInAppOnly NotificationPreference = "in_app_only"
	PreferenceEmailOnly NotificationPreference = "email_only"
	PreferenceBoth      NotificationPreference = "both"
)

// WantsEmail reports whether alerts should also be emailed.
func (p NotificationPreference) WantsEmail() bool {
	return p == PreferenceEmailOnly || p == PreferenceBoth
}

// NotificationSettings stores a user's alert preference and optional
// threshold overrides. Missing thresholds fall back to the defaults.
type NotificationSettings struct {
	Base
	UserID            string                 `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Preference        NotificationPreference `gorm:"not null;default:'in_app_only'" json:"preference"`
	WarningThreshold  *float64               `json:"warning_threshold,omitempty"`
	AlertThreshold    *float64               `json:"alert_threshold,omitempty"`
	CriticalThreshold *float64               `json:"critical_threshold,omitempty"`
}

// AlertThresholds are the warning/alert/critical levels, in percent.
type AlertThresholds struct {
	Warning  float64 `json:"warning"`
	Alert    float64 `json:"alert"`
	Critical float64 `json:"critical"`
}

// Validate checks 0 < warning < alert < critical <= 100.
func (t AlertThresholds) Validate() error {
	if t.Warning <= 0 || t.Warning >= t.Alert || t.Alert >= t.Critical || t.Critical > 100 {
		return fmt.Errorf("invalid thresholds %v/%v/%v", t.Warning, t.Alert, t.Critical)
	}
	return nil
}

// Level returns the threshold for a notification type.
func (t AlertThresholds) Level(typ NotificationType) float64 {
	switch typ {
	case NotificationTypeWarning:
		return t.Warning
	case NotificationTypeAlert:
		return t.Alert
	case NotificationTypeCritical:
		return t.Critical
	}
	return 0
}

// Highest returns the highest threshold reached by spent against allocated,
// checking critical, then alert, then warning. The ratio is compared exactly,
// never through a rounded percentage.
func (t AlertThresholds) Highest(spent, allocated int64) (NotificationType, bool) {
	if allocated <= 0 {
		return "", false
	}
	for _, typ := range []NotificationType{NotificationTypeCritical, NotificationTypeAlert, NotificationTypeWarning} {
		if float64(spent)*100 >= float64(allocated)*t.Level(typ) {
			return typ, true
		}
	}
	return "", false
}

// Thresholds merges the user's overrides onto defaults.
func (s *NotificationSettings) Thresholds(defaults AlertThresholds) AlertThresholds {
	if s == nil {
		return defaults
	}
	out := defaults
	if s.WarningThreshold != nil {
		out.Warning = *s.WarningThreshold
	}
	if s.AlertThreshold != nil {
		out.Alert = *s.AlertThreshold
	}
	if s.CriticalThreshold != nil {
		out.Critical = *s.CriticalThreshold
	}
	return out
}

// EffectivePreference returns the preference, defaulting to in-app only.
func (s *NotificationSettings) EffectivePreference() NotificationPreference {
	if s == nil || s.Preference == "" {
		return PreferenceInAppOnly
	}
	return s.Preference
}
