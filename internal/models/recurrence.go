package models

import "time"

// Frequency is the base step of a recurrence schedule.
type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiannual Frequency = "semiannual"
	FrequencyYearly     Frequency = "yearly"
)

// WeekendPolicy moves an occurrence that lands on Saturday or Sunday.
type WeekendPolicy string

const (
	WeekendPolicyNone                WeekendPolicy = "none"
	WeekendPolicyNextBusinessDay     WeekendPolicy = "next_business_day"
	WeekendPolicyPreviousBusinessDay WeekendPolicy = "previous_business_day"
)

// Recurrence is a template for a transaction booked on a schedule.
//
// ScheduledDate is the nominal date of the next occurrence; NextDueDate is the
// same date after the weekend policy is applied and is what due-ness is
// checked against. The schedule always advances from ScheduledDate.
type Recurrence struct {
	Base
	UserID     string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID  string          `gorm:"type:uuid;not null" json:"account_id"`
	CategoryID *string         `gorm:"type:uuid" json:"category_id,omitempty"`
	Label      string          `gorm:"not null" json:"label"`
	Amount     int64           `gorm:"type:bigint;not null" json:"amount"`
	Type       TransactionType `gorm:"not null" json:"type"`

	Frequency     Frequency     `gorm:"not null" json:"frequency"`
	Interval      int           `gorm:"not null;default:1" json:"interval"`
	AnchorDay     int           `gorm:"not null;default:0" json:"anchor_day"`
	WeekendPolicy WeekendPolicy `gorm:"not null;default:'none'" json:"weekend_policy"`

	StartDate     time.Time  `gorm:"not null" json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	ScheduledDate time.Time  `gorm:"not null" json:"scheduled_date"`
	NextDueDate   time.Time  `gorm:"not null;index" json:"next_due_date"`

	MaxExecutions  *int       `json:"max_executions,omitempty"`
	ExecutionCount int        `gorm:"not null;default:0" json:"execution_count"`
	LastExecutedOn *time.Time `json:"last_executed_on,omitempty"`

	AutoValidate bool `gorm:"not null" json:"auto_validate"`
	IsActive     bool `gorm:"default:true;index" json:"is_active"`
}

// EffectiveInterval returns the interval, treating unset values as 1.
func (r *Recurrence) EffectiveInterval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// EffectiveAnchorDay returns the day of month used when clamping monthly steps.
func (r *Recurrence) EffectiveAnchorDay() int {
	if r.AnchorDay >= 1 && r.AnchorDay <= 31 {
		return r.AnchorDay
	}
	return r.ScheduledDate.Day()
}

// Exhausted reports whether the execution limit has been reached.
func (r *Recurrence) Exhausted() bool {
	return r.MaxExecutions != nil && r.ExecutionCount >= *r.MaxExecutions
}
