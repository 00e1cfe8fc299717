package models

import "time"

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// Budget is an allocation for one user over one calendar month or year.
// Without a category it covers every debit of the user.
type Budget struct {
	Base
	UserID     string       `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID *string      `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Name       string       `gorm:"not null" json:"name"`
	Amount     int64        `gorm:"type:bigint;not null" json:"amount"`
	Period     BudgetPeriod `gorm:"not null" json:"period"`
	Year       int          `gorm:"not null;index" json:"year"`
	Month      *int         `json:"month,omitempty"`
	IsActive   bool         `gorm:"default:true" json:"is_active"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// PeriodMonth returns the month the budget covers, or 0 for a yearly budget.
func (b *Budget) PeriodMonth() int {
	if b.Period == BudgetPeriodMonthly && b.Month != nil {
		return *b.Month
	}
	return 0
}

// PeriodBounds returns the half-open window [start, end) the budget covers.
func (b *Budget) PeriodBounds() (time.Time, time.Time) {
	if m := b.PeriodMonth(); m != 0 {
		start := time.Date(b.Year, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start := time.Date(b.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// Covers reports whether day falls inside the budget's period.
func (b *Budget) Covers(day time.Time) bool {
	start, end := b.PeriodBounds()
	return !day.Before(start) && day.Before(end)
}
