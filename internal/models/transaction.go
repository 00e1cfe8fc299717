package models

import "time"

// TransactionType is the direction of money movement on an account.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

// Transaction represents a financial transaction in the system.
// RecurrenceID is set when the recurrence engine produced it; the pair
// (recurrence_id, date) is unique so an occurrence is never booked twice.
type Transaction struct {
	Base
	UserID       string          `gorm:"type:uuid;not null;index:idx_transactions_user_date,priority:1" json:"user_id"`
	AccountID    string          `gorm:"type:uuid;not null;index" json:"account_id"`
	CategoryID   *string         `gorm:"type:uuid;index" json:"category_id,omitempty"`
	RecurrenceID *string         `gorm:"type:uuid;uniqueIndex:idx_transactions_recurrence_date,priority:1" json:"recurrence_id,omitempty"`
	Type         TransactionType `gorm:"not null" json:"type"`
	Amount       int64           `gorm:"type:bigint;not null" json:"amount"`
	Description  string          `json:"description"`
	Date         time.Time       `gorm:"not null;index:idx_transactions_user_date,priority:2;uniqueIndex:idx_transactions_recurrence_date,priority:2" json:"date"`
	Validated    bool            `gorm:"not null" json:"validated"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
