package models

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
	AccountTypeCash     AccountType = "cash"
)

// Account represents a bank or cash account. Balance is in cents.
// IBAN holds the encrypted value; MaskedIBAN is filled for responses only.
type Account struct {
	Base
	UserID      string      `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string      `gorm:"not null" json:"name"`
	Type        AccountType `gorm:"not null" json:"type"`
	Description string      `json:"description"`
	Balance     int64       `gorm:"type:bigint;not null;default:0" json:"balance"`
	Currency    string      `gorm:"size:3;not null;default:'EUR'" json:"currency"`
	IBAN        string      `gorm:"column:iban" json:"-"`
	IBANHash    string      `gorm:"column:iban_hash;size:64;index" json:"-"`
	MaskedIBAN  string      `gorm:"-" json:"iban,omitempty"`
	IsActive    bool        `gorm:"default:true" json:"is_active"`
}

// ApplyDelta returns the balance change a transaction of the given type causes.
func ApplyDelta(txType TransactionType, amount int64) int64 {
	if txType == TransactionTypeDebit {
		return -amount
	}
	return amount
}
