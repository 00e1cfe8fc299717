package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"monbudget/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Date returns midnight UTC on the given day, the storage form of calendar dates.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hash),
		FirstName: "Test",
		LastName:  fmt.Sprintf("User%d", nextID()),
		IsActive:  true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates a checking account with zero balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID string) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, userID, 0)
}

// CreateTestAccountWithBalance creates a checking account with the given balance (in cents).
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, userID string, balance int64) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:   userID,
		Name:     fmt.Sprintf("Test Account %d", nextID()),
		Type:     models.AccountTypeChecking,
		Balance:  balance,
		Currency: "EUR",
		IsActive: true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a validated transaction of the given type and
// amount (in cents) on the given date. categoryID may be nil.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, accountID string, categoryID *string, txType models.TransactionType, amount int64, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:     userID,
		AccountID:  accountID,
		CategoryID: categoryID,
		Type:       txType,
		Amount:     amount,
		Date:       date,
		Validated:  true,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates an active monthly budget of amount cents for the
// given category (nil for all spending) and month.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID string, categoryID *string, amount int64, year int, month time.Month) *models.Budget {
	t.Helper()

	m := int(month)
	budget := &models.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Name:       fmt.Sprintf("Test Budget %d", nextID()),
		Amount:     amount,
		Period:     models.BudgetPeriodMonthly,
		Year:       year,
		Month:      &m,
		IsActive:   true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestYearlyBudget creates an active yearly budget.
func CreateTestYearlyBudget(t *testing.T, db *gorm.DB, userID string, categoryID *string, amount int64, year int) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Name:       fmt.Sprintf("Test Yearly Budget %d", nextID()),
		Amount:     amount,
		Period:     models.BudgetPeriodYearly,
		Year:       year,
		IsActive:   true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test yearly budget: %v", err)
	}
	return budget
}

// RecurrenceOption customizes a recurrence fixture before it is saved.
type RecurrenceOption func(*models.Recurrence)

// CreateTestRecurrence creates an active, auto-validated recurrence due on nextDue.
func CreateTestRecurrence(t *testing.T, db *gorm.DB, userID, accountID string, frequency models.Frequency, amount int64, nextDue time.Time, opts ...RecurrenceOption) *models.Recurrence {
	t.Helper()

	r := &models.Recurrence{
		UserID:        userID,
		AccountID:     accountID,
		Label:         fmt.Sprintf("Test Recurrence %d", nextID()),
		Amount:        amount,
		Type:          models.TransactionTypeDebit,
		Frequency:     frequency,
		Interval:      1,
		WeekendPolicy: models.WeekendPolicyNone,
		StartDate:     nextDue,
		ScheduledDate: nextDue,
		NextDueDate:   nextDue,
		AutoValidate:  true,
		IsActive:      true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("failed to create test recurrence: %v", err)
	}
	return r
}

// CreateTestNotificationSettings stores a user's alert preference and optional thresholds.
func CreateTestNotificationSettings(t *testing.T, db *gorm.DB, userID string, pref models.NotificationPreference, thresholds *models.AlertThresholds) *models.NotificationSettings {
	t.Helper()

	settings := &models.NotificationSettings{
		UserID:     userID,
		Preference: pref,
	}
	if thresholds != nil {
		w, a, c := thresholds.Warning, thresholds.Alert, thresholds.Critical
		settings.WarningThreshold = &w
		settings.AlertThreshold = &a
		settings.CriticalThreshold = &c
	}
	if err := db.Create(settings).Error; err != nil {
		t.Fatalf("failed to create notification settings: %v", err)
	}
	return settings
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string { return &s }

// IntPtr returns a pointer to i.
func IntPtr(i int) *int { return &i }
