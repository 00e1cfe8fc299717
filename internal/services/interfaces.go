package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"monbudget/internal/models"
	"monbudget/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(userID, name, description string, accountType models.AccountType, currency, iban string, initialBalance int64) (*models.Account, error)
	GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	UpdateAccountBalance(tx *gorm.DB, account *models.Account, transactionType models.TransactionType, amount int64) error
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name string, categoryType models.CategoryType, description, icon, color string) (*models.Category, error)
	GetUserCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *string
	AccountID  *string
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID, accountID string, categoryID *string, transactionType models.TransactionType, amount int64, description string, date time.Time) (*models.Transaction, error)
	GetAccountTransactions(userID, accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
}

// BudgetProgress contains spending vs budget data for a budget's period.
type BudgetProgress struct {
	BudgetID   string  `json:"budget_id"`
	Budgeted   int64   `json:"budgeted"`
	Spent      int64   `json:"spent"`
	Remaining  int64   `json:"remaining"`
	Percentage float64 `json:"percentage"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID string, categoryID *string, name string, amount int64, period models.BudgetPeriod, year int, month *int) (*models.Budget, error)
	GetUserBudgets(userID string, page pagination.PageRequest, isActive *bool, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	UpdateBudget(userID, budgetID, name string, amount *int64, isActive *bool) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	GetBudgetProgress(userID, budgetID string) (*BudgetProgress, error)
}

// RecurrenceInput carries the user-supplied fields of a recurrence definition.
type RecurrenceInput struct {
	AccountID     string
	CategoryID    *string
	Label         string
	Amount        int64
	Type          models.TransactionType
	Frequency     models.Frequency
	Interval      int
	AnchorDay     int
	WeekendPolicy models.WeekendPolicy
	StartDate     time.Time
	EndDate       *time.Time
	MaxExecutions *int
	AutoValidate  bool
}

// RecurrenceServicer defines the contract for managing recurrence definitions.
type RecurrenceServicer interface {
	CreateRecurrence(userID string, in RecurrenceInput) (*models.Recurrence, error)
	GetUserRecurrences(userID string, page pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.Recurrence], error)
	GetRecurrenceByID(userID, recurrenceID string) (*models.Recurrence, error)
	DeactivateRecurrence(userID, recurrenceID string) (*models.Recurrence, error)
}

// OutcomeStatus tags what happened to one recurrence during a run.
type OutcomeStatus string

const (
	OutcomeExecuted OutcomeStatus = "executed"
	OutcomeSkipped  OutcomeStatus = "skipped"
	OutcomeFailed   OutcomeStatus = "failed"
)

// RecurrenceOutcome describes one processed recurrence.
type RecurrenceOutcome struct {
	RecurrenceID  string        `json:"recurrence_id"`
	UserID        string        `json:"user_id"`
	Label         string        `json:"label"`
	Date          time.Time     `json:"date"`
	Status        OutcomeStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Reason        string        `json:"reason,omitempty"`
}

// RecurrenceError records a recurrence that could not be processed.
type RecurrenceError struct {
	RecurrenceID string `json:"recurrence_id"`
	UserID       string `json:"user_id"`
	Error        string `json:"error"`
}

// ExecutionResult summarizes one recurrence engine run.
type ExecutionResult struct {
	RunDate       time.Time           `json:"run_date"`
	TotalChecked  int                 `json:"total_checked"`
	TotalExecuted int                 `json:"total_executed"`
	TotalSkipped  int                 `json:"total_skipped"`
	Outcomes      []RecurrenceOutcome `json:"outcomes"`
	Errors        []RecurrenceError   `json:"errors"`
	Duration      time.Duration       `json:"duration"`
}

// RecurrenceExecutor runs due recurrences.
type RecurrenceExecutor interface {
	ExecuteAllPendingRecurrences(ctx context.Context) (*ExecutionResult, error)
	ExecuteRecurrence(ctx context.Context, userID, recurrenceID string) (*RecurrenceOutcome, error)
}

// BudgetStatus is the computed state of one budget at check time.
type BudgetStatus struct {
	Success    bool                        `json:"success"`
	BudgetID   string                      `json:"budget_id"`
	BudgetName string                      `json:"budget_name"`
	Spent      int64                       `json:"spent"`
	Allocated  int64                       `json:"allocated"`
	Remaining  int64                       `json:"remaining"`
	Percentage float64                     `json:"percentage"`
	Alerts     []models.BudgetNotification `json:"alerts"`
}

// UserBudgetSummary reports the budgets checked for one user.
type UserBudgetSummary struct {
	UserID          string         `json:"user_id"`
	Email           string         `json:"email"`
	BudgetsChecked  int            `json:"budgets_checked"`
	AlertsTriggered int            `json:"alerts_triggered"`
	Budgets         []BudgetStatus `json:"budgets"`
}

// BudgetCheckError records a budget or user that could not be evaluated.
type BudgetCheckError struct {
	UserID   string `json:"user_id"`
	BudgetID string `json:"budget_id,omitempty"`
	Error    string `json:"error"`
}

// BudgetCheckResult summarizes one budget alert run.
type BudgetCheckResult struct {
	CheckedAt       time.Time           `json:"checked_at"`
	UsersChecked    int                 `json:"users_checked"`
	BudgetsChecked  int                 `json:"budgets_checked"`
	AlertsTriggered int                 `json:"alerts_triggered"`
	Users           []UserBudgetSummary `json:"users"`
	Errors          []BudgetCheckError  `json:"errors"`
	Duration        time.Duration       `json:"duration"`
}

// BudgetAlertEvaluator detects budgets crossing alert thresholds.
type BudgetAlertEvaluator interface {
	GetUsersWithAlertsEnabled(ctx context.Context) ([]models.User, error)
	GetUserActiveBudgets(ctx context.Context, userID string) ([]models.Budget, error)
	CheckBudgetStatus(ctx context.Context, budgetID string) (*BudgetStatus, error)
	CheckAllBudgets(ctx context.Context) (*BudgetCheckResult, error)
}

// NotificationSettingsView is a user's effective alert configuration.
type NotificationSettingsView struct {
	Preference models.NotificationPreference `json:"preference"`
	Thresholds models.AlertThresholds        `json:"thresholds"`
}

// NotificationServicer defines the contract for reading budget notifications
// and managing alert settings.
type NotificationServicer interface {
	GetUserNotifications(userID string, page pagination.PageRequest, unreadOnly bool) (*pagination.PageResponse[models.BudgetNotification], error)
	CountUnread(userID string) (int64, error)
	MarkAsRead(userID, notificationID string) (*models.BudgetNotification, error)
	MarkAllAsRead(userID string) (int64, error)
	GetSettings(userID string) (*NotificationSettingsView, error)
	UpdateSettings(userID string, preference *models.NotificationPreference, thresholds *models.AlertThresholds) (*NotificationSettingsView, error)
}

// IBANMigrationReport summarizes an IBAN encryption pass.
type IBANMigrationReport struct {
	DryRun           bool     `json:"dry_run"`
	Total            int      `json:"total"`
	Encrypted        int      `json:"encrypted"`
	AlreadyEncrypted int      `json:"already_encrypted"`
	Skipped          int      `json:"skipped"`
	Errors           []string `json:"errors"`
}

// IBANMigrator encrypts IBANs stored before encryption was enabled.
type IBANMigrator interface {
	EncryptExisting(ctx context.Context, dryRun, force bool) (*IBANMigrationReport, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
	LogJob(job, action, resourceType, resourceID string, changes map[string]interface{})
}
