package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"monbudget/internal/clock"
	apperrors "monbudget/internal/errors"
	"monbudget/internal/events"
	"monbudget/internal/logger"
	"monbudget/internal/metrics"
	"monbudget/internal/models"
)

const jobCheckBudgetAlerts = "check_budget_alerts"

// DefaultAlertThresholds apply to users without their own thresholds.
var DefaultAlertThresholds = models.AlertThresholds{Warning: 50, Alert: 80, Critical: 95}

// budgetAlertService evaluates budgets against alert thresholds.
type budgetAlertService struct {
	db        *gorm.DB
	publisher events.Publisher
	defaults  models.AlertThresholds
	clock     clock.Clock
}

// NewBudgetAlertService creates a BudgetAlertEvaluator. A nil publisher
// disables email delivery.
func NewBudgetAlertService(db *gorm.DB, publisher events.Publisher, defaults models.AlertThresholds, clk clock.Clock) BudgetAlertEvaluator {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &budgetAlertService{db: db, publisher: publisher, defaults: defaults, clock: clk}
}

// GetUsersWithAlertsEnabled returns active users whose preference is not
// disabled. Users without a settings row get in-app alerts.
func (s *budgetAlertService) GetUsersWithAlertsEnabled(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Joins("LEFT JOIN notification_settings ON notification_settings.user_id = users.id AND notification_settings.deleted_at IS NULL").
		Where("users.is_active = ?", true).
		Where("(notification_settings.id IS NULL OR notification_settings.preference <> ?)", models.PreferenceDisabled).
		Preload("NotificationSettings").
		Order("users.email ASC").
		Find(&users).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("load users with alerts: %w", err))
	}
	return users, nil
}

// GetUserActiveBudgets returns the user's active budgets whose period
// contains today.
func (s *budgetAlertService) GetUserActiveBudgets(ctx context.Context, userID string) ([]models.Budget, error) {
	today := clock.Today(s.clock)

	var budgets []models.Budget
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND year = ?", userID, true, today.Year()).
		Where("(period = ? OR (period = ? AND month = ?))",
			models.BudgetPeriodYearly, models.BudgetPeriodMonthly, int(today.Month())).
		Order("created_at ASC").
		Order("id ASC").
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// CheckBudgetStatus computes a budget's consumption and records a
// notification when a higher threshold than any already sent this period
// is reached.
func (s *budgetAlertService) CheckBudgetStatus(ctx context.Context, budgetID string) (*BudgetStatus, error) {
	var budget models.Budget
	if err := s.db.WithContext(ctx).Where("id = ?", budgetID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Preload("NotificationSettings").Where("id = ?", budget.UserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.evaluate(ctx, &budget, &user)
}

// CheckAllBudgets evaluates every current budget of every user with alerts
// enabled. Per-user and per-budget failures are recorded and skipped; only a
// failure to load the users is returned.
func (s *budgetAlertService) CheckAllBudgets(ctx context.Context) (*BudgetCheckResult, error) {
	start := time.Now()
	log := logger.Get()

	users, err := s.GetUsersWithAlertsEnabled(ctx)
	if err != nil {
		return nil, err
	}

	result := &BudgetCheckResult{
		CheckedAt:    s.clock.Now(),
		UsersChecked: len(users),
		Users:        []UserBudgetSummary{},
		Errors:       []BudgetCheckError{},
	}

	for i := range users {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		user := &users[i]
		summary := UserBudgetSummary{UserID: user.ID, Email: user.Email, Budgets: []BudgetStatus{}}

		budgets, err := s.GetUserActiveBudgets(ctx, user.ID)
		if err != nil {
			result.Errors = append(result.Errors, BudgetCheckError{UserID: user.ID, Error: err.Error()})
			log.Errorw("failed to load budgets", "user_id", user.ID, "error", err)
			continue
		}

		for j := range budgets {
			status, err := s.evaluate(ctx, &budgets[j], user)
			if err != nil {
				metrics.BudgetChecks.WithLabelValues("error").Inc()
				result.Errors = append(result.Errors, BudgetCheckError{
					UserID:   user.ID,
					BudgetID: budgets[j].ID,
					Error:    err.Error(),
				})
				log.Errorw("budget check failed", "user_id", user.ID, "budget_id", budgets[j].ID, "error", err)
				continue
			}
			summary.BudgetsChecked++
			summary.AlertsTriggered += len(status.Alerts)
			summary.Budgets = append(summary.Budgets, *status)
		}

		result.BudgetsChecked += summary.BudgetsChecked
		result.AlertsTriggered += summary.AlertsTriggered
		result.Users = append(result.Users, summary)
	}

	result.Duration = time.Since(start)
	metrics.JobDuration.WithLabelValues(jobCheckBudgetAlerts).Observe(result.Duration.Seconds())
	metrics.JobLastSuccess.WithLabelValues(jobCheckBudgetAlerts).SetToCurrentTime()

	log.Infow("budget alert run finished",
		"users", result.UsersChecked,
		"budgets", result.BudgetsChecked,
		"alerts", result.AlertsTriggered,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)
	return result, nil
}

func (s *budgetAlertService) evaluate(ctx context.Context, budget *models.Budget, user *models.User) (*BudgetStatus, error) {
	db := s.db.WithContext(ctx)

	if budget.CategoryID != nil {
		var count int64
		if err := db.Model(&models.Category{}).Where("id = ?", *budget.CategoryID).Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound,
				fmt.Sprintf("budget %s references missing category %s", budget.ID, *budget.CategoryID))
		}
	}

	spent, err := spentInPeriod(db, budget)
	if err != nil {
		return nil, err
	}

	status := &BudgetStatus{
		Success:    true,
		BudgetID:   budget.ID,
		BudgetName: budget.Name,
		Spent:      spent,
		Allocated:  budget.Amount,
		Remaining:  remaining(budget.Amount, spent),
		Percentage: percentageOf(spent, budget.Amount),
		Alerts:     []models.BudgetNotification{},
	}
	metrics.BudgetChecks.WithLabelValues("ok").Inc()

	preference := user.NotificationSettings.EffectivePreference()
	if budget.Amount <= 0 || preference == models.PreferenceDisabled {
		return status, nil
	}

	thresholds := user.NotificationSettings.Thresholds(s.defaults)
	typ, reached := thresholds.Highest(spent, budget.Amount)
	if !reached {
		return status, nil
	}

	var sent []models.NotificationType
	if err := db.Model(&models.BudgetNotification{}).
		Where("user_id = ? AND budget_id = ? AND period_year = ? AND period_month = ?",
			budget.UserID, budget.ID, budget.Year, budget.PeriodMonth()).
		Pluck("type", &sent).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, t := range sent {
		if t.Rank() >= typ.Rank() {
			return status, nil
		}
	}

	level := thresholds.Level(typ)
	notification := &models.BudgetNotification{
		UserID:      budget.UserID,
		BudgetID:    budget.ID,
		CategoryID:  budget.CategoryID,
		Type:        typ,
		PeriodYear:  budget.Year,
		PeriodMonth: budget.PeriodMonth(),
		Percentage:  status.Percentage,
		Threshold:   level,
		Spent:       spent,
		Allocated:   budget.Amount,
		AmountOver:  spent - int64(math.Round(float64(budget.Amount)*level/100)),
	}
	notification.Message = alertMessage(notification, budget.Name)

	if err := db.Create(notification).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return status, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	metrics.BudgetAlertsEmitted.WithLabelValues(string(typ)).Inc()
	logger.Get().Infow("budget alert created",
		"user_id", budget.UserID,
		"budget_id", budget.ID,
		"type", typ,
		"percentage", status.Percentage,
	)

	if preference.WantsEmail() {
		event := events.NewBudgetAlertEvent(notification, user, budget, s.clock.Now())
		if err := s.publisher.PublishBudgetAlert(ctx, event); err != nil {
			logger.Get().Warnw("failed to publish budget alert", "notification_id", notification.ID, "error", err)
		} else if err := db.Model(notification).Update("email_sent", true).Error; err != nil {
			logger.Get().Warnw("failed to flag budget alert as emailed", "notification_id", notification.ID, "error", err)
		} else {
			notification.EmailSent = true
		}
	}

	status.Alerts = append(status.Alerts, *notification)
	return status, nil
}

func alertMessage(n *models.BudgetNotification, budgetName string) string {
	switch n.Type {
	case models.NotificationTypeCritical:
		if over := n.Spent - n.Allocated; over > 0 {
			return fmt.Sprintf("Budget '%s' exceeded: %.2f%% used, %s over budget.",
				budgetName, n.Percentage, FormatCents(over))
		}
		return fmt.Sprintf("Budget '%s' is nearly exhausted: %.2f%% used, %s left.",
			budgetName, n.Percentage, FormatCents(n.Allocated-n.Spent))
	case models.NotificationTypeAlert:
		return fmt.Sprintf("Careful: %.2f%% of budget '%s' is used. %s remains.",
			n.Percentage, budgetName, FormatCents(remaining(n.Allocated, n.Spent)))
	default:
		return fmt.Sprintf("You have used %.2f%% of budget '%s' (%s of %s).",
			n.Percentage, budgetName, FormatCents(n.Spent), FormatCents(n.Allocated))
	}
}

// FormatCents renders an amount in cents as a decimal string, e.g. 1050 as "10.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
