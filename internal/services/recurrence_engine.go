package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"monbudget/internal/clock"
	apperrors "monbudget/internal/errors"
	"monbudget/internal/logger"
	"monbudget/internal/metrics"
	"monbudget/internal/models"
)

const jobExecuteRecurrences = "execute_recurrences"

// errOccurrenceBooked aborts the database transaction when a concurrent run
// booked the same occurrence first.
var errOccurrenceBooked = errors.New("occurrence already booked")

// recurrenceEngine books due recurrences as transactions.
type recurrenceEngine struct {
	db    *gorm.DB
	clock clock.Clock
	audit AuditServicer
}

// NewRecurrenceEngine creates a RecurrenceExecutor. audit may be nil.
func NewRecurrenceEngine(db *gorm.DB, clk clock.Clock, audit AuditServicer) RecurrenceExecutor {
	return &recurrenceEngine{db: db, clock: clk, audit: audit}
}

// ExecuteAllPendingRecurrences books one occurrence for every active
// recurrence due on or before today. Failures of single recurrences are
// recorded in the result; only a failure to load the candidates is returned.
func (e *recurrenceEngine) ExecuteAllPendingRecurrences(ctx context.Context) (*ExecutionResult, error) {
	start := time.Now()
	today := clock.Today(e.clock)
	log := logger.Get()

	var due []models.Recurrence
	err := e.db.WithContext(ctx).
		Where("is_active = ? AND next_due_date <= ?", true, today).
		Where("(end_date IS NULL OR next_due_date <= end_date)").
		Order("next_due_date ASC").
		Order("id ASC").
		Find(&due).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("load pending recurrences: %w", err))
	}

	result := &ExecutionResult{
		RunDate:      today,
		TotalChecked: len(due),
		Outcomes:     []RecurrenceOutcome{},
		Errors:       []RecurrenceError{},
	}

	for i := range due {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		r := &due[i]
		outcome, err := e.processOne(ctx, r, today)
		result.Outcomes = append(result.Outcomes, outcome)
		metrics.RecurrencesProcessed.WithLabelValues(string(outcome.Status)).Inc()

		switch outcome.Status {
		case OutcomeExecuted:
			result.TotalExecuted++
			log.Infow("recurrence executed",
				"recurrence_id", r.ID, "user_id", r.UserID,
				"date", outcome.Date.Format(time.DateOnly), "transaction_id", outcome.TransactionID)
		case OutcomeSkipped:
			result.TotalSkipped++
			log.Infow("recurrence skipped",
				"recurrence_id", r.ID, "user_id", r.UserID, "reason", outcome.Reason)
		case OutcomeFailed:
			result.Errors = append(result.Errors, RecurrenceError{
				RecurrenceID: r.ID,
				UserID:       r.UserID,
				Error:        err.Error(),
			})
			log.Errorw("recurrence failed",
				"recurrence_id", r.ID, "user_id", r.UserID, "error", err)
		}
	}

	result.Duration = time.Since(start)
	metrics.JobDuration.WithLabelValues(jobExecuteRecurrences).Observe(result.Duration.Seconds())
	metrics.JobLastSuccess.WithLabelValues(jobExecuteRecurrences).SetToCurrentTime()

	log.Infow("recurrence run finished",
		"run_date", today.Format(time.DateOnly),
		"checked", result.TotalChecked,
		"executed", result.TotalExecuted,
		"skipped", result.TotalSkipped,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)
	return result, nil
}

// ExecuteRecurrence books the current occurrence of one of the user's
// recurrences immediately, whether or not it is due yet.
func (e *recurrenceEngine) ExecuteRecurrence(ctx context.Context, userID, recurrenceID string) (*RecurrenceOutcome, error) {
	var r models.Recurrence
	if err := e.db.WithContext(ctx).Where("id = ? AND user_id = ?", recurrenceID, userID).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecurrenceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !r.IsActive {
		return nil, apperrors.ErrRecurrenceInactive
	}

	outcome, err := e.processOne(ctx, &r, clock.Today(e.clock))
	metrics.RecurrencesProcessed.WithLabelValues(string(outcome.Status)).Inc()
	if err != nil {
		return &outcome, err
	}
	return &outcome, nil
}

// processOne books r's occurrence and advances its schedule in a single
// database transaction. The returned error is non-nil only for failures.
func (e *recurrenceEngine) processOne(ctx context.Context, r *models.Recurrence, today time.Time) (RecurrenceOutcome, error) {
	if r.ScheduledDate.IsZero() {
		r.ScheduledDate = r.NextDueDate
	}
	occurrence := clock.DateOf(r.NextDueDate)
	outcome := RecurrenceOutcome{
		RecurrenceID: r.ID,
		UserID:       r.UserID,
		Label:        r.Label,
		Date:         occurrence,
	}

	if r.LastExecutedOn != nil && clock.DateOf(*r.LastExecutedOn).Equal(today) {
		outcome.Status = OutcomeSkipped
		outcome.Reason = "already executed today"
		return outcome, nil
	}

	// Work on a copy so a rolled back attempt leaves r untouched.
	working := *r
	var booked *models.Transaction

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.Account
		if err := tx.Where("id = ? AND user_id = ?", working.AccountID, working.UserID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.WithMessage(apperrors.ErrAccountNotFound,
					fmt.Sprintf("account %s not found", working.AccountID))
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if working.CategoryID != nil {
			var count int64
			if err := tx.Model(&models.Category{}).
				Where("id = ? AND user_id = ?", *working.CategoryID, working.UserID).
				Count(&count).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count == 0 {
				return apperrors.WithMessage(apperrors.ErrCategoryNotFound,
					fmt.Sprintf("category %s not found", *working.CategoryID))
			}
		}

		var existing int64
		if err := tx.Unscoped().Model(&models.Transaction{}).
			Where("recurrence_id = ? AND date = ?", working.ID, occurrence).
			Count(&existing).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if existing > 0 {
			return advanceSchedule(tx, &working, today, false)
		}

		transaction := &models.Transaction{
			UserID:       working.UserID,
			AccountID:    working.AccountID,
			CategoryID:   working.CategoryID,
			RecurrenceID: &working.ID,
			Type:         working.Type,
			Amount:       working.Amount,
			Description:  working.Label,
			Date:         occurrence,
			Validated:    working.AutoValidate,
		}
		if err := tx.Create(transaction).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errOccurrenceBooked
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Model(&models.Account{}).Where("id = ?", account.ID).
			Update("balance", gorm.Expr("balance + ?", models.ApplyDelta(working.Type, working.Amount))).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		booked = transaction
		return advanceSchedule(tx, &working, today, true)
	})

	switch {
	case errors.Is(err, errOccurrenceBooked):
		outcome.Status = OutcomeSkipped
		outcome.Reason = "occurrence booked by another run"
		return outcome, nil
	case err != nil:
		outcome.Status = OutcomeFailed
		outcome.Reason = err.Error()
		return outcome, err
	}

	*r = working
	if booked == nil {
		outcome.Status = OutcomeSkipped
		outcome.Reason = fmt.Sprintf("transaction already exists for %s", occurrence.Format(time.DateOnly))
		return outcome, nil
	}

	outcome.Status = OutcomeExecuted
	outcome.TransactionID = booked.ID
	if e.audit != nil {
		e.audit.LogJob(jobExecuteRecurrences, "recurrence.executed", "transaction", booked.ID, map[string]interface{}{
			"recurrence_id": r.ID,
			"amount":        booked.Amount,
			"type":          booked.Type,
			"date":          occurrence.Format(time.DateOnly),
		})
	}
	return outcome, nil
}

// advanceSchedule moves r to its next occurrence and deactivates it when the
// execution limit is reached or the next occurrence falls after the end date.
func advanceSchedule(tx *gorm.DB, r *models.Recurrence, today time.Time, executed bool) error {
	next, err := NextScheduledDate(r)
	if err != nil {
		return err
	}
	nextDue := AdjustForWeekend(next, r.WeekendPolicy)

	r.ScheduledDate = next
	r.NextDueDate = nextDue
	updates := map[string]interface{}{
		"scheduled_date": next,
		"next_due_date":  nextDue,
	}
	if executed {
		r.ExecutionCount++
		r.LastExecutedOn = &today
		updates["execution_count"] = r.ExecutionCount
		updates["last_executed_on"] = today
	}
	if r.Exhausted() || (r.EndDate != nil && nextDue.After(clock.DateOf(*r.EndDate))) {
		r.IsActive = false
		updates["is_active"] = false
	}

	if err := tx.Model(&models.Recurrence{}).Where("id = ?", r.ID).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
