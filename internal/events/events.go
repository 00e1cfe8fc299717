// Package events publishes domain events for downstream consumers such as
// the mailer that delivers budget alerts by email.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"monbudget/internal/models"
)

// BudgetAlertRoutingKey is the routing key of budget alert events.
const BudgetAlertRoutingKey = "budget.alert"

// BudgetAlertEvent asks a consumer to email a budget notification.
type BudgetAlertEvent struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	BudgetID       string    `json:"budget_id"`
	BudgetName     string    `json:"budget_name"`
	Type           string    `json:"type"`
	Subject        string    `json:"subject"`
	Message        string    `json:"message"`
	Percentage     float64   `json:"percentage"`
	Spent          int64     `json:"spent"`
	Allocated      int64     `json:"allocated"`
	AmountOver     int64     `json:"amount_over"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewBudgetAlertEvent builds the event for a stored notification.
func NewBudgetAlertEvent(n *models.BudgetNotification, user *models.User, budget *models.Budget, at time.Time) *BudgetAlertEvent {
	return &BudgetAlertEvent{
		NotificationID: n.ID,
		UserID:         user.ID,
		Email:          user.Email,
		BudgetID:       budget.ID,
		BudgetName:     budget.Name,
		Type:           string(n.Type),
		Subject:        EmailSubject(n.Type, budget.Name),
		Message:        n.Message,
		Percentage:     n.Percentage,
		Spent:          n.Spent,
		Allocated:      n.Allocated,
		AmountOver:     n.AmountOver,
		OccurredAt:     at,
	}
}

// EmailSubject returns the subject line for an alert email.
func EmailSubject(t models.NotificationType, budgetName string) string {
	switch t {
	case models.NotificationTypeCritical:
		return fmt.Sprintf("Budget exceeded: %s", budgetName)
	case models.NotificationTypeAlert:
		return fmt.Sprintf("Budget almost used: %s", budgetName)
	default:
		return fmt.Sprintf("Budget warning: %s", budgetName)
	}
}

// ToJSON serializes the event.
func (e *BudgetAlertEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// BudgetAlertEventFromJSON parses an event body.
func BudgetAlertEventFromJSON(data []byte) (*BudgetAlertEvent, error) {
	var e BudgetAlertEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Publisher delivers events to a broker.
type Publisher interface {
	PublishBudgetAlert(ctx context.Context, event *BudgetAlertEvent) error
	Close() error
}

// NopPublisher drops events; used when no broker is configured.
type NopPublisher struct{}

// PublishBudgetAlert implements Publisher.
func (NopPublisher) PublishBudgetAlert(context.Context, *BudgetAlertEvent) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
