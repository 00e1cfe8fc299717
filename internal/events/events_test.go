package events

import (
	"context"
	"strings"
	"testing"
	"time"

	"monbudget/internal/models"
)

func TestBudgetAlertEvent(t *testing.T) {
	at := time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)
	n := &models.BudgetNotification{
		Base:       models.Base{ID: "n-1"},
		Type:       models.NotificationTypeAlert,
		Message:    "You have used 82.00% of Groceries",
		Percentage: 82,
		Spent:      41000,
		Allocated:  50000,
		AmountOver: 1000,
	}
	user := &models.User{Base: models.Base{ID: "u-1"}, Email: "jane@example.com"}
	budget := &models.Budget{Base: models.Base{ID: "b-1"}, Name: "Groceries"}

	event := NewBudgetAlertEvent(n, user, budget, at)

	data, err := event.ToJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := BudgetAlertEventFromJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decoded.Email != "jane@example.com" {
		t.Errorf("expected email jane@example.com, got %s", decoded.Email)
	}
	if decoded.AmountOver != 1000 {
		t.Errorf("expected amount_over 1000, got %d", decoded.AmountOver)
	}
	if !decoded.OccurredAt.Equal(at) {
		t.Errorf("expected occurred_at %s, got %s", at, decoded.OccurredAt)
	}
	if !strings.Contains(decoded.Subject, "Groceries") {
		t.Errorf("expected subject to name the budget, got %q", decoded.Subject)
	}
}

func TestEmailSubject(t *testing.T) {
	tests := []struct {
		typ  models.NotificationType
		want string
	}{
		{models.NotificationTypeWarning, "Budget warning: Rent"},
		{models.NotificationTypeAlert, "Budget almost used: Rent"},
		{models.NotificationTypeCritical, "Budget exceeded: Rent"},
	}
	for _, tt := range tests {
		if got := EmailSubject(tt.typ, "Rent"); got != tt.want {
			t.Errorf("EmailSubject(%s) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestNewPublisher_WithoutURL(t *testing.T) {
	p, err := NewPublisher("", "monbudget", "budget.alert")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(NopPublisher); !ok {
		t.Fatalf("expected NopPublisher, got %T", p)
	}
	if err := p.PublishBudgetAlert(context.Background(), &BudgetAlertEvent{}); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}
