package models

import (
	"testing"
	"time"
)

func TestBudgetPeriodBounds(t *testing.T) {
	month := 12
	monthly := &Budget{Period: BudgetPeriodMonthly, Year: 2024, Month: &month}
	start, end := monthly.PeriodBounds()
	if !start.Equal(time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)) ||
		!end.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected monthly bounds %v - %v", start, end)
	}
	if monthly.PeriodMonth() != 12 {
		t.Errorf("expected period month 12, got %d", monthly.PeriodMonth())
	}

	yearly := &Budget{Period: BudgetPeriodYearly, Year: 2024, Month: &month}
	if yearly.PeriodMonth() != 0 {
		t.Errorf("expected yearly budgets to use month 0, got %d", yearly.PeriodMonth())
	}
	if !yearly.Covers(time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)) {
		t.Error("expected leap day to be covered")
	}
	if yearly.Covers(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("expected end bound to be exclusive")
	}
}

func TestAlertThresholds(t *testing.T) {
	th := AlertThresholds{Warning: 50, Alert: 80, Critical: 95}

	tests := []struct {
		spent, allocated int64
		want             NotificationType
		reached          bool
	}{
		{4999, 10000, "", false},
		{5000, 10000, NotificationTypeWarning, true},
		{8000, 10000, NotificationTypeAlert, true},
		{9499, 10000, NotificationTypeAlert, true},
		{94996, 100000, NotificationTypeAlert, true},
		{95000, 100000, NotificationTypeCritical, true},
		{15000, 10000, NotificationTypeCritical, true},
		{100, 0, "", false},
	}
	for _, tt := range tests {
		got, reached := th.Highest(tt.spent, tt.allocated)
		if got != tt.want || reached != tt.reached {
			t.Errorf("Highest(%d, %d) = %q, %v; want %q, %v", tt.spent, tt.allocated, got, reached, tt.want, tt.reached)
		}
	}

	if th.Level(NotificationTypeAlert) != 80 {
		t.Errorf("expected alert level 80, got %v", th.Level(NotificationTypeAlert))
	}
	if err := th.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (AlertThresholds{Warning: 50, Alert: 50, Critical: 95}).Validate(); err == nil {
		t.Error("expected equal thresholds to be rejected")
	}
	if NotificationTypeCritical.Rank() <= NotificationTypeAlert.Rank() || NotificationType("x").Rank() != 0 {
		t.Error("unexpected rank ordering")
	}
}

func TestNotificationSettings(t *testing.T) {
	defaults := AlertThresholds{Warning: 50, Alert: 80, Critical: 95}

	var none *NotificationSettings
	if none.EffectivePreference() != PreferenceInAppOnly {
		t.Errorf("expected in-app default, got %q", none.EffectivePreference())
	}
	if none.Thresholds(defaults) != defaults {
		t.Error("expected defaults for missing settings")
	}

	warning := 60.0
	s := &NotificationSettings{Preference: PreferenceBoth, WarningThreshold: &warning}
	got := s.Thresholds(defaults)
	if got.Warning != 60 || got.Alert != 80 || got.Critical != 95 {
		t.Errorf("expected partial override, got %+v", got)
	}
	if !s.EffectivePreference().WantsEmail() || PreferenceInAppOnly.WantsEmail() {
		t.Error("unexpected WantsEmail result")
	}
}

func TestRecurrenceHelpers(t *testing.T) {
	r := &Recurrence{ScheduledDate: time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)}
	if r.EffectiveInterval() != 1 {
		t.Errorf("expected default interval 1, got %d", r.EffectiveInterval())
	}
	if r.EffectiveAnchorDay() != 31 {
		t.Errorf("expected anchor from scheduled date, got %d", r.EffectiveAnchorDay())
	}
	if r.Exhausted() {
		t.Error("expected unlimited recurrence not to be exhausted")
	}

	limit := 3
	r.MaxExecutions = &limit
	r.ExecutionCount = 3
	if !r.Exhausted() {
		t.Error("expected recurrence to be exhausted")
	}
}

func TestApplyDeltaAndDisplayName(t *testing.T) {
	if ApplyDelta(TransactionTypeDebit, 500) != -500 || ApplyDelta(TransactionTypeCredit, 500) != 500 {
		t.Error("unexpected balance delta")
	}
	if !TransactionTypeCredit.Valid() || TransactionType("income").Valid() {
		t.Error("unexpected transaction type validity")
	}

	u := &User{Email: "jane@example.com"}
	if u.DisplayName() != "jane@example.com" {
		t.Errorf("expected email fallback, got %q", u.DisplayName())
	}
	u.FirstName, u.LastName = "Jane", "Doe"
	if u.DisplayName() != "Jane Doe" {
		t.Errorf("expected full name, got %q", u.DisplayName())
	}
}

func TestBaseGeneratesID(t *testing.T) {
	b := &Base{}
	if err := b.BeforeCreate(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.ID) != 36 {
		t.Errorf("expected a UUID, got %q", b.ID)
	}
	id := b.ID
	_ = b.BeforeCreate(nil)
	if b.ID != id {
		t.Error("expected existing ID to be kept")
	}
}
