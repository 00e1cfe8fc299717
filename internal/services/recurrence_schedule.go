package services

import (
	"fmt"
	"sync"
	"time"

	apperrors "monbudget/internal/errors"
	"monbudget/internal/models"
)

// OccurrenceCalculator computes the nominal date following scheduled for one
// frequency. interval multiplies the frequency's step; anchorDay is the day of
// month month-based steps aim for before clamping to the month's length.
type OccurrenceCalculator interface {
	Next(scheduled time.Time, interval, anchorDay int) time.Time
}

// DayStepCalculator advances by a fixed number of days per interval.
type DayStepCalculator struct {
	Days int
}

// Next returns scheduled plus Days*interval days.
func (c DayStepCalculator) Next(scheduled time.Time, interval, _ int) time.Time {
	return scheduled.AddDate(0, 0, c.Days*interval)
}

// MonthStepCalculator advances by a fixed number of months per interval,
// landing on the anchor day or the last day of a shorter month.
type MonthStepCalculator struct {
	Months int
}

// Next returns scheduled plus Months*interval months, clamped.
func (c MonthStepCalculator) Next(scheduled time.Time, interval, anchorDay int) time.Time {
	return addMonthsClamped(scheduled, c.Months*interval, anchorDay)
}

var (
	calculatorsMu sync.RWMutex
	calculators   = map[models.Frequency]OccurrenceCalculator{
		models.FrequencyDaily:      DayStepCalculator{Days: 1},
		models.FrequencyWeekly:     DayStepCalculator{Days: 7},
		models.FrequencyMonthly:    MonthStepCalculator{Months: 1},
		models.FrequencyQuarterly:  MonthStepCalculator{Months: 3},
		models.FrequencySemiannual: MonthStepCalculator{Months: 6},
		models.FrequencyYearly:     MonthStepCalculator{Months: 12},
	}
)

// GetOccurrenceCalculator returns the calculator registered for a frequency.
func GetOccurrenceCalculator(frequency models.Frequency) (OccurrenceCalculator, error) {
	calculatorsMu.RLock()
	defer calculatorsMu.RUnlock()

	calc, ok := calculators[frequency]
	if !ok {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidFrequency, fmt.Sprintf("unknown frequency: %s", frequency))
	}
	return calc, nil
}

// RegisterOccurrenceCalculator registers or replaces the calculator for a frequency.
func RegisterOccurrenceCalculator(frequency models.Frequency, calc OccurrenceCalculator) {
	calculatorsMu.Lock()
	defer calculatorsMu.Unlock()
	calculators[frequency] = calc
}

// NextScheduledDate returns the nominal occurrence after r.ScheduledDate.
func NextScheduledDate(r *models.Recurrence) (time.Time, error) {
	calc, err := GetOccurrenceCalculator(r.Frequency)
	if err != nil {
		return time.Time{}, err
	}
	return calc.Next(r.ScheduledDate, r.EffectiveInterval(), r.EffectiveAnchorDay()), nil
}

// AdjustForWeekend moves a Saturday or Sunday to the neighbouring business
// day according to the policy. Other days are returned unchanged.
func AdjustForWeekend(day time.Time, policy models.WeekendPolicy) time.Time {
	wd := day.Weekday()
	if wd != time.Saturday && wd != time.Sunday {
		return day
	}
	switch policy {
	case models.WeekendPolicyNextBusinessDay:
		if wd == time.Saturday {
			return day.AddDate(0, 0, 2)
		}
		return day.AddDate(0, 0, 1)
	case models.WeekendPolicyPreviousBusinessDay:
		if wd == time.Saturday {
			return day.AddDate(0, 0, -1)
		}
		return day.AddDate(0, 0, -2)
	}
	return day
}

// addMonthsClamped moves t forward by months and places it on anchorDay,
// or on the month's last day when the month is shorter.
// Jan 31 + 1 month is Feb 29 in a leap year and Feb 28 otherwise.
func addMonthsClamped(t time.Time, months, anchorDay int) time.Time {
	y, m, _ := t.Date()
	total := int(m) - 1 + months
	year := y + total/12
	month := time.Month(total%12 + 1)
	if total < 0 && total%12 != 0 {
		year--
		month = time.Month(total%12 + 13)
	}

	day := anchorDay
	if last := daysIn(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
