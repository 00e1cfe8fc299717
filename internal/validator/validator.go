// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"monbudget/internal/encryption"
	"monbudget/internal/models"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// validCurrencies lists the ISO 4217 codes accounts may be opened in.
var validCurrencies = map[string]bool{
	"AUD": true, "BGN": true, "BRL": true, "CAD": true, "CHF": true,
	"CNY": true, "CZK": true, "DKK": true, "EUR": true, "GBP": true,
	"HKD": true, "HUF": true, "ILS": true, "INR": true, "ISK": true,
	"JPY": true, "KRW": true, "MAD": true, "MXN": true, "NOK": true,
	"NZD": true, "PLN": true, "RON": true, "SEK": true, "SGD": true,
	"THB": true, "TND": true, "TRY": true, "USD": true, "XOF": true,
	"ZAR": true,
}

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("iso4217", validateISO4217)
		_ = v.RegisterValidation("hex_color", validateHexColor)
		_ = v.RegisterValidation("iban", validateIBAN)
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("category_type", validateCategoryType)
		_ = v.RegisterValidation("account_type", validateAccountType)
		_ = v.RegisterValidation("budget_period", validateBudgetPeriod)
		_ = v.RegisterValidation("frequency", validateFrequency)
		_ = v.RegisterValidation("weekend_policy", validateWeekendPolicy)
		_ = v.RegisterValidation("notification_preference", validateNotificationPreference)
	}
}

func validateISO4217(fl validator.FieldLevel) bool {
	return validCurrencies[fl.Field().String()]
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

func validateIBAN(fl validator.FieldLevel) bool {
	return encryption.ValidIBAN(fl.Field().String())
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return models.TransactionType(fl.Field().String()).Valid()
}

func validateCategoryType(fl validator.FieldLevel) bool {
	switch models.CategoryType(fl.Field().String()) {
	case models.CategoryTypeIncome, models.CategoryTypeExpense:
		return true
	}
	return false
}

func validateAccountType(fl validator.FieldLevel) bool {
	switch models.AccountType(fl.Field().String()) {
	case models.AccountTypeChecking, models.AccountTypeSavings, models.AccountTypeCash:
		return true
	}
	return false
}

func validateBudgetPeriod(fl validator.FieldLevel) bool {
	switch models.BudgetPeriod(fl.Field().String()) {
	case models.BudgetPeriodMonthly, models.BudgetPeriodYearly:
		return true
	}
	return false
}

func validateFrequency(fl validator.FieldLevel) bool {
	switch models.Frequency(fl.Field().String()) {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly,
		models.FrequencyQuarterly, models.FrequencySemiannual, models.FrequencyYearly:
		return true
	}
	return false
}

func validateWeekendPolicy(fl validator.FieldLevel) bool {
	switch models.WeekendPolicy(fl.Field().String()) {
	case models.WeekendPolicyNone, models.WeekendPolicyNextBusinessDay, models.WeekendPolicyPreviousBusinessDay:
		return true
	}
	return false
}

func validateNotificationPreference(fl validator.FieldLevel) bool {
	switch models.NotificationPreference(fl.Field().String()) {
	case models.PreferenceDisabled, models.PreferenceInAppOnly, models.PreferenceEmailOnly, models.PreferenceBoth:
		return true
	}
	return false
}
