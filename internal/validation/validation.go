// Package validation checks form records before anything is sent to the API.
// Every function is pure: a record goes in, a domain.FieldErrors comes out.
package validation

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	UsernameMinLength = 3
	PasswordMinLength = 8
	PasswordMaxLength = 72

	isoDate = "2006-01-02"
)

// Messages displayed next to fields.
const (
	MsgRequired         = "This field is required"
	MsgUsernameTooShort = "Minimum 3 characters"
	MsgPasswordTooShort = "Minimum 8 characters"
	MsgPasswordTooLong  = "Maximum 72 characters"
	MsgPasswordMismatch = "Passwords do not match"
	MsgAmountInvalid    = "Amount must be a number"
	MsgAmountPositive   = "Amount must be greater than zero"
	MsgTypeInvalid      = "Type must be income or expense"
	MsgCategoryUnknown  = "Unknown category"
	MsgDateInvalid      = "Date must use the YYYY-MM-DD format"
	MsgPeriodOrder      = "End date cannot be before start date"
)

// Issue is a length problem reported by the credential validators.
type Issue string

const (
	TooShort Issue = "too_short"
	TooLong  Issue = "too_long"
)

// ============================================================
// Credentials
// ============================================================

// ValidateUsername returns TooShort for fewer than 3 characters, "" otherwise.
func ValidateUsername(v string) Issue {
	if utf8.RuneCountInString(v) < UsernameMinLength {
		return TooShort
	}
	return ""
}

// ValidatePassword returns every length issue of v, in order.
func ValidatePassword(v string) []Issue {
	var issues []Issue
	if utf8.RuneCountInString(v) < PasswordMinLength {
		issues = append(issues, TooShort)
	}
	if utf8.RuneCountInString(v) > PasswordMaxLength {
		issues = append(issues, TooLong)
	}
	return issues
}

// PasswordStrength scores v from 0 to 4: one point each for at least 8
// characters, at least 12 characters, mixed case, a digit and a symbol,
// capped at 4.
func PasswordStrength(v string) int {
	var lower, upper, digit, symbol bool
	for _, r := range v {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}

	n := utf8.RuneCountInString(v)
	score := 0
	if n >= 8 {
		score++
	}
	if n >= 12 {
		score++
	}
	if lower && upper {
		score++
	}
	if digit {
		score++
	}
	if symbol {
		score++
	}
	return min(score, 4)
}

var strengthLabels = [...]string{"very weak", "weak", "medium", "strong", "very strong"}

// StrengthLabel names a PasswordStrength score.
func StrengthLabel(score int) string {
	score = max(0, min(score, len(strengthLabels)-1))
	return strengthLabels[score]
}

// ValidateLogin requires both credentials. No length rules apply at login.
func ValidateLogin(f domain.CredentialForm) domain.FieldErrors {
	errs := domain.FieldErrors{}
	if strings.TrimSpace(f.Username) == "" {
		errs[domain.FieldUsername] = MsgRequired
	}
	if f.Password == "" {
		errs[domain.FieldPassword] = MsgRequired
	}
	return errs
}

// ValidateRegistration applies the username and password rules and requires
// the confirmation to match. Only the first password issue is shown.
func ValidateRegistration(f domain.CredentialForm) domain.FieldErrors {
	errs := domain.FieldErrors{}
	if ValidateUsername(f.Username) == TooShort {
		errs[domain.FieldUsername] = MsgUsernameTooShort
	}
	if issues := ValidatePassword(f.Password); len(issues) > 0 {
		errs[domain.FieldPassword] = issueMessage(issues[0])
	}
	if f.ConfirmPassword != f.Password {
		errs[domain.FieldConfirmPassword] = MsgPasswordMismatch
	}
	return errs
}

func issueMessage(i Issue) string {
	if i == TooLong {
		return MsgPasswordTooLong
	}
	return MsgPasswordTooShort
}

// ============================================================
// Transactions
// ============================================================

// ValidateTransaction checks a transaction form against the known categories.
func ValidateTransaction(f domain.TransactionForm, categories []domain.Category) domain.FieldErrors {
	_, errs := ParseTransaction(f, categories)
	return errs
}

// ParseTransaction validates f and, when it is valid, returns the request
// body to send. The date is sent as midnight UTC.
func ParseTransaction(f domain.TransactionForm, categories []domain.Category) (domain.TransactionInput, domain.FieldErrors) {
	errs := domain.FieldErrors{}
	var in domain.TransactionInput

	if amount, msg := parsePositiveAmount(f.Amount); msg != "" {
		errs[domain.FieldAmount] = msg
	} else {
		in.Amount = amount
	}

	if label := strings.TrimSpace(f.Label); label == "" {
		errs[domain.FieldLabel] = MsgRequired
	} else {
		in.Label = label
	}

	if strings.TrimSpace(f.Type) == "" {
		errs[domain.FieldType] = MsgRequired
	} else if t, ok := domain.ParseTransactionType(f.Type); !ok {
		errs[domain.FieldType] = MsgTypeInvalid
	} else {
		in.Type = t
	}

	category := strings.TrimSpace(f.Category)
	switch {
	case category == "":
		errs[domain.FieldCategory] = MsgRequired
	case !knownCategory(category, categories):
		errs[domain.FieldCategory] = MsgCategoryUnknown
	default:
		in.Category = category
	}

	if day, msg := parseDate(f.Date); msg != "" {
		errs[domain.FieldDate] = msg
	} else {
		in.Date = day.Format(time.RFC3339)
	}

	return in, errs
}

func knownCategory(name string, categories []domain.Category) bool {
	for _, c := range categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ============================================================
// Budgets
// ============================================================

// ValidateBudget checks a budget form. A period that starts and ends on the
// same day is valid.
func ValidateBudget(f domain.BudgetForm) domain.FieldErrors {
	_, errs := ParseBudget(f)
	return errs
}

// ParseBudget validates f and, when it is valid, returns the request body.
func ParseBudget(f domain.BudgetForm) (domain.BudgetInput, domain.FieldErrors) {
	errs := domain.FieldErrors{}
	var in domain.BudgetInput

	if id, err := strconv.Atoi(strings.TrimSpace(f.CategoryID)); err != nil || id <= 0 {
		errs[domain.FieldCategoryID] = MsgRequired
	} else {
		in.CategoryID = id
	}

	if amount, msg := parsePositiveAmount(f.Cap); msg != "" {
		errs[domain.FieldCap] = msg
	} else {
		in.Cap = amount
	}

	start, startMsg := parseDate(f.PeriodStart)
	if startMsg != "" {
		errs[domain.FieldPeriodStart] = startMsg
	}
	end, endMsg := parseDate(f.PeriodEnd)
	if endMsg != "" {
		errs[domain.FieldPeriodEnd] = endMsg
	}
	if startMsg == "" && endMsg == "" {
		if end.Before(start) {
			errs[domain.FieldPeriodEnd] = MsgPeriodOrder
		} else {
			in.PeriodStart = start.Format(isoDate)
			in.PeriodEnd = end.Format(isoDate)
		}
	}

	return in, errs
}

// BudgetUnchanged reports whether the editor holds exactly the values it was
// opened with.
func BudgetUnchanged(snapshot, current domain.BudgetForm) bool {
	return snapshot == current
}

// ============================================================
// Helpers
// ============================================================

func parsePositiveAmount(s string) (decimal.Decimal, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, MsgRequired
	}
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Zero, MsgAmountInvalid
	}
	if !d.IsPositive() {
		return decimal.Zero, MsgAmountPositive
	}
	return d, ""
}

func parseDate(s string) (time.Time, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, MsgRequired
	}
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return time.Time{}, MsgDateInvalid
	}
	return t, ""
}
