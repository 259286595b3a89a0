package validation

import (
	"strings"
	"testing"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCategories = []domain.Category{
	{ID: 1, Name: "alimentation"},
	{ID: 2, Name: "salaire"},
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		in   string
		want Issue
	}{
		{"", TooShort},
		{"ab", TooShort},
		{"abc", ""},
		{"éèà", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateUsername(tt.in), "username %q", tt.in)
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Issue
	}{
		{"empty", "", []Issue{TooShort}},
		{"seven", "1234567", []Issue{TooShort}},
		{"eight", "12345678", nil},
		{"seventy-two", strings.Repeat("a", 72), nil},
		{"seventy-three", strings.Repeat("a", 73), []Issue{TooLong}},
		{"seventy-two accented", strings.Repeat("é", 72), nil},
		{"forty accented", strings.Repeat("é", 40), nil},
		{"seventy-three accented", strings.Repeat("é", 73), []Issue{TooLong}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePassword(tt.in))
		})
	}
}

func TestPasswordStrength(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 0},
		{"abcdefgh", 1},
		{"abcdefghijkl", 2},
		{"Abcdefgh", 2},
		{"Abcdefgh1", 3},
		{"Abcdefgh1!", 4},
		{"Abcdefghijk1!", 4},
		{"!", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PasswordStrength(tt.in), "password %q", tt.in)
	}
}

func TestPasswordStrength_MonotonicInAddedClasses(t *testing.T) {
	base := "abcdefgh"
	prev := PasswordStrength(base)
	for _, suffix := range []string{"A", "1", "#", "xyz"} {
		base += suffix
		got := PasswordStrength(base)
		assert.GreaterOrEqual(t, got, prev, "adding %q lowered the score", suffix)
		assert.LessOrEqual(t, got, 4)
		prev = got
	}
}

func TestStrengthLabel(t *testing.T) {
	assert.Equal(t, "very weak", StrengthLabel(0))
	assert.Equal(t, "medium", StrengthLabel(2))
	assert.Equal(t, "very strong", StrengthLabel(4))
	assert.Equal(t, "very strong", StrengthLabel(9))
	assert.Equal(t, "very weak", StrengthLabel(-1))
}

func TestValidateLogin(t *testing.T) {
	errs := ValidateLogin(domain.CredentialForm{})
	assert.Equal(t, MsgRequired, errs[domain.FieldUsername])
	assert.Equal(t, MsgRequired, errs[domain.FieldPassword])

	assert.Empty(t, ValidateLogin(domain.CredentialForm{Username: "al", Password: "x"}))
}

func TestValidateRegistration(t *testing.T) {
	errs := ValidateRegistration(domain.CredentialForm{
		Username:        "al",
		Password:        "short",
		ConfirmPassword: "shorter",
	})
	assert.Equal(t, MsgUsernameTooShort, errs[domain.FieldUsername])
	assert.Equal(t, MsgPasswordTooShort, errs[domain.FieldPassword])
	assert.Equal(t, MsgPasswordMismatch, errs[domain.FieldConfirmPassword])

	ok := ValidateRegistration(domain.CredentialForm{
		Username:        "alice",
		Password:        "Sup3r-secret",
		ConfirmPassword: "Sup3r-secret",
	})
	assert.Empty(t, ok)
}

func validTransactionForm() domain.TransactionForm {
	return domain.TransactionForm{
		Amount:   "12.50",
		Label:    "Groceries",
		Type:     "DEPENSE",
		Category: "alimentation",
		Date:     "2024-03-10",
	}
}

func TestParseTransaction_Valid(t *testing.T) {
	in, errs := ParseTransaction(validTransactionForm(), testCategories)
	require.Empty(t, errs)
	assert.Equal(t, "12.5", in.Amount.String())
	assert.Equal(t, domain.Expense, in.Type)
	assert.Equal(t, "2024-03-10T00:00:00Z", in.Date)
}

func TestValidateTransaction_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*domain.TransactionForm)
		field string
		msg   string
	}{
		{"missing amount", func(f *domain.TransactionForm) { f.Amount = "" }, domain.FieldAmount, MsgRequired},
		{"zero amount", func(f *domain.TransactionForm) { f.Amount = "0" }, domain.FieldAmount, MsgAmountPositive},
		{"negative amount", func(f *domain.TransactionForm) { f.Amount = "-3" }, domain.FieldAmount, MsgAmountPositive},
		{"garbage amount", func(f *domain.TransactionForm) { f.Amount = "abc" }, domain.FieldAmount, MsgAmountInvalid},
		{"blank label", func(f *domain.TransactionForm) { f.Label = "   " }, domain.FieldLabel, MsgRequired},
		{"unknown category", func(f *domain.TransactionForm) { f.Category = "loisirs" }, domain.FieldCategory, MsgCategoryUnknown},
		{"empty category", func(f *domain.TransactionForm) { f.Category = "" }, domain.FieldCategory, MsgRequired},
		{"missing date", func(f *domain.TransactionForm) { f.Date = "" }, domain.FieldDate, MsgRequired},
		{"bad date", func(f *domain.TransactionForm) { f.Date = "10/03/2024" }, domain.FieldDate, MsgDateInvalid},
		{"bad type", func(f *domain.TransactionForm) { f.Type = "TRANSFER" }, domain.FieldType, MsgTypeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validTransactionForm()
			tt.edit(&f)
			errs := ValidateTransaction(f, testCategories)
			assert.Equal(t, tt.msg, errs[tt.field])
			assert.Len(t, errs, 1)
		})
	}
}

func TestValidateTransaction_NoCategoriesLoaded(t *testing.T) {
	errs := ValidateTransaction(validTransactionForm(), nil)
	assert.Equal(t, MsgCategoryUnknown, errs[domain.FieldCategory])
}

func TestValidateBudget(t *testing.T) {
	valid := domain.BudgetForm{CategoryID: "1", Cap: "300", PeriodStart: "2024-03-01", PeriodEnd: "2024-03-31"}
	assert.Empty(t, ValidateBudget(valid))

	sameDay := valid
	sameDay.PeriodEnd = sameDay.PeriodStart
	assert.Empty(t, ValidateBudget(sameDay), "a one-day period is valid")

	reversed := valid
	reversed.PeriodEnd = "2024-02-28"
	assert.Equal(t, MsgPeriodOrder, ValidateBudget(reversed)[domain.FieldPeriodEnd])

	zero := valid
	zero.Cap = "0"
	assert.Equal(t, MsgAmountPositive, ValidateBudget(zero)[domain.FieldCap])

	noCategory := valid
	noCategory.CategoryID = ""
	assert.Equal(t, MsgRequired, ValidateBudget(noCategory)[domain.FieldCategoryID])
}

func TestBudgetUnchanged(t *testing.T) {
	snapshot := domain.BudgetFormFrom(domain.Budget{
		ID: 4, CategoryID: 2, PeriodStart: "2024-03-01", PeriodEnd: "2024-03-31T00:00:00",
	})
	current := snapshot
	assert.True(t, BudgetUnchanged(snapshot, current))

	current.Cap = "301"
	assert.False(t, BudgetUnchanged(snapshot, current))

	current = snapshot
	current.PeriodEnd = "2024-04-01"
	assert.False(t, BudgetUnchanged(snapshot, current))
}
