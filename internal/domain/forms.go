package domain

import (
	"sort"
	"strconv"
)

// ============================================================
// Forms — fixed-shape records of what the user typed
// ============================================================

// GlobalField is the FieldErrors key for errors not tied to one field.
const GlobalField = "_global"

// Field names used as FieldErrors keys.
const (
	FieldUsername        = "username"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldAmount          = "amount"
	FieldLabel           = "label"
	FieldType            = "type"
	FieldCategory        = "category"
	FieldDate            = "date"
	FieldCategoryID      = "categoryId"
	FieldCap             = "cap"
	FieldPeriodStart     = "periodStart"
	FieldPeriodEnd       = "periodEnd"
)

// FieldErrors maps a field name to the message displayed next to it.
type FieldErrors map[string]string

// Clone returns an independent copy.
func (fe FieldErrors) Clone() FieldErrors {
	if fe == nil {
		return nil
	}
	out := make(FieldErrors, len(fe))
	for k, v := range fe {
		out[k] = v
	}
	return out
}

// Keys returns the field names in stable order.
func (fe FieldErrors) Keys() []string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Err returns nil when fe is empty, an *ErrValidation otherwise.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return &ErrValidation{Fields: fe}
}

// CredentialForm backs both the login and the registration forms.
// ConfirmPassword is only used for registration.
type CredentialForm struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
	RememberMe      bool   `json:"rememberMe,omitempty"`
}

// TransactionForm is the transaction editor, all values as typed.
type TransactionForm struct {
	Amount   string `json:"amount"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Date     string `json:"date"`
}

// BudgetForm is the budget editor. It is comparable: two forms are equal
// exactly when every field is equal.
type BudgetForm struct {
	CategoryID  string `json:"categoryId"`
	Cap         string `json:"cap"`
	PeriodStart string `json:"periodStart"`
	PeriodEnd   string `json:"periodEnd"`
}

// TransactionFormFrom fills the editor with an existing transaction.
func TransactionFormFrom(t Transaction) TransactionForm {
	return TransactionForm{
		Amount:   t.Amount.String(),
		Label:    t.Label,
		Type:     string(t.Type),
		Category: t.Category,
		Date:     t.Day(),
	}
}

// BudgetFormFrom fills the editor with an existing budget. The result is the
// snapshot used to detect an unchanged submission.
func BudgetFormFrom(b Budget) BudgetForm {
	return BudgetForm{
		CategoryID:  strconv.Itoa(b.CategoryID),
		Cap:         b.Cap.String(),
		PeriodStart: DayOf(b.PeriodStart),
		PeriodEnd:   DayOf(b.PeriodEnd),
	}
}
