package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ============================================================
// Transactions
// ============================================================

// TransactionType is the direction of a transaction, as spelled on the wire.
type TransactionType string

const (
	Income  TransactionType = "REVENU"
	Expense TransactionType = "DEPENSE"
)

// Valid reports whether t is one of the two known types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTransactionType accepts the wire spelling and the english aliases,
// case-insensitively.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "REVENU", "INCOME":
		return Income, true
	case "DEPENSE", "EXPENSE":
		return Expense, true
	default:
		return "", false
	}
}

// Transaction is a single income or expense line as returned by the API.
type Transaction struct {
	ID       int             `json:"id"`
	Amount   decimal.Decimal `json:"montant"`
	Label    string          `json:"libelle"`
	Type     TransactionType `json:"type"`
	Category string          `json:"categorie"`
	Date     string          `json:"date"`
}

// Signed returns +amount for income and -amount for expenses.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Day returns the calendar date part (YYYY-MM-DD) of the transaction date.
func (t Transaction) Day() string {
	return DayOf(t.Date)
}

// TransactionInput is the body for POST /transactions/ and PUT /transactions/{id}.
type TransactionInput struct {
	Amount   decimal.Decimal `json:"montant"`
	Label    string          `json:"libelle"`
	Type     TransactionType `json:"type"`
	Category string          `json:"categorie"`
	Date     string          `json:"date"`
}

// TransactionFilter narrows GET /transactions/ and GET /transactions/total.
// Empty fields are not sent.
type TransactionFilter struct {
	From     string
	To       string
	Category string
	Type     TransactionType
}

// Normalized returns the filter as it is sent: the category name is trimmed
// and lower-cased.
func (f TransactionFilter) Normalized() TransactionFilter {
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	f.From = strings.TrimSpace(f.From)
	f.To = strings.TrimSpace(f.To)
	return f
}

// TotalResponse is returned by GET /transactions/total and DELETE /transactions/{id}.
type TotalResponse struct {
	Total decimal.Decimal `json:"total"`
}

// TransactionPage is the state of the transaction explorer: the filtered list
// and the backend-computed total for the same filter.
type TransactionPage struct {
	Filter       TransactionFilter `json:"-"`
	Transactions []Transaction     `json:"transactions"`
	Total        decimal.Decimal   `json:"total"`
}

// DayOf truncates an ISO date or datetime to its YYYY-MM-DD prefix.
func DayOf(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
