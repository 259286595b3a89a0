package domain

import "github.com/shopspring/decimal"

// ============================================================
// Budgets & Categories
// ============================================================

// Budget is a spending cap for one category over an inclusive period.
// Spent, Remaining, ConsumedPercent and IsExceeded are computed by the API.
type Budget struct {
	ID              int             `json:"id"`
	CategoryID      int             `json:"categorie_id"`
	Cap             decimal.Decimal `json:"montant_fixe"`
	Spent           decimal.Decimal `json:"montant_depense"`
	Remaining       decimal.Decimal `json:"montant_restant"`
	ConsumedPercent float64         `json:"pourcentage_consomme"`
	IsExceeded      bool            `json:"est_depasse"`
	PeriodStart     string          `json:"debut_periode"`
	PeriodEnd       string          `json:"fin_periode"`
}

// BudgetInput is the body for POST /budgets/ and PUT /budgets/{id}.
type BudgetInput struct {
	CategoryID  int             `json:"categorie_id"`
	Cap         decimal.Decimal `json:"montant_fixe"`
	PeriodStart string          `json:"debut_periode"`
	PeriodEnd   string          `json:"fin_periode"`
}

// BudgetDetail is the budget page: the budget, its category and the
// category's transactions inside the budget period, newest first.
type BudgetDetail struct {
	Budget       Budget        `json:"budget"`
	Category     *Category     `json:"category,omitempty"`
	Transactions []Transaction `json:"transactions"`
}

// Category is a spending category. Transactions reference it by name,
// budgets by ID.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"nom"`
	Icon string `json:"icone,omitempty"`
}

// Dashboard is the home view.
type Dashboard struct {
	ActiveBudgets []Budget        `json:"activeBudgets"`
	Recent        []Transaction   `json:"recent"`
	Upcoming      []Transaction   `json:"upcoming"`
	Balance       decimal.Decimal `json:"balance"`
	GlobalHealth  float64         `json:"globalHealth"`
	HealthScore   int             `json:"healthScore"`
	Today         string          `json:"today"`
}
