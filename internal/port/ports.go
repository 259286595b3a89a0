// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from the REST client and the session storage tiers.
package port

import (
	"context"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
)

// SessionStore is one storage tier of the session manager. Load returns
// (nil, nil) when the tier is empty.
type SessionStore interface {
	Load() (*domain.Session, error)
	Save(s domain.Session) error
	Clear() error
}

// Credentials is what the REST client needs from the session manager.
// Revoke destroys the session if token is still the current one.
type Credentials interface {
	Token() (string, bool)
	Revoke(token string)
}

// AuthAPI covers the /auth endpoints. They never carry a bearer token.
type AuthAPI interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	Register(ctx context.Context, req domain.RegisterRequest) error
}

// CategoryAPI lists categories. It is callable without a session.
type CategoryAPI interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// TransactionAPI covers the /transactions endpoints.
type TransactionAPI interface {
	ListTransactions(ctx context.Context, f domain.TransactionFilter) ([]domain.Transaction, error)
	TransactionsTotal(ctx context.Context, f domain.TransactionFilter) (*domain.TotalResponse, error)
	CreateTransaction(ctx context.Context, in domain.TransactionInput) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id int, in domain.TransactionInput) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id int) (*domain.TotalResponse, error)
}

// BudgetAPI covers the /budgets endpoints.
type BudgetAPI interface {
	ListBudgets(ctx context.Context) ([]domain.Budget, error)
	GetBudget(ctx context.Context, id int) (*domain.Budget, error)
	CreateBudget(ctx context.Context, in domain.BudgetInput) (*domain.Budget, error)
	UpdateBudget(ctx context.Context, id int, in domain.BudgetInput) (*domain.Budget, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
