package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
)

// ListBudgets returns every budget of the user with API-computed consumption.
func (c *Client) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	var budgets []domain.Budget
	err := c.do(ctx, call{
		op:       "budgets.list",
		method:   http.MethodGet,
		path:     "/budgets/",
		out:      &budgets,
		resource: "budgets",
	})
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

// GetBudget returns budget id. A 404 means it was deleted concurrently.
func (c *Client) GetBudget(ctx context.Context, id int) (*domain.Budget, error) {
	var b domain.Budget
	err := c.do(ctx, call{
		op:       "budgets.get",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/budgets/%d", id),
		out:      &b,
		resource: "budget",
		id:       strconv.Itoa(id),
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBudget creates a budget. A 409 means the period overlaps another
// budget of the same category.
func (c *Client) CreateBudget(ctx context.Context, in domain.BudgetInput) (*domain.Budget, error) {
	var b domain.Budget
	err := c.do(ctx, call{
		op:       "budgets.create",
		method:   http.MethodPost,
		path:     "/budgets/",
		body:     in,
		out:      &b,
		resource: "budget",
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBudget replaces budget id.
func (c *Client) UpdateBudget(ctx context.Context, id int, in domain.BudgetInput) (*domain.Budget, error) {
	var b domain.Budget
	err := c.do(ctx, call{
		op:       "budgets.update",
		method:   http.MethodPut,
		path:     fmt.Sprintf("/budgets/%d", id),
		body:     in,
		out:      &b,
		resource: "budget",
		id:       strconv.Itoa(id),
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Ping measures the latency of the public categories endpoint.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := c.do(ctx, call{
		op:       "health.ping",
		method:   http.MethodGet,
		path:     "/categories/",
		public:   true,
		resource: "categories",
	})
	return time.Since(start), err
}
