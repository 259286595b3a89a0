package client

import (
	"context"
	"net/http"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
)

// Login exchanges credentials for an access token. A 401 here means bad
// credentials and never touches the session.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	err := c.do(ctx, call{
		op:       "auth.login",
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     req,
		out:      &resp,
		resource: "user",
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) error {
	return c.do(ctx, call{
		op:       "auth.register",
		method:   http.MethodPost,
		path:     "/auth/register",
		body:     req,
		resource: "user",
	})
}

// ListCategories returns every category. It works without a session.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	err := c.do(ctx, call{
		op:       "categories.list",
		method:   http.MethodGet,
		path:     "/categories/",
		out:      &categories,
		public:   true,
		resource: "categories",
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}
