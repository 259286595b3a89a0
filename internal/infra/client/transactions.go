package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
)

func filterQuery(f domain.TransactionFilter) url.Values {
	f = f.Normalized()
	q := url.Values{}
	if f.From != "" {
		q.Set("date_debut", f.From)
	}
	if f.To != "" {
		q.Set("date_fin", f.To)
	}
	if f.Category != "" {
		q.Set("categorie", f.Category)
	}
	if f.Type != "" {
		q.Set("type_filtre", string(f.Type))
	}
	return q
}

// ListTransactions returns the transactions matching f, in API order.
func (c *Client) ListTransactions(ctx context.Context, f domain.TransactionFilter) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := c.do(ctx, call{
		op:       "transactions.list",
		method:   http.MethodGet,
		path:     "/transactions/",
		query:    filterQuery(f),
		out:      &txs,
		resource: "transactions",
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// TransactionsTotal returns the API-computed total for f.
func (c *Client) TransactionsTotal(ctx context.Context, f domain.TransactionFilter) (*domain.TotalResponse, error) {
	var total domain.TotalResponse
	err := c.do(ctx, call{
		op:       "transactions.total",
		method:   http.MethodGet,
		path:     "/transactions/total",
		query:    filterQuery(f),
		out:      &total,
		resource: "transactions",
	})
	if err != nil {
		return nil, err
	}
	return &total, nil
}

// CreateTransaction records a new transaction.
func (c *Client) CreateTransaction(ctx context.Context, in domain.TransactionInput) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := c.do(ctx, call{
		op:       "transactions.create",
		method:   http.MethodPost,
		path:     "/transactions/",
		body:     in,
		out:      &tx,
		resource: "transaction",
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// UpdateTransaction replaces transaction id.
func (c *Client) UpdateTransaction(ctx context.Context, id int, in domain.TransactionInput) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := c.do(ctx, call{
		op:       "transactions.update",
		method:   http.MethodPut,
		path:     fmt.Sprintf("/transactions/%d", id),
		body:     in,
		out:      &tx,
		resource: "transaction",
		id:       strconv.Itoa(id),
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// DeleteTransaction removes transaction id and returns the recomputed total.
func (c *Client) DeleteTransaction(ctx context.Context, id int) (*domain.TotalResponse, error) {
	var total domain.TotalResponse
	err := c.do(ctx, call{
		op:       "transactions.delete",
		method:   http.MethodDelete,
		path:     fmt.Sprintf("/transactions/%d", id),
		out:      &total,
		resource: "transaction",
		id:       strconv.Itoa(id),
	})
	if err != nil {
		return nil, err
	}
	return &total, nil
}
