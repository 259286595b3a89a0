package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/port"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/session"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/validation"
)

// TransactionService backs the transaction explorer: a filtered list with
// its total, and the create/edit/delete forms.
type TransactionService struct {
	api         port.TransactionAPI
	categories  *CategoryService
	page        *Latest[domain.TransactionPage]
	unsubscribe func()
	logger      *zap.Logger
}

// NewTransactionService creates the explorer. Its state is dropped whenever
// the session ends.
func NewTransactionService(
	api port.TransactionAPI,
	categories *CategoryService,
	sessions *session.Manager,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *TransactionService {
	s := &TransactionService{
		api:        api,
		categories: categories,
		page:       NewLatest[domain.TransactionPage]("transactions", metrics),
		logger:     logger,
	}
	s.unsubscribe = resetOnSignOut(sessions, s.page)
	return s
}

// Load fetches the transactions matching f together with their total. A
// Load started while another is in flight cancels it; only the newest
// result is kept.
func (s *TransactionService) Load(ctx context.Context, f domain.TransactionFilter) (domain.TransactionPage, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Load")
	defer span.End()

	f = f.Normalized()
	span.SetAttributes(
		attribute.String("filter.from", f.From),
		attribute.String("filter.to", f.To),
		attribute.String("filter.category", f.Category),
		attribute.String("filter.type", string(f.Type)),
	)

	return s.page.Run(ctx, func(ctx context.Context) (domain.TransactionPage, error) {
		var (
			txs   []domain.Transaction
			total *domain.TotalResponse
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			txs, err = s.api.ListTransactions(gctx, f)
			return err
		})
		g.Go(func() error {
			var err error
			total, err = s.api.TransactionsTotal(gctx, f)
			return err
		})
		if err := g.Wait(); err != nil {
			return domain.TransactionPage{}, err
		}
		return domain.TransactionPage{Filter: f, Transactions: txs, Total: total.Total}, nil
	})
}

// Page returns the last loaded page.
func (s *TransactionService) Page() (domain.TransactionPage, bool) {
	return s.page.Get()
}

// Create validates the form against the known categories and submits it.
// A server detail about the amount is reported on the amount field.
func (s *TransactionService) Create(ctx context.Context, form domain.TransactionForm) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Create")
	defer span.End()

	in, err := s.parse(ctx, form)
	if err != nil {
		return nil, err
	}

	tx, err := s.api.CreateTransaction(ctx, in)
	if err != nil {
		s.logger.Warn("create transaction failed", zap.Error(err))
		return nil, amountDetail(err)
	}
	return tx, nil
}

// Update validates the form and replaces transaction id. Server failures are
// reported globally.
func (s *TransactionService) Update(ctx context.Context, id int, form domain.TransactionForm) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Update")
	defer span.End()
	span.SetAttributes(attribute.Int("transaction.id", id))

	in, err := s.parse(ctx, form)
	if err != nil {
		return nil, err
	}

	tx, err := s.api.UpdateTransaction(ctx, id, in)
	if err != nil {
		s.logger.Warn("update transaction failed", zap.Int("id", id), zap.Error(err))
		return nil, err
	}

	s.page.Update(func(p domain.TransactionPage) domain.TransactionPage {
		txs := make([]domain.Transaction, len(p.Transactions))
		for i, t := range p.Transactions {
			if t.ID == id {
				t = *tx
			}
			txs[i] = t
		}
		p.Transactions = txs
		return p
	})
	return tx, nil
}

// Delete removes transaction id. The total returned by the API replaces the
// explorer's total.
func (s *TransactionService) Delete(ctx context.Context, id int) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int("transaction.id", id))

	resp, err := s.api.DeleteTransaction(ctx, id)
	if err != nil {
		s.logger.Warn("delete transaction failed", zap.Int("id", id), zap.Error(err))
		return decimal.Zero, err
	}

	s.page.Update(func(p domain.TransactionPage) domain.TransactionPage {
		txs := make([]domain.Transaction, 0, len(p.Transactions))
		for _, t := range p.Transactions {
			if t.ID != id {
				txs = append(txs, t)
			}
		}
		p.Transactions = txs
		p.Total = resp.Total
		return p
	})
	return resp.Total, nil
}

// Total returns the sum of the transactions matching f without touching the
// explorer state.
func (s *TransactionService) Total(ctx context.Context, f domain.TransactionFilter) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Total")
	defer span.End()

	resp, err := s.api.TransactionsTotal(ctx, f.Normalized())
	if err != nil {
		return decimal.Zero, err
	}
	return resp.Total, nil
}

// Close cancels any fetch in flight and stops following the session.
func (s *TransactionService) Close() {
	s.unsubscribe()
	s.page.Dispose()
}

func (s *TransactionService) parse(ctx context.Context, form domain.TransactionForm) (domain.TransactionInput, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return domain.TransactionInput{}, err
	}
	in, errs := validation.ParseTransaction(form, cats)
	if err := errs.Err(); err != nil {
		return domain.TransactionInput{}, err
	}
	return in, nil
}

// amountDetail moves a server validation detail that names the amount from
// _global to the amount field.
func amountDetail(err error) error {
	fields := domain.FieldErrorsOf(err)
	if domain.KindOf(err) != domain.KindValidation {
		return err
	}
	detail := fields[domain.GlobalField]
	lower := strings.ToLower(detail)
	if !strings.Contains(lower, "montant") && !strings.Contains(lower, "amount") {
		return err
	}
	delete(fields, domain.GlobalField)
	fields[domain.FieldAmount] = detail
	return &domain.ErrValidation{Fields: fields}
}
