package service

import (
	"context"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/port"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/session"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/validation"
)

// MsgBudgetGone is shown when a budget disappears while it is being viewed
// or edited.
const MsgBudgetGone = "This budget no longer exists"

// BudgetEditor is an open edit form. Snapshot holds the values it was opened
// with.
type BudgetEditor struct {
	ID       int
	Snapshot domain.BudgetForm
}

// EditResult tells what a submitted edit did.
type EditResult int

const (
	// EditSaved means the budget was updated.
	EditSaved EditResult = iota
	// EditUnchanged means the form matched its snapshot and nothing was sent.
	EditUnchanged
)

type editorSet struct {
	mu      sync.Mutex
	editors map[int]*BudgetEditor
}

func (e *editorSet) get(id int) (*BudgetEditor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ed, ok := e.editors[id]
	return ed, ok
}

func (e *editorSet) put(ed *BudgetEditor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editors[ed.ID] = ed
}

func (e *editorSet) close(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.editors, id)
}

func (e *editorSet) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.editors)
}

// BudgetService backs the budget list, the budget detail page and the
// create and edit forms.
type BudgetService struct {
	api         port.BudgetAPI
	txAPI       port.TransactionAPI
	categories  *CategoryService
	list        *Latest[[]domain.Budget]
	detail      *Latest[domain.BudgetDetail]
	editors     *editorSet
	unsubscribe func()
	logger      *zap.Logger
}

func NewBudgetService(
	api port.BudgetAPI,
	txAPI port.TransactionAPI,
	categories *CategoryService,
	sessions *session.Manager,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *BudgetService {
	s := &BudgetService{
		api:        api,
		txAPI:      txAPI,
		categories: categories,
		list:       NewLatest[[]domain.Budget]("budgets", metrics),
		detail:     NewLatest[domain.BudgetDetail]("budget_detail", metrics),
		editors:    &editorSet{editors: make(map[int]*BudgetEditor)},
		logger:     logger,
	}
	s.unsubscribe = resetOnSignOut(sessions, s.list, s.detail, s.editors)
	return s
}

// List fetches every budget of the user.
func (s *BudgetService) List(ctx context.Context) ([]domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.List")
	defer span.End()

	return s.list.Run(ctx, func(ctx context.Context) ([]domain.Budget, error) {
		return s.api.ListBudgets(ctx)
	})
}

// Detail fetches budget id with its category and the transactions of that
// category inside the budget period, newest first.
func (s *BudgetService) Detail(ctx context.Context, id int) (domain.BudgetDetail, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.Detail")
	defer span.End()
	span.SetAttributes(attribute.Int("budget.id", id))

	return s.detail.Run(ctx, func(ctx context.Context) (domain.BudgetDetail, error) {
		var (
			budget *domain.Budget
			cats   map[int]domain.Category
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			budget, err = s.api.GetBudget(gctx, id)
			return err
		})
		g.Go(func() error {
			var err error
			cats, err = s.categories.ByID(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				s.logger.Info("budget vanished", zap.Int("id", id))
			}
			return domain.BudgetDetail{}, err
		}

		d := domain.BudgetDetail{Budget: *budget, Transactions: []domain.Transaction{}}
		cat, ok := cats[budget.CategoryID]
		if !ok {
			return d, nil
		}
		d.Category = &cat

		txs, err := s.txAPI.ListTransactions(ctx, domain.TransactionFilter{
			From:     budget.PeriodStart,
			To:       budget.PeriodEnd,
			Category: cat.Name,
		})
		if err != nil {
			return domain.BudgetDetail{}, err
		}
		sort.SliceStable(txs, func(i, j int) bool { return txs[i].Day() > txs[j].Day() })
		d.Transactions = txs
		return d, nil
	})
}

// Create validates the form and creates the budget. A 409 (overlapping
// period) is returned as a conflict; the form stays open.
func (s *BudgetService) Create(ctx context.Context, form domain.BudgetForm) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.Create")
	defer span.End()

	in, errs := validation.ParseBudget(form)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	b, err := s.api.CreateBudget(ctx, in)
	if err != nil {
		s.logger.Warn("create budget failed", zap.Int("category_id", in.CategoryID), zap.Error(err))
		return nil, err
	}
	s.list.Update(func(bs []domain.Budget) []domain.Budget {
		return append(append([]domain.Budget(nil), bs...), *b)
	})
	return b, nil
}

// ============================================================
// Editing
// ============================================================

// OpenEditor loads budget id and opens an edit form on its current values.
func (s *BudgetService) OpenEditor(ctx context.Context, id int) (*BudgetEditor, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.OpenEditor")
	defer span.End()

	b, err := s.api.GetBudget(ctx, id)
	if err != nil {
		return nil, err
	}
	ed := &BudgetEditor{ID: id, Snapshot: domain.BudgetFormFrom(*b)}
	s.editors.put(ed)
	return ed, nil
}

// Editor returns the open editor of budget id.
func (s *BudgetService) Editor(id int) (*BudgetEditor, bool) {
	return s.editors.get(id)
}

// CloseEditor discards the editor of budget id.
func (s *BudgetService) CloseEditor(id int) {
	s.editors.close(id)
}

// SubmitEdit sends form for budget id, opening an editor first if none is
// open. A form equal to its snapshot closes the editor without a request.
// A conflict keeps the editor open; a missing budget closes it.
func (s *BudgetService) SubmitEdit(ctx context.Context, id int, form domain.BudgetForm) (*domain.Budget, EditResult, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.SubmitEdit")
	defer span.End()
	span.SetAttributes(attribute.Int("budget.id", id))

	ed, ok := s.editors.get(id)
	if !ok {
		var err error
		if ed, err = s.OpenEditor(ctx, id); err != nil {
			return nil, EditSaved, err
		}
	}

	if validation.BudgetUnchanged(ed.Snapshot, form) {
		s.editors.close(id)
		return nil, EditUnchanged, nil
	}

	in, errs := validation.ParseBudget(form)
	if err := errs.Err(); err != nil {
		return nil, EditSaved, err
	}

	b, err := s.api.UpdateBudget(ctx, id, in)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindNotFound:
			s.logger.Info("budget vanished during edit", zap.Int("id", id))
			s.editors.close(id)
		case domain.KindConflict:
			s.logger.Info("budget edit overlaps another period", zap.Int("id", id))
		default:
			s.logger.Warn("update budget failed", zap.Int("id", id), zap.Error(err))
		}
		return nil, EditSaved, err
	}

	s.editors.close(id)
	s.list.Update(func(bs []domain.Budget) []domain.Budget {
		out := make([]domain.Budget, len(bs))
		for i, cur := range bs {
			if cur.ID == id {
				cur = *b
			}
			out[i] = cur
		}
		return out
	})
	return b, EditSaved, nil
}

// Close cancels any fetch in flight and stops following the session.
func (s *BudgetService) Close() {
	s.unsubscribe()
	s.list.Dispose()
	s.detail.Dispose()
}
