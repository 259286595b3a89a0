package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/aggregate"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/port"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/session"
)

const (
	dashboardRecent   = 5
	dashboardUpcoming = 3
)

// DashboardService builds the home page: active budgets, the latest and the
// upcoming transactions, and the health indicators.
type DashboardService struct {
	budgets     port.BudgetAPI
	txs         port.TransactionAPI
	view        *Latest[domain.Dashboard]
	unsubscribe func()
	logger      *zap.Logger

	// Now is the clock used to decide what "today" is. Tests replace it.
	Now func() time.Time
}

func NewDashboardService(
	budgets port.BudgetAPI,
	txs port.TransactionAPI,
	sessions *session.Manager,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DashboardService {
	s := &DashboardService{
		budgets: budgets,
		txs:     txs,
		view:    NewLatest[domain.Dashboard]("dashboard", metrics),
		logger:  logger,
		Now:     time.Now,
	}
	s.unsubscribe = resetOnSignOut(sessions, s.view)
	return s
}

// Load fetches budgets and transactions concurrently and derives the
// dashboard from them.
func (s *DashboardService) Load(ctx context.Context) (domain.Dashboard, error) {
	ctx, span := tracer.Start(ctx, "DashboardService.Load")
	defer span.End()

	today := s.Now().Format("2006-01-02")

	return s.view.Run(ctx, func(ctx context.Context) (domain.Dashboard, error) {
		var (
			budgets []domain.Budget
			txs     []domain.Transaction
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			budgets, err = s.budgets.ListBudgets(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			txs, err = s.txs.ListTransactions(gctx, domain.TransactionFilter{})
			return err
		})
		if err := g.Wait(); err != nil {
			s.logger.Warn("dashboard fetch failed", zap.Error(err))
			return domain.Dashboard{}, err
		}

		return BuildDashboard(budgets, txs, today), nil
	})
}

// BuildDashboard derives the dashboard for day today from the raw lists.
// txs must be ordered newest first, as the API returns them.
func BuildDashboard(budgets []domain.Budget, txs []domain.Transaction, today string) domain.Dashboard {
	active := aggregate.ActiveBudgets(budgets, today)
	past, future := aggregate.SplitTimeline(txs, today, dashboardRecent, dashboardUpcoming)
	global := aggregate.GlobalHealth(active)

	return domain.Dashboard{
		ActiveBudgets: active,
		Recent:        past,
		Upcoming:      future,
		Balance:       aggregate.NetBalance(past),
		GlobalHealth:  global,
		HealthScore:   aggregate.HealthScore(global),
		Today:         today,
	}
}

// Close cancels any fetch in flight and stops following the session.
func (s *DashboardService) Close() {
	s.unsubscribe()
	s.view.Dispose()
}
