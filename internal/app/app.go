// Package app wires the client core together: configuration, session
// manager, REST client and the view services.
package app

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/config"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/client"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/resilience"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/port"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/service"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/session"
)

// App is one running client: a single session and the views built on it.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	Sessions *session.Manager
	API      *client.Client

	Auth         *service.AuthService
	Categories   *service.CategoryService
	Transactions *service.TransactionService
	Budgets      *service.BudgetService
	Dashboard    *service.DashboardService
}

// Options override the defaults New derives from the configuration.
type Options struct {
	// HTTPClient replaces the client built from Config.HTTPTimeout.
	HTTPClient *http.Client
	// Durable replaces the session file store.
	Durable port.SessionStore
}

// New builds an App and restores the stored session. A session that cannot
// be read is logged and the App starts anonymous.
func New(cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	metrics := observability.NewMetrics()

	durable := opts.Durable
	if durable == nil {
		path := cfg.SessionFile
		if path == "" {
			var err error
			if path, err = session.DefaultPath(); err != nil {
				return nil, err
			}
		}
		durable = session.NewFileStore(path)
	}
	sessions := session.NewManager(durable, session.NewMemoryStore(), metrics, logger)
	if err := sessions.Init(); err != nil {
		logger.Warn("stored session ignored", zap.Error(err))
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: observability.NewLoggingTransport(http.DefaultTransport, logger),
		}
	}

	api := client.New(
		httpClient,
		cfg.APIURL,
		sessions,
		resilience.NewCircuitBreaker(client.ServiceName, logger),
		resilience.NewBulkhead(cfg.MaxConcurrency),
		metrics,
		logger,
	)

	categories := service.NewCategoryService(api, cfg.CacheTTL, metrics, logger)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Metrics:      metrics,
		Sessions:     sessions,
		API:          api,
		Auth:         service.NewAuthService(api, sessions, metrics, logger),
		Categories:   categories,
		Transactions: service.NewTransactionService(api, categories, sessions, metrics, logger),
		Budgets:      service.NewBudgetService(api, api, categories, sessions, metrics, logger),
		Dashboard:    service.NewDashboardService(api, api, sessions, metrics, logger),
	}, nil
}

// Health probes the API through the public categories endpoint.
func (a *App) Health(ctx context.Context) domain.HealthStatus {
	d, err := a.API.Ping(ctx)
	api := domain.ServiceHealth{
		Name:         client.ServiceName,
		Status:       "up",
		LatencyMs:    d.Milliseconds(),
		BreakerState: a.API.BreakerState(),
		LastChecked:  time.Now().UTC().Format(time.RFC3339),
	}
	status := "healthy"
	if err != nil {
		a.Logger.Warn("health check failed", zap.String("api", a.API.BaseURL()), zap.Error(err))
		api.Status = "down"
		status = "degraded"
	}
	return domain.HealthStatus{Status: status, Services: []domain.ServiceHealth{api}}
}

// Close stops every view and releases caches.
func (a *App) Close() {
	a.Dashboard.Close()
	a.Budgets.Close()
	a.Transactions.Close()
	a.Categories.Close()
	_ = a.Logger.Sync()
}
