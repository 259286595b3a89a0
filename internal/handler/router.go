package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/app"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/session"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the local view server: the pages of the budgeting app
// rendered as JSON, backed by a's single session.
func NewRouter(a *app.App) http.Handler {
	logger := a.Logger
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(a))
	r.Get("/readyz", readyzHandler(a.Sessions))
	r.Handle("/metrics", promhttp.HandlerFor(a.Metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/status", statusHandler(a))

	// =============================================
	// Public pages
	// =============================================
	r.Post("/login", loginHandler(a.Auth, a.Sessions, logger))
	r.Post("/register", registerHandler(a.Auth, logger))
	r.Post("/logout", logoutHandler(a.Auth, a.Sessions, logger))
	r.Get("/session", sessionHandler(a.Sessions))
	r.Get("/categories", listCategoriesHandler(a.Categories, logger))

	// =============================================
	// Pages behind the session
	// =============================================
	r.Group(func(r chi.Router) {
		r.Use(RequireSession(a.Sessions, logger))

		r.Get("/", dashboardHandler(a.Dashboard, logger))

		r.Get("/transactions", listTransactionsHandler(a.Transactions, logger))
		r.Post("/transactions", createTransactionHandler(a.Transactions, logger))
		r.Put("/transactions/{id}", updateTransactionHandler(a.Transactions, logger))
		r.Delete("/transactions/{id}", deleteTransactionHandler(a.Transactions, logger))

		r.Get("/budgets", listBudgetsHandler(a.Budgets, logger))
		r.Post("/budgets", createBudgetHandler(a.Budgets, logger))
		r.Get("/budgets/{id}", budgetDetailHandler(a.Budgets, logger))
		r.Get("/budgets/{id}/edit", openBudgetEditorHandler(a.Budgets, logger))
		r.Put("/budgets/{id}", updateBudgetHandler(a.Budgets, logger))
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.Health(r.Context()))
	}
}

// readyzHandler answers 503 until the session has been restored.
func readyzHandler(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions.State() == session.StateLoading {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func statusHandler(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.Metrics.Snapshot())
	}
}

func sessionHandler(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessions.View())
	}
}
