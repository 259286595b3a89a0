package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/service"
)

// ============================================================
// Budgets
// GET  /budgets
// POST /budgets
// GET  /budgets/{id}
// GET  /budgets/{id}/edit
// PUT  /budgets/{id}
// ============================================================

func listBudgetsHandler(budgetSvc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /budgets")
		defer span.End()

		budgets, err := budgetSvc.List(ctx)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, budgets)
	}
}

func createBudgetHandler(budgetSvc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /budgets")
		defer span.End()

		var form domain.BudgetForm
		if !decode(w, r, &form) {
			return
		}

		b, err := budgetSvc.Create(ctx, form)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, b)
	}
}

// budgetGone sends the browser back to the list when the budget was deleted
// behind its back.
func budgetGone(w http.ResponseWriter, r *http.Request, err error) bool {
	if domain.KindOf(err) != domain.KindNotFound {
		return false
	}
	redirect(w, r, "/budgets", service.MsgBudgetGone)
	return true
}

func budgetDetailHandler(budgetSvc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /budgets/{id}")
		defer span.End()

		id, ok := pathID(w, r)
		if !ok {
			return
		}
		span.SetAttributes(attribute.Int("budget.id", id))

		d, err := budgetSvc.Detail(ctx, id)
		if err != nil {
			if !budgetGone(w, r, err) {
				handleServiceError(w, r, err, logger)
			}
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func openBudgetEditorHandler(budgetSvc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /budgets/{id}/edit")
		defer span.End()

		id, ok := pathID(w, r)
		if !ok {
			return
		}

		ed, err := budgetSvc.OpenEditor(ctx, id)
		if err != nil {
			if !budgetGone(w, r, err) {
				handleServiceError(w, r, err, logger)
			}
			return
		}
		writeJSON(w, http.StatusOK, ed.Snapshot)
	}
}

type budgetEditResponse struct {
	Result string         `json:"result"` // saved, unchanged
	Budget *domain.Budget `json:"budget,omitempty"`
}

func updateBudgetHandler(budgetSvc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /budgets/{id}")
		defer span.End()

		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var form domain.BudgetForm
		if !decode(w, r, &form) {
			return
		}

		b, res, err := budgetSvc.SubmitEdit(ctx, id, form)
		if err != nil {
			if !budgetGone(w, r, err) {
				handleServiceError(w, r, err, logger)
			}
			return
		}

		if res == service.EditUnchanged {
			writeJSON(w, http.StatusOK, budgetEditResponse{Result: "unchanged"})
			return
		}
		writeJSON(w, http.StatusOK, budgetEditResponse{Result: "saved", Budget: b})
	}
}
