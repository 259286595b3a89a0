package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/service"
)

// ============================================================
// Transactions
// GET    /transactions?from=&to=&category=&type=
// POST   /transactions
// PUT    /transactions/{id}
// DELETE /transactions/{id}
// ============================================================

func filterFromQuery(r *http.Request) (domain.TransactionFilter, bool) {
	q := r.URL.Query()
	f := domain.TransactionFilter{
		From:     q.Get("from"),
		To:       q.Get("to"),
		Category: q.Get("category"),
	}
	if v := q.Get("type"); v != "" {
		t, ok := domain.ParseTransactionType(v)
		if !ok {
			return f, false
		}
		f.Type = t
	}
	return f, true
}

func listTransactionsHandler(txSvc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /transactions")
		defer span.End()

		f, ok := filterFromQuery(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "type must be REVENU or DEPENSE")
			return
		}

		page, err := txSvc.Load(ctx, f)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func createTransactionHandler(txSvc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /transactions")
		defer span.End()

		var form domain.TransactionForm
		if !decode(w, r, &form) {
			return
		}

		tx, err := txSvc.Create(ctx, form)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

func updateTransactionHandler(txSvc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /transactions/{id}")
		defer span.End()

		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var form domain.TransactionForm
		if !decode(w, r, &form) {
			return
		}

		tx, err := txSvc.Update(ctx, id, form)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

type totalResponse struct {
	Total decimal.Decimal `json:"total"`
}

func deleteTransactionHandler(txSvc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /transactions/{id}")
		defer span.End()

		id, ok := pathID(w, r)
		if !ok {
			return
		}

		total, err := txSvc.Delete(ctx, id)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, totalResponse{Total: total})
	}
}
