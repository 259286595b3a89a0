package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const isoDate = "2006-01-02"

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil
}

// ============================================================
// Categories
// ============================================================

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cats := append([]domain.Category(nil), s.categories...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, cats)
}

// ============================================================
// Transactions
// ============================================================

func filterFrom(r *http.Request) domain.TransactionFilter {
	q := r.URL.Query()
	return domain.TransactionFilter{
		From:     q.Get("date_debut"),
		To:       q.Get("date_fin"),
		Category: q.Get("categorie"),
		Type:     domain.TransactionType(strings.ToUpper(q.Get("type_filtre"))),
	}
}

func matches(tx domain.Transaction, f domain.TransactionFilter) bool {
	day := tx.Day()
	switch {
	case f.From != "" && day < f.From:
		return false
	case f.To != "" && day > f.To:
		return false
	case f.Category != "" && !strings.EqualFold(tx.Category, f.Category):
		return false
	case f.Type != "" && tx.Type != f.Type:
		return false
	}
	return true
}

func (s *Server) filtered(owner int, f domain.TransactionFilter) []domain.Transaction {
	out := []domain.Transaction{}
	for _, tx := range s.userTransactions(owner) {
		if matches(tx, f) {
			out = append(out, tx)
		}
	}
	return out
}

func sum(txs []domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Signed())
	}
	return total
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	txs := s.filtered(userID(r), filterFrom(r))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleTotal(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	total := sum(s.filtered(userID(r), filterFrom(r)))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, domain.TotalResponse{Total: total})
}

// checkTransaction validates in and returns it normalised, or a detail message.
func (s *Server) checkTransaction(in domain.TransactionInput) (domain.TransactionInput, string) {
	if !in.Amount.IsPositive() {
		return in, "montant must be positive"
	}
	if strings.TrimSpace(in.Label) == "" {
		return in, "libelle is required"
	}
	t, ok := domain.ParseTransactionType(string(in.Type))
	if !ok {
		return in, "type must be REVENU or DEPENSE"
	}
	in.Type = t
	cat, ok := s.categoryByName(in.Category)
	if !ok {
		return in, "unknown category: " + in.Category
	}
	in.Category = cat.Name
	day, err := time.Parse(isoDate, domain.DayOf(in.Date))
	if err != nil {
		return in, "invalid date"
	}
	in.Date = day.Format("2006-01-02T15:04:05")
	return in, ""
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in domain.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	in, msg := s.checkTransaction(in)
	if msg != "" {
		writeDetail(w, http.StatusBadRequest, msg)
		return
	}

	tx := domain.Transaction{
		ID:       s.nextTx,
		Amount:   in.Amount,
		Label:    strings.TrimSpace(in.Label),
		Type:     in.Type,
		Category: in.Category,
		Date:     in.Date,
	}
	s.nextTx++
	s.txs[tx.ID] = &storedTx{owner: userID(r), tx: tx}
	writeJSON(w, http.StatusCreated, tx)
}

// ownedTx resolves the transaction in the path, writing 404/403 itself.
// Callers hold s.mu.
func (s *Server) ownedTx(w http.ResponseWriter, r *http.Request) (*storedTx, bool) {
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Transaction not found")
		return nil, false
	}
	st, ok := s.txs[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Transaction not found")
		return nil, false
	}
	if st.owner != userID(r) {
		writeDetail(w, http.StatusForbidden, "Not allowed to modify this transaction")
		return nil, false
	}
	return st, true
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var in domain.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.ownedTx(w, r)
	if !ok {
		return
	}
	in, msg := s.checkTransaction(in)
	if msg != "" {
		writeDetail(w, http.StatusBadRequest, msg)
		return
	}

	st.tx.Amount = in.Amount
	st.tx.Label = strings.TrimSpace(in.Label)
	st.tx.Type = in.Type
	st.tx.Category = in.Category
	st.tx.Date = in.Date
	writeJSON(w, http.StatusOK, st.tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.ownedTx(w, r)
	if !ok {
		return
	}
	delete(s.txs, st.tx.ID)
	writeJSON(w, http.StatusOK, domain.TotalResponse{Total: sum(s.userTransactions(st.owner))})
}

// ============================================================
// Budgets
// ============================================================

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := userID(r)
	out := []domain.Budget{}
	for _, b := range s.budgets {
		if b.owner == owner {
			out = append(out, s.budgetView(b))
		}
	}
	sortBudgets(out)
	writeJSON(w, http.StatusOK, out)
}

func sortBudgets(bs []domain.Budget) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].ID < bs[j].ID })
}

// ownedBudget resolves the budget in the path, writing 404/403 itself.
// Callers hold s.mu.
func (s *Server) ownedBudget(w http.ResponseWriter, r *http.Request) (*storedBudget, bool) {
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Budget not found")
		return nil, false
	}
	b, ok := s.budgets[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Budget not found")
		return nil, false
	}
	if b.owner != userID(r) {
		writeDetail(w, http.StatusForbidden, "Not allowed to access this budget")
		return nil, false
	}
	return b, true
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.ownedBudget(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.budgetView(b))
}

// checkBudget validates in and returns it with dates normalised, or a detail.
func (s *Server) checkBudget(in domain.BudgetInput) (domain.BudgetInput, string) {
	if !in.Cap.IsPositive() {
		return in, "montant_fixe must be positive"
	}
	if _, ok := s.categoryByID(in.CategoryID); !ok {
		return in, "unknown category id " + strconv.Itoa(in.CategoryID)
	}
	start, err := time.Parse(isoDate, domain.DayOf(in.PeriodStart))
	if err != nil {
		return in, "invalid debut_periode"
	}
	end, err := time.Parse(isoDate, domain.DayOf(in.PeriodEnd))
	if err != nil {
		return in, "invalid fin_periode"
	}
	if end.Before(start) {
		return in, "fin_periode must not be before debut_periode"
	}
	in.PeriodStart = start.Format(isoDate)
	in.PeriodEnd = end.Format(isoDate)
	return in, ""
}

const overlapDetail = "A budget already exists for this category over an overlapping period"

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var in domain.BudgetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	in, msg := s.checkBudget(in)
	if msg != "" {
		writeDetail(w, http.StatusBadRequest, msg)
		return
	}
	owner := userID(r)
	if s.overlaps(owner, 0, in) {
		writeDetail(w, http.StatusConflict, overlapDetail)
		return
	}

	b := &storedBudget{owner: owner, in: in, id: s.nextBudget}
	s.nextBudget++
	s.budgets[b.id] = b
	writeJSON(w, http.StatusCreated, s.budgetView(b))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var in domain.BudgetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.ownedBudget(w, r)
	if !ok {
		return
	}
	in, msg := s.checkBudget(in)
	if msg != "" {
		writeDetail(w, http.StatusBadRequest, msg)
		return
	}
	if s.overlaps(b.owner, b.id, in) {
		writeDetail(w, http.StatusConflict, overlapDetail)
		return
	}

	b.in = in
	writeJSON(w, http.StatusOK, s.budgetView(b))
}
