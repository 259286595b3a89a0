// Package fakeapi is an in-memory implementation of the budgeting REST API.
// It backs the tests of the client, services and view server, and the
// `mybudget fake-api` command used for local demos.
//
// It follows the real API closely enough for the client to exercise every
// status it handles: JWT bearer auth, 401/403/404/409 answers, overlap
// detection and server-computed budget consumption.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultCategories are seeded into every new server.
var DefaultCategories = []domain.Category{
	{ID: 1, Name: "alimentation", Icon: "cart"},
	{ID: 2, Name: "logement", Icon: "home"},
	{ID: 3, Name: "transport", Icon: "car"},
	{ID: 4, Name: "loisirs", Icon: "music"},
	{ID: 5, Name: "salaire", Icon: "wallet"},
}

type account struct {
	id       int
	username string
	hash     []byte
}

type storedTx struct {
	owner int
	tx    domain.Transaction
}

type storedBudget struct {
	owner int
	in    domain.BudgetInput
	id    int
}

// Server holds the fake API state. The zero value is not usable; call New.
type Server struct {
	logger   *zap.Logger
	tokenTTL time.Duration

	mu         sync.Mutex
	secret     []byte
	accounts   map[string]*account
	categories []domain.Category
	txs        map[int]*storedTx
	budgets    map[int]*storedBudget
	nextUser   int
	nextTx     int
	nextBudget int
	outage     bool

	requests atomic.Int64
}

// New returns an empty server with the default categories.
func New(logger *zap.Logger) *Server {
	return &Server{
		logger:     logger,
		tokenTTL:   time.Hour,
		secret:     newSecret(),
		accounts:   make(map[string]*account),
		categories: append([]domain.Category(nil), DefaultCategories...),
		txs:        make(map[int]*storedTx),
		budgets:    make(map[int]*storedBudget),
		nextUser:   1,
		nextTx:     1,
		nextBudget: 1,
	}
}

// Handler returns the API mounted under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.count)
	r.Use(s.outageGate)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)
		r.Get("/categories/", s.handleCategories)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)

			r.Get("/transactions/", s.handleListTransactions)
			r.Get("/transactions/total", s.handleTotal)
			r.Post("/transactions/", s.handleCreateTransaction)
			r.Put("/transactions/{id}", s.handleUpdateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)

			r.Get("/budgets/", s.handleListBudgets)
			r.Get("/budgets/{id}", s.handleGetBudget)
			r.Post("/budgets/", s.handleCreateBudget)
			r.Put("/budgets/{id}", s.handleUpdateBudget)
		})
	})

	return r
}

// Requests returns how many requests reached the server.
func (s *Server) Requests() int64 { return s.requests.Load() }

// SetOutage makes every endpoint answer 503 while on is true.
func (s *Server) SetOutage(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outage = on
}

// RevokeTokens rotates the signing key: every issued token now gets a 401.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = newSecret()
}

// DeleteBudget removes a budget behind the client's back.
func (s *Server) DeleteBudget(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.budgets, id)
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) outageGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		down := s.outage
		s.mu.Unlock()
		if down {
			writeDetail(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) categoryByName(name string) (domain.Category, bool) {
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return domain.Category{}, false
}

func (s *Server) categoryByID(id int) (domain.Category, bool) {
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Category{}, false
}

// userTransactions returns owner's transactions, newest first.
func (s *Server) userTransactions(owner int) []domain.Transaction {
	var out []domain.Transaction
	for _, st := range s.txs {
		if st.owner == owner {
			out = append(out, st.tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day() != out[j].Day() {
			return out[i].Day() > out[j].Day()
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// budgetView computes consumption the way the API does.
func (s *Server) budgetView(b *storedBudget) domain.Budget {
	spent := decimal.Zero
	if cat, ok := s.categoryByID(b.in.CategoryID); ok {
		for _, tx := range s.userTransactions(b.owner) {
			if tx.Type != domain.Expense || !strings.EqualFold(tx.Category, cat.Name) {
				continue
			}
			if day := tx.Day(); day >= b.in.PeriodStart && day <= b.in.PeriodEnd {
				spent = spent.Add(tx.Amount)
			}
		}
	}

	pct := 0.0
	if b.in.Cap.IsPositive() {
		pct = spent.Div(b.in.Cap).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	return domain.Budget{
		ID:              b.id,
		CategoryID:      b.in.CategoryID,
		Cap:             b.in.Cap,
		Spent:           spent,
		Remaining:       b.in.Cap.Sub(spent),
		ConsumedPercent: pct,
		IsExceeded:      spent.GreaterThan(b.in.Cap),
		PeriodStart:     b.in.PeriodStart,
		PeriodEnd:       b.in.PeriodEnd,
	}
}

func (s *Server) overlaps(owner, excludeID int, in domain.BudgetInput) bool {
	for _, b := range s.budgets {
		if b.owner != owner || b.id == excludeID || b.in.CategoryID != in.CategoryID {
			continue
		}
		if in.PeriodStart <= b.in.PeriodEnd && b.in.PeriodStart <= in.PeriodEnd {
			return true
		}
	}
	return false
}
