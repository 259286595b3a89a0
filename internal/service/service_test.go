package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/client"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/fakeapi"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/resilience"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/session"
)

// ============================================================
// Test stack: services wired to the in-memory API
// ============================================================

type seen struct {
	path string
	auth string
}

type stack struct {
	fake     *fakeapi.Server
	sessions *session.Manager
	metrics  *observability.Metrics

	auth         *AuthService
	categories   *CategoryService
	transactions *TransactionService
	budgets      *BudgetService
	dashboard    *DashboardService

	mu   sync.Mutex
	seen []seen
}

func newStack(t *testing.T) *stack {
	t.Helper()
	logger := zap.NewNop()
	s := &stack{fake: fakeapi.New(logger), metrics: observability.NewMetrics()}

	h := s.fake.Handler()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.seen = append(s.seen, seen{path: r.URL.Path, auth: r.Header.Get("Authorization")})
		s.mu.Unlock()
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	s.sessions = session.NewManager(session.NewMemoryStore(), session.NewMemoryStore(), s.metrics, logger)
	require.NoError(t, s.sessions.Init())

	api := client.New(
		srv.Client(),
		srv.URL+"/api",
		s.sessions,
		resilience.NewCircuitBreaker(client.ServiceName, logger),
		resilience.NewBulkhead(4),
		s.metrics,
		logger,
	)

	s.auth = NewAuthService(api, s.sessions, s.metrics, logger)
	s.categories = NewCategoryService(api, time.Minute, s.metrics, logger)
	s.transactions = NewTransactionService(api, s.categories, s.sessions, s.metrics, logger)
	s.budgets = NewBudgetService(api, api, s.categories, s.sessions, s.metrics, logger)
	s.dashboard = NewDashboardService(api, api, s.sessions, s.metrics, logger)
	t.Cleanup(func() {
		s.dashboard.Close()
		s.budgets.Close()
		s.transactions.Close()
		s.categories.Close()
	})
	return s
}

func (s *stack) requests() []seen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]seen(nil), s.seen...)
}

func (s *stack) signIn(t *testing.T) {
	t.Helper()
	_, err := s.fake.SeedUser("alice", "correct-horse")
	require.NoError(t, err)
	_, err = s.auth.Login(context.Background(), domain.CredentialForm{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)
}

func (s *stack) addTx(t *testing.T, amount, label string, typ domain.TransactionType, category, date string) *domain.Transaction {
	t.Helper()
	tx, err := s.transactions.Create(context.Background(), domain.TransactionForm{
		Amount: amount, Label: label, Type: string(typ), Category: category, Date: date,
	})
	require.NoError(t, err)
	return tx
}

// ============================================================
// End to end
// ============================================================

func TestEndToEnd_BearerThenRevocation(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.fake.SeedUser("alice", "correct-horse")
	require.NoError(t, err)

	user, err := s.auth.Login(ctx, domain.CredentialForm{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	token, ok := s.sessions.Token()
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, err = s.budgets.List(ctx)
	require.NoError(t, err)

	reqs := s.requests()
	last := reqs[len(reqs)-1]
	assert.Equal(t, "/api/budgets/", last.path)
	assert.Equal(t, "Bearer "+token, last.auth)
	assert.Empty(t, reqs[0].auth, "login never carries a token")

	s.fake.RevokeTokens()
	_, err = s.budgets.List(ctx)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	_, ok = s.sessions.Token()
	assert.False(t, ok, "a 401 destroys the session")
	assert.Equal(t, session.StateAnonymous, s.sessions.State())

	before := len(s.requests())
	_, err = s.budgets.List(ctx)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
	_, err = s.dashboard.Load(ctx)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
	assert.Len(t, s.requests(), before, "protected calls are refused locally once anonymous")

	_, err = s.auth.Login(ctx, domain.CredentialForm{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)
	_, err = s.budgets.List(ctx)
	assert.NoError(t, err)
}

// ============================================================
// Auth
// ============================================================

func TestAuth_InvalidFormNeverCallsAPI(t *testing.T) {
	s := newStack(t)

	_, err := s.auth.Login(context.Background(), domain.CredentialForm{Username: "alice", Password: ""})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	err = s.auth.Register(context.Background(), domain.CredentialForm{
		Username: "alice", Password: "correct-horse", ConfirmPassword: "different",
	})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Zero(t, s.fake.Requests())
}

func TestAuth_BadCredentials(t *testing.T) {
	s := newStack(t)
	_, err := s.fake.SeedUser("alice", "correct-horse")
	require.NoError(t, err)

	_, err = s.auth.Login(context.Background(), domain.CredentialForm{Username: "alice", Password: "wrong-horse"})
	require.Error(t, err)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
	assert.Equal(t, MsgInvalidCredentials, domain.FieldErrorsOf(err)[domain.GlobalField])
	assert.False(t, s.sessions.IsAuthenticated())
}

func TestAuth_LoginRememberChoosesTier(t *testing.T) {
	s := newStack(t)
	_, err := s.fake.SeedUser("alice", "correct-horse")
	require.NoError(t, err)

	_, err = s.auth.Login(context.Background(), domain.CredentialForm{
		Username: "alice", Password: "correct-horse", RememberMe: true,
	})
	require.NoError(t, err)
	assert.True(t, s.sessions.Durable())

	require.NoError(t, s.auth.Logout())
	assert.False(t, s.sessions.IsAuthenticated())
}

func TestAuth_RegisterTakenUsername(t *testing.T) {
	s := newStack(t)
	form := domain.CredentialForm{Username: "alice", Password: "correct-horse", ConfirmPassword: "correct-horse"}

	require.NoError(t, s.auth.Register(context.Background(), form))
	assert.False(t, s.sessions.IsAuthenticated(), "registering does not sign in")

	err := s.auth.Register(context.Background(), form)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Equal(t, domain.FieldErrors{domain.FieldUsername: MsgUsernameTaken}, domain.FieldErrorsOf(err))
}

func TestAuth_ServerFailureSuggestsRetry(t *testing.T) {
	s := newStack(t)
	s.fake.SetOutage(true)

	_, err := s.auth.Login(context.Background(), domain.CredentialForm{Username: "alice", Password: "correct-horse"})
	require.Error(t, err)
	assert.Equal(t, domain.KindServer, domain.KindOf(err))
	assert.Equal(t, domain.MsgServerError, domain.FieldErrorsOf(err)[domain.GlobalField])
}

// ============================================================
// Categories
// ============================================================

func TestCategories_CachedAcrossCalls(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	first, err := s.categories.List(ctx)
	require.NoError(t, err)
	second, err := s.categories.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), s.fake.Requests())

	s.categories.Refresh()
	_, err = s.categories.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.fake.Requests())
}

// ============================================================
// Transactions
// ============================================================

func TestTransactions_LoadDeleteReplacesTotal(t *testing.T) {
	s := newStack(t)
	s.signIn(t)
	ctx := context.Background()

	s.addTx(t, "1000", "Salary", domain.Income, "salaire", "2026-03-01")
	groceries := s.addTx(t, "42,50", "Groceries", domain.Expense, "alimentation", "2026-03-02")
	s.addTx(t, "12", "Bus", domain.Expense, "transport", "2026-03-03")

	page, err := s.transactions.Load(ctx, domain.TransactionFilter{Category: "  Alimentation "})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "alimentation", page.Filter.Category)
	assert.True(t, page.Total.Equal(decimal.RequireFromString("-42.5")))

	page, err = s.transactions.Load(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 3)

	total, err := s.transactions.Delete(ctx, groceries.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(988)))

	page, ok := s.transactions.Page()
	require.True(t, ok)
	assert.Len(t, page.Transactions, 2)
	assert.True(t, page.Total.Equal(total))
}

func TestTransactions_CreateValidatesCategory(t *testing.T) {
	s := newStack(t)
	s.signIn(t)
	before := s.fake.Requests()

	_, err := s.transactions.Create(context.Background(), domain.TransactionForm{
		Amount: "10", Label: "Cinema", Type: "DEPENSE", Category: "cinema", Date: "2026-03-01",
	})
	require.Error(t, err)
	fields := domain.FieldErrorsOf(err)
	assert.Contains(t, fields, domain.FieldCategory)

	// only the category list was fetched
	assert.Equal(t, before+1, s.fake.Requests())
}

func TestTransactions_UpdateAndForbidden(t *testing.T) {
	s := newStack(t)
	s.signIn(t)
	ctx := context.Background()

	tx := s.addTx(t, "20", "Lunch", domain.Expense, "alimentation", "2026-03-04")
	_, err := s.transactions.Load(ctx, domain.TransactionFilter{})
	require.NoError(t, err)

	form := domain.TransactionFormFrom(*tx)
	form.Amount = "25"
	updated, err := s.transactions.Update(ctx, tx.ID, form)
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(25)))

	page, _ := s.transactions.Page()
	assert.True(t, page.Transactions[0].Amount.Equal(decimal.NewFromInt(25)))

	// bob cannot touch alice's transaction
	_, err = s.fake.SeedUser("bob", "battery-staple")
	require.NoError(t, err)
	_, err = s.auth.Login(ctx, domain.CredentialForm{Username: "bob", Password: "battery-staple"})
	require.NoError(t, err)

	_, err = s.transactions.Delete(ctx, tx.ID)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	assert.True(t, s.sessions.IsAuthenticated(), "a 403 leaves the session alone")
}

type stubTxAPI struct {
	createErr error
}

func (stubTxAPI) ListTransactions(context.Context, domain.TransactionFilter) ([]domain.Transaction, error) {
	return nil, nil
}

func (stubTxAPI) TransactionsTotal(context.Context, domain.TransactionFilter) (*domain.TotalResponse, error) {
	return &domain.TotalResponse{}, nil
}

func (s stubTxAPI) CreateTransaction(context.Context, domain.TransactionInput) (*domain.Transaction, error) {
	return nil, s.createErr
}

func (stubTxAPI) UpdateTransaction(context.Context, int, domain.TransactionInput) (*domain.Transaction, error) {
	return nil, nil
}

func (stubTxAPI) DeleteTransaction(context.Context, int) (*domain.TotalResponse, error) {
	return &domain.TotalResponse{}, nil
}

type stubCategoryAPI struct{}

func (stubCategoryAPI) ListCategories(context.Context) ([]domain.Category, error) {
	return fakeapi.DefaultCategories, nil
}

func TestTransactions_AmountDetailGoesToAmountField(t *testing.T) {
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	cats := NewCategoryService(stubCategoryAPI{}, time.Minute, metrics, logger)
	defer cats.Close()

	form := domain.TransactionForm{Amount: "10", Label: "x", Type: "DEPENSE", Category: "alimentation", Date: "2026-03-01"}

	svc := NewTransactionService(stubTxAPI{
		createErr: domain.ErrorFromStatus(http.StatusBadRequest, "transaction", "", "Le montant est invalide"),
	}, cats, nil, metrics, logger)
	defer svc.Close()

	_, err := svc.Create(context.Background(), form)
	assert.Equal(t, domain.FieldErrors{domain.FieldAmount: "Le montant est invalide"}, domain.FieldErrorsOf(err))

	svc = NewTransactionService(stubTxAPI{
		createErr: domain.ErrorFromStatus(http.StatusBadRequest, "transaction", "", "libelle too long"),
	}, cats, nil, metrics, logger)
	defer svc.Close()

	_, err = svc.Create(context.Background(), form)
	assert.Equal(t, domain.FieldErrors{domain.GlobalField: "libelle too long"}, domain.FieldErrorsOf(err))
}

// ============================================================
// Budgets
// ============================================================

func budgetForm(categoryID, limit, start, end string) domain.BudgetForm {
	return domain.BudgetForm{CategoryID: categoryID, Cap: limit, PeriodStart: start, PeriodEnd: end}
}

func TestBudgets_CreateConflictAndDetail(t *testing.T) {
	s := newStack(t)
	s.signIn(t)
	ctx := context.Background()

	b, err := s.budgets.Create(ctx, budgetForm("1", "300", "2026-03-01", "2026-03-31"))
	require.NoError(t, err)

	_, err = s.budgets.Create(ctx, budgetForm("1", "200", "2026-03-15", "2026-04-15"))
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Contains(t, domain.FieldErrorsOf(err)[domain.GlobalField], "overlapping")

	s.addTx(t, "30", "Market", domain.Expense, "alimentation", "2026-03-05")
	s.addTx(t, "20", "Bakery", domain.Expense, "alimentation", "2026-03-10")
	s.addTx(t, "99", "April groceries", domain.Expense, "alimentation", "2026-04-02")
	s.addTx(t, "15", "Taxi", domain.Expense, "transport", "2026-03-06")

	d, err := s.budgets.Detail(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, d.Category)
	assert.Equal(t, "alimentation", d.Category.Name)
	require.Len(t, d.Transactions, 2)
	assert.Equal(t, "Bakery", d.Transactions[0].Label, "newest first")
	assert.True(t, d.Budget.Spent.Equal(decimal.NewFromInt(50)))
	assert.InDelta(t, 16.67, d.Budget.ConsumedPercent, 0.001)
}

func TestBudgets_EditUnchangedSendsNothing(t *testing.T) {
	s := newStack(t)
	s.signIn(t)
	ctx := context.Background()

	b, err := s.budgets.Create(ctx, budgetForm("2", "300", "2026-02-01", "2026-02-28"))
	require.NoError(t, err)

	ed, err := s.budgets.OpenEditor(ctx, b.ID)
	require.NoError(t, err)
	before := s.fake.Requests()

	_, res, err := s.budgets.SubmitEdit(ctx, b.ID, ed.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, EditUnchanged, res)
	assert.Equal(t, before, s.fake.Requests())
	_, open := s.budgets.Editor(b.ID)
	assert.False(t, open)

	ed, err = s.budgets.OpenEditor(ctx, b.ID)
	require.NoError(t, err)
	form := ed.Snapshot
	form.Cap = "320"
	updated, res, err := s.budgets.SubmitEdit(ctx, b.ID, form)
	require.NoError(t, err)
	assert.Equal(t, EditSaved, res)
	assert.True(t, updated.Cap.Equal(decimal.NewFromInt(320)))
}

func TestBudgets_EditConflictKeepsEditorNotFoundClosesIt(t *testing.T) {
	s := newStack(t)
	s.signIn(t)
	ctx := context.Background()

	_, err := s.budgets.Create(ctx, budgetForm("3", "100", "2026-01-01", "2026-01-31"))
	require.NoError(t, err)
	b, err := s.budgets.Create(ctx, budgetForm("3", "100", "2026-02-01", "2026-02-28"))
	require.NoError(t, err)

	ed, err := s.budgets.OpenEditor(ctx, b.ID)
	require.NoError(t, err)
	form := ed.Snapshot
	form.PeriodStart = "2026-01-15"

	_, _, err = s.budgets.SubmitEdit(ctx, b.ID, form)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	_, open := s.budgets.Editor(b.ID)
	assert.True(t, open, "a conflict is correctable")

	s.fake.DeleteBudget(b.ID)
	_, _, err = s.budgets.SubmitEdit(ctx, b.ID, budgetForm("3", "150", "2026-02-01", "2026-02-28"))
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	_, open = s.budgets.Editor(b.ID)
	assert.False(t, open, "a vanished budget closes the editor")

	_, err = s.budgets.Detail(ctx, b.ID)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

// ============================================================
// Dashboard
// ============================================================

func TestDashboard_Load(t *testing.T) {
	s := newStack(t)
	s.signIn(t)
	ctx := context.Background()
	s.dashboard.Now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.Local) }

	_, err := s.budgets.Create(ctx, budgetForm("1", "100", "2026-03-01", "2026-03-31"))
	require.NoError(t, err)
	_, err = s.budgets.Create(ctx, budgetForm("3", "100", "2026-01-01", "2026-01-31"))
	require.NoError(t, err)

	s.addTx(t, "1000", "Salary", domain.Income, "salaire", "2026-03-01")
	s.addTx(t, "80", "Groceries", domain.Expense, "alimentation", "2026-03-10")
	s.addTx(t, "50", "Rent", domain.Expense, "logement", "2026-04-01")

	d, err := s.dashboard.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-15", d.Today)
	require.Len(t, d.ActiveBudgets, 1)
	assert.InDelta(t, 80, d.GlobalHealth, 0.001)
	assert.Equal(t, 20, d.HealthScore)
	assert.Len(t, d.Recent, 2)
	require.Len(t, d.Upcoming, 1)
	assert.Equal(t, "Rent", d.Upcoming[0].Label)
	assert.True(t, d.Balance.Equal(decimal.NewFromInt(920)))
}

func TestDashboard_ResetOnLogout(t *testing.T) {
	s := newStack(t)
	s.signIn(t)
	ctx := context.Background()

	_, err := s.dashboard.Load(ctx)
	require.NoError(t, err)
	_, ok := s.dashboard.view.Get()
	require.True(t, ok)

	require.NoError(t, s.auth.Logout())
	_, ok = s.dashboard.view.Get()
	assert.False(t, ok, "nothing loaded for one user survives the session")
}

func TestBuildDashboard_Empty(t *testing.T) {
	d := BuildDashboard(nil, nil, "2026-03-15")
	assert.Empty(t, d.ActiveBudgets)
	assert.Zero(t, d.GlobalHealth)
	assert.Equal(t, 100, d.HealthScore)
	assert.True(t, d.Balance.IsZero())
	assert.False(t, strings.Contains(d.Today, "T"))
}
