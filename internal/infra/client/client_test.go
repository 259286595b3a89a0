package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/resilience"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ============================================================
// Mocks
// ============================================================

type mockCreds struct {
	mu      sync.Mutex
	token   string
	revoked []string
}

func (m *mockCreds) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != ""
}

func (m *mockCreds) Revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked = append(m.revoked, token)
	if m.token == token {
		m.token = ""
	}
}

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	reqID  string
	body   string
}

type fakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recorded
}

func newFakeServer(t *testing.T, h http.HandlerFunc) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fs.mu.Lock()
		fs.requests = append(fs.requests, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			reqID:  r.Header.Get("X-Request-ID"),
			body:   string(body),
		})
		fs.mu.Unlock()
		h(w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) count() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.requests)
}

func (fs *fakeServer) last() recorded {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.requests[len(fs.requests)-1]
}

func newTestClient(baseURL string, creds *mockCreds) *Client {
	logger := zap.NewNop()
	return New(
		http.DefaultClient,
		baseURL+"/api",
		creds,
		resilience.NewCircuitBreaker("test", logger),
		resilience.NewBulkhead(4),
		observability.NewMetrics(),
		logger,
	)
}

func detail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}

// ============================================================
// Tests
// ============================================================

func TestClient_BearerOnProtectedCallsOnly(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			json.NewEncoder(w).Encode(domain.LoginResponse{AccessToken: "new", UserID: 1, Username: "alice"})
		default:
			w.Write([]byte("[]"))
		}
	})
	creds := &mockCreds{token: "tok"}
	c := newTestClient(srv.URL, creds)

	if _, err := c.ListBudgets(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := srv.last().auth; got != "Bearer tok" {
		t.Fatalf("expected bearer on /budgets, got %q", got)
	}
	if srv.last().reqID == "" {
		t.Fatal("expected X-Request-ID header")
	}

	if _, err := c.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := srv.last().auth; got != "" {
		t.Fatalf("auth endpoints must not carry a token, got %q", got)
	}
}

func TestClient_RefusesProtectedCallWithoutToken(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})
	c := newTestClient(srv.URL, &mockCreds{})

	_, err := c.ListTransactions(context.Background(), domain.TransactionFilter{})
	if domain.KindOf(err) != domain.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if srv.count() != 0 {
		t.Fatalf("expected no network call, got %d", srv.count())
	}

	// categories stay reachable anonymously
	if _, err := c.ListCategories(context.Background()); err != nil {
		t.Fatalf("categories should not require a session: %v", err)
	}
	if srv.count() != 1 || srv.last().auth != "" {
		t.Fatalf("expected one anonymous categories call, got %+v", srv.requests)
	}
}

func TestClient_401OnProtectedCallRevokesSession(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		detail(w, http.StatusUnauthorized, "Could not validate credentials")
	})
	creds := &mockCreds{token: "stale"}
	c := newTestClient(srv.URL, creds)

	_, err := c.ListBudgets(context.Background())
	if domain.KindOf(err) != domain.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(creds.revoked) != 1 || creds.revoked[0] != "stale" {
		t.Fatalf("expected the sent token to be revoked, got %v", creds.revoked)
	}

	// the next protected call is refused locally
	before := srv.count()
	if _, err := c.ListBudgets(context.Background()); domain.KindOf(err) != domain.KindUnauthorized {
		t.Fatalf("expected local refusal, got %v", err)
	}
	if srv.count() != before {
		t.Fatal("expected no network call once anonymous")
	}
}

func TestClient_401OnLoginLeavesSessionAlone(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		detail(w, http.StatusUnauthorized, "Incorrect username or password")
	})
	creds := &mockCreds{token: "current"}
	c := newTestClient(srv.URL, creds)

	_, err := c.Login(context.Background(), domain.LoginRequest{Username: "a", Password: "b"})
	if domain.KindOf(err) != domain.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(creds.revoked) != 0 {
		t.Fatalf("login failure must not revoke the session, got %v", creds.revoked)
	}
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   domain.ErrorKind
		global string
	}{
		{http.StatusBadRequest, `{"detail":"Password too weak"}`, domain.KindValidation, "Password too weak"},
		{http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","montant"],"msg":"Input should be a valid number"}]}`, domain.KindValidation, "Input should be a valid number"},
		{http.StatusForbidden, `{"detail":"nope"}`, domain.KindForbidden, domain.MsgForbidden},
		{http.StatusNotFound, `{"detail":"Budget not found"}`, domain.KindNotFound, ""},
		{http.StatusConflict, `{"detail":"Budget overlaps"}`, domain.KindConflict, "Budget overlaps"},
		{http.StatusInternalServerError, `oops`, domain.KindServer, domain.MsgServerError},
	}

	for _, tt := range tests {
		srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(tt.body))
		})
		c := newTestClient(srv.URL, &mockCreds{token: "tok"})

		_, err := c.GetBudget(context.Background(), 7)
		if got := domain.KindOf(err); got != tt.kind {
			t.Errorf("status %d: expected %s, got %s (%v)", tt.status, tt.kind, got, err)
			continue
		}
		if tt.global != "" {
			if got := domain.FieldErrorsOf(err)[domain.GlobalField]; got != tt.global {
				t.Errorf("status %d: expected _global %q, got %q", tt.status, tt.global, got)
			}
		}
	}
}

func TestClient_TransportFailureIsServerKind(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(url, &mockCreds{token: "tok"})
	_, err := c.ListBudgets(context.Background())
	if domain.KindOf(err) != domain.KindServer {
		t.Fatalf("expected server kind, got %v", err)
	}
}

func TestClient_FilterNormalisedAndAmountsAsNumbers(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":3,"montant":12.5,"libelle":"Bread","type":"DEPENSE","categorie":"alimentation","date":"2024-03-10T00:00:00"}`))
			return
		}
		w.Write([]byte(`[]`))
	})
	c := newTestClient(srv.URL, &mockCreds{token: "tok"})

	_, err := c.ListTransactions(context.Background(), domain.TransactionFilter{
		From:     "2024-03-01",
		Category: "  Alimentation ",
		Type:     domain.Expense,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := srv.last().query; got != "categorie=alimentation&date_debut=2024-03-01&type_filtre=DEPENSE" {
		t.Fatalf("unexpected query %q", got)
	}

	tx, err := c.CreateTransaction(context.Background(), domain.TransactionInput{
		Amount:   decimal.RequireFromString("12.50"),
		Label:    "Bread",
		Type:     domain.Expense,
		Category: "alimentation",
		Date:     "2024-03-10T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected amount %s", tx.Amount)
	}

	var sent map[string]any
	if err := json.Unmarshal([]byte(srv.last().body), &sent); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if _, ok := sent["montant"].(float64); !ok {
		t.Fatalf("montant should be sent as a number, got %T", sent["montant"])
	}
}

func TestClient_DeleteReturnsTotal(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total": -42.10}`))
	})
	c := newTestClient(srv.URL, &mockCreds{token: "tok"})

	total, err := c.DeleteTransaction(context.Background(), 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.Total.Equal(decimal.RequireFromString("-42.1")) {
		t.Fatalf("unexpected total %s", total.Total)
	}
	if srv.last().method != http.MethodDelete || srv.last().path != "/api/transactions/9" {
		t.Fatalf("unexpected request %+v", srv.last())
	}
}

func TestClient_BreakerOpensOnRepeated5xx(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		detail(w, http.StatusServiceUnavailable, "down")
	})
	c := newTestClient(srv.URL, &mockCreds{token: "tok"})

	for i := 0; i < 5; i++ {
		_, _ = c.ListBudgets(context.Background())
	}
	before := srv.count()

	_, err := c.ListBudgets(context.Background())
	if domain.KindOf(err) != domain.KindServer {
		t.Fatalf("expected server kind, got %v", err)
	}
	if _, ok := err.(*domain.ErrCircuitOpen); !ok {
		t.Fatalf("expected ErrCircuitOpen, got %T", err)
	}
	if srv.count() != before {
		t.Fatal("open breaker must not reach the network")
	}
}

func TestClient_CancelledContext(t *testing.T) {
	release := make(chan struct{})
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`[]`))
	})
	defer close(release)

	c := newTestClient(srv.URL, &mockCreds{token: "tok"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListBudgets(ctx)
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
	if c.BreakerState() != "closed" {
		t.Fatalf("cancellation must not count against the breaker, got %s", c.BreakerState())
	}
}
