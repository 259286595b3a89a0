// Package session owns the credential of the signed-in user.
//
// A session lives in exactly one of two tiers: the durable tier (a file that
// survives restarts) when the user asked to be remembered, the ephemeral tier
// (process memory) otherwise. Nothing outside the Manager reads or writes
// the tiers.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/port"
	"go.uber.org/zap"
)

// State is the authentication state seen by views.
type State int

const (
	// StateLoading only exists while Init inspects the tiers.
	StateLoading State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Reason tells listeners why a transition happened.
type Reason string

const (
	ReasonInit         Reason = "init"
	ReasonLogin        Reason = "login"
	ReasonLogout       Reason = "logout"
	ReasonUnauthorized Reason = "unauthorized"
)

// Transition is delivered to listeners after every state change.
type Transition struct {
	From   State
	To     State
	Reason Reason
}

// Listener is notified of transitions. It must not call Login, Logout or
// OnUnauthorized.
type Listener func(Transition)

// Manager is the single owner of the session.
type Manager struct {
	durable   port.SessionStore
	ephemeral port.SessionStore
	logger    *zap.Logger
	metrics   *observability.Metrics

	// transitionMu serialises transitions including listener delivery, so
	// listeners observe transitions in order.
	transitionMu sync.Mutex

	mu          sync.RWMutex
	state       State
	session     *domain.Session
	durableTier bool

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// NewManager creates a manager in StateLoading. Call Init once at startup.
func NewManager(durable, ephemeral port.SessionStore, metrics *observability.Metrics, logger *zap.Logger) *Manager {
	return &Manager{
		durable:   durable,
		ephemeral: ephemeral,
		logger:    logger,
		metrics:   metrics,
		state:     StateLoading,
		listeners: make(map[int]Listener),
	}
}

// Init inspects the durable tier, then the ephemeral one, and settles in
// Authenticated or Anonymous. If both tiers hold a session the durable one
// wins and the ephemeral one is cleared. Read failures are returned but the
// manager still leaves StateLoading.
func (m *Manager) Init() error {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	var errs []error

	durable, err := m.durable.Load()
	if err != nil {
		m.logger.Warn("session: durable tier unreadable", zap.Error(err))
		errs = append(errs, err)
		durable = nil
	}
	ephemeral, err := m.ephemeral.Load()
	if err != nil {
		m.logger.Warn("session: ephemeral tier unreadable", zap.Error(err))
		errs = append(errs, err)
		ephemeral = nil
	}

	var sess *domain.Session
	isDurable := false
	switch {
	case durable != nil:
		sess, isDurable = durable, true
		if ephemeral != nil {
			m.logger.Warn("session: both tiers populated, keeping durable")
			if err := m.ephemeral.Clear(); err != nil {
				errs = append(errs, err)
			}
		}
	case ephemeral != nil:
		sess = ephemeral
	}

	to := StateAnonymous
	if sess != nil {
		to = StateAuthenticated
	}
	m.set(to, sess, isDurable, ReasonInit)

	return errors.Join(errs...)
}

// Login stores a new session in the tier chosen by remember. The other tier
// is cleared first so a session never exists in both. On a storage failure
// the manager ends anonymous and the error is returned.
func (m *Manager) Login(user domain.User, token string, remember bool) error {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	active, inactive := m.ephemeral, m.durable
	if remember {
		active, inactive = m.durable, m.ephemeral
	}

	sess := domain.Session{Token: token, User: user}
	if claims, err := ParseClaims(token); err != nil {
		m.logger.Debug("session: token claims unreadable", zap.Error(err))
	} else {
		sess.ExpiresAt = claims.Expiry()
	}

	if err := inactive.Clear(); err != nil {
		m.logger.Error("session: clear inactive tier failed", zap.Error(err))
		m.failLogin()
		return fmt.Errorf("clear session tier: %w", err)
	}
	if err := active.Save(sess); err != nil {
		m.logger.Error("session: save failed", zap.Bool("durable", remember), zap.Error(err))
		_ = active.Clear()
		m.failLogin()
		return fmt.Errorf("save session: %w", err)
	}

	m.logger.Info("session: logged in",
		zap.Int("user_id", user.ID),
		zap.String("username", user.Username),
		zap.Bool("durable", remember),
	)
	m.set(StateAuthenticated, &sess, remember, ReasonLogin)
	return nil
}

func (m *Manager) failLogin() {
	if m.State() == StateAuthenticated {
		m.set(StateAnonymous, nil, false, ReasonLogout)
	}
}

// Logout removes the session from whichever tier holds it. Without a
// session it does nothing.
func (m *Manager) Logout() error {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	if m.State() != StateAuthenticated {
		return nil
	}
	err := m.clearTiers()
	m.logger.Info("session: logged out")
	m.set(StateAnonymous, nil, false, ReasonLogout)
	return err
}

// OnUnauthorized is the single invalidation path, called when the API
// answers 401 on an authenticated request. The session is deleted, never
// refreshed. Repeated calls after the first are no-ops.
func (m *Manager) OnUnauthorized() {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()
	m.revoke()
}

// Revoke runs OnUnauthorized only if token is still the current one. A 401
// for a request sent before a re-login must not destroy the new session.
func (m *Manager) Revoke(token string) {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	if current, ok := m.Token(); !ok || current != token {
		m.logger.Debug("session: ignoring 401 for a superseded token")
		return
	}
	m.revoke()
}

func (m *Manager) revoke() {
	if m.State() != StateAuthenticated {
		return
	}
	if err := m.clearTiers(); err != nil {
		m.logger.Error("session: clear after 401 failed", zap.Error(err))
	}
	m.logger.Warn("session: token rejected by API, session destroyed")
	m.set(StateAnonymous, nil, false, ReasonUnauthorized)
}

func (m *Manager) clearTiers() error {
	return errors.Join(m.durable.Clear(), m.ephemeral.Clear())
}

// set publishes the new state and notifies listeners. Callers hold transitionMu.
func (m *Manager) set(to State, sess *domain.Session, durable bool, reason Reason) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.session = sess
	m.durableTier = durable
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordSessionTransition(to.String(), string(reason))
	}

	m.listenersMu.Lock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.listenersMu.Unlock()

	tr := Transition{From: from, To: to, Reason: reason}
	for _, l := range listeners {
		l(tr)
	}
}

// Token returns the current bearer token, or ("", false) when anonymous.
func (m *Manager) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated || m.session == nil {
		return "", false
	}
	return m.session.Token, true
}

// IsAuthenticated reports whether a session was found at Init or created by
// a successful Login since the last logout.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Session returns a copy of the current session.
func (m *Manager) Session() (domain.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return domain.Session{}, false
	}
	return *m.session, true
}

// Durable reports whether the current session lives in the durable tier.
func (m *Manager) Durable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.durableTier
}

// View is the session as exposed by GET /session.
func (m *Manager) View() domain.SessionView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v := domain.SessionView{State: m.state.String(), Durable: m.durableTier}
	if m.session != nil {
		u := m.session.User
		v.User = &u
		v.ExpiresAt = m.session.ExpiresAt
	}
	return v
}

// Subscribe registers l and returns a function removing it.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = l

	return func() {
		m.listenersMu.Lock()
		defer m.listenersMu.Unlock()
		delete(m.listeners, id)
	}
}
