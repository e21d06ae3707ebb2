// Package auth owns the authenticated-user state machine and token storage.
//
// [Manager] moves between three states: Unauthenticated (no user, no
// tokens), Hydrating (attempting silent session restore at startup), and
// Authenticated. Tokens are mirrored into a [api.TokenStore] for
// cross-restart persistence; the user profile is never persisted and is
// always re-derived from the backend after any auth state change.
package auth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/brettbeeson/notsolong/internal/api"
	"github.com/brettbeeson/notsolong/internal/shared"
	"github.com/charmbracelet/log"
)

// State identifies where the session machine currently is.
type State int

const (
	StateUnauthenticated State = iota
	StateHydrating
	StateAuthenticated
)

// DefaultRefreshInterval is how often the background loop proactively
// exchanges the refresh token for a new access token.
const DefaultRefreshInterval = 10 * time.Minute

// Manager owns the session state machine over {user, tokens, loading}.
//
// All token and header writes funnel through here (or through the client's
// 401 interception); UI code never touches either directly.
type Manager struct {
	client          *api.Client
	store           api.TokenStore
	logger          *log.Logger
	refreshInterval time.Duration

	mu      sync.Mutex
	user    *api.User
	tokens  *api.Tokens
	loading bool
}

// NewManager creates a session manager over the given client and store.
func NewManager(client *api.Client, store api.TokenStore, logger *log.Logger, refreshInterval time.Duration) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}

	return &Manager{
		client:          client,
		store:           store,
		logger:          logger,
		refreshInterval: refreshInterval,
	}
}

// SetLogger replaces the manager's logger.
func (m *Manager) SetLogger(logger *log.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// State returns the current machine state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loading {
		return StateHydrating
	}
	if m.user != nil && m.tokens != nil {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

// Authenticated reports whether a user session is active.
func (m *Manager) Authenticated() bool {
	return m.State() == StateAuthenticated
}

// User returns a copy of the current profile, or nil when unauthenticated.
func (m *Manager) User() *api.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	copied := *m.user
	return &copied
}

// Tokens returns a copy of the current token pair, or nil.
func (m *Manager) Tokens() *api.Tokens {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return nil
	}
	copied := *m.tokens
	return &copied
}

// persistTokens applies a token pair to memory, durable storage, and the
// client's default header as one unit. nil clears all three.
func (m *Manager) persistTokens(tokens *api.Tokens) {
	m.mu.Lock()
	m.tokens = tokens
	m.mu.Unlock()

	if tokens != nil {
		if err := m.store.Set(*tokens); err != nil {
			m.logger.Warn("failed to persist tokens", "error", err)
		}
		m.client.SetAuthToken(tokens.Access)
	} else {
		if err := m.store.Clear(); err != nil {
			m.logger.Warn("failed to clear token store", "error", err)
		}
		m.client.SetAuthToken("")
	}
}

// applySession installs a login/registration/OAuth result atomically.
func (m *Manager) applySession(session *api.AuthSession) {
	m.persistTokens(&session.Tokens)
	m.mu.Lock()
	user := session.User
	m.user = &user
	m.mu.Unlock()
}

// Hydrate attempts a silent session restore from the token store.
//
// An empty store means starting unauthenticated. Stored tokens are applied
// and the profile fetched; the client's 401 interception covers the
// refresh-then-retry attempt, so any error here means the session is beyond
// recovery and the tokens are cleared. Hydration failure is not an
// application error.
func (m *Manager) Hydrate(ctx context.Context) {
	m.mu.Lock()
	m.loading = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()

	stored := m.store.Get()
	if stored == nil {
		return
	}

	m.persistTokens(stored)

	user, err := m.client.CurrentUser(ctx)
	if err != nil {
		m.logger.Warn("failed to hydrate session", "error", err)
		m.persistTokens(nil)
		return
	}

	// The interception may have rotated the access token during the fetch.
	if fresh := m.store.Get(); fresh != nil {
		m.mu.Lock()
		m.tokens = fresh
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
}

// Login exchanges credentials for a session. Backend errors surface to the
// caller unchanged; there is no retry.
func (m *Manager) Login(ctx context.Context, input api.LoginInput) error {
	session, err := m.client.Login(ctx, input)
	if err != nil {
		return err
	}

	m.applySession(session)
	m.RefreshProfile(ctx)
	return nil
}

// Register creates an account and authenticates with the result.
func (m *Manager) Register(ctx context.Context, input api.RegisterInput) error {
	session, err := m.client.Register(ctx, input)
	if err != nil {
		return err
	}

	m.applySession(session)
	m.RefreshProfile(ctx)
	return nil
}

// LoginWithGoogle exchanges a Google OAuth access token for a session.
func (m *Manager) LoginWithGoogle(ctx context.Context, accessToken string) error {
	session, err := m.client.LoginWithGoogle(ctx, accessToken)
	if err != nil {
		return err
	}

	m.applySession(session)
	m.RefreshProfile(ctx)
	return nil
}

// Logout clears local state immediately, then notifies the backend to
// revoke the refresh token. A failed revoke is logged but never blocks or
// reverses the local logout.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	var refresh string
	if m.tokens != nil {
		refresh = m.tokens.Refresh
	}
	m.user = nil
	m.mu.Unlock()

	m.persistTokens(nil)

	if refresh != "" {
		if err := m.client.Logout(ctx, refresh); err != nil {
			m.logger.Warn("failed to revoke refresh token", "error", err)
		}
	}
}

// RefreshProfile re-fetches the profile from the backend. Failure leaves the
// current profile in place.
func (m *Manager) RefreshProfile(ctx context.Context) {
	user, err := m.client.CurrentUser(ctx)
	if err != nil {
		m.logger.Warn("failed to refresh profile", "error", err)
		return
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
}

// UpdateProfile patches profile fields. The server's response replaces the
// local profile wholesale. No-op when unauthenticated.
func (m *Manager) UpdateProfile(ctx context.Context, update api.UserUpdate) (*api.User, error) {
	if !m.Authenticated() {
		return nil, nil
	}

	user, err := m.client.UpdateUser(ctx, update)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	return user, nil
}

// RequestPasswordReset is a stateless pass-through; session state is
// untouched.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	return m.client.RequestPasswordReset(ctx, email)
}

// CompletePasswordReset is a stateless pass-through; session state is
// untouched.
func (m *Manager) CompletePasswordReset(ctx context.Context, uid, token, newPassword string) error {
	return m.client.ConfirmPasswordReset(ctx, uid, token, newPassword)
}

// StartRefreshLoop runs the proactive token refresh loop until ctx is
// cancelled. Call in a goroutine alongside long-lived sessions (the TUI).
func (m *Manager) StartRefreshLoop(ctx context.Context) {
	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refreshOnce(ctx)
		}
	}
}

// refreshOnce exchanges the refresh token for a new access token.
//
// A 401 or 400 means the refresh token itself was rejected and forces a
// logout. Anything else is a transient failure: logged, session intact.
func (m *Manager) refreshOnce(ctx context.Context) {
	tokens := m.Tokens()
	if tokens == nil || tokens.Refresh == "" {
		return
	}

	access, err := m.client.RefreshToken(ctx, tokens.Refresh)
	if err != nil {
		if api.IsStatus(err, http.StatusUnauthorized) || api.IsStatus(err, http.StatusBadRequest) {
			m.logger.Warn("refresh token rejected, ending session", "error", err)
			m.Logout(ctx)
			return
		}
		m.logger.Warn("token refresh failed", "error", err)
		return
	}

	m.persistTokens(&api.Tokens{Access: access, Refresh: tokens.Refresh})
}
