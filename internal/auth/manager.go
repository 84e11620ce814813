package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/shared"
	"golang.org/x/sync/singleflight"
)

// State is the phase of the session as seen by status output.
type State int

const (
	StateUnauthenticated State = iota
	StateAwaitingCredentials
	StateAwaitingRedirect
	StateExchanging
	StateAuthenticated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAwaitingCredentials:
		return "awaiting credentials"
	case StateAwaitingRedirect:
		return "awaiting redirect"
	case StateExchanging:
		return "exchanging"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Prompter collects the interactive inputs of [Manager.Authenticate].
type Prompter interface {
	// Credentials asks for the Spotify application's client id and secret.
	Credentials(ctx context.Context) (*models.Credentials, error)
	// RedirectURL shows authURL and returns the URL the browser was redirected to.
	RedirectURL(ctx context.Context, authURL string) (string, error)
}

// EventRecorder persists security events.
type EventRecorder interface {
	Record(event *models.SecurityEvent) error
}

// ManagerOpts configures a [Manager]. Store is required.
type ManagerOpts struct {
	Store       models.KeyValueStore
	Config      *shared.Config // defaults to [shared.DefaultConfig]
	Prompter    Prompter
	OpenBrowser func(url string) error
	Events      EventRecorder
	Logger      *log.Logger
	HTTPClient  *http.Client
	Now         func() time.Time
	Sleep       func(ctx context.Context, d time.Duration) error
}

const refreshKey = "refresh"

// Manager owns the Spotify session for one process.
//
// The mutex guards in-memory state and store writes; network calls and prompts happen outside it.
// epoch changes whenever tokens are replaced by an authorization or cleared, so a refresh that started
// before can tell its result is stale.
type Manager struct {
	store       models.KeyValueStore
	spotify     shared.SpotifyConfig
	settings    shared.AuthConfig
	prompter    Prompter
	openBrowser func(string) error
	events      EventRecorder
	logger      *log.Logger
	httpClient  *http.Client
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error

	refreshes singleflight.Group

	mu          sync.Mutex
	credentials *models.Credentials
	tokens      *models.TokenSet
	epoch       uint64
	flow        State
	refreshing  bool
}

// NewManager creates a [Manager] and loads the persisted session.
//
// Records that cannot be decoded are logged and treated as absent.
func NewManager(opts ManagerOpts) (*Manager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: auth manager requires a store", shared.ErrInvalidConfig)
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = shared.DefaultConfig()
	}

	m := &Manager{
		store:       opts.Store,
		spotify:     cfg.Spotify,
		settings:    cfg.Auth,
		prompter:    opts.Prompter,
		openBrowser: opts.OpenBrowser,
		events:      opts.Events,
		logger:      opts.Logger,
		httpClient:  opts.HTTPClient,
		now:         opts.Now,
		sleep:       opts.Sleep,
	}

	if m.logger == nil {
		m.logger = log.New(io.Discard)
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.sleep == nil {
		m.sleep = sleepContext
	}
	if m.settings.AutoAuthAttempts < 1 {
		m.settings.AutoAuthAttempts = 1
	}

	var err error
	if m.credentials, err = loadRecord[models.Credentials](m, models.CredentialsKey); err != nil {
		return nil, err
	}
	if m.tokens, err = loadRecord[models.TokenSet](m, models.TokensKey); err != nil {
		return nil, err
	}

	m.logger.Debug("session loaded", "credentials", m.credentials != nil, "tokens", m.tokens != nil)
	return m, nil
}

func loadRecord[T any](m *Manager, key string) (*T, error) {
	data, err := m.store.Get(key)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrStorage, err)
	}

	var record *T
	if err := json.Unmarshal(data, &record); err != nil {
		m.logger.Warn("ignoring unreadable session record", "key", key, "err", err)
		return nil, nil
	}
	return record, nil
}

func (m *Manager) saveRecord(key string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := m.store.Set(key, data); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrStorage, err)
	}
	return nil
}

// IsAuthenticated reports whether both credentials and tokens are present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credentials != nil && m.tokens != nil
}

// HasStoredCredentials reports whether client credentials are present.
func (m *Manager) HasStoredCredentials() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credentials != nil
}

// HasStoredTokens reports whether a token set is present, expired or not.
func (m *Manager) HasStoredTokens() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens != nil
}

// State reports the current phase of the session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.flow != StateUnauthenticated:
		return m.flow
	case m.refreshing:
		return StateRefreshing
	case m.tokens != nil:
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

// HasValidAccessToken reports whether the stored access token has not yet expired.
func (m *Manager) HasValidAccessToken() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens.Valid(m.now())
}

// TokenExpiry returns the expiry of the stored access token.
func (m *Manager) TokenExpiry() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return time.Time{}, false
	}
	return m.tokens.Expiry(), true
}

func (m *Manager) setFlow(s State) {
	m.mu.Lock()
	m.flow = s
	m.mu.Unlock()
}

// Logout clears credentials and tokens.
//
// Memory is cleared before the store, so [Manager.IsAuthenticated] is false as soon as Logout starts.
// Logging out twice is not an error.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens = nil
	m.credentials = nil
	m.epoch++

	var errs []error
	for _, key := range []string{models.TokensKey, models.CredentialsKey} {
		if err := m.store.Delete(key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrStorage, err)
	}

	m.logger.Info("logged out")
	return nil
}

// Authenticate runs the interactive PKCE authorization flow.
//
// Missing credentials are collected first and persisted immediately. On success the new token set is persisted and
// replaces any previous one. Every failure is terminal for the call.
func (m *Manager) Authenticate(ctx context.Context) error {
	defer m.setFlow(StateUnauthenticated)

	creds, err := m.ensureCredentials(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	pkce := GeneratePKCE()
	state, err := GenerateState()
	if err != nil {
		return err
	}

	client := NewTokenClient(m.spotify, creds.ClientID, m.httpClient, m.now)
	authURL := client.AuthCodeURL(state, pkce)

	m.setFlow(StateAwaitingRedirect)
	if m.openBrowser != nil {
		if err := m.openBrowser(authURL); err != nil {
			m.logger.Warn("could not open browser, open the URL manually", "err", err)
		}
	}

	if m.prompter == nil {
		return fmt.Errorf("%w: no prompter configured", shared.ErrInvalidRedirect)
	}
	pasted, err := m.prompter.RedirectURL(ctx, authURL)
	if err != nil {
		return promptError(shared.ErrInvalidRedirect, err)
	}

	code, err := m.parseRedirect(pasted, state)
	if err != nil {
		return err
	}

	m.setFlow(StateExchanging)
	exchangeCtx, cancel := context.WithTimeout(ctx, orDefault(m.settings.ExchangeTimeout.Duration))
	defer cancel()

	tokens, err := client.Exchange(exchangeCtx, code, pkce.Verifier)
	if err != nil {
		if errors.Is(exchangeCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", shared.ErrTimeout, err)
		}
		m.logger.Error("authorization code exchange failed", "err", err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		return fmt.Errorf("%w: logged out during authorization", shared.ErrNotAuthenticated)
	}
	if err := m.saveRecord(models.TokensKey, tokens); err != nil {
		return err
	}
	m.tokens = tokens
	m.epoch++

	m.logger.Info("authenticated with Spotify", "expires_at", tokens.Expiry().Format(time.RFC3339), "scope", tokens.Scope)
	return nil
}

func (m *Manager) ensureCredentials(ctx context.Context) (*models.Credentials, error) {
	m.mu.Lock()
	creds := m.credentials
	m.mu.Unlock()
	if creds != nil {
		return creds, nil
	}

	m.setFlow(StateAwaitingCredentials)
	if m.prompter == nil {
		return nil, shared.ErrCredentialsRequired
	}

	creds, err := m.prompter.Credentials(ctx)
	if err != nil {
		return nil, promptError(shared.ErrCredentialsRequired, err)
	}
	if creds == nil || strings.TrimSpace(creds.ClientID) == "" || strings.TrimSpace(creds.ClientSecret) == "" {
		return nil, fmt.Errorf("%w: client id and secret must both be provided", shared.ErrCredentialsRequired)
	}
	creds = &models.Credentials{
		ClientID:     strings.TrimSpace(creds.ClientID),
		ClientSecret: strings.TrimSpace(creds.ClientSecret),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.saveRecord(models.CredentialsKey, creds); err != nil {
		return nil, err
	}
	m.credentials = creds
	return creds, nil
}

// parseRedirect extracts the authorization code from the pasted redirect URL and verifies its state.
func (m *Manager) parseRedirect(raw, expectedState string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty URL", shared.ErrInvalidRedirect)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidRedirect, err)
	}
	if u.RawQuery == "" {
		return "", fmt.Errorf("%w: URL has no query parameters", shared.ErrInvalidRedirect)
	}

	query := u.Query()
	if reason := query.Get("error"); reason != "" {
		m.logger.Warn("authorization denied", "reason", reason)
		return "", fmt.Errorf("%w: %s", shared.ErrAuthorizationDenied, reason)
	}

	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: no authorization code received", shared.ErrAuthorizationDenied)
	}

	returned := query.Get("state")
	if subtle.ConstantTimeCompare([]byte(returned), []byte(expectedState)) != 1 {
		m.recordStateMismatch(u)
		return "", shared.ErrStateMismatch
	}
	return code, nil
}

func (m *Manager) recordStateMismatch(u *url.URL) {
	target := u.Scheme + "://" + u.Host + u.Path
	m.logger.Error("authorization response state mismatch", "security", true, "redirect", target)

	if m.events == nil {
		return
	}
	event := &models.SecurityEvent{
		Kind:   models.EventStateMismatch,
		Detail: "returned state did not match the authorization request; redirect " + target,
	}
	if err := m.events.Record(event); err != nil {
		m.logger.Error("failed to record security event", "err", err)
	}
}

// GetValidAccessToken returns an access token that is not inside the refresh window.
//
// With no stored tokens it returns [shared.ErrNotAuthenticated] without side effects. Otherwise a token within the
// refresh window (or expired) is refreshed first; concurrent callers share a single refresh.
func (m *Manager) GetValidAccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	tokens := m.tokens
	m.mu.Unlock()

	if tokens == nil {
		return "", shared.ErrNotAuthenticated
	}
	if !tokens.NeedsRefresh(m.now(), m.settings.RefreshWindow.Duration) {
		return tokens.AccessToken, nil
	}

	ch := m.refreshes.DoChan(refreshKey, func() (any, error) {
		return m.refresh(ctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", shared.ErrTransientRefresh, ctx.Err())
	}
}

// RefreshAccessToken returns a token to use in place of rejected, which the Web API refused.
//
// When rejected is still the current access token it is treated as expired and refreshed even outside the refresh
// window. When another caller already replaced it the current token is returned without a round trip.
func (m *Manager) RefreshAccessToken(ctx context.Context, rejected string) (string, error) {
	m.mu.Lock()
	if m.tokens != nil && m.tokens.AccessToken == rejected {
		stale := *m.tokens
		stale.ExpiresAt = m.now().UnixMilli()
		m.tokens = &stale
		m.logger.Debug("access token rejected by the Web API, forcing refresh")
	}
	m.mu.Unlock()

	return m.GetValidAccessToken(ctx)
}

// refresh performs one refresh round trip. It runs detached from the first caller's cancellation,
// bounded by the refresh timeout, since other callers may be waiting on it.
func (m *Manager) refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	tokens, creds, epoch := m.tokens, m.credentials, m.epoch

	switch {
	case tokens == nil:
		m.mu.Unlock()
		return "", shared.ErrNotAuthenticated
	case !tokens.NeedsRefresh(m.now(), m.settings.RefreshWindow.Duration):
		m.mu.Unlock()
		return tokens.AccessToken, nil
	case creds == nil:
		m.mu.Unlock()
		return "", fmt.Errorf("%w: cannot refresh without a client id", shared.ErrCredentialsRequired)
	case tokens.RefreshToken == "":
		defer m.mu.Unlock()
		m.clearTokensLocked()
		return "", fmt.Errorf("%w: no refresh token stored", shared.ErrRefreshTokenExpired)
	}

	m.refreshing = true
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), orDefault(m.settings.RefreshTimeout.Duration))
	defer cancel()

	m.logger.Debug("refreshing access token", "expires_at", tokens.Expiry().Format(time.RFC3339))
	fresh, err := NewTokenClient(m.spotify, creds.ClientID, m.httpClient, m.now).Refresh(ctx, tokens.RefreshToken)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshing = false

	if m.epoch != epoch {
		m.logger.Debug("discarding refresh result, session changed while refreshing")
		if m.tokens != nil {
			return m.tokens.AccessToken, nil
		}
		return "", shared.ErrNotAuthenticated
	}

	if err != nil {
		if IsReauthRequired(err) {
			m.logger.Warn("refresh token rejected, clearing tokens", "err", err)
			m.clearTokensLocked()
		} else {
			m.logger.Warn("token refresh failed, keeping stored tokens", "err", err)
		}
		return "", err
	}

	if fresh.Scope == "" {
		fresh.Scope = tokens.Scope
	}
	m.tokens = fresh
	if err := m.saveRecord(models.TokensKey, fresh); err != nil {
		m.logger.Error("failed to persist refreshed tokens", "err", err)
	}

	m.logger.Info("access token refreshed", "expires_at", fresh.Expiry().Format(time.RFC3339),
		"rotated", fresh.RefreshToken != tokens.RefreshToken)
	return fresh.AccessToken, nil
}

// orDefault falls back to 10s for an unset token endpoint timeout.
func orDefault(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 10 * time.Second
	}
	return timeout
}

func (m *Manager) clearTokensLocked() {
	m.tokens = nil
	m.epoch++
	if err := m.store.Delete(models.TokensKey); err != nil {
		m.logger.Error("failed to clear stored tokens", "err", err)
	}
}

// promptError wraps a prompt failure in kind, or in [shared.ErrTimeout] when the prompt ran out of time.
func promptError(kind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %w", kind, shared.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
