package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tapedeck/tapedeck/internal/models"
	"github.com/tapedeck/tapedeck/internal/shared"
	"github.com/tapedeck/tapedeck/internal/store"
	"github.com/tapedeck/tapedeck/internal/watch"
	"golang.org/x/oauth2"
)

// Validator checks a token against the provider and performs auth-dependent
// initialization. Implemented by the dropbox client; injected here so auth
// does not depend on the gateway package.
type Validator interface {
	// CurrentAccount calls the identity endpoint with the current token.
	CurrentAccount(ctx context.Context) (*models.Account, error)

	// EnsurePlaylistFolder creates the well-known remote playlist folder if
	// it does not exist.
	EnsurePlaylistFolder(ctx context.Context) error
}

// Session orchestrates the OAuth2 authorization-code + PKCE flow and owns the
// token lifecycle.
//
// State machine: Unauthenticated → Authenticating → Authenticated →
// (Refreshing →) Authenticated | Unauthenticated. Every transition publishes a
// new immutable [models.AuthState] snapshot.
type Session struct {
	config    *oauth2.Config
	tokens    *TokenStore
	session   store.Store
	state     *watch.Value[models.AuthState]
	logger    *log.Logger
	openURL   func(string) error
	now       func() time.Time
	validator Validator

	mu     sync.Mutex
	record *TokenRecord
}

// SessionOpts contains configuration for creating a Session.
type SessionOpts struct {
	Dropbox      shared.DropboxConfig
	TokenStore   *TokenStore
	SessionStore store.Store // short-lived scope for PKCE verifier and CSRF state
	Logger       *log.Logger
	OpenURL      func(string) error // defaults to shared.OpenBrowser
	Now          func() time.Time
}

// Scopes requested from Dropbox.
var dropboxScopes = []string{
	"account_info.read",
	"files.metadata.read",
	"files.content.read",
	"files.content.write",
}

// NewSession creates a Session from the provided options.
func NewSession(opts SessionOpts) (*Session, error) {
	if opts.Dropbox.AppKey == "" {
		return nil, fmt.Errorf("%w: missing app_key", shared.ErrMissingCredentials)
	}
	if opts.TokenStore == nil {
		return nil, fmt.Errorf("%w: token store required", shared.ErrInvalidConfig)
	}
	if opts.SessionStore == nil {
		opts.SessionStore = store.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	config := &oauth2.Config{
		ClientID:    opts.Dropbox.AppKey,
		RedirectURL: opts.Dropbox.RedirectURI,
		Scopes:      dropboxScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  opts.Dropbox.AuthURL,
			TokenURL: opts.Dropbox.TokenURL,
		},
	}

	return &Session{
		config:  config,
		tokens:  opts.TokenStore,
		session: opts.SessionStore,
		state:   watch.NewValue(models.AuthState{}),
		logger:  opts.Logger,
		openURL: opts.OpenURL,
		now:     opts.Now,
	}, nil
}

// SetValidator injects the identity-validation collaborator. Must be called
// before CompleteAuthFlow or Bootstrap; wiring order is session → client →
// SetValidator because the client needs the session for credentials.
func (s *Session) SetValidator(v Validator) {
	s.validator = v
}

// State returns the live, observable authentication state.
func (s *Session) State() *watch.Value[models.AuthState] {
	return s.state
}

// AccessToken returns the current bearer token, or "" when unauthenticated.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return ""
	}
	return s.record.AccessToken
}

// Authenticated reports whether a non-expired access token is held.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record != nil && s.record.AccessToken != "" && !s.record.Expired(s.now())
}

// TokenExpired reports whether the stored token expiry has passed. An absent
// expiry is treated as never-expired.
func (s *Session) TokenExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record != nil && s.record.Expired(s.now())
}

// CanRefresh reports whether a refresh token is held.
func (s *Session) CanRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record != nil && s.record.RefreshToken != ""
}

// StartAuthFlow generates a PKCE pair and CSRF state token, stores both in the
// session scope, and opens the provider's authorize URL in the browser.
//
// Returns the authorize URL so callers can present it when the browser cannot
// be opened.
func (s *Session) StartAuthFlow() (string, error) {
	challenge := NewChallenge()
	state, err := GenerateState()
	if err != nil {
		return "", err
	}

	if err := s.session.Set(store.KeyPkceVerifier, challenge.Verifier); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	if err := s.session.Set(store.KeyOauthState, state); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	authURL := s.config.AuthCodeURL(state,
		oauth2.S256ChallengeOption(challenge.Verifier),
		oauth2.SetAuthURLParam("token_access_type", "offline"),
	)

	s.logger.Info("starting auth flow", "redirect_uri", s.config.RedirectURL)

	if err := s.openURL(authURL); err != nil {
		s.logger.Warnf("failed to open browser, visit the URL manually: %v", err)
	}

	return authURL, nil
}

// CompleteAuthFlow exchanges the authorization code for tokens, persists them,
// and validates the new token against the identity endpoint.
//
// Returns false (never panics) on any failure, recording the error in the
// published auth state. Fails with [shared.ErrInvalidPkceState] when no
// verifier was stored and [shared.ErrCsrfMismatch] when the stored state token
// does not match the supplied one.
func (s *Session) CompleteAuthFlow(ctx context.Context, code, state string) bool {
	verifier, ok, err := s.session.Get(store.KeyPkceVerifier)
	if err != nil || !ok || verifier == "" {
		s.fail(fmt.Errorf("%w", shared.ErrInvalidPkceState))
		return false
	}

	if stored, ok, _ := s.session.Get(store.KeyOauthState); ok && stored != state {
		s.fail(fmt.Errorf("%w", shared.ErrCsrfMismatch))
		return false
	}

	// The verifier and state are single-use regardless of outcome.
	defer func() {
		s.session.Delete(store.KeyPkceVerifier)
		s.session.Delete(store.KeyOauthState)
	}()

	token, err := s.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		s.fail(fmt.Errorf("%w: code exchange: %v", shared.ErrAuthFailed, err))
		return false
	}

	record := &TokenRecord{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if err := s.setRecord(record); err != nil {
		s.fail(err)
		return false
	}

	account, err := s.validate(ctx)
	if err != nil {
		s.clear()
		s.fail(fmt.Errorf("%w: token validation: %v", shared.ErrAuthFailed, err))
		return false
	}

	s.state.Set(models.AuthState{
		Authenticated: true,
		Account:       account,
		TokenExpiry:   record.Expiry,
	})

	if s.validator != nil {
		if err := s.validator.EnsurePlaylistFolder(ctx); err != nil {
			s.logger.Warnf("failed to ensure playlist folder: %v", err)
		}
	}

	s.logger.Info("authenticated", "account", account.DisplayName)
	return true
}

// RefreshAccessToken posts a refresh_token grant and persists the new access
// token and expiry.
//
// Safe to call reentrantly from the transport layer on a 401: calls serialize
// on the session lock and the last write to the token record wins. On failure
// all auth state is cleared.
func (s *Session) RefreshAccessToken(ctx context.Context) error {
	s.mu.Lock()
	record := s.record
	s.mu.Unlock()

	if record == nil || record.RefreshToken == "" {
		return fmt.Errorf("%w", shared.ErrNoRefreshToken)
	}

	src := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: record.RefreshToken})
	token, err := src.Token()
	if err != nil {
		s.clear()
		s.state.Set(models.AuthState{Error: fmt.Sprintf("%v: %v", shared.ErrRefreshFailed, err)})
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = record.RefreshToken
	}

	next := &TokenRecord{
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		Expiry:       token.Expiry,
	}
	if err := s.setRecord(next); err != nil {
		return err
	}

	account, err := s.validate(ctx)
	if err != nil {
		s.clear()
		s.state.Set(models.AuthState{Error: fmt.Sprintf("%v: %v", shared.ErrRefreshFailed, err)})
		return fmt.Errorf("%w: validation: %v", shared.ErrRefreshFailed, err)
	}

	s.state.Set(models.AuthState{
		Authenticated: true,
		Account:       account,
		TokenExpiry:   next.Expiry,
	})
	return nil
}

// Bootstrap restores auth state on process start: loads the persisted record,
// refreshes an expired token when a refresh token exists, clears an expired
// token without one, and otherwise validates the existing token to catch
// external revocation.
func (s *Session) Bootstrap(ctx context.Context) error {
	record, err := s.tokens.Load()
	if err != nil {
		s.logger.Warnf("failed to load tokens, starting unauthenticated: %v", err)
		return nil
	}
	if record == nil || record.AccessToken == "" {
		return nil
	}

	s.mu.Lock()
	s.record = record
	s.mu.Unlock()

	if record.Expired(s.now()) {
		if record.RefreshToken == "" {
			s.clear()
			s.state.Set(models.AuthState{Error: shared.ErrTokenExpired.Error()})
			return nil
		}
		return s.RefreshAccessToken(ctx)
	}

	account, err := s.validate(ctx)
	if err != nil {
		s.clear()
		s.state.Set(models.AuthState{Error: fmt.Sprintf("%v: %v", shared.ErrAuthFailed, err)})
		return nil
	}

	s.state.Set(models.AuthState{
		Authenticated: true,
		Account:       account,
		TokenExpiry:   record.Expiry,
	})
	return nil
}

// Logout clears the persisted token record and resets auth state.
func (s *Session) Logout() error {
	s.clear()
	s.state.Set(models.AuthState{})
	return nil
}

func (s *Session) validate(ctx context.Context) (*models.Account, error) {
	if s.validator == nil {
		return nil, fmt.Errorf("no validator wired")
	}
	return s.validator.CurrentAccount(ctx)
}

func (s *Session) setRecord(record *TokenRecord) error {
	s.mu.Lock()
	s.record = record
	s.mu.Unlock()
	if err := s.tokens.Save(record); err != nil {
		return err
	}
	return nil
}

func (s *Session) clear() {
	s.mu.Lock()
	s.record = nil
	s.mu.Unlock()
	if err := s.tokens.Clear(); err != nil {
		s.logger.Warnf("failed to clear tokens: %v", err)
	}
}

func (s *Session) fail(err error) {
	s.logger.Error("auth flow failed", "err", err)
	s.state.Set(models.AuthState{Error: err.Error()})
}
