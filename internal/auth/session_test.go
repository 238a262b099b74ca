package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/tapedeck/tapedeck/internal/models"
	"github.com/tapedeck/tapedeck/internal/shared"
	"github.com/tapedeck/tapedeck/internal/store"
)

type fakeValidator struct {
	account    *models.Account
	accountErr error
	folderErr  error
	calls      int
}

func (f *fakeValidator) CurrentAccount(ctx context.Context) (*models.Account, error) {
	f.calls++
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.account, nil
}

func (f *fakeValidator) EnsurePlaylistFolder(ctx context.Context) error {
	return f.folderErr
}

// tokenServer fakes the provider's token endpoint, capturing form params.
func tokenServer(t *testing.T, status int, body map[string]any) (*httptest.Server, *[]url.Values) {
	t.Helper()
	var requests []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		requests = append(requests, r.PostForm)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

type sessionFixture struct {
	session   *Session
	tokens    *TokenStore
	validator *fakeValidator
	openedURL string
}

func newSessionFixture(t *testing.T, tokenURL string) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		tokens:    NewTokenStore(store.NewMemoryStore()),
		validator: &fakeValidator{account: &models.Account{AccountID: "dbid:abc", DisplayName: "Test User", Email: "test@example.com"}},
	}

	session, err := NewSession(SessionOpts{
		Dropbox: shared.DropboxConfig{
			AppKey:      "app-key",
			RedirectURI: "http://localhost:3000/callback",
			AuthURL:     "https://www.dropbox.com/oauth2/authorize",
			TokenURL:    tokenURL,
		},
		TokenStore:   f.tokens,
		SessionStore: store.NewMemoryStore(),
		Logger:       shared.NewLogger(nil),
		OpenURL: func(u string) error {
			f.openedURL = u
			return nil
		},
		Now: func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	session.SetValidator(f.validator)
	f.session = session
	return f
}

func TestNewSession(t *testing.T) {
	t.Run("requires an app key", func(t *testing.T) {
		_, err := NewSession(SessionOpts{TokenStore: NewTokenStore(store.NewMemoryStore())})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("requires a token store", func(t *testing.T) {
		_, err := NewSession(SessionOpts{Dropbox: shared.DropboxConfig{AppKey: "key"}})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestStartAuthFlow(t *testing.T) {
	f := newSessionFixture(t, "https://api.dropboxapi.com/oauth2/token")

	authURL, err := f.session.StartAuthFlow()
	if err != nil {
		t.Fatalf("StartAuthFlow failed: %v", err)
	}

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("authorize URL does not parse: %v", err)
	}
	query := parsed.Query()

	t.Run("carries the PKCE challenge", func(t *testing.T) {
		if query.Get("code_challenge") == "" {
			t.Error("expected code_challenge parameter")
		}
		if query.Get("code_challenge_method") != "S256" {
			t.Errorf("expected S256, got %s", query.Get("code_challenge_method"))
		}
	})

	t.Run("requests offline access for a refresh token", func(t *testing.T) {
		if query.Get("token_access_type") != "offline" {
			t.Errorf("expected token_access_type=offline, got %s", query.Get("token_access_type"))
		}
	})

	t.Run("carries a CSRF state token", func(t *testing.T) {
		if query.Get("state") == "" {
			t.Error("expected state parameter")
		}
	})

	t.Run("opens the browser", func(t *testing.T) {
		if f.openedURL != authURL {
			t.Error("expected the authorize URL to be opened")
		}
	})

	t.Run("fresh verifier per flow", func(t *testing.T) {
		second, err := f.session.StartAuthFlow()
		if err != nil {
			t.Fatalf("second StartAuthFlow failed: %v", err)
		}
		secondQuery, _ := url.Parse(second)
		if secondQuery.Query().Get("code_challenge") == query.Get("code_challenge") {
			t.Error("expected a fresh PKCE challenge per flow")
		}
	})
}

func TestCompleteAuthFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("fails without a prior StartAuthFlow", func(t *testing.T) {
		f := newSessionFixture(t, "https://api.dropboxapi.com/oauth2/token")

		if f.session.CompleteAuthFlow(ctx, "code", "state") {
			t.Fatal("expected failure without stored verifier")
		}
		state := f.session.State().Get()
		if !strings.Contains(state.Error, shared.ErrInvalidPkceState.Error()) {
			t.Errorf("expected PKCE error in state, got %q", state.Error)
		}
	})

	t.Run("fails on CSRF state mismatch", func(t *testing.T) {
		f := newSessionFixture(t, "https://api.dropboxapi.com/oauth2/token")
		if _, err := f.session.StartAuthFlow(); err != nil {
			t.Fatalf("StartAuthFlow failed: %v", err)
		}

		if f.session.CompleteAuthFlow(ctx, "code", "forged-state") {
			t.Fatal("expected failure on state mismatch")
		}
		state := f.session.State().Get()
		if !strings.Contains(state.Error, shared.ErrCsrfMismatch.Error()) {
			t.Errorf("expected CSRF error in state, got %q", state.Error)
		}
	})

	t.Run("happy path", func(t *testing.T) {
		srv, requests := tokenServer(t, http.StatusOK, map[string]any{
			"access_token":  "fresh-access",
			"refresh_token": "fresh-refresh",
			"token_type":    "bearer",
			"expires_in":    14400,
		})
		f := newSessionFixture(t, srv.URL)

		authURL, err := f.session.StartAuthFlow()
		if err != nil {
			t.Fatalf("StartAuthFlow failed: %v", err)
		}
		parsed, _ := url.Parse(authURL)
		state := parsed.Query().Get("state")

		if !f.session.CompleteAuthFlow(ctx, "auth-code", state) {
			t.Fatalf("CompleteAuthFlow failed: %s", f.session.State().Get().Error)
		}

		t.Run("sends the verifier with the exchange", func(t *testing.T) {
			if len(*requests) != 1 {
				t.Fatalf("expected 1 token request, got %d", len(*requests))
			}
			form := (*requests)[0]
			if form.Get("code_verifier") == "" {
				t.Error("expected code_verifier in exchange")
			}
			if form.Get("code") != "auth-code" {
				t.Errorf("expected auth code, got %s", form.Get("code"))
			}
		})

		t.Run("publishes authenticated state", func(t *testing.T) {
			got := f.session.State().Get()
			if !got.Authenticated {
				t.Error("expected authenticated state")
			}
			if got.Account == nil || got.Account.DisplayName != "Test User" {
				t.Error("expected validated account in state")
			}
		})

		t.Run("persists the token record", func(t *testing.T) {
			record, err := f.tokens.Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if record == nil || record.AccessToken != "fresh-access" || record.RefreshToken != "fresh-refresh" {
				t.Errorf("unexpected record: %+v", record)
			}
		})

		t.Run("verifier is single-use", func(t *testing.T) {
			if f.session.CompleteAuthFlow(ctx, "auth-code", state) {
				t.Error("expected replayed completion to fail")
			}
		})
	})

	t.Run("clears tokens when validation fails", func(t *testing.T) {
		srv, _ := tokenServer(t, http.StatusOK, map[string]any{
			"access_token": "revoked-access",
			"token_type":   "bearer",
		})
		f := newSessionFixture(t, srv.URL)
		f.validator.accountErr = errors.New("invalid_access_token")

		authURL, _ := f.session.StartAuthFlow()
		parsed, _ := url.Parse(authURL)

		if f.session.CompleteAuthFlow(ctx, "auth-code", parsed.Query().Get("state")) {
			t.Fatal("expected failure when validation fails")
		}

		record, _ := f.tokens.Load()
		if record != nil {
			t.Error("expected tokens to be cleared")
		}
	})
}

func TestRefreshAccessToken(t *testing.T) {
	ctx := context.Background()

	seed := func(f *sessionFixture, refreshToken string) {
		record := &TokenRecord{AccessToken: "stale", RefreshToken: refreshToken}
		f.tokens.Save(record)
		f.session.mu.Lock()
		f.session.record = record
		f.session.mu.Unlock()
	}

	t.Run("fails without a refresh token", func(t *testing.T) {
		f := newSessionFixture(t, "https://api.dropboxapi.com/oauth2/token")
		seed(f, "")

		err := f.session.RefreshAccessToken(ctx)
		if !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
	})

	t.Run("stores the new access token", func(t *testing.T) {
		srv, requests := tokenServer(t, http.StatusOK, map[string]any{
			"access_token": "renewed",
			"token_type":   "bearer",
			"expires_in":   14400,
		})
		f := newSessionFixture(t, srv.URL)
		seed(f, "long-lived-refresh")

		if err := f.session.RefreshAccessToken(ctx); err != nil {
			t.Fatalf("RefreshAccessToken failed: %v", err)
		}

		if got := f.session.AccessToken(); got != "renewed" {
			t.Errorf("expected renewed token, got %s", got)
		}

		form := (*requests)[0]
		if form.Get("grant_type") != "refresh_token" {
			t.Errorf("expected refresh_token grant, got %s", form.Get("grant_type"))
		}
	})

	t.Run("keeps the old refresh token when the response omits one", func(t *testing.T) {
		srv, _ := tokenServer(t, http.StatusOK, map[string]any{
			"access_token": "renewed",
			"token_type":   "bearer",
			"expires_in":   14400,
		})
		f := newSessionFixture(t, srv.URL)
		seed(f, "long-lived-refresh")

		if err := f.session.RefreshAccessToken(ctx); err != nil {
			t.Fatalf("RefreshAccessToken failed: %v", err)
		}

		record, _ := f.tokens.Load()
		if record.RefreshToken != "long-lived-refresh" {
			t.Errorf("expected refresh token preserved, got %s", record.RefreshToken)
		}
	})

	t.Run("rejected refresh clears all auth state", func(t *testing.T) {
		srv, _ := tokenServer(t, http.StatusBadRequest, map[string]any{
			"error": "invalid_grant",
		})
		f := newSessionFixture(t, srv.URL)
		seed(f, "revoked-refresh")

		err := f.session.RefreshAccessToken(ctx)
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}

		record, _ := f.tokens.Load()
		if record != nil {
			t.Error("expected tokens cleared after rejected refresh")
		}
		if f.session.Authenticated() {
			t.Error("expected unauthenticated state")
		}
	})
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no stored tokens stays unauthenticated", func(t *testing.T) {
		f := newSessionFixture(t, "https://api.dropboxapi.com/oauth2/token")

		if err := f.session.Bootstrap(ctx); err != nil {
			t.Fatalf("Bootstrap failed: %v", err)
		}
		if f.session.Authenticated() {
			t.Error("expected unauthenticated state")
		}
		if f.validator.calls != 0 {
			t.Error("expected no validation calls")
		}
	})

	t.Run("valid token is validated and published", func(t *testing.T) {
		f := newSessionFixture(t, "https://api.dropboxapi.com/oauth2/token")
		f.tokens.Save(&TokenRecord{AccessToken: "stored", Expiry: now.Add(time.Hour)})

		if err := f.session.Bootstrap(ctx); err != nil {
			t.Fatalf("Bootstrap failed: %v", err)
		}
		if !f.session.Authenticated() {
			t.Error("expected authenticated state")
		}
		if f.validator.calls != 1 {
			t.Errorf("expected 1 validation call, got %d", f.validator.calls)
		}
	})

	t.Run("expired token with refresh token refreshes", func(t *testing.T) {
		srv, _ := tokenServer(t, http.StatusOK, map[string]any{
			"access_token": "renewed",
			"token_type":   "bearer",
			"expires_in":   14400,
		})
		f := newSessionFixture(t, srv.URL)
		f.tokens.Save(&TokenRecord{
			AccessToken:  "stale",
			RefreshToken: "long-lived-refresh",
			Expiry:       now.Add(-time.Hour),
		})

		if err := f.session.Bootstrap(ctx); err != nil {
			t.Fatalf("Bootstrap failed: %v", err)
		}
		if got := f.session.AccessToken(); got != "renewed" {
			t.Errorf("expected renewed token, got %s", got)
		}
	})

	t.Run("expired token without refresh token is cleared", func(t *testing.T) {
		f := newSessionFixture(t, "https://api.dropboxapi.com/oauth2/token")
		f.tokens.Save(&TokenRecord{AccessToken: "stale", Expiry: now.Add(-time.Hour)})

		if err := f.session.Bootstrap(ctx); err != nil {
			t.Fatalf("Bootstrap failed: %v", err)
		}
		if f.session.Authenticated() {
			t.Error("expected unauthenticated state")
		}
		record, _ := f.tokens.Load()
		if record != nil {
			t.Error("expected stale record cleared")
		}
	})

	t.Run("revoked token is cleared on failed validation", func(t *testing.T) {
		f := newSessionFixture(t, "https://api.dropboxapi.com/oauth2/token")
		f.validator.accountErr = errors.New("invalid_access_token")
		f.tokens.Save(&TokenRecord{AccessToken: "revoked", Expiry: now.Add(time.Hour)})

		if err := f.session.Bootstrap(ctx); err != nil {
			t.Fatalf("Bootstrap failed: %v", err)
		}
		if f.session.Authenticated() {
			t.Error("expected unauthenticated state")
		}
	})
}

func TestLogout(t *testing.T) {
	f := newSessionFixture(t, "https://api.dropboxapi.com/oauth2/token")
	f.tokens.Save(&TokenRecord{AccessToken: "stored"})

	if err := f.session.Logout(); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	record, _ := f.tokens.Load()
	if record != nil {
		t.Error("expected tokens removed")
	}
	if f.session.Authenticated() {
		t.Error("expected unauthenticated state")
	}
	if f.session.AccessToken() != "" {
		t.Error("expected empty access token")
	}
}
