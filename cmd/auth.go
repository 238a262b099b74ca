package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/tapedeck/tapedeck/internal/server"
	"github.com/tapedeck/tapedeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the full OAuth2 + PKCE authorization flow.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// exchanges the auth code for tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.session == nil {
		return fmt.Errorf("%w: Dropbox app_key must be set in config.toml", shared.ErrMissingCredentials)
	}

	authURL, err := r.session.StartAuthFlow()
	if err != nil {
		return fmt.Errorf("failed to start authorization: %w", err)
	}

	r.writePlain("→ Opening browser for Dropbox authorization...\n")
	r.writePlain("If the browser does not open, visit:\n%s\n\n", authURL)
	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	callbackPath := "/callback"
	if parsed, err := url.Parse(r.config.Credentials.Dropbox.RedirectURI); err == nil && parsed.Path != "" {
		callbackPath = parsed.Path
	}

	serveCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	callback, err := server.Serve(serveCtx, addr, server.NewCallbackHandler(callbackPath), r.logger)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	if !r.session.CompleteAuthFlow(ctx, callback.Code, callback.State) {
		state := r.session.State().Get()
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, state.Error)
	}

	state := r.session.State().Get()
	r.writePlainln("✓ Authorization successful")
	if state.Account != nil {
		r.writePlain("✓ Signed in as %s\n", state.Account.DisplayName)
	}
	r.writePlain("You can now use: tapedeck files ls\n")

	return nil
}

// AuthStatus reports the stored authentication state, refreshing expired
// tokens when possible.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if r.session == nil {
		return fmt.Errorf("%w: Dropbox app_key must be set in config.toml", shared.ErrMissingCredentials)
	}

	if err := r.session.Bootstrap(ctx); err != nil {
		r.logger.Warnf("bootstrap failed: %v", err)
	}

	state := r.session.State().Get()
	if cmd.Bool("json") {
		return r.writeJSON(state, true)
	}

	if !state.Authenticated {
		r.writePlain("✗ Not authenticated\n")
		if state.Error != "" {
			r.writePlain("Last error: %s\n", state.Error)
		}
		r.writePlain("Run 'tapedeck auth login' to sign in.\n")
		return nil
	}

	r.writePlain("✓ Authenticated\n")
	if state.Account != nil {
		r.writePlain("Account: %s <%s>\n", state.Account.DisplayName, state.Account.Email)
	}
	if !state.TokenExpiry.IsZero() {
		r.writePlain("Token expires: %s\n", state.TokenExpiry.Format(time.RFC1123))
	}
	return nil
}

// AuthRefresh forces an access token refresh.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}
	if !r.session.CanRefresh() {
		return fmt.Errorf("%w: no refresh token stored", shared.ErrNoRefreshToken)
	}
	if err := r.session.RefreshAccessToken(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	return r.writePlain("✓ Access token refreshed\n")
}

// AuthLogout discards the stored tokens.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if r.session == nil {
		return fmt.Errorf("%w: Dropbox app_key must be set in config.toml", shared.ErrMissingCredentials)
	}
	if err := r.session.Logout(); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return r.writePlain("✓ Signed out\n")
}
