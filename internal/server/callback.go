package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Callback carries the query parameters delivered to the redirect URI. The
// authorization code is exchanged by the caller, which holds the PKCE
// verifier for the session.
type Callback struct {
	Code  string
	State string
	err   error
}

func (c *Callback) Error() error {
	return c.err
}

// CallbackHandler receives the OAuth2 redirect on the loopback address.
// Implements the Handler interface for registration with a Router.
//
// It only processes one callback to prevent replay attacks.
type CallbackHandler struct {
	path        string
	resultChan  chan Callback
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a handler serving the given redirect path
// (e.g. "/callback").
func NewCallbackHandler(path string) *CallbackHandler {
	return &CallbackHandler{
		path:       path,
		resultChan: make(chan Callback, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the OAuth callback request.
//
// Forwards the authorization code and state token through the result channel
// and renders a page telling the user to return to the terminal.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only handle callback once
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()
	code := query.Get("code")
	if code == "" {
		errParam := query.Get("error")
		errDesc := query.Get("error_description")
		err := fmt.Errorf("authorization failed: %s - %s", errParam, errDesc)
		h.Send(Callback{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	h.Send(Callback{Code: code, State: query.Get("state")})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

// Send sends the callback through the channel (only once).
func (h *CallbackHandler) Send(result Callback) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel for receiving the redirect parameters.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan Callback {
	return h.resultChan
}

// Serve runs a temporary HTTP server on addr until the handler receives its
// callback, the context is cancelled, or the server fails. The server is shut
// down before returning. A nil logger disables request logging.
func Serve(ctx context.Context, addr string, handler *CallbackHandler, logger *log.Logger) (Callback, error) {
	router := NewBasicRouter()
	if logger != nil {
		router.Use(Logging(logger))
	}
	router.Handler(handler)

	srv := &http.Server{Addr: addr, Handler: router}
	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	select {
	case result := <-handler.Result():
		if result.err != nil {
			return Callback{}, result.err
		}
		return result, nil
	case err := <-errChan:
		return Callback{}, fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return Callback{}, ctx.Err()
	}
}

const successPage = `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #0061FE; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>&#10003; Authorization Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
