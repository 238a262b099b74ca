package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestCallbackHandler(t *testing.T) {
	t.Run("forwards code and state", func(t *testing.T) {
		handler := NewCallbackHandler("/callback")
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/callback?code=auth-code&state=csrf-token", nil)

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Error("success page not rendered")
		}

		select {
		case result := <-handler.Result():
			if result.Code != "auth-code" || result.State != "csrf-token" {
				t.Errorf("unexpected callback: %+v", result)
			}
			if result.Error() != nil {
				t.Errorf("unexpected error: %v", result.Error())
			}
		case <-time.After(time.Second):
			t.Fatal("no result delivered")
		}
	})

	t.Run("missing code reports the provider error", func(t *testing.T) {
		handler := NewCallbackHandler("/callback")
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/callback?error=access_denied&error_description=user+declined", nil)

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-handler.Result()
		if result.Error() == nil {
			t.Fatal("expected an error result")
		}
		if !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("provider error lost: %v", result.Error())
		}
	})

	t.Run("second callback is rejected", func(t *testing.T) {
		handler := NewCallbackHandler("/callback")

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?code=one", nil))
		if first.Code != http.StatusOK {
			t.Fatalf("first callback failed: %d", first.Code)
		}

		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?code=two", nil))
		if second.Code != http.StatusBadRequest {
			t.Errorf("replay should be rejected, got %d", second.Code)
		}

		result := <-handler.Result()
		if result.Code != "one" {
			t.Errorf("replay overwrote the result: %+v", result)
		}
	})

	t.Run("routes expose the redirect path", func(t *testing.T) {
		handler := NewCallbackHandler("/oauth/done")
		routes := handler.Routes()
		if len(routes) != 1 || routes[0] != "/oauth/done" {
			t.Errorf("unexpected routes: %v", routes)
		}
	})
}

func TestServe(t *testing.T) {
	t.Run("returns the delivered callback", func(t *testing.T) {
		handler := NewCallbackHandler("/callback")
		handler.Send(Callback{Code: "auth-code", State: "csrf"})

		result, err := Serve(context.Background(), "127.0.0.1:0", handler, nil)
		if err != nil {
			t.Fatalf("serve failed: %v", err)
		}
		if result.Code != "auth-code" || result.State != "csrf" {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("surfaces a callback error", func(t *testing.T) {
		handler := NewCallbackHandler("/callback")
		handler.Send(Callback{err: context.DeadlineExceeded})

		if _, err := Serve(context.Background(), "127.0.0.1:0", handler, nil); err == nil {
			t.Error("expected the callback error")
		}
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		handler := NewCallbackHandler("/callback")
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if _, err := Serve(ctx, "127.0.0.1:0", handler, nil); err != context.DeadlineExceeded {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("rejects wrong methods", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("middleware wraps in registration order", func(t *testing.T) {
		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(tag("outer"), tag("inner"))
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
		if got := strings.Join(order, ","); got != "outer,inner,handler" {
			t.Errorf("unexpected order: %s", got)
		}
	})

	t.Run("logging middleware records the request", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)
		logger.SetLevel(log.DebugLevel)

		router := NewBasicRouter()
		router.Use(Logging(logger))
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
		if out := buf.String(); !strings.Contains(out, "/ping") {
			t.Errorf("request not logged: %q", out)
		}
	})
}
