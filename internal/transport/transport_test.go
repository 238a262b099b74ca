package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRefresher struct {
	canRefresh bool
	refreshErr error
	calls      int
}

func (f *fakeRefresher) CanRefresh() bool { return f.canRefresh }
func (f *fakeRefresher) RefreshAccessToken(ctx context.Context) error {
	f.calls++
	return f.refreshErr
}

func testLimiter(r Refresher) *Limiter {
	return NewLimiter(Opts{Refresher: r, BackoffUnit: time.Millisecond})
}

func TestRetryable(t *testing.T) {
	t.Run("429 is retryable", func(t *testing.T) {
		if !Retryable(&StatusError{Code: 429}) {
			t.Error("expected 429 to be retryable")
		}
	})

	t.Run("other statuses are terminal", func(t *testing.T) {
		for _, code := range []int{400, 401, 404, 409, 500} {
			if Retryable(&StatusError{Code: code}) {
				t.Errorf("expected %d to be terminal", code)
			}
		}
	})

	t.Run("network errors are retryable", func(t *testing.T) {
		if !Retryable(errors.New("connection reset")) {
			t.Error("expected opaque network error to be retryable")
		}
	})

	t.Run("context cancellation is terminal", func(t *testing.T) {
		if Retryable(context.Canceled) {
			t.Error("expected context.Canceled to be terminal")
		}
		if Retryable(context.DeadlineExceeded) {
			t.Error("expected context.DeadlineExceeded to be terminal")
		}
	})
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("success passes through", func(t *testing.T) {
		l := testLimiter(nil)
		calls := 0
		err := l.Do(ctx, 3, func(context.Context) error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("persistent 429 is attempted maxRetries+1 times", func(t *testing.T) {
		l := testLimiter(nil)
		calls := 0
		err := l.Do(ctx, 3, func(context.Context) error {
			calls++
			return &StatusError{Code: 429}
		})

		var status *StatusError
		if !errors.As(err, &status) || status.Code != 429 {
			t.Fatalf("expected final 429, got %v", err)
		}
		if calls != 4 {
			t.Errorf("expected 4 attempts, got %d", calls)
		}
	})

	t.Run("429 then success recovers", func(t *testing.T) {
		l := testLimiter(nil)
		calls := 0
		err := l.Do(ctx, 3, func(context.Context) error {
			calls++
			if calls == 1 {
				return &StatusError{Code: 429}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 attempts, got %d", calls)
		}
	})

	t.Run("terminal status is not retried", func(t *testing.T) {
		l := testLimiter(nil)
		calls := 0
		err := l.Do(ctx, 3, func(context.Context) error {
			calls++
			return &StatusError{Code: 404, Summary: "path/not_found/"}
		})

		var status *StatusError
		if !errors.As(err, &status) || status.Code != 404 {
			t.Fatalf("expected 404, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 attempt, got %d", calls)
		}
	})

	t.Run("401 with refreshable session", func(t *testing.T) {
		t.Run("refreshes once and re-dispatches", func(t *testing.T) {
			refresher := &fakeRefresher{canRefresh: true}
			l := testLimiter(refresher)

			calls := 0
			err := l.Do(ctx, 0, func(context.Context) error {
				calls++
				if calls == 1 {
					return &StatusError{Code: 401}
				}
				return nil
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if refresher.calls != 1 {
				t.Errorf("expected 1 refresh, got %d", refresher.calls)
			}
			if calls != 2 {
				t.Errorf("expected 2 dispatches, got %d", calls)
			}
		})

		t.Run("second 401 is not refreshed again", func(t *testing.T) {
			refresher := &fakeRefresher{canRefresh: true}
			l := testLimiter(refresher)

			calls := 0
			err := l.Do(ctx, 0, func(context.Context) error {
				calls++
				return &StatusError{Code: 401}
			})

			var status *StatusError
			if !errors.As(err, &status) || status.Code != 401 {
				t.Fatalf("expected 401, got %v", err)
			}
			if refresher.calls != 1 {
				t.Errorf("expected exactly 1 refresh, got %d", refresher.calls)
			}
			if calls != 2 {
				t.Errorf("expected 2 dispatches, got %d", calls)
			}
		})

		t.Run("failed refresh returns the original 401", func(t *testing.T) {
			refresher := &fakeRefresher{canRefresh: true, refreshErr: errors.New("refresh rejected")}
			l := testLimiter(refresher)

			calls := 0
			err := l.Do(ctx, 0, func(context.Context) error {
				calls++
				return &StatusError{Code: 401}
			})

			var status *StatusError
			if !errors.As(err, &status) || status.Code != 401 {
				t.Fatalf("expected original 401, got %v", err)
			}
			if calls != 1 {
				t.Errorf("expected no re-dispatch after failed refresh, got %d calls", calls)
			}
		})
	})

	t.Run("401 without refresh token is terminal", func(t *testing.T) {
		refresher := &fakeRefresher{canRefresh: false}
		l := testLimiter(refresher)

		calls := 0
		err := l.Do(ctx, 0, func(context.Context) error {
			calls++
			return &StatusError{Code: 401}
		})

		var status *StatusError
		if !errors.As(err, &status) || status.Code != 401 {
			t.Fatalf("expected 401, got %v", err)
		}
		if refresher.calls != 0 {
			t.Errorf("expected no refresh attempts, got %d", refresher.calls)
		}
		if calls != 1 {
			t.Errorf("expected 1 dispatch, got %d", calls)
		}
	})

	t.Run("cancelled context aborts the wait", func(t *testing.T) {
		l := NewLimiter(Opts{BackoffUnit: time.Minute})
		cancelled, cancel := context.WithCancel(ctx)

		done := make(chan error, 1)
		go func() {
			done <- l.Do(cancelled, 3, func(context.Context) error {
				return &StatusError{Code: 429}
			})
		}()

		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Do did not return after cancellation")
		}
	})
}

func TestStatusError(t *testing.T) {
	t.Run("with summary", func(t *testing.T) {
		err := &StatusError{Code: 409, Summary: "path/conflict/folder/"}
		if err.Error() != "status 409: path/conflict/folder/" {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})

	t.Run("without summary", func(t *testing.T) {
		err := &StatusError{Code: 500}
		if err.Error() != "status 500" {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})
}
