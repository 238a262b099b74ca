package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/tapedeck/tapedeck/internal/shared"
)

func TestMemoryStore(t *testing.T) {
	t.Run("Get on missing key reports absent", func(t *testing.T) {
		s := NewMemoryStore()
		_, ok, err := s.Get("missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected missing key to report absent")
		}
	})

	t.Run("Set then Get round-trips", func(t *testing.T) {
		s := NewMemoryStore()
		if err := s.Set("k", "v"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		v, ok, err := s.Get("k")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !ok || v != "v" {
			t.Errorf("expected (v, true), got (%s, %t)", v, ok)
		}
	})

	t.Run("Set replaces previous value", func(t *testing.T) {
		s := NewMemoryStore()
		s.Set("k", "old")
		s.Set("k", "new")
		v, _, _ := s.Get("k")
		if v != "new" {
			t.Errorf("expected new, got %s", v)
		}
	})

	t.Run("Delete removes key", func(t *testing.T) {
		s := NewMemoryStore()
		s.Set("k", "v")
		if err := s.Delete("k"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, ok, _ := s.Get("k"); ok {
			t.Error("expected key to be gone")
		}
	})

	t.Run("Delete on absent key is not an error", func(t *testing.T) {
		s := NewMemoryStore()
		if err := s.Delete("missing"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	open := func(t *testing.T) *SQLiteStore {
		t.Helper()
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("OpenSQLite failed: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	}

	t.Run("Set then Get round-trips", func(t *testing.T) {
		s := open(t)
		if err := s.Set("k", `{"a":1}`); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		v, ok, err := s.Get("k")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !ok || v != `{"a":1}` {
			t.Errorf("expected stored value, got (%s, %t)", v, ok)
		}
	})

	t.Run("Set upserts on conflict", func(t *testing.T) {
		s := open(t)
		s.Set("k", "old")
		if err := s.Set("k", "new"); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		v, _, _ := s.Get("k")
		if v != "new" {
			t.Errorf("expected new, got %s", v)
		}
	})

	t.Run("Get on missing key reports absent", func(t *testing.T) {
		s := open(t)
		_, ok, err := s.Get("missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected missing key to report absent")
		}
	})

	t.Run("Delete removes key", func(t *testing.T) {
		s := open(t)
		s.Set("k", "v")
		if err := s.Delete("k"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, ok, _ := s.Get("k"); ok {
			t.Error("expected key to be gone")
		}
	})

	t.Run("values survive reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.db")
		s, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("OpenSQLite failed: %v", err)
		}
		s.Set("k", "v")
		s.Close()

		reopened, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		defer reopened.Close()

		v, ok, _ := reopened.Get("k")
		if !ok || v != "v" {
			t.Errorf("expected persisted value, got (%s, %t)", v, ok)
		}
	})
}

func TestJSONHelpers(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	t.Run("SetJSON then GetJSON round-trips", func(t *testing.T) {
		s := NewMemoryStore()
		if err := SetJSON(s, "k", payload{Name: "x", Count: 3}); err != nil {
			t.Fatalf("SetJSON failed: %v", err)
		}

		var got payload
		ok, err := GetJSON(s, "k", &got)
		if err != nil {
			t.Fatalf("GetJSON failed: %v", err)
		}
		if !ok || got.Name != "x" || got.Count != 3 {
			t.Errorf("unexpected payload: %+v", got)
		}
	})

	t.Run("GetJSON on missing key reports absent without error", func(t *testing.T) {
		s := NewMemoryStore()
		var got payload
		ok, err := GetJSON(s, "missing", &got)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected absent")
		}
	})

	t.Run("GetJSON on malformed value reports storage error", func(t *testing.T) {
		s := NewMemoryStore()
		s.Set("k", "{not json")

		var got payload
		_, err := GetJSON(s, "k", &got)
		if !errors.Is(err, shared.ErrStorage) {
			t.Errorf("expected ErrStorage, got %v", err)
		}
	})
}
