// package store provides the durable key → JSON string store backing all
// persisted client state.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/tapedeck/tapedeck/internal/shared"
)

// Well-known keys. Every persisted unit of state is one whole-value record;
// writes replace the entire value.
const (
	KeyAuthTokens   = "auth.tokens"
	KeyPlaylists    = "playlists.collection"
	KeyResumeState  = "playlists.current"
	KeySyncSettings = "sync.settings"

	// Session-scoped keys, held in a MemoryStore and cleared after use.
	KeyPkceVerifier = "session.pkce_verifier"
	KeyOauthState   = "session.oauth_state"
	KeyReturnPath   = "session.return_path"
)

// Store is a synchronous opaque string store.
//
// Implementations must make every read see the latest write. They are not
// required to provide any isolation beyond whole-value replacement.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set writes value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	Close() error
}

// GetJSON reads key from s and unmarshals it into v.
//
// A missing key returns (false, nil). Malformed stored JSON is reported as
// [shared.ErrStorage]; callers treat it as "no data present" per the
// degrade-to-empty policy.
func GetJSON(s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %v", shared.ErrStorage, key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("%w: malformed value at %s: %v", shared.ErrStorage, key, err)
	}
	return true, nil
}

// SetJSON marshals v and writes it under key.
func SetJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", shared.ErrStorage, key, err)
	}
	if err := s.Set(key, string(data)); err != nil {
		return fmt.Errorf("%w: write %s: %v", shared.ErrStorage, key, err)
	}
	return nil
}
