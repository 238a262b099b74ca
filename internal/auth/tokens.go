package auth

import (
	"time"

	"github.com/tapedeck/tapedeck/internal/store"
)

// TokenRecord is the sole unit of persisted auth state.
//
// Created on a successful code exchange or refresh, cleared on logout or an
// irrecoverable refresh failure.
type TokenRecord struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	Expiry       time.Time `json:"tokenExpiry,omitempty"`
}

// Expired reports whether the record's access token has expired at now.
//
// A zero Expiry means the provider omitted one and the token never expires.
func (r *TokenRecord) Expired(now time.Time) bool {
	if r.Expiry.IsZero() {
		return false
	}
	return !now.Before(r.Expiry)
}

// TokenStore persists the TokenRecord in the durable store. No network.
type TokenStore struct {
	store store.Store
}

// NewTokenStore creates a TokenStore over s.
func NewTokenStore(s store.Store) *TokenStore {
	return &TokenStore{store: s}
}

// Load reads the persisted record. Returns (nil, nil) when none is stored.
func (t *TokenStore) Load() (*TokenRecord, error) {
	var record TokenRecord
	ok, err := store.GetJSON(t.store, store.KeyAuthTokens, &record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// Save writes record, replacing any previous one.
func (t *TokenStore) Save(record *TokenRecord) error {
	return store.SetJSON(t.store, store.KeyAuthTokens, record)
}

// Clear removes the persisted record.
func (t *TokenStore) Clear() error {
	return t.store.Delete(store.KeyAuthTokens)
}
