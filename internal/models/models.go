package models

import (
	"errors"
	"time"
)

// Record keys under which session state is persisted.
const (
	CredentialsKey = "spotifyCredentials"
	TokensKey      = "spotifyTokens"
)

// ErrNotFound is returned by [KeyValueStore.Get] when a key holds no value.
var ErrNotFound = errors.New("record not found")

// KeyValueStore is the persistence port for session records.
//
// Implementations must treat Delete of an absent key as a no-op.
type KeyValueStore interface {
	Get(key string) ([]byte, error)     // Get returns the stored value or [ErrNotFound]
	Set(key string, value []byte) error // Set creates or replaces the value for key
	Delete(key string) error            // Delete removes key
}

// Credentials identifies the user's Spotify application.
//
// Values are arbitrary strings and are never validated.
type Credentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// TokenSet is the unit of authenticated session state.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // unix milliseconds
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// Expiry returns ExpiresAt as a [time.Time].
func (t *TokenSet) Expiry() time.Time {
	return time.UnixMilli(t.ExpiresAt)
}

// Valid reports whether the access token is still usable at now.
func (t *TokenSet) Valid(now time.Time) bool {
	return t != nil && t.AccessToken != "" && now.Before(t.Expiry())
}

// NeedsRefresh reports whether now falls inside window of the expiry (or past it).
func (t *TokenSet) NeedsRefresh(now time.Time, window time.Duration) bool {
	return !now.Before(t.Expiry().Add(-window))
}

// Security event kinds.
const (
	EventStateMismatch = "state_mismatch"
)

// SecurityEvent records an authorization response that failed an anti-forgery check.
type SecurityEvent struct {
	ID        string
	Kind      string
	Detail    string
	CreatedAt time.Time
}
