// Package models defines the domain types for the PhotoEvents server
package models

import (
	"errors"
	"time"
)

// ErrTokenNotFound indicates no credential record exists for a user.
var ErrTokenNotFound = errors.New("token not found")

// GoogleToken is the durable credential record for one user's Google
// Calendar authorization. At most one record exists per UserID; the record
// is the sole source of truth for whether the user is authenticated.
type GoogleToken struct {
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Expired reports whether the access token has passed its expiry.
func (t *GoogleToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Refreshable reports whether the record carries a refresh token. Records
// without one cannot be silently refreshed; expiry forces re-authentication.
func (t *GoogleToken) Refreshable() bool {
	return t.RefreshToken != ""
}

// TokenStatus is the authentication status reported to the mobile client.
type TokenStatus struct {
	Authenticated   bool `json:"authenticated"`
	HasRefreshToken bool `json:"hasRefreshToken"`
	TokenExpired    bool `json:"tokenExpired"`
}

// ProviderToken is what the provider returned from a code exchange or a
// refresh. RefreshToken may be empty: Google only issues one on the first
// consent (or when prompt=consent forces re-issuance), and refresh responses
// normally omit it.
type ProviderToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
