// Package auth implements the Google credential lifecycle: consent flow,
// token persistence, proactive refresh, and authorized API calls.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidState indicates the callback state parameter failed verification.
var ErrInvalidState = errors.New("invalid state parameter")

// stateClaims binds a consent round-trip to a user and an expiry window.
type stateClaims struct {
	jwt.RegisteredClaims
}

// signState issues a short-lived signed state parameter carrying the user ID.
// The signature proves the callback originated from a flow this server began;
// the expiry bounds how long a pending consent stays valid.
func signState(secret []byte, userID string, ttl time.Duration, now time.Time) (string, error) {
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// verifyState validates the state parameter and returns the user ID it was
// issued for.
func verifyState(secret []byte, state string, now time.Time) (string, error) {
	claims := &stateClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidState
	}
	return claims.Subject, nil
}
