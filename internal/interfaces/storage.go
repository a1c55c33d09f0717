// Package interfaces defines service contracts for the PhotoEvents server
package interfaces

import (
	"context"

	"github.com/bniasoff/photoevents-manager/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	TokenStore() TokenStore
	EventStore() EventStore

	// Lifecycle
	Close() error
}

// TokenStore persists Google credential records, one per user. The backing
// store provides atomic upsert/delete per key, which is the only concurrency
// guarantee the token lifecycle relies on.
type TokenStore interface {
	// Save upserts the record keyed by token.UserID.
	Save(ctx context.Context, token *models.GoogleToken) error

	// Get returns the record for userID, or models.ErrTokenNotFound.
	Get(ctx context.Context, userID string) (*models.GoogleToken, error)

	// Delete removes the record. Deleting a non-existent record is not an error.
	Delete(ctx context.Context, userID string) error
}

// EventStore persists studio bookings.
type EventStore interface {
	Save(ctx context.Context, event *models.Event) error
	Get(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context) ([]*models.Event, error)
	Delete(ctx context.Context, id string) error
}
