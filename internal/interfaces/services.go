package interfaces

import (
	"context"

	"github.com/bniasoff/photoevents-manager/internal/models"
)

// EventService manages studio bookings and their reporting views.
type EventService interface {
	CreateEvent(ctx context.Context, event *models.Event) (*models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]*models.Event, error)
	UpdateEvent(ctx context.Context, id string, update *models.EventUpdate) (*models.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	// GroupByDate buckets upcoming and recent events relative to the
	// current week and month. Events before last week are omitted.
	GroupByDate(ctx context.Context) (map[models.DateGroupKey][]*models.Event, error)

	// GroupByStatus buckets events needing follow-up: unpaid, not ready,
	// and ready but not sent.
	GroupByStatus(ctx context.Context) (map[models.StatusGroupKey][]*models.Event, error)
}
