// Package events provides studio booking management and reporting views
package events

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bniasoff/photoevents-manager/internal/common"
	"github.com/bniasoff/photoevents-manager/internal/interfaces"
	"github.com/bniasoff/photoevents-manager/internal/models"
)

// Compile-time interface check
var _ interfaces.EventService = (*Service)(nil)

// Service implements EventService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	now     func() time.Time
}

// ServiceOption configures the service
type ServiceOption func(*Service)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new event service
func NewService(storage interfaces.StorageManager, logger *common.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEvent stores a new booking, assigning an ID when none is given.
func (s *Service) CreateEvent(ctx context.Context, event *models.Event) (*models.Event, error) {
	if event.Name == "" {
		return nil, fmt.Errorf("event name is required")
	}
	if event.EventDate.IsZero() {
		return nil, fmt.Errorf("event date is required")
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := s.now()
	event.CreatedAt = now
	event.UpdatedAt = now

	if err := s.storage.EventStore().Save(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to save event: %w", err)
	}

	s.logger.Info().Str("event_id", event.ID).Str("name", event.Name).Msg("Event created")
	return event, nil
}

// GetEvent retrieves a booking by ID
func (s *Service) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.storage.EventStore().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents returns all bookings ordered by event date
func (s *Service) ListEvents(ctx context.Context) ([]*models.Event, error) {
	list, err := s.storage.EventStore().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	sortByStart(list)
	return list, nil
}

// UpdateEvent applies a partial update; nil fields are left unchanged.
func (s *Service) UpdateEvent(ctx context.Context, id string, update *models.EventUpdate) (*models.Event, error) {
	event, err := s.storage.EventStore().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	applyUpdate(event, update)
	event.UpdatedAt = s.now()

	if err := s.storage.EventStore().Save(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to save event: %w", err)
	}

	s.logger.Info().Str("event_id", event.ID).Msg("Event updated")
	return event, nil
}

// DeleteEvent removes a booking
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	if _, err := s.storage.EventStore().Get(ctx, id); err != nil {
		return err
	}
	if err := s.storage.EventStore().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	s.logger.Info().Str("event_id", id).Msg("Event deleted")
	return nil
}

// GroupByDate buckets events relative to the current week and month. Weeks
// start on Sunday. Week buckets take precedence over month buckets, so an
// event in both thisWeek and thisMonth lands in thisWeek. Events older than
// last week are dropped from the view.
func (s *Service) GroupByDate(ctx context.Context) (map[models.DateGroupKey][]*models.Event, error) {
	list, err := s.storage.EventStore().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	sortByStart(list)

	now := s.now()
	weekStart := startOfWeek(now)
	weekEnd := weekStart.AddDate(0, 0, 7)
	lastWeekStart := weekStart.AddDate(0, 0, -7)
	nextWeekEnd := weekEnd.AddDate(0, 0, 7)

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)
	lastMonthStart := monthStart.AddDate(0, -1, 0)
	nextMonthEnd := monthEnd.AddDate(0, 1, 0)

	groups := make(map[models.DateGroupKey][]*models.Event)
	for _, event := range list {
		start := event.StartDateTime()

		var key models.DateGroupKey
		switch {
		case start.Before(lastWeekStart) && start.Before(lastMonthStart):
			continue
		case !start.Before(lastWeekStart) && start.Before(weekStart):
			key = models.DateGroupLastWeek
		case !start.Before(weekStart) && start.Before(weekEnd):
			key = models.DateGroupThisWeek
		case !start.Before(weekEnd) && start.Before(nextWeekEnd):
			key = models.DateGroupNextWeek
		case !start.Before(lastMonthStart) && start.Before(monthStart):
			key = models.DateGroupLastMonth
		case start.Before(monthEnd):
			key = models.DateGroupThisMonth
		case start.Before(nextMonthEnd):
			key = models.DateGroupNextMonth
		default:
			key = models.DateGroupFuture
		}
		groups[key] = append(groups[key], event)
	}

	return groups, nil
}

// GroupByStatus buckets events needing follow-up. An event can appear in
// more than one bucket, a past unpaid shoot that is not ready shows up in
// both unpaid and notReady. An event counts as past once its calendar day is
// behind today, the start time plays no part in the classification.
func (s *Service) GroupByStatus(ctx context.Context) (map[models.StatusGroupKey][]*models.Event, error) {
	list, err := s.storage.EventStore().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	sortByStart(list)

	today := startOfDay(s.now())
	groups := make(map[models.StatusGroupKey][]*models.Event)
	for _, event := range list {
		past := startOfDay(event.EventDate).Before(today)
		if past && !event.Paid && event.Balance() > 0 {
			groups[models.StatusGroupUnpaid] = append(groups[models.StatusGroupUnpaid], event)
		}
		if past && !event.Ready {
			groups[models.StatusGroupNotReady] = append(groups[models.StatusGroupNotReady], event)
		}
		if event.Ready && !event.Sent {
			groups[models.StatusGroupReadyNotSent] = append(groups[models.StatusGroupReadyNotSent], event)
		}
	}

	return groups, nil
}

// startOfWeek returns midnight of the Sunday on or before t.
func startOfWeek(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, -int(t.Weekday()))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sortByStart(list []*models.Event) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].StartDateTime().Before(list[j].StartDateTime())
	})
}

func applyUpdate(event *models.Event, update *models.EventUpdate) {
	if update.Name != nil {
		event.Name = *update.Name
	}
	if update.Category != nil {
		event.Category = *update.Category
	}
	if update.Place != nil {
		event.Place = *update.Place
	}
	if update.Address != nil {
		event.Address = *update.Address
	}
	if update.Contact != nil {
		event.Contact = *update.Contact
	}
	if update.Phone != nil {
		event.Phone = *update.Phone
	}
	if update.Charge != nil {
		event.Charge = *update.Charge
	}
	if update.Payment != nil {
		event.Payment = *update.Payment
	}
	if update.Paid != nil {
		event.Paid = *update.Paid
	}
	if update.Ready != nil {
		event.Ready = *update.Ready
	}
	if update.Sent != nil {
		event.Sent = *update.Sent
	}
	if update.Notes != nil {
		event.Notes = *update.Notes
	}
	if update.EventDate != nil {
		event.EventDate = *update.EventDate
	}
	if update.StartTime != nil {
		event.StartTime = *update.StartTime
	}
	if update.EndTime != nil {
		event.EndTime = *update.EndTime
	}
}
