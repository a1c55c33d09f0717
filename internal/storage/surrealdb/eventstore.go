package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bniasoff/photoevents-manager/internal/common"
	"github.com/bniasoff/photoevents-manager/internal/interfaces"
	"github.com/bniasoff/photoevents-manager/internal/models"
)

// eventRow is the DB-level representation of a booking.
type eventRow struct {
	EventID   string    `json:"event_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Place     string    `json:"place"`
	Address   string    `json:"address"`
	Contact   string    `json:"contact"`
	Phone     string    `json:"phone"`
	Charge    float64   `json:"charge"`
	Payment   float64   `json:"payment"`
	Paid      bool      `json:"paid"`
	Ready     bool      `json:"ready"`
	Sent      bool      `json:"sent"`
	Notes     string    `json:"notes"`
	EventDate time.Time `json:"event_date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *eventRow) toModel() *models.Event {
	return &models.Event{
		ID:        r.EventID,
		Name:      r.Name,
		Category:  r.Category,
		Place:     r.Place,
		Address:   r.Address,
		Contact:   r.Contact,
		Phone:     r.Phone,
		Charge:    r.Charge,
		Payment:   r.Payment,
		Paid:      r.Paid,
		Ready:     r.Ready,
		Sent:      r.Sent,
		Notes:     r.Notes,
		EventDate: r.EventDate,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// EventStore implements interfaces.EventStore using SurrealDB.
type EventStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewEventStore creates a new EventStore.
func NewEventStore(db *surrealdb.DB, logger *common.Logger) *EventStore {
	return &EventStore{db: db, logger: logger}
}

func (s *EventStore) Save(ctx context.Context, event *models.Event) error {
	sql := `UPSERT $rid SET
		event_id = $event_id, name = $name, category = $category,
		place = $place, address = $address, contact = $contact, phone = $phone,
		charge = $charge, payment = $payment, paid = $paid,
		ready = $ready, sent = $sent, notes = $notes,
		event_date = $event_date, start_time = $start_time, end_time = $end_time,
		created_at = $created_at, updated_at = $updated_at`
	vars := map[string]any{
		"rid":        surrealmodels.NewRecordID("photo_event", event.ID),
		"event_id":   event.ID,
		"name":       event.Name,
		"category":   event.Category,
		"place":      event.Place,
		"address":    event.Address,
		"contact":    event.Contact,
		"phone":      event.Phone,
		"charge":     event.Charge,
		"payment":    event.Payment,
		"paid":       event.Paid,
		"ready":      event.Ready,
		"sent":       event.Sent,
		"notes":      event.Notes,
		"event_date": event.EventDate,
		"start_time": event.StartTime,
		"end_time":   event.EndTime,
		"created_at": event.CreatedAt,
		"updated_at": event.UpdatedAt,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

func (s *EventStore) Get(ctx context.Context, id string) (*models.Event, error) {
	sql := "SELECT * FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("photo_event", id),
	}
	results, err := surrealdb.Query[[]eventRow](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, models.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, models.ErrEventNotFound
	}
	row := (*results)[0].Result[0]
	return row.toModel(), nil
}

func (s *EventStore) List(ctx context.Context) ([]*models.Event, error) {
	sql := "SELECT * FROM photo_event"
	results, err := surrealdb.Query[[]eventRow](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []*models.Event{}, nil
	}
	rows := (*results)[0].Result
	list := make([]*models.Event, 0, len(rows))
	for i := range rows {
		list = append(list, rows[i].toModel())
	}
	return list, nil
}

func (s *EventStore) Delete(ctx context.Context, id string) error {
	rid := surrealmodels.NewRecordID("photo_event", id)
	_, err := surrealdb.Delete[eventRow](ctx, s.db, rid)
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// Compile-time check
var _ interfaces.EventStore = (*EventStore)(nil)
