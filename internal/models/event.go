package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrEventNotFound indicates no event exists for the requested ID.
var ErrEventNotFound = errors.New("event not found")

// Event is a studio booking.
type Event struct {
	ID        string    `json:"id"`
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
	Notes     string    `json:"notes,omitempty"`
	EventDate time.Time `json:"event_date"`
	StartTime string    `json:"start_time,omitempty"` // HH:MM, local to the studio
	EndTime   string    `json:"end_time,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Balance returns the outstanding amount on the booking.
func (e *Event) Balance() float64 {
	return e.Charge - e.Payment
}

// StartDateTime combines EventDate with StartTime. Events without a start
// time default to noon so date-only bookings sort into the right day.
func (e *Event) StartDateTime() time.Time {
	hour, min := 12, 0
	if e.StartTime != "" {
		if _, err := fmt.Sscanf(e.StartTime, "%d:%d", &hour, &min); err != nil {
			hour, min = 12, 0
		}
	}
	d := e.EventDate
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, d.Location())
}

// EventUpdate carries a partial update; nil fields are left unchanged.
type EventUpdate struct {
	Name      *string    `json:"name,omitempty"`
	Category  *string    `json:"category,omitempty"`
	Place     *string    `json:"place,omitempty"`
	Address   *string    `json:"address,omitempty"`
	Contact   *string    `json:"contact,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Charge    *float64   `json:"charge,omitempty"`
	Payment   *float64   `json:"payment,omitempty"`
	Paid      *bool      `json:"paid,omitempty"`
	Ready     *bool      `json:"ready,omitempty"`
	Sent      *bool      `json:"sent,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	EventDate *time.Time `json:"event_date,omitempty"`
	StartTime *string    `json:"start_time,omitempty"`
	EndTime   *string    `json:"end_time,omitempty"`
}

// DateGroupKey buckets events relative to the current week and month.
type DateGroupKey string

const (
	DateGroupLastWeek  DateGroupKey = "lastWeek"
	DateGroupThisWeek  DateGroupKey = "thisWeek"
	DateGroupNextWeek  DateGroupKey = "nextWeek"
	DateGroupLastMonth DateGroupKey = "lastMonth"
	DateGroupThisMonth DateGroupKey = "thisMonth"
	DateGroupNextMonth DateGroupKey = "nextMonth"
	DateGroupFuture    DateGroupKey = "future"
)

// StatusGroupKey buckets events by follow-up state.
type StatusGroupKey string

const (
	StatusGroupUnpaid       StatusGroupKey = "unpaid"
	StatusGroupNotReady     StatusGroupKey = "notReady"
	StatusGroupReadyNotSent StatusGroupKey = "readyNotSent"
)

// CalendarEventInput is the payload the mobile client sends when exporting
// a booking to Google Calendar.
type CalendarEventInput struct {
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Location      string    `json:"location"`
	ContactName   string    `json:"contactName"`
	Phone         string    `json:"phone"`
	Notes         string    `json:"notes"`
	ScheduledTime time.Time `json:"scheduledTime"`
}

// CalendarEventResult identifies the created Google Calendar event.
type CalendarEventResult struct {
	EventID  string `json:"eventId"`
	EventURL string `json:"eventUrl"`
}
