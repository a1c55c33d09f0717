package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/bniasoff/photoevents-manager/internal/auth"
	"github.com/bniasoff/photoevents-manager/internal/clients/google"
	"github.com/bniasoff/photoevents-manager/internal/models"
)

// createEventRequest is the payload for POST /calendar/create-event. The
// event details arrive nested under "event", matching what the mobile client
// sends.
type createEventRequest struct {
	UserID string                    `json:"userId"`
	Event  models.CalendarEventInput `json:"event"`
}

// handleCalendarCreateEvent handles POST /calendar/create-event. The call
// runs under the credential lifecycle: the access token is refreshed before
// use when needed, and a rejected token triggers one refresh-and-retry.
func (s *Server) handleCalendarCreateEvent(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req createEventRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if req.Event.Name == "" {
		WriteError(w, http.StatusBadRequest, "event.name is required")
		return
	}
	if req.Event.ScheduledTime.IsZero() {
		WriteError(w, http.StatusBadRequest, "event.scheduledTime is required")
		return
	}

	input := &req.Event

	var result *models.CalendarEventResult
	err := s.app.AuthManager.WithAuthorizedClient(r.Context(), req.UserID, func(ctx context.Context, accessToken string) error {
		created, insertErr := s.app.GoogleClient.InsertEvent(ctx, accessToken, input)
		if insertErr != nil {
			return insertErr
		}
		result = created
		return nil
	})
	if err != nil {
		s.writeAuthError(w, err)
		return
	}

	s.logger.Info().
		Str("user_id", req.UserID).
		Str("calendar_event_id", result.EventID).
		Msg("Calendar event created")

	WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"eventId":  result.EventID,
		"eventUrl": result.EventURL,
	})
}

// writeAuthError maps credential lifecycle errors onto HTTP responses. The
// needsReauth flag is what the mobile client keys its sign-in prompt on.
func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUserIDRequired):
		WriteError(w, http.StatusBadRequest, "userId is required")
	case errors.Is(err, auth.ErrNotAuthenticated):
		WriteJSON(w, http.StatusUnauthorized, map[string]any{
			"error":       "Not authenticated with Google",
			"needsReauth": true,
		})
	case errors.Is(err, auth.ErrNeedsReauth):
		WriteJSON(w, http.StatusUnauthorized, map[string]any{
			"error":       "Authentication expired, please re-authenticate",
			"needsReauth": true,
		})
	default:
		var apiErr *google.APIError
		if errors.As(err, &apiErr) {
			s.logger.Error().Err(err).Msg("Google API error")
			WriteError(w, http.StatusBadGateway, "Google Calendar request failed")
			return
		}
		s.logger.Error().Err(err).Msg("Calendar operation failed")
		WriteError(w, http.StatusInternalServerError, "Failed to create calendar event")
	}
}
