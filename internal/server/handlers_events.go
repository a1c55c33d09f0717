package server

import (
	"errors"
	"net/http"

	"github.com/bniasoff/photoevents-manager/internal/models"
)

// routeEvents handles /photoevents (collection).
func (s *Server) routeEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleEventList(w, r)
	case http.MethodPost:
		s.handleEventCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// routeEvent handles /photoevents/{id}.
func (s *Server) routeEvent(w http.ResponseWriter, r *http.Request) {
	id := PathParam(r, "/photoevents/", "")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Event ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleEventGet(w, r, id)
	case http.MethodPatch, http.MethodPut:
		s.handleEventUpdate(w, r, id)
	case http.MethodDelete:
		s.handleEventDelete(w, r, id)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
	}
}

func (s *Server) handleEventList(w http.ResponseWriter, r *http.Request) {
	list, err := s.app.EventService.ListEvents(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list events")
		WriteError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleEventCreate(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if !DecodeJSON(w, r, &event) {
		return
	}

	created, err := s.app.EventService.CreateEvent(r.Context(), &event)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleEventGet(w http.ResponseWriter, r *http.Request, id string) {
	event, err := s.app.EventService.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrEventNotFound) {
			WriteError(w, http.StatusNotFound, "Event not found")
			return
		}
		s.logger.Error().Err(err).Str("event_id", id).Msg("Failed to get event")
		WriteError(w, http.StatusInternalServerError, "Failed to get event")
		return
	}
	WriteJSON(w, http.StatusOK, event)
}

func (s *Server) handleEventUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var update models.EventUpdate
	if !DecodeJSON(w, r, &update) {
		return
	}

	updated, err := s.app.EventService.UpdateEvent(r.Context(), id, &update)
	if err != nil {
		if errors.Is(err, models.ErrEventNotFound) {
			WriteError(w, http.StatusNotFound, "Event not found")
			return
		}
		s.logger.Error().Err(err).Str("event_id", id).Msg("Failed to update event")
		WriteError(w, http.StatusInternalServerError, "Failed to update event")
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) handleEventDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.app.EventService.DeleteEvent(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrEventNotFound) {
			WriteError(w, http.StatusNotFound, "Event not found")
			return
		}
		s.logger.Error().Err(err).Str("event_id", id).Msg("Failed to delete event")
		WriteError(w, http.StatusInternalServerError, "Failed to delete event")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleEventsGroupByDate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	groups, err := s.app.EventService.GroupByDate(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to group events by date")
		WriteError(w, http.StatusInternalServerError, "Failed to group events")
		return
	}
	WriteJSON(w, http.StatusOK, groups)
}

func (s *Server) handleEventsGroupByStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	groups, err := s.app.EventService.GroupByStatus(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to group events by status")
		WriteError(w, http.StatusInternalServerError, "Failed to group events")
		return
	}
	WriteJSON(w, http.StatusOK, groups)
}
