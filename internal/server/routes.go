package server

import (
	"net/http"
	"time"

	"github.com/bniasoff/photoevents-manager/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Google authentication
	mux.HandleFunc("/auth/google", s.handleAuthGoogle)
	mux.HandleFunc("/oauth2callback", s.handleOAuthCallback)
	mux.HandleFunc("/auth/status", s.handleAuthStatus)
	mux.HandleFunc("/auth/signout", s.handleAuthSignout)

	// Calendar
	mux.HandleFunc("/calendar/create-event", s.handleCalendarCreateEvent)

	// Bookings
	mux.HandleFunc("/photoevents/groups/date", s.handleEventsGroupByDate)
	mux.HandleFunc("/photoevents/groups/status", s.handleEventsGroupByStatus)
	mux.HandleFunc("/photoevents/", s.routeEvent)
	mux.HandleFunc("/photoevents", s.routeEvents)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
