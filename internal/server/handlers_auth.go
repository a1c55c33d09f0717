package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bniasoff/photoevents-manager/internal/auth"
)

// handleAuthGoogle handles GET /auth/google?userId=...
// Returns the consent URL; the mobile client opens it in the system browser.
func (s *Server) handleAuthGoogle(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	userID := r.URL.Query().Get("userId")
	authURL, err := s.app.AuthManager.BeginAuthorization(userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserIDRequired) {
			WriteError(w, http.StatusBadRequest, "userId query parameter is required")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to begin authorization")
		WriteError(w, http.StatusInternalServerError, "Failed to begin authorization")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"authUrl": authURL})
}

// handleOAuthCallback handles GET /oauth2callback, the redirect target
// registered with Google. Responses are HTML because a browser is looking.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		s.logger.Warn().Str("error", errParam).Msg("Consent denied at Google")
		renderFailurePage(w, http.StatusBadRequest, "Google reported: "+errParam)
		return
	}

	userID, err := s.app.AuthManager.CompleteAuthorization(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidState) {
			s.logger.Warn().Err(err).Msg("Callback with invalid state")
			renderFailurePage(w, http.StatusBadRequest, "The sign-in link is invalid or has expired.")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to complete authorization")
		renderFailurePage(w, http.StatusInternalServerError, "Something went wrong while connecting to Google.")
		return
	}

	s.logger.Info().Str("user_id", userID).Msg("OAuth callback completed")
	renderSuccessPage(w)
}

// handleAuthStatus handles GET /auth/status?userId=...
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	userID := r.URL.Query().Get("userId")
	status, err := s.app.AuthManager.Status(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserIDRequired) {
			WriteError(w, http.StatusBadRequest, "userId query parameter is required")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to read auth status")
		WriteError(w, http.StatusInternalServerError, "Failed to read authentication status")
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// handleAuthSignout handles POST /auth/signout. The user ID comes from the
// JSON body, with the query parameter accepted as a fallback.
func (s *Server) handleAuthSignout(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var body struct {
		UserID string `json:"userId"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}
	userID := body.UserID
	if userID == "" {
		userID = r.URL.Query().Get("userId")
	}

	if err := s.app.AuthManager.SignOut(r.Context(), userID); err != nil {
		if errors.Is(err, auth.ErrUserIDRequired) {
			WriteError(w, http.StatusBadRequest, "userId is required")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to sign out")
		WriteError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
