package interfaces

import (
	"context"

	"github.com/bniasoff/photoevents-manager/internal/models"
)

// GoogleClient talks to Google's OAuth token endpoint and Calendar API.
type GoogleClient interface {
	// AuthCodeURL builds the consent URL for the authorization-code flow,
	// requesting offline access and forced consent so a refresh token is
	// issued even for returning users.
	AuthCodeURL(state string) string

	// Exchange swaps an authorization code for tokens.
	Exchange(ctx context.Context, code string) (*models.ProviderToken, error)

	// Refresh mints a new access token from a refresh token. Returns
	// google.ErrInvalidGrant when the provider reports the refresh token
	// revoked or expired.
	Refresh(ctx context.Context, refreshToken string) (*models.ProviderToken, error)

	// InsertEvent creates a calendar event using the given access token.
	// A 401 from the API surfaces as a *google.APIError.
	InsertEvent(ctx context.Context, accessToken string, input *models.CalendarEventInput) (*models.CalendarEventResult, error)
}
