package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bniasoff/photoevents-manager/internal/clients/google"
	"github.com/bniasoff/photoevents-manager/internal/common"
	"github.com/bniasoff/photoevents-manager/internal/interfaces"
	"github.com/bniasoff/photoevents-manager/internal/models"
)

var (
	// ErrUserIDRequired indicates the caller omitted the user identifier.
	ErrUserIDRequired = errors.New("userId is required")

	// ErrNotAuthenticated indicates no credential record exists for the user.
	ErrNotAuthenticated = errors.New("not authenticated with Google")

	// ErrNeedsReauth indicates the stored credentials can no longer be used
	// or refreshed; the user must go through the consent flow again.
	ErrNeedsReauth = errors.New("authentication expired, please re-authenticate")
)

const (
	// DefaultStateTTL bounds how long a pending consent round-trip stays valid.
	DefaultStateTTL = 10 * time.Minute

	// DefaultRefreshSkew is how far before expiry a token is refreshed
	// proactively, so calls never go out with a token about to lapse.
	DefaultRefreshSkew = 5 * time.Minute
)

// Manager owns the credential lifecycle for Google Calendar access. All
// token reads and writes go through the store; the manager itself holds no
// mutable credential state, so concurrent requests each work from their own
// snapshot of the record.
type Manager struct {
	tokens      interfaces.TokenStore
	google      interfaces.GoogleClient
	stateSecret []byte
	stateTTL    time.Duration
	refreshSkew time.Duration
	logger      *common.Logger
	now         func() time.Time
}

// ManagerOption configures the manager
type ManagerOption func(*Manager)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithStateTTL sets the state parameter lifetime
func WithStateTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.stateTTL = ttl
		}
	}
}

// WithRefreshSkew sets the proactive refresh window
func WithRefreshSkew(skew time.Duration) ManagerOption {
	return func(m *Manager) {
		if skew >= 0 {
			m.refreshSkew = skew
		}
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a credential lifecycle manager
func NewManager(tokens interfaces.TokenStore, googleClient interfaces.GoogleClient, stateSecret string, opts ...ManagerOption) *Manager {
	m := &Manager{
		tokens:      tokens,
		google:      googleClient,
		stateSecret: []byte(stateSecret),
		stateTTL:    DefaultStateTTL,
		refreshSkew: DefaultRefreshSkew,
		logger:      common.NewSilentLogger(),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// BeginAuthorization starts the consent flow for a user and returns the
// Google consent URL to redirect to.
func (m *Manager) BeginAuthorization(userID string) (string, error) {
	if userID == "" {
		return "", ErrUserIDRequired
	}

	state, err := signState(m.stateSecret, userID, m.stateTTL, m.now())
	if err != nil {
		return "", err
	}

	m.logger.Info().Str("user_id", userID).Msg("Beginning Google authorization")
	return m.google.AuthCodeURL(state), nil
}

// CompleteAuthorization finishes the consent flow: it verifies the state
// parameter, exchanges the authorization code, and persists the credential
// record. Returns the user ID the flow was started for.
func (m *Manager) CompleteAuthorization(ctx context.Context, state, code string) (string, error) {
	userID, err := verifyState(m.stateSecret, state, m.now())
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", fmt.Errorf("%w: missing authorization code", ErrInvalidState)
	}

	provided, err := m.google.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	record := &models.GoogleToken{
		UserID:       userID,
		AccessToken:  provided.AccessToken,
		RefreshToken: provided.RefreshToken,
		ExpiresAt:    provided.ExpiresAt,
		UpdatedAt:    m.now(),
	}

	// A consent that somehow comes back without a refresh token must not
	// wipe one we already hold.
	if record.RefreshToken == "" {
		if existing, getErr := m.tokens.Get(ctx, userID); getErr == nil {
			record.RefreshToken = existing.RefreshToken
		}
		if record.RefreshToken == "" {
			m.logger.Warn().Str("user_id", userID).Msg("No refresh token issued; session will require re-authentication at expiry")
		}
	}

	if err := m.tokens.Save(ctx, record); err != nil {
		return "", fmt.Errorf("failed to persist tokens: %w", err)
	}

	m.logger.Info().
		Str("user_id", userID).
		Bool("has_refresh_token", record.Refreshable()).
		Time("expires_at", record.ExpiresAt).
		Msg("Google authorization complete")

	return userID, nil
}

// Status reports the user's authentication state without contacting Google
// or mutating anything.
func (m *Manager) Status(ctx context.Context, userID string) (*models.TokenStatus, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	token, err := m.tokens.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			return &models.TokenStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read token record: %w", err)
	}

	return &models.TokenStatus{
		Authenticated:   true,
		HasRefreshToken: token.Refreshable(),
		TokenExpired:    token.Expired(m.now()),
	}, nil
}

// SignOut removes the user's credential record. Signing out a user with no
// record is not an error.
func (m *Manager) SignOut(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	if err := m.tokens.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete token record: %w", err)
	}

	m.logger.Info().Str("user_id", userID).Msg("User signed out")
	return nil
}

// WithAuthorizedClient runs op with a valid access token for userID. The
// token is refreshed proactively when expired or inside the refresh window.
// If op still fails with a 401, the token is refreshed once more and op is
// retried exactly once; a second 401 means re-authentication is required.
func (m *Manager) WithAuthorizedClient(ctx context.Context, userID string, op func(ctx context.Context, accessToken string) error) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	token, err := m.tokens.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			return ErrNotAuthenticated
		}
		return fmt.Errorf("failed to read token record: %w", err)
	}

	if token.Expired(m.now()) && !token.Refreshable() {
		return ErrNeedsReauth
	}
	if m.needsRefresh(token) {
		token, err = m.refresh(ctx, token)
		if err != nil {
			return err
		}
	}

	opErr := op(ctx, token.AccessToken)
	if opErr == nil {
		return nil
	}
	if !isUnauthorized(opErr) {
		return opErr
	}

	// The provider rejected a token we thought was valid. Without a refresh
	// token there is nothing to retry with, but the record is kept: the
	// failure may be transient on Google's side and deleting would force a
	// full re-consent.
	if !token.Refreshable() {
		m.logger.Warn().Str("user_id", userID).Msg("Access token rejected and no refresh token held")
		return ErrNeedsReauth
	}

	m.logger.Info().Str("user_id", userID).Msg("Access token rejected, refreshing and retrying once")

	token, err = m.refresh(ctx, token)
	if err != nil {
		return err
	}

	retryErr := op(ctx, token.AccessToken)
	if retryErr != nil && isUnauthorized(retryErr) {
		// Fresh token, still rejected. The grant is dead in a way the token
		// endpoint did not report; purge so status stops claiming otherwise.
		m.logger.Warn().Str("user_id", userID).Msg("Access token rejected after refresh, clearing credential record")
		if delErr := m.tokens.Delete(ctx, userID); delErr != nil {
			m.logger.Error().Err(delErr).Str("user_id", userID).Msg("Failed to clear credential record")
		}
		return ErrNeedsReauth
	}
	return retryErr
}

// needsRefresh reports whether the token is expired or close enough to
// expiry that it should be renewed before use.
func (m *Manager) needsRefresh(token *models.GoogleToken) bool {
	return token.Refreshable() && m.now().Add(m.refreshSkew).After(token.ExpiresAt)
}

// refresh renews the access token and persists the updated record. A
// refresh response without a refresh token keeps the one already held. An
// invalid_grant response means the grant was revoked; the record is removed
// so status reporting stops claiming the user is authenticated.
func (m *Manager) refresh(ctx context.Context, token *models.GoogleToken) (*models.GoogleToken, error) {
	if !token.Refreshable() {
		if token.Expired(m.now()) {
			return nil, ErrNeedsReauth
		}
		return token, nil
	}

	provided, err := m.google.Refresh(ctx, token.RefreshToken)
	if err != nil {
		if errors.Is(err, google.ErrInvalidGrant) {
			m.logger.Warn().Str("user_id", token.UserID).Msg("Refresh token revoked, clearing credential record")
			if delErr := m.tokens.Delete(ctx, token.UserID); delErr != nil {
				m.logger.Error().Err(delErr).Str("user_id", token.UserID).Msg("Failed to clear revoked credential record")
			}
			return nil, ErrNeedsReauth
		}
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}

	updated := &models.GoogleToken{
		UserID:       token.UserID,
		AccessToken:  provided.AccessToken,
		RefreshToken: provided.RefreshToken,
		ExpiresAt:    provided.ExpiresAt,
		UpdatedAt:    m.now(),
	}
	if updated.RefreshToken == "" {
		updated.RefreshToken = token.RefreshToken
	}

	if err := m.tokens.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	m.logger.Debug().
		Str("user_id", token.UserID).
		Time("expires_at", updated.ExpiresAt).
		Msg("Access token refreshed")

	return updated, nil
}

// isUnauthorized reports whether err is a 401 from the Google API.
func isUnauthorized(err error) bool {
	var apiErr *google.APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}
