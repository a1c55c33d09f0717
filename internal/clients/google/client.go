// Package google provides a client for Google's OAuth2 token endpoint and
// the Calendar v3 API
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bniasoff/photoevents-manager/internal/common"
	"github.com/bniasoff/photoevents-manager/internal/interfaces"
	"github.com/bniasoff/photoevents-manager/internal/models"
)

const (
	DefaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	DefaultTokenURL    = "https://oauth2.googleapis.com/token"
	DefaultCalendarURL = "https://www.googleapis.com/calendar/v3"
	DefaultTimeout     = 30 * time.Second
	DefaultRateLimit   = 10 // requests per second

	// CalendarScope is the only scope the server requests.
	CalendarScope = "https://www.googleapis.com/auth/calendar.events"

	// defaultEventDuration is used when the booking has no explicit end.
	defaultEventDuration = 2 * time.Hour
)

// ErrInvalidGrant indicates the provider rejected a refresh token as
// revoked, expired, or reused. Callers treat this as a terminal condition
// requiring interactive re-authentication.
var ErrInvalidGrant = errors.New("invalid_grant")

// APIError represents a non-2xx response from a Google endpoint.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Google API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Unauthorized reports whether the error is an authorization failure.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// Client implements the GoogleClient interface
type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	calendarID   string
	timezone     string
	authURL      string
	tokenURL     string
	calendarURL  string
	httpClient   *http.Client
	logger       *common.Logger
	limiter      *rate.Limiter
	now          func() time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithCalendarID sets the target calendar (default "primary")
func WithCalendarID(calendarID string) ClientOption {
	return func(c *Client) {
		if calendarID != "" {
			c.calendarID = calendarID
		}
	}
}

// WithTimezone sets the IANA timezone applied to created events
func WithTimezone(tz string) ClientOption {
	return func(c *Client) {
		if tz != "" {
			c.timezone = tz
		}
	}
}

// WithEndpoints overrides the Google endpoints, used by tests.
func WithEndpoints(authURL, tokenURL, calendarURL string) ClientOption {
	return func(c *Client) {
		if authURL != "" {
			c.authURL = authURL
		}
		if tokenURL != "" {
			c.tokenURL = tokenURL
		}
		if calendarURL != "" {
			c.calendarURL = calendarURL
		}
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new Google client
func NewClient(clientID, clientSecret, redirectURI string, opts ...ClientOption) *Client {
	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		calendarID:   "primary",
		timezone:     "America/New_York",
		authURL:      DefaultAuthURL,
		tokenURL:     DefaultTokenURL,
		calendarURL:  DefaultCalendarURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AuthCodeURL builds the consent URL. access_type=offline plus
// prompt=consent forces Google to issue a refresh token even when the user
// has previously granted access.
func (c *Client) AuthCodeURL(state string) string {
	q := url.Values{
		"client_id":     {c.clientID},
		"redirect_uri":  {c.redirectURI},
		"response_type": {"code"},
		"scope":         {CalendarScope},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
		"state":         {state},
	}
	return c.authURL + "?" + q.Encode()
}

// tokenResponse is the wire format of Google's token endpoint.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Exchange swaps an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (*models.ProviderToken, error) {
	return c.postToken(ctx, url.Values{
		"code":          {code},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"redirect_uri":  {c.redirectURI},
		"grant_type":    {"authorization_code"},
	})
}

// Refresh mints a new access token from a refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.ProviderToken, error) {
	return c.postToken(ctx, url.Values{
		"refresh_token": {refreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"refresh_token"},
	})
}

// postToken performs a rate-limited POST against the token endpoint and
// converts the relative expires_in to an absolute expiry.
func (c *Client) postToken(ctx context.Context, form url.Values) (*models.ProviderToken, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug().Str("grant_type", form.Get("grant_type")).Msg("Google token request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	if tr.Error != "" || resp.StatusCode != http.StatusOK {
		if tr.Error == "invalid_grant" {
			return nil, fmt.Errorf("token endpoint: %s: %w", tr.ErrorDescription, ErrInvalidGrant)
		}
		msg := tr.Error
		if tr.ErrorDescription != "" {
			msg = tr.Error + ": " + tr.ErrorDescription
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    msg,
			Endpoint:   "/token",
		}
	}
	if tr.AccessToken == "" {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    "no access token in response",
			Endpoint:   "/token",
		}
	}

	expiresIn := tr.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	return &models.ProviderToken{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// calendarDateTime is the wire format of a Calendar event boundary.
type calendarDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// calendarEvent is the wire format of a Calendar v3 event insert.
type calendarEvent struct {
	Summary     string           `json:"summary"`
	Location    string           `json:"location,omitempty"`
	Description string           `json:"description,omitempty"`
	Start       calendarDateTime `json:"start"`
	End         calendarDateTime `json:"end"`
}

type calendarEventResponse struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}

// InsertEvent creates a calendar event using the given access token.
func (c *Client) InsertEvent(ctx context.Context, accessToken string, input *models.CalendarEventInput) (*models.CalendarEventResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	ev := calendarEvent{
		Summary:     input.Name,
		Location:    input.Location,
		Description: buildDescription(input),
		Start: calendarDateTime{
			DateTime: input.ScheduledTime.Format(time.RFC3339),
			TimeZone: c.timezone,
		},
		End: calendarDateTime{
			DateTime: input.ScheduledTime.Add(defaultEventDuration).Format(time.RFC3339),
			TimeZone: c.timezone,
		},
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	endpoint := fmt.Sprintf("/calendars/%s/events", url.PathEscape(c.calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.calendarURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug().Str("summary", input.Name).Msg("Calendar insert request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			Endpoint:   endpoint,
		}
	}

	var created calendarEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &models.CalendarEventResult{
		EventID:  created.ID,
		EventURL: created.HTMLLink,
	}, nil
}

// buildDescription formats the booking details into the event body.
func buildDescription(input *models.CalendarEventInput) string {
	category := input.Category
	if category == "" {
		category = "Not specified"
	}
	notes := input.Notes
	if notes == "" {
		notes = "None"
	}
	return fmt.Sprintf("Event Type: %s\nContact: %s\nPhone: %s\n\nNotes: %s",
		category, input.ContactName, input.Phone, notes)
}

// Compile-time check
var _ interfaces.GoogleClient = (*Client)(nil)
