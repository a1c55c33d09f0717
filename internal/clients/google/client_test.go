package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bniasoff/photoevents-manager/internal/models"
)

func TestAuthCodeURL(t *testing.T) {
	client := NewClient("client-id", "secret", "http://localhost:3000/oauth2callback")

	raw := client.AuthCodeURL("state-token")

	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, DefaultAuthURL))
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:3000/oauth2callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, CalendarScope, q.Get("scope"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "state-token", q.Get("state"))
}

func TestExchange(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var gotForm url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	}))
	defer ts.Close()

	client := NewClient("client-id", "secret", "http://localhost:3000/oauth2callback",
		WithEndpoints("", ts.URL, ""),
		WithClock(func() time.Time { return now }))

	token, err := client.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "auth-code", gotForm.Get("code"))
	assert.Equal(t, "access-1", token.AccessToken)
	assert.Equal(t, "refresh-1", token.RefreshToken)
	assert.Equal(t, now.Add(time.Hour), token.ExpiresAt)
}

func TestExchange_DefaultExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-1",
		})
	}))
	defer ts.Close()

	client := NewClient("client-id", "secret", "uri",
		WithEndpoints("", ts.URL, ""),
		WithClock(func() time.Time { return now }))

	token, err := client.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)

	// expires_in absent defaults to one hour
	assert.Equal(t, now.Add(time.Hour), token.ExpiresAt)
	assert.Empty(t, token.RefreshToken)
}

func TestRefresh(t *testing.T) {
	var gotForm url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-2",
			"expires_in":   1800,
		})
	}))
	defer ts.Close()

	client := NewClient("client-id", "secret", "uri", WithEndpoints("", ts.URL, ""))

	token, err := client.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", gotForm.Get("grant_type"))
	assert.Equal(t, "refresh-1", gotForm.Get("refresh_token"))
	assert.Equal(t, "access-2", token.AccessToken)
	assert.Empty(t, token.RefreshToken)
}

func TestRefresh_InvalidGrant(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error":             "invalid_grant",
			"error_description": "Token has been expired or revoked.",
		})
	}))
	defer ts.Close()

	client := NewClient("client-id", "secret", "uri", WithEndpoints("", ts.URL, ""))

	_, err := client.Refresh(context.Background(), "revoked-token")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestRefresh_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"error": "internal_failure",
		})
	}))
	defer ts.Close()

	client := NewClient("client-id", "secret", "uri", WithEndpoints("", ts.URL, ""))

	_, err := client.Refresh(context.Background(), "refresh-1")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.False(t, apiErr.Unauthorized())
	assert.NotErrorIs(t, err, ErrInvalidGrant)
}

func TestInsertEvent(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"id":       "cal-event-1",
			"htmlLink": "https://calendar.google.com/event?eid=abc",
		})
	}))
	defer ts.Close()

	client := NewClient("client-id", "secret", "uri",
		WithEndpoints("", "", ts.URL),
		WithCalendarID("studio@example.com"),
		WithTimezone("America/New_York"))

	start := time.Date(2025, 7, 4, 14, 0, 0, 0, time.UTC)
	result, err := client.InsertEvent(context.Background(), "access-1", &models.CalendarEventInput{
		Name:          "Cohen Wedding",
		Category:      "Wedding",
		Location:      "Grand Ballroom",
		ContactName:   "Sarah Cohen",
		Phone:         "555-0100",
		Notes:         "Bring second flash",
		ScheduledTime: start,
	})
	require.NoError(t, err)

	assert.Equal(t, "/calendars/studio@example.com/events", gotPath)
	assert.Equal(t, "Bearer access-1", gotAuth)
	assert.Equal(t, "cal-event-1", result.EventID)
	assert.Equal(t, "https://calendar.google.com/event?eid=abc", result.EventURL)

	assert.Equal(t, "Cohen Wedding", gotBody["summary"])
	assert.Equal(t, "Grand Ballroom", gotBody["location"])
	assert.Equal(t, "Event Type: Wedding\nContact: Sarah Cohen\nPhone: 555-0100\n\nNotes: Bring second flash", gotBody["description"])

	startObj := gotBody["start"].(map[string]any)
	endObj := gotBody["end"].(map[string]any)
	assert.Equal(t, start.Format(time.RFC3339), startObj["dateTime"])
	assert.Equal(t, "America/New_York", startObj["timeZone"])
	assert.Equal(t, start.Add(2*time.Hour).Format(time.RFC3339), endObj["dateTime"])
}

func TestInsertEvent_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	}))
	defer ts.Close()

	client := NewClient("client-id", "secret", "uri", WithEndpoints("", "", ts.URL))

	_, err := client.InsertEvent(context.Background(), "stale-token", &models.CalendarEventInput{
		Name:          "Bar Mitzvah",
		ScheduledTime: time.Now(),
	})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Unauthorized())
}

func TestBuildDescription_Defaults(t *testing.T) {
	desc := buildDescription(&models.CalendarEventInput{
		ContactName: "Dana Levi",
		Phone:       "555-0200",
	})
	assert.Equal(t, "Event Type: Not specified\nContact: Dana Levi\nPhone: 555-0200\n\nNotes: None", desc)
}
