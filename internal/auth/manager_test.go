package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bniasoff/photoevents-manager/internal/clients/google"
	"github.com/bniasoff/photoevents-manager/internal/models"
)

// memTokenStore is an in-memory TokenStore for tests.
type memTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*models.GoogleToken
	errGet error
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: make(map[string]*models.GoogleToken)}
}

func (s *memTokenStore) Save(_ context.Context, token *models.GoogleToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.tokens[token.UserID] = &cp
	return nil
}

func (s *memTokenStore) Get(_ context.Context, userID string) (*models.GoogleToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errGet != nil {
		return nil, s.errGet
	}
	token, ok := s.tokens[userID]
	if !ok {
		return nil, models.ErrTokenNotFound
	}
	cp := *token
	return &cp, nil
}

func (s *memTokenStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, userID)
	return nil
}

// fakeGoogle is a scripted provider that counts invocations.
type fakeGoogle struct {
	exchangeFn    func(code string) (*models.ProviderToken, error)
	refreshFn     func(refreshToken string) (*models.ProviderToken, error)
	exchangeCalls int
	refreshCalls  int
}

func (f *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (f *fakeGoogle) Exchange(_ context.Context, code string) (*models.ProviderToken, error) {
	f.exchangeCalls++
	return f.exchangeFn(code)
}

func (f *fakeGoogle) Refresh(_ context.Context, refreshToken string) (*models.ProviderToken, error) {
	f.refreshCalls++
	return f.refreshFn(refreshToken)
}

func (f *fakeGoogle) InsertEvent(_ context.Context, _ string, _ *models.CalendarEventInput) (*models.CalendarEventResult, error) {
	return nil, errors.New("not implemented")
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(store *memTokenStore, provider *fakeGoogle, opts ...ManagerOption) *Manager {
	base := []ManagerOption{WithClock(func() time.Time { return testNow })}
	return NewManager(store, provider, "test-secret", append(base, opts...)...)
}

func validToken(userID string) *models.GoogleToken {
	return &models.GoogleToken{
		UserID:       userID,
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    testNow.Add(time.Hour),
		UpdatedAt:    testNow.Add(-time.Hour),
	}
}

func unauthorizedErr() error {
	return &google.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid Credentials", Endpoint: "/calendars/primary/events"}
}

func TestBeginAuthorization(t *testing.T) {
	provider := &fakeGoogle{}
	manager := newTestManager(newMemTokenStore(), provider)

	authURL, err := manager.BeginAuthorization("user-1")
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	// The state must round-trip back to the same user.
	userID, err := verifyState([]byte("test-secret"), state, testNow)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestBeginAuthorization_RequiresUserID(t *testing.T) {
	manager := newTestManager(newMemTokenStore(), &fakeGoogle{})

	_, err := manager.BeginAuthorization("")
	assert.ErrorIs(t, err, ErrUserIDRequired)
}

func TestCompleteAuthorization(t *testing.T) {
	store := newMemTokenStore()
	provider := &fakeGoogle{
		exchangeFn: func(code string) (*models.ProviderToken, error) {
			assert.Equal(t, "auth-code", code)
			return &models.ProviderToken{
				AccessToken:  "access-1",
				RefreshToken: "refresh-1",
				ExpiresAt:    testNow.Add(time.Hour),
			}, nil
		},
	}
	manager := newTestManager(store, provider)

	state, err := signState([]byte("test-secret"), "user-1", DefaultStateTTL, testNow)
	require.NoError(t, err)

	userID, err := manager.CompleteAuthorization(context.Background(), state, "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	saved, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", saved.AccessToken)
	assert.Equal(t, "refresh-1", saved.RefreshToken)
	assert.Equal(t, testNow.Add(time.Hour), saved.ExpiresAt)
}

func TestCompleteAuthorization_InvalidState(t *testing.T) {
	manager := newTestManager(newMemTokenStore(), &fakeGoogle{})

	_, err := manager.CompleteAuthorization(context.Background(), "tampered-state", "auth-code")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteAuthorization_ExpiredState(t *testing.T) {
	manager := newTestManager(newMemTokenStore(), &fakeGoogle{})

	state, err := signState([]byte("test-secret"), "user-1", DefaultStateTTL, testNow.Add(-time.Hour))
	require.NoError(t, err)

	_, err = manager.CompleteAuthorization(context.Background(), state, "auth-code")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteAuthorization_RetainsRefreshToken(t *testing.T) {
	store := newMemTokenStore()
	require.NoError(t, store.Save(context.Background(), validToken("user-1")))

	provider := &fakeGoogle{
		exchangeFn: func(string) (*models.ProviderToken, error) {
			return &models.ProviderToken{
				AccessToken: "access-2",
				ExpiresAt:   testNow.Add(time.Hour),
			}, nil
		},
	}
	manager := newTestManager(store, provider)

	state, err := signState([]byte("test-secret"), "user-1", DefaultStateTTL, testNow)
	require.NoError(t, err)

	_, err = manager.CompleteAuthorization(context.Background(), state, "auth-code")
	require.NoError(t, err)

	saved, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", saved.AccessToken)
	assert.Equal(t, "refresh-1", saved.RefreshToken)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name     string
		token    *models.GoogleToken
		expected models.TokenStatus
	}{
		{
			name:     "no record",
			token:    nil,
			expected: models.TokenStatus{},
		},
		{
			name:     "valid token",
			token:    validToken("user-1"),
			expected: models.TokenStatus{Authenticated: true, HasRefreshToken: true, TokenExpired: false},
		},
		{
			name: "expired with refresh token",
			token: &models.GoogleToken{
				UserID:       "user-1",
				AccessToken:  "access-1",
				RefreshToken: "refresh-1",
				ExpiresAt:    testNow.Add(-time.Minute),
			},
			expected: models.TokenStatus{Authenticated: true, HasRefreshToken: true, TokenExpired: true},
		},
		{
			name: "expired without refresh token",
			token: &models.GoogleToken{
				UserID:      "user-1",
				AccessToken: "access-1",
				ExpiresAt:   testNow.Add(-time.Minute),
			},
			expected: models.TokenStatus{Authenticated: true, HasRefreshToken: false, TokenExpired: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemTokenStore()
			if tt.token != nil {
				require.NoError(t, store.Save(context.Background(), tt.token))
			}
			manager := newTestManager(store, &fakeGoogle{})

			status, err := manager.Status(context.Background(), "user-1")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *status)
		})
	}
}

func TestStatus_DoesNotMutate(t *testing.T) {
	store := newMemTokenStore()
	expired := validToken("user-1")
	expired.ExpiresAt = testNow.Add(-time.Minute)
	require.NoError(t, store.Save(context.Background(), expired))

	provider := &fakeGoogle{
		refreshFn: func(string) (*models.ProviderToken, error) {
			t.Fatal("status must not trigger a refresh")
			return nil, nil
		},
	}
	manager := newTestManager(store, provider)

	_, err := manager.Status(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Zero(t, provider.refreshCalls)
}

func TestSignOut(t *testing.T) {
	store := newMemTokenStore()
	require.NoError(t, store.Save(context.Background(), validToken("user-1")))
	manager := newTestManager(store, &fakeGoogle{})

	require.NoError(t, manager.SignOut(context.Background(), "user-1"))
	_, err := store.Get(context.Background(), "user-1")
	assert.ErrorIs(t, err, models.ErrTokenNotFound)

	// Signing out again is not an error.
	require.NoError(t, manager.SignOut(context.Background(), "user-1"))
}

func TestWithAuthorizedClient_NotAuthenticated(t *testing.T) {
	manager := newTestManager(newMemTokenStore(), &fakeGoogle{})

	err := manager.WithAuthorizedClient(context.Background(), "user-1", func(context.Context, string) error {
		t.Fatal("op must not run without credentials")
		return nil
	})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestWithAuthorizedClient_ValidToken(t *testing.T) {
	store := newMemTokenStore()
	require.NoError(t, store.Save(context.Background(), validToken("user-1")))
	provider := &fakeGoogle{
		refreshFn: func(string) (*models.ProviderToken, error) {
			return nil, errors.New("refresh must not be called")
		},
	}
	manager := newTestManager(store, provider)

	calls := 0
	err := manager.WithAuthorizedClient(context.Background(), "user-1", func(_ context.Context, accessToken string) error {
		calls++
		assert.Equal(t, "access-1", accessToken)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Zero(t, provider.refreshCalls)
}

func TestWithAuthorizedClient_ProactiveRefresh(t *testing.T) {
	store := newMemTokenStore()
	expiring := validToken("user-1")
	expiring.ExpiresAt = testNow.Add(time.Minute) // inside the refresh window
	require.NoError(t, store.Save(context.Background(), expiring))

	provider := &fakeGoogle{
		refreshFn: func(refreshToken string) (*models.ProviderToken, error) {
			assert.Equal(t, "refresh-1", refreshToken)
			return &models.ProviderToken{
				AccessToken: "access-2",
				ExpiresAt:   testNow.Add(time.Hour),
			}, nil
		},
	}
	manager := newTestManager(store, provider)

	err := manager.WithAuthorizedClient(context.Background(), "user-1", func(_ context.Context, accessToken string) error {
		assert.Equal(t, "access-2", accessToken)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.refreshCalls)

	// Refresh response omitted the refresh token; the stored one survives.
	saved, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", saved.AccessToken)
	assert.Equal(t, "refresh-1", saved.RefreshToken)
}

func TestWithAuthorizedClient_ExpiredNoRefreshToken(t *testing.T) {
	store := newMemTokenStore()
	expired := &models.GoogleToken{
		UserID:      "user-1",
		AccessToken: "access-1",
		ExpiresAt:   testNow.Add(-time.Minute),
	}
	require.NoError(t, store.Save(context.Background(), expired))
	manager := newTestManager(store, &fakeGoogle{})

	err := manager.WithAuthorizedClient(context.Background(), "user-1", func(context.Context, string) error {
		t.Fatal("op must not run with an expired, unrefreshable token")
		return nil
	})
	assert.ErrorIs(t, err, ErrNeedsReauth)

	// The record survives so status can still report the situation.
	_, err = store.Get(context.Background(), "user-1")
	require.NoError(t, err)
}

func TestWithAuthorizedClient_RetryOnceAfter401(t *testing.T) {
	store := newMemTokenStore()
	require.NoError(t, store.Save(context.Background(), validToken("user-1")))

	provider := &fakeGoogle{
		refreshFn: func(string) (*models.ProviderToken, error) {
			return &models.ProviderToken{
				AccessToken: "access-2",
				ExpiresAt:   testNow.Add(time.Hour),
			}, nil
		},
	}
	manager := newTestManager(store, provider)

	var tokensSeen []string
	err := manager.WithAuthorizedClient(context.Background(), "user-1", func(_ context.Context, accessToken string) error {
		tokensSeen = append(tokensSeen, accessToken)
		if len(tokensSeen) == 1 {
			return unauthorizedErr()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"access-1", "access-2"}, tokensSeen)
	assert.Equal(t, 1, provider.refreshCalls)
}

func TestWithAuthorizedClient_SecondUnauthorizedStops(t *testing.T) {
	store := newMemTokenStore()
	require.NoError(t, store.Save(context.Background(), validToken("user-1")))

	provider := &fakeGoogle{
		refreshFn: func(string) (*models.ProviderToken, error) {
			return &models.ProviderToken{
				AccessToken: "access-2",
				ExpiresAt:   testNow.Add(time.Hour),
			}, nil
		},
	}
	manager := newTestManager(store, provider)

	calls := 0
	err := manager.WithAuthorizedClient(context.Background(), "user-1", func(context.Context, string) error {
		calls++
		return unauthorizedErr()
	})
	assert.ErrorIs(t, err, ErrNeedsReauth)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, provider.refreshCalls)

	// A persistent 401 with a supposedly fresh token means the grant is dead.
	_, err = store.Get(context.Background(), "user-1")
	assert.ErrorIs(t, err, models.ErrTokenNotFound)
}

func TestWithAuthorizedClient_401WithoutRefreshTokenKeepsRecord(t *testing.T) {
	store := newMemTokenStore()
	noRefresh := &models.GoogleToken{
		UserID:      "user-1",
		AccessToken: "access-1",
		ExpiresAt:   testNow.Add(time.Hour),
	}
	require.NoError(t, store.Save(context.Background(), noRefresh))
	manager := newTestManager(store, &fakeGoogle{})

	calls := 0
	err := manager.WithAuthorizedClient(context.Background(), "user-1", func(context.Context, string) error {
		calls++
		return unauthorizedErr()
	})
	assert.ErrorIs(t, err, ErrNeedsReauth)
	assert.Equal(t, 1, calls)

	// A transient 401 must not cost the user their record.
	_, err = store.Get(context.Background(), "user-1")
	require.NoError(t, err)
}

func TestWithAuthorizedClient_RevokedGrantClearsRecord(t *testing.T) {
	store := newMemTokenStore()
	expired := validToken("user-1")
	expired.ExpiresAt = testNow.Add(-time.Minute)
	require.NoError(t, store.Save(context.Background(), expired))

	provider := &fakeGoogle{
		refreshFn: func(string) (*models.ProviderToken, error) {
			return nil, google.ErrInvalidGrant
		},
	}
	manager := newTestManager(store, provider)

	err := manager.WithAuthorizedClient(context.Background(), "user-1", func(context.Context, string) error {
		t.Fatal("op must not run after a failed refresh")
		return nil
	})
	assert.ErrorIs(t, err, ErrNeedsReauth)

	_, err = store.Get(context.Background(), "user-1")
	assert.ErrorIs(t, err, models.ErrTokenNotFound)
}

func TestWithAuthorizedClient_TransientRefreshFailure(t *testing.T) {
	store := newMemTokenStore()
	expired := validToken("user-1")
	expired.ExpiresAt = testNow.Add(-time.Minute)
	require.NoError(t, store.Save(context.Background(), expired))

	provider := &fakeGoogle{
		refreshFn: func(string) (*models.ProviderToken, error) {
			return nil, &google.APIError{StatusCode: http.StatusServiceUnavailable, Message: "backend error", Endpoint: "/token"}
		},
	}
	manager := newTestManager(store, provider)

	err := manager.WithAuthorizedClient(context.Background(), "user-1", func(context.Context, string) error {
		t.Fatal("op must not run after a failed refresh")
		return nil
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNeedsReauth)

	// Transient provider failure leaves the record intact.
	_, err = store.Get(context.Background(), "user-1")
	require.NoError(t, err)
}

func TestWithAuthorizedClient_NonAuthErrorPassesThrough(t *testing.T) {
	store := newMemTokenStore()
	require.NoError(t, store.Save(context.Background(), validToken("user-1")))
	provider := &fakeGoogle{}
	manager := newTestManager(store, provider)

	opErr := errors.New("calendar quota exceeded")
	calls := 0
	err := manager.WithAuthorizedClient(context.Background(), "user-1", func(context.Context, string) error {
		calls++
		return opErr
	})
	assert.ErrorIs(t, err, opErr)
	assert.Equal(t, 1, calls)
	assert.Zero(t, provider.refreshCalls)
}
