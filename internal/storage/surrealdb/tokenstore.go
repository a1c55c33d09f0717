package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bniasoff/photoevents-manager/internal/common"
	"github.com/bniasoff/photoevents-manager/internal/interfaces"
	"github.com/bniasoff/photoevents-manager/internal/models"
)

// tokenRow is the DB-level representation of a Google credential record.
type tokenRow struct {
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TokenStore implements interfaces.TokenStore using SurrealDB. Records are
// keyed google_token:<user_id>, so a user can never have more than one.
type TokenStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(db *surrealdb.DB, logger *common.Logger) *TokenStore {
	return &TokenStore{db: db, logger: logger}
}

func (s *TokenStore) Save(ctx context.Context, token *models.GoogleToken) error {
	sql := `UPSERT $rid SET
		user_id = $user_id, access_token = $access_token,
		refresh_token = $refresh_token, expires_at = $expires_at,
		updated_at = $updated_at`
	vars := map[string]any{
		"rid":           surrealmodels.NewRecordID("google_token", token.UserID),
		"user_id":       token.UserID,
		"access_token":  token.AccessToken,
		"refresh_token": token.RefreshToken,
		"expires_at":    token.ExpiresAt,
		"updated_at":    token.UpdatedAt,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *TokenStore) Get(ctx context.Context, userID string) (*models.GoogleToken, error) {
	sql := "SELECT user_id, access_token, refresh_token, expires_at, updated_at FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("google_token", userID),
	}
	results, err := surrealdb.Query[[]tokenRow](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, models.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, models.ErrTokenNotFound
	}
	row := (*results)[0].Result[0]
	return &models.GoogleToken{
		UserID:       row.UserID,
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		ExpiresAt:    row.ExpiresAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

func (s *TokenStore) Delete(ctx context.Context, userID string) error {
	rid := surrealmodels.NewRecordID("google_token", userID)
	_, err := surrealdb.Delete[tokenRow](ctx, s.db, rid)
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Compile-time check
var _ interfaces.TokenStore = (*TokenStore)(nil)
