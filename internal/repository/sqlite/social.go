package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/auth-backend/internal/apperror"
	"github.com/sakif/auth-backend/internal/model"
	"github.com/sakif/auth-backend/internal/repository"
)

var _ repository.SocialAccountRepository = (*SocialAccountStore)(nil)

// SocialAccountStore implements repository.SocialAccountRepository.
type SocialAccountStore struct {
	conn *sql.DB
}

const socialColumns = `id, user_id, provider, external_id, raw_profile, created_at`

// Create binds a provider identity to a user. The UNIQUE (provider,
// external_id) index makes a second concurrent writer fail with
// apperror.ErrConflict instead of silently duplicating the link.
func (s *SocialAccountStore) Create(ctx context.Context, account *model.SocialAccount) error {
	account.ID = xid.New().String()
	account.CreatedAt = time.Now()

	raw := account.RawProfile
	if raw == "" {
		raw = "{}"
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO social_accounts (`+socialColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.UserID,
		account.Provider,
		account.ExternalID,
		raw,
		account.CreatedAt,
	)
	if err != nil {
		if conflict := conflictError(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("sqlite: inserting social account (%s, %s): %w",
			account.Provider, account.ExternalID, err)
	}

	return nil
}

// GetByProviderID looks up the link for (provider, externalID) — the fast
// path of identity reconciliation. Returns apperror.ErrNotFound when no
// link exists.
func (s *SocialAccountStore) GetByProviderID(ctx context.Context, provider model.Provider, externalID string) (*model.SocialAccount, error) {
	var a model.SocialAccount

	err := s.conn.QueryRowContext(ctx,
		`SELECT `+socialColumns+` FROM social_accounts
		 WHERE provider = ? AND external_id = ?`,
		provider, externalID,
	).Scan(
		&a.ID,
		&a.UserID,
		&a.Provider,
		&a.ExternalID,
		&a.RawProfile,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("social account", externalID)
		}
		return nil, fmt.Errorf("sqlite: getting social account (%s, %s): %w", provider, externalID, err)
	}

	return &a, nil
}

// ListByUserID returns all links owned by a user, oldest first.
func (s *SocialAccountStore) ListByUserID(ctx context.Context, userID string) ([]model.SocialAccount, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+socialColumns+` FROM social_accounts
		 WHERE user_id = ? ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing social accounts for user %s: %w", userID, err)
	}
	defer rows.Close()

	accounts := []model.SocialAccount{}
	for rows.Next() {
		var a model.SocialAccount
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.Provider,
			&a.ExternalID,
			&a.RawProfile,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning social account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating social accounts: %w", err)
	}

	return accounts, nil
}
