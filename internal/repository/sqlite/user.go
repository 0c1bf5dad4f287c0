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

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore implements repository.UserRepository.
type UserStore struct {
	conn *sql.DB
}

const userColumns = `id, username, email, first_name, last_name, password_hash, created_at, updated_at`

// Create inserts a new user. The ID and timestamps are generated here and
// written back into the caller's struct.
//
// An empty Email is stored as NULL so it doesn't participate in the UNIQUE
// index. Uniqueness violations on username or email come back as
// apperror.ErrConflict with the field set.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		nullableString(user.Email),
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if conflict := conflictError(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no such user exists.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.getBy(ctx, "id = ?", id, func() error {
		return apperror.NotFound("user", id)
	})
}

// GetByUsername retrieves a user by username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getBy(ctx, "username = ?", username, func() error {
		return apperror.NotFound("user", username)
	})
}

// GetByEmail retrieves a user by email. The email fallback of identity
// reconciliation goes through here.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getBy(ctx, "email = ?", email, func() error {
		return apperror.NotFound("user", email)
	})
}

func (s *UserStore) getBy(ctx context.Context, where string, arg any, notFound func() error) (*model.User, error) {
	var (
		u     model.User
		email sql.NullString
	)

	err := s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg,
	).Scan(
		&u.ID,
		&u.Username,
		&email,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound()
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	u.Email = email.String
	return &u, nil
}

// UsernameTaken reports whether a user with the given username exists.
// Username collision probing during social sign-up calls this in a loop.
func (s *UserStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "username = ?", username)
}

// EmailTaken reports whether a user with the given email exists.
func (s *UserStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "email = ?", email)
}

func (s *UserStore) exists(ctx context.Context, where string, arg any) (bool, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE `+where, arg,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking user existence: %w", err)
	}
	return n > 0, nil
}

// List returns all users ordered by creation time.
func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var (
			u     model.User
			email sql.NullString
		)
		if err := rows.Scan(
			&u.ID,
			&u.Username,
			&email,
			&u.FirstName,
			&u.LastName,
			&u.PasswordHash,
			&u.CreatedAt,
			&u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		u.Email = email.String
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
