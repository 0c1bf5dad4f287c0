// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage provides the implementation.
package repository

import (
	"context"

	"github.com/sakif/auth-backend/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository persists local accounts.
//
// Create must fail with apperror.ErrConflict (field set to "username" or
// "email") when a uniqueness constraint is violated — the reconciler depends
// on that signal to resolve concurrent sign-in races.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]model.User, error)
}

// SocialAccountRepository persists provider links.
//
// Create must fail with apperror.ErrConflict when (provider, external_id)
// already exists. GetByProviderID returns apperror.ErrNotFound when no link
// exists — that is the reconciler's signal to fall through to email lookup.
type SocialAccountRepository interface {
	Create(ctx context.Context, account *model.SocialAccount) error
	GetByProviderID(ctx context.Context, provider model.Provider, externalID string) (*model.SocialAccount, error)
	ListByUserID(ctx context.Context, userID string) ([]model.SocialAccount, error)
}

// LocationRepository persists GPS location records.
type LocationRepository interface {
	Create(ctx context.Context, loc *model.GPSLocation) error
	GetByID(ctx context.Context, id string) (*model.GPSLocation, error)
	ListByUserID(ctx context.Context, userID string, opts ListOptions) ([]model.GPSLocation, error)
	Update(ctx context.Context, loc *model.GPSLocation) error
	Delete(ctx context.Context, id string) error
}
