// Package model defines the data structures used throughout the application.
package model

import "time"

// Provider identifies a social login provider.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// Valid reports whether p is one of the supported providers.
func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderGitHub
}

// User represents a local account.
//
// Username is the login identifier and is always present — for social sign-ups
// it is derived from the provider profile. Email is unique when present, but a
// user may have none: we use the empty string as the "no email" zero value and
// the repository stores it as NULL so the UNIQUE index never collides on empty
// strings.
//
// PasswordHash is empty for accounts created through a social provider. Such
// accounts cannot log in with a password until one is set.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	Email        string    `json:"email"     db:"email"`
	FirstName    string    `json:"firstName" db:"first_name"`
	LastName     string    `json:"lastName"  db:"last_name"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// SocialAccount binds a provider identity to a local User.
//
// The pair (Provider, ExternalID) is globally unique — one external identity
// maps to exactly one local account. A user may hold links for several
// providers (at most one per provider in practice, not enforced).
//
// RawProfile is the JSON snapshot of the provider's profile response taken at
// link time. It is kept for diagnostics and never interpreted afterwards.
type SocialAccount struct {
	ID         string    `json:"id"         db:"id"`
	UserID     string    `json:"userId"     db:"user_id"`
	Provider   Provider  `json:"provider"   db:"provider"`
	ExternalID string    `json:"externalId" db:"external_id"`
	RawProfile string    `json:"-"          db:"raw_profile"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
}
