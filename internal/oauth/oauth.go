// Package oauth implements the provider side of social login: exchanging an
// authorization code for an access token and fetching the provider's profile.
//
// Each provider wraps golang.org/x/oauth2 for the code-for-token exchange and
// uses its token-authorized HTTP client for the profile calls. Providers are
// read-only against the remote API and never retry — a transient provider
// failure surfaces immediately to the caller as an error from the taxonomy in
// internal/apperror (the service decides what to do with it, the handler
// decides the status code).
package oauth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/oauth2"

	"github.com/sakif/auth-backend/internal/apperror"
	"github.com/sakif/auth-backend/internal/model"
)

// Profile is a provider's view of a user, normalized across providers.
//
// It is transient: constructed per request from the provider API responses,
// handed to the identity reconciler, and discarded. Raw keeps the original
// payload for the SocialAccount snapshot.
type Profile struct {
	ExternalID string
	Email      string
	Login      string // provider handle; empty for providers without one
	GivenName  string
	FamilyName string
	Raw        map[string]any
}

// Provider is the contract the auth service drives:
// Exchange turns an authorization code into a short-lived access token,
// FetchProfile turns that token into a Profile.
//
// redirectURI is only meaningful for providers that validate it against the
// one used during the authorization grant (GitHub); others ignore it.
type Provider interface {
	Name() model.Provider
	Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

// classifyExchangeError maps an x/oauth2 exchange failure onto the taxonomy.
//
// A RetrieveError means the provider answered and rejected the exchange
// (non-2xx, or an `error` field in the payload — GitHub reports bad codes
// with HTTP 200 plus an error body). Anything else that isn't the library's
// missing-token case is a transport failure.
func classifyExchangeError(provider string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		detail := re.ErrorDescription
		if detail == "" {
			detail = re.ErrorCode
		}
		return apperror.ExchangeFailed(provider, detail)
	}

	// x/oauth2 reports a 2xx response without an access_token as a plain
	// error; there is no typed value to match on.
	if strings.Contains(err.Error(), "missing access_token") {
		return apperror.NoToken(provider)
	}

	return apperror.Network(provider, err)
}

// splitName splits a provider's single display-name field into given/family
// parts: first word and everything after it.
func splitName(full string) (given, family string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.Fields(full)
	return parts[0], strings.Join(parts[1:], " ")
}
