// Package service contains the business logic layer.
//
// AuthService owns everything between the HTTP handlers and the stores:
// credential auth, the social sign-in orchestration (exchange → profile →
// reconcile → issue tokens), and the identity reconciliation algorithm
// itself. Handlers never touch repositories or providers directly.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/auth-backend/internal/apperror"
	"github.com/sakif/auth-backend/internal/auth"
	"github.com/sakif/auth-backend/internal/model"
	"github.com/sakif/auth-backend/internal/oauth"
	"github.com/sakif/auth-backend/internal/repository"
)

// AuthService handles authentication business logic.
type AuthService struct {
	users     repository.UserRepository
	socials   repository.SocialAccountRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	socials repository.SocialAccountRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		socials:   socials,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the resolved user with the issued credential pair so
// the handler can respond in one step.
type AuthResult struct {
	User   *model.User
	Tokens *auth.TokenPair
}

// Register creates a password-backed account and issues a session.
//
// Duplicate username/email is reported as a field-keyed validation error —
// checked up front for friendly messages, and backstopped by the storage
// UNIQUE constraints for the concurrent case.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "Username, email, and password are required")
	}

	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking username: %w", err)
	}
	if taken {
		return nil, apperror.ValidationFailed("username", "A user with that username already exists.")
	}

	taken, err = s.users.EmailTaken(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}
	if taken {
		return nil, apperror.ValidationFailed("email", "A user with that email already exists.")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent registration can still hit the UNIQUE index;
		// the conflict already carries the offending field.
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issueSession(user)
}

// Login authenticates a username/password pair and issues a session.
//
// Unknown user, wrong password, and social-only accounts (no password set)
// are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: fetching user %q: %w", username, err)
	}

	if user.PasswordHash == "" {
		return nil, invalidCredentials()
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, invalidCredentials()
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issueSession(user)
}

func invalidCredentials() error {
	return apperror.ValidationFailed("", "Invalid credentials")
}

// SignInWithProvider runs the full social login flow: exchange the
// authorization code, fetch the provider profile, reconcile it onto a local
// account, and issue a session. Any failure before reconciliation leaves no
// side effects.
func (s *AuthService) SignInWithProvider(ctx context.Context, p oauth.Provider, code, redirectURI string) (*AuthResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("", "No authorization code provided")
	}

	token, err := p.Exchange(ctx, code, redirectURI)
	if err != nil {
		s.logger.Warn("social token exchange failed",
			slog.String("provider", string(p.Name())),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	profile, err := p.FetchProfile(ctx, token)
	if err != nil {
		s.logger.Warn("social profile fetch failed",
			slog.String("provider", string(p.Name())),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	user, err := s.reconcile(ctx, p.Name(), profile)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated via social provider",
		slog.String("provider", string(p.Name())),
		slog.String("userID", user.ID),
		slog.String("email", redactEmail(profile.Email)),
	)

	return s.issueSession(user)
}

// reconcile maps a provider identity onto a local account.
//
// A lost race between two concurrent sign-ins for the same identity shows
// up as a storage conflict from resolveIdentity; the winner's link must
// exist by then, so the link lookup is retried exactly once before the
// conflict is treated as fatal.
func (s *AuthService) reconcile(ctx context.Context, provider model.Provider, profile *oauth.Profile) (*model.User, error) {
	user, err := s.resolveIdentity(ctx, provider, profile)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrConflict) {
		return nil, err
	}

	link, lookupErr := s.socials.GetByProviderID(ctx, provider, profile.ExternalID)
	if lookupErr != nil {
		return nil, err // the original conflict is the interesting error
	}
	return s.users.GetByID(ctx, link.UserID)
}

// resolveIdentity is the reconciliation algorithm proper, in strict order:
//
//  1. Exact link lookup by (provider, external_id). The fast path for
//     returning users; takes precedence over any email-based logic.
//  2. Email fallback: an existing account with the profile's email adopts
//     the identity — a new link is bound to it. This lets a user who
//     registered with a password later sign in via OAuth with the same
//     email, without creating a duplicate account.
//  3. Creation: a new account with a username derived from the profile,
//     plus a link.
func (s *AuthService) resolveIdentity(ctx context.Context, provider model.Provider, profile *oauth.Profile) (*model.User, error) {
	link, err := s.socials.GetByProviderID(ctx, provider, profile.ExternalID)
	if err == nil {
		return s.users.GetByID(ctx, link.UserID)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up social link: %w", err)
	}

	if profile.Email != "" {
		existing, err := s.users.GetByEmail(ctx, profile.Email)
		if err == nil {
			if err := s.linkAccount(ctx, existing.ID, provider, profile); err != nil {
				return nil, err
			}
			s.logger.Info("social identity linked to existing account",
				slog.String("provider", string(provider)),
				slog.String("userID", existing.ID),
			)
			return existing, nil
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
		}
	}

	username, err := s.availableUsername(ctx, deriveUsername(provider, profile))
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:  username,
		Email:     profile.Email,
		FirstName: profile.GivenName,
		LastName:  profile.FamilyName,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.linkAccount(ctx, user.ID, provider, profile); err != nil {
		return nil, err
	}

	s.logger.Info("account created via social sign-in",
		slog.String("provider", string(provider)),
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

func (s *AuthService) linkAccount(ctx context.Context, userID string, provider model.Provider, profile *oauth.Profile) error {
	raw, err := json.Marshal(profile.Raw)
	if err != nil {
		raw = []byte("{}")
	}

	account := &model.SocialAccount{
		UserID:     userID,
		Provider:   provider,
		ExternalID: profile.ExternalID,
		RawProfile: string(raw),
	}
	return s.socials.Create(ctx, account)
}

// deriveUsername picks the base username for a new social account:
// GitHub's login handle if present, otherwise the local part of the email.
func deriveUsername(provider model.Provider, profile *oauth.Profile) string {
	if provider == model.ProviderGitHub && profile.Login != "" {
		return profile.Login
	}
	if local, _, found := strings.Cut(profile.Email, "@"); found && local != "" {
		return local
	}
	if profile.Login != "" {
		return profile.Login
	}
	return "user"
}

// availableUsername probes base, base1, base2, … until an unused username
// is found. The probing is sequential, not reserved — two concurrent
// sign-ups with the same base can race, in which case the UNIQUE index on
// username rejects the loser and reconcile retries.
func (s *AuthService) availableUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		taken, err := s.users.UsernameTaken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("service/auth: probing username %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}

// RefreshAccess trades a valid refresh token for a fresh access token.
// The refresh token is not rotated.
func (s *AuthService) RefreshAccess(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return "", apperror.Unauthorized("Token is invalid or expired")
	}

	// The account may have been removed since the token was issued.
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return "", apperror.Unauthorized("Token is invalid or expired")
	}

	access, err := s.tokens.GenerateAccess(userID)
	if err != nil {
		return "", fmt.Errorf("service/auth: generating access token: %w", err)
	}
	return access, nil
}

// Profile returns a user together with their social links, for /api/me.
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, []model.SocialAccount, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	links, err := s.socials.ListByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, links, nil
}

// UserOverview is one row of the admin user listing.
type UserOverview struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Provider string `json:"provider"` // first linked provider, "" for password accounts
}

// ListUsers returns the per-user overview the admin dashboard shows.
func (s *AuthService) ListUsers(ctx context.Context) ([]UserOverview, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/auth: listing users: %w", err)
	}

	overviews := make([]UserOverview, 0, len(users))
	for _, u := range users {
		links, err := s.socials.ListByUserID(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("service/auth: listing links for user %s: %w", u.ID, err)
		}
		o := UserOverview{Username: u.Username, Email: u.Email}
		if len(links) > 0 {
			o.Provider = string(links[0].Provider)
		}
		overviews = append(overviews, o)
	}

	return overviews, nil
}

func (s *AuthService) issueSession(user *model.User) (*AuthResult, error) {
	pair, err := s.tokens.GeneratePair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing session for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}

// redactEmail keeps logs diagnosable without writing full addresses:
// "ada@example.com" → "a***@example.com".
func redactEmail(email string) string {
	local, domain, found := strings.Cut(email, "@")
	if !found || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
