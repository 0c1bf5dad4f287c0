// Package auth provides JWT issuance/validation and password hashing.
//
// Sessions are a pair of stateless JWTs: a short-lived access token sent on
// every API call, and a longer-lived refresh token the client trades for a
// fresh access token when the old one expires. Both are HS256-signed with the
// same secret; a "token_use" claim keeps them from being swapped for each
// other — a refresh token is never accepted where an access token is
// expected, and vice versa.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "auth-backend"

	// Lifetimes follow the usual access/refresh split: access tokens are
	// cheap to reissue, refresh tokens bound how long a stolen device
	// stays logged in.
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour

	useAccess  = "access"
	useRefresh = "refresh"
)

// TokenService signs and verifies session tokens.
// The HMAC secret must be shared by nothing else; rotate it to invalidate
// every outstanding session at once.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// TokenPair is the credential pair issued on every successful login or
// registration: {token, refresh} in the JSON responses.
type TokenPair struct {
	Access  string
	Refresh string
}

// claims is the JWT payload. "sub" holds the internal user ID and
// "token_use" distinguishes access from refresh tokens.
type claims struct {
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// GeneratePair issues an access/refresh pair for the given user.
func (s *TokenService) GeneratePair(userID string) (*TokenPair, error) {
	access, err := s.generate(userID, useAccess, AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.generate(userID, useRefresh, RefreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// GenerateAccess issues a standalone access token. Used by the refresh
// endpoint, which must not rotate the refresh token.
func (s *TokenService) GenerateAccess(userID string) (string, error) {
	return s.generate(userID, useAccess, AccessTokenTTL)
}

func (s *TokenService) generate(userID, use string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing %s token: %w", use, err)
	}
	return signed, nil
}

// ValidateAccess verifies an access token and returns the userID it encodes.
func (s *TokenService) ValidateAccess(tokenStr string) (string, error) {
	return s.validate(tokenStr, useAccess)
}

// ValidateRefresh verifies a refresh token and returns the userID it encodes.
func (s *TokenService) ValidateRefresh(tokenStr string) (string, error) {
	return s.validate(tokenStr, useRefresh)
}

func (s *TokenService) validate(tokenStr, wantUse string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}
	if c.TokenUse != wantUse {
		return "", fmt.Errorf("auth: token is not a valid %s token", wantUse)
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
