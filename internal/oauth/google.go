package oauth

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sakif/auth-backend/internal/apperror"
	"github.com/sakif/auth-backend/internal/model"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// Google implements Provider for Google sign-in.
//
// The frontend uses the popup flow, where the authorization response is
// delivered to the page via window.postMessage instead of a redirect. Google
// requires the literal redirect value "postmessage" during the exchange for
// codes obtained that way, so the redirect is fixed at construction and the
// per-request redirectURI is ignored.
type Google struct {
	config *oauth2.Config

	// overridable in tests
	userInfoURL string
}

var _ Provider = (*Google)(nil)

func NewGoogle(clientID, clientSecret string) *Google {
	return &Google{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "postmessage",
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (g *Google) Name() model.Provider {
	return model.ProviderGoogle
}

// Exchange trades the authorization code for an access token.
func (g *Google) Exchange(ctx context.Context, code, _ string) (*oauth2.Token, error) {
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, classifyExchangeError("Google", err)
	}
	if tok.AccessToken == "" {
		return nil, apperror.NoToken("Google")
	}
	return tok, nil
}

// FetchProfile retrieves the userinfo document. Google puts the stable
// subject identifier and the email in a single response; both are required.
func (g *Google) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	client := g.config.Client(ctx, token)

	resp, err := client.Get(g.userInfoURL)
	if err != nil {
		return nil, apperror.Network("Google", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.ProfileUnavailable("Google")
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, apperror.ProfileUnavailable("Google")
	}

	sub, _ := raw["sub"].(string)
	if sub == "" {
		return nil, apperror.ProfileUnavailable("Google")
	}

	email, _ := raw["email"].(string)
	if email == "" {
		return nil, apperror.EmailMissing("Google")
	}

	given, _ := raw["given_name"].(string)
	family, _ := raw["family_name"].(string)

	return &Profile{
		ExternalID: sub,
		Email:      email,
		GivenName:  given,
		FamilyName: family,
		Raw:        raw,
	}, nil
}
