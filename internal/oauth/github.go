package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/sakif/auth-backend/internal/apperror"
	"github.com/sakif/auth-backend/internal/model"
)

const githubAPIBaseURL = "https://api.github.com"

// GitHub implements Provider for GitHub sign-in.
//
// Unlike Google, the profile takes two calls: /user for identity and name,
// /user/emails for the email list (the email on /user is the public one and
// is usually hidden). Only an address marked both primary and verified is
// accepted.
type GitHub struct {
	config *oauth2.Config

	// overridable in tests
	apiBaseURL string
}

var _ Provider = (*GitHub)(nil)

func NewGitHub(clientID, clientSecret string) *GitHub {
	return &GitHub{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiBaseURL: githubAPIBaseURL,
	}
}

func (g *GitHub) Name() model.Provider {
	return model.ProviderGitHub
}

// Exchange trades the authorization code for an access token.
//
// GitHub checks that redirect_uri matches the one used during the
// authorization grant, so the frontend sends it along with the code and we
// pass it through per request.
func (g *GitHub) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	var opts []oauth2.AuthCodeOption
	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}

	tok, err := g.config.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, classifyExchangeError("GitHub", err)
	}
	if tok.AccessToken == "" {
		return nil, apperror.NoToken("GitHub")
	}
	return tok, nil
}

// FetchProfile retrieves /user and /user/emails and assembles a Profile with
// the primary verified email. A missing or unusable email list yields
// EmailMissing — never an account built on an unverified address.
func (g *GitHub) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	client := g.config.Client(ctx, token)

	resp, err := client.Get(g.apiBaseURL + "/user")
	if err != nil {
		return nil, apperror.Network("GitHub", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.ProfileUnavailable("GitHub")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Network("GitHub", err)
	}

	var identity struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(body, &identity); err != nil || identity.ID == 0 {
		return nil, apperror.ProfileUnavailable("GitHub")
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperror.ProfileUnavailable("GitHub")
	}

	email, err := g.primaryVerifiedEmail(ctx, client)
	if err != nil {
		return nil, err
	}

	given, family := splitName(identity.Name)

	return &Profile{
		ExternalID: strconv.FormatInt(identity.ID, 10),
		Email:      email,
		Login:      identity.Login,
		GivenName:  given,
		FamilyName: family,
		Raw:        raw,
	}, nil
}

func (g *GitHub) primaryVerifiedEmail(ctx context.Context, client *http.Client) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBaseURL+"/user/emails", nil)
	if err != nil {
		return "", fmt.Errorf("oauth: building emails request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", apperror.Network("GitHub", err)
	}
	defer resp.Body.Close()

	// A failed email listing is treated as an empty list, which falls
	// through to EmailMissing below.
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
			emails = nil
		}
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", apperror.EmailMissing("GitHub")
}
