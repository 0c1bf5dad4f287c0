package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"

	"github.com/sakif/auth-backend/internal/apperror"
)

// newTestGoogle points a Google provider at a local token endpoint and
// userinfo endpoint so no test ever talks to the real Google.
func newTestGoogle(t *testing.T, handler http.Handler) (*Google, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g := NewGoogle("client-id", "client-secret")
	g.config.Endpoint = oauth2.Endpoint{
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	g.userInfoURL = srv.URL + "/userinfo"
	return g, srv
}

func jsonResponse(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestGoogleExchange_Success(t *testing.T) {
	g, _ := newTestGoogle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		if got := r.Form.Get("code"); got != "good-code" {
			t.Errorf("code = %q, want %q", got, "good-code")
		}
		if got := r.Form.Get("redirect_uri"); got != "postmessage" {
			t.Errorf("redirect_uri = %q, want %q", got, "postmessage")
		}
		jsonResponse(w, http.StatusOK, `{"access_token":"ya29.token","token_type":"Bearer"}`)
	}))

	tok, err := g.Exchange(context.Background(), "good-code", "")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if tok.AccessToken != "ya29.token" {
		t.Errorf("AccessToken = %q", tok.AccessToken)
	}
}

func TestGoogleExchange_ProviderRejects(t *testing.T) {
	g, _ := newTestGoogle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Bad Request"}`)
	}))

	_, err := g.Exchange(context.Background(), "expired-code", "")
	if !errors.Is(err, apperror.ErrExchangeFailed) {
		t.Fatalf("Exchange() error = %v, want ErrExchangeFailed", err)
	}
}

func TestGoogleExchange_NoTokenInResponse(t *testing.T) {
	g, _ := newTestGoogle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, `{"token_type":"Bearer"}`)
	}))

	_, err := g.Exchange(context.Background(), "odd-code", "")
	if !errors.Is(err, apperror.ErrNoToken) {
		t.Fatalf("Exchange() error = %v, want ErrNoToken", err)
	}
}

func TestGoogleExchange_NetworkFailure(t *testing.T) {
	g, srv := newTestGoogle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := g.Exchange(context.Background(), "any-code", "")
	if !errors.Is(err, apperror.ErrNetwork) {
		t.Fatalf("Exchange() error = %v, want ErrNetwork", err)
	}
}

func TestGoogleFetchProfile_Success(t *testing.T) {
	g, _ := newTestGoogle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		jsonResponse(w, http.StatusOK,
			`{"sub":"109876","email":"ada@example.com","given_name":"Ada","family_name":"Lovelace"}`)
	}))

	profile, err := g.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "tok"})
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if profile.ExternalID != "109876" {
		t.Errorf("ExternalID = %q, want %q", profile.ExternalID, "109876")
	}
	if profile.Email != "ada@example.com" {
		t.Errorf("Email = %q", profile.Email)
	}
	if profile.GivenName != "Ada" || profile.FamilyName != "Lovelace" {
		t.Errorf("name = %q %q", profile.GivenName, profile.FamilyName)
	}
	if profile.Raw["sub"] != "109876" {
		t.Error("Raw payload should carry the original response")
	}
}

func TestGoogleFetchProfile_EmailMissing(t *testing.T) {
	g, _ := newTestGoogle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, `{"sub":"109876","given_name":"Ada"}`)
	}))

	_, err := g.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "tok"})
	if !errors.Is(err, apperror.ErrEmailMissing) {
		t.Fatalf("FetchProfile() error = %v, want ErrEmailMissing", err)
	}
}

func TestGoogleFetchProfile_Unavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{}`},
		{"unauthorized", http.StatusUnauthorized, `{}`},
		{"missing sub", http.StatusOK, `{"email":"ada@example.com"}`},
		{"invalid json", http.StatusOK, `{{{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGoogle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				jsonResponse(w, tt.status, tt.body)
			}))

			_, err := g.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "tok"})
			if !errors.Is(err, apperror.ErrProfileUnavailable) {
				t.Fatalf("FetchProfile() error = %v, want ErrProfileUnavailable", err)
			}
		})
	}
}
