package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/sakif/auth-backend/internal/apperror"
	"github.com/sakif/auth-backend/internal/auth"
	"github.com/sakif/auth-backend/internal/model"
	"github.com/sakif/auth-backend/internal/oauth"
	"github.com/sakif/auth-backend/internal/repository/sqlite"
	"github.com/sakif/auth-backend/internal/service"
)

type stubProvider struct {
	name        model.Provider
	exchangeErr error
	profile     *oauth.Profile
	profileErr  error
}

func (p *stubProvider) Name() model.Provider { return p.name }

func (p *stubProvider) Exchange(_ context.Context, _, _ string) (*oauth2.Token, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &oauth2.Token{AccessToken: "provider-token"}, nil
}

func (p *stubProvider) FetchProfile(_ context.Context, _ *oauth2.Token) (*oauth.Profile, error) {
	if p.profileErr != nil {
		return nil, p.profileErr
	}
	return p.profile, nil
}

type testEnv struct {
	router *chi.Mux
	google *stubProvider
	github *stubProvider
}

// newTestEnv wires the full stack against an in-memory database, mounted
// with the same route layout the server uses.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-0123456789abcdef")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authSvc := service.NewAuthService(db.Users(), db.SocialAccounts(), tokens, auth.NewPasswordServiceForTest(4), logger)

	google := &stubProvider{name: model.ProviderGoogle, profile: &oauth.Profile{
		ExternalID: "google-123",
		Email:      "ada@example.com",
		GivenName:  "Ada",
		FamilyName: "Lovelace",
	}}
	github := &stubProvider{name: model.ProviderGitHub, profile: &oauth.Profile{
		ExternalID: "9000",
		Email:      "grace@example.com",
		Login:      "ghopper",
	}}

	h := NewAuthHandler(authSvc, google, github, logger)

	r := chi.NewRouter()
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/google", h.HandleGoogleLogin)
	r.Post("/auth/github", h.HandleGitHubLogin)
	r.Post("/auth/token/refresh", h.HandleRefresh)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/api/me", h.HandleMe)
		r.Get("/api/users", h.HandleListUsers)
	})

	return &testEnv{router: r, google: google, github: github}
}

func (env *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandleRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "ada", "email": "ada@example.com", "password": "s3cret-pass",
	}, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ada", body["username"])
	assert.Equal(t, "ada@example.com", body["email"])
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["refresh"])
}

func TestHandleRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "ada", "email": "ada@example.com", "password": "s3cret-pass",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "ada", "email": "other@example.com", "password": "s3cret-pass",
	}, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []any{"A user with that username already exists."}, body["username"])
}

func TestHandleLogin(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "ada", "email": "ada@example.com", "password": "s3cret-pass",
	}, "")

	rec := env.do(t, http.MethodPost, "/auth/login", map[string]string{
		"username": "ada", "password": "s3cret-pass",
	}, "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ada", body["username"])
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["refresh"])
	assert.NotContains(t, body, "email")
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/login", map[string]string{
		"username": "ada", "password": "nope",
	}, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []any{"Invalid credentials"}, body["non_field_errors"])
}

func TestHandleGoogleLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/google", map[string]string{"code": "auth-code"}, "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ada", body["username"])
	assert.Equal(t, "ada@example.com", body["email"])
	assert.NotEmpty(t, body["token"])
}

func TestHandleGoogleLoginMissingCode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/google", map[string]string{}, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []any{"No authorization code provided"}, body["non_field_errors"])
}

func TestHandleGitHubLoginRejectedCode(t *testing.T) {
	env := newTestEnv(t)
	env.github.exchangeErr = apperror.ExchangeFailed("GitHub", "The code passed is incorrect or expired.")

	rec := env.do(t, http.MethodPost, "/auth/github", map[string]string{
		"code": "bad-code", "redirect_uri": "http://localhost:5173",
	}, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t,
		[]any{"GitHub authentication error: The code passed is incorrect or expired."},
		body["non_field_errors"])
}

func TestHandleGitHubLoginUnverifiedEmail(t *testing.T) {
	env := newTestEnv(t)
	env.github.profileErr = apperror.EmailMissing("GitHub")

	rec := env.do(t, http.MethodPost, "/auth/github", map[string]string{"code": "code"}, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []any{"No verified email address provided by GitHub"}, body["non_field_errors"])
}

func TestHandleGoogleLoginProviderUnreachable(t *testing.T) {
	env := newTestEnv(t)
	env.google.exchangeErr = apperror.Network("Google", errors.New("dial tcp: connection refused"))

	rec := env.do(t, http.MethodPost, "/auth/google", map[string]string{"code": "code"}, "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []any{"Authentication service unavailable"}, body["non_field_errors"])
}

func TestHandleRefresh(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "ada", "email": "ada@example.com", "password": "s3cret-pass",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	refresh := decodeBody(t, rec)["refresh"].(string)

	rec = env.do(t, http.MethodPost, "/auth/token/refresh", map[string]string{"refresh": refresh}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["access"])

	rec = env.do(t, http.MethodPost, "/auth/token/refresh", map[string]string{"refresh": "garbage"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/google", map[string]string{"code": "code"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := decodeBody(t, rec)["token"].(string)

	rec = env.do(t, http.MethodGet, "/api/me", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ada", body["username"])
	assert.Equal(t, "Ada", body["first_name"])
	assert.Equal(t, []any{"google"}, body["providers"])

	rec = env.do(t, http.MethodGet, "/api/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleListUsers(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "ada", "email": "ada@example.com", "password": "s3cret-pass",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	token := decodeBody(t, rec)["token"].(string)

	rec = env.do(t, http.MethodPost, "/auth/github", map[string]string{"code": "code"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/users", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "ada", users[0]["username"])
	assert.Equal(t, "", users[0]["provider"])
	assert.Equal(t, "ghopper", users[1]["username"])
	assert.Equal(t, "github", users[1]["provider"])
}

func TestHandleInvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []any{"Invalid JSON body"}, body["non_field_errors"])
}
