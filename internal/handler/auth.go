package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/auth-backend/internal/auth"
	"github.com/sakif/auth-backend/internal/oauth"
	"github.com/sakif/auth-backend/internal/service"
)

// AuthHandler serves registration, login, social sign-in, and the
// authenticated user endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	google oauth.Provider
	github oauth.Provider
	logger *slog.Logger
}

func NewAuthHandler(authSvc *service.AuthService, google, github oauth.Provider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   authSvc,
		google: google,
		github: github,
		logger: logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type socialLoginRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type sessionResponse struct {
	Token    string `json:"token"`
	Refresh  string `json:"refresh"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func sessionFromResult(res *service.AuthResult) sessionResponse {
	return sessionResponse{
		Token:    res.Tokens.Access,
		Refresh:  res.Tokens.Refresh,
		Username: res.User.Username,
		Email:    res.User.Email,
	}
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionFromResult(res))
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// The login response intentionally omits the email; the frontend only
	// stores username and tokens here.
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:    res.Tokens.Access,
		Refresh:  res.Tokens.Refresh,
		Username: res.User.Username,
	})
}

func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	h.handleSocialLogin(w, r, h.google)
}

func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	h.handleSocialLogin(w, r, h.github)
}

func (h *AuthHandler) handleSocialLogin(w http.ResponseWriter, r *http.Request, provider oauth.Provider) {
	var req socialLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.SignInWithProvider(r.Context(), provider, req.Code, req.RedirectURI)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionFromResult(res))
}

func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	access, err := h.auth.RefreshAccess(r.Context(), req.Refresh)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

type meResponse struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Providers []string `json:"providers"`
}

func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("", "Authentication required"))
		return
	}

	user, links, err := h.auth.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	providers := make([]string, 0, len(links))
	for _, link := range links {
		providers = append(providers, string(link.Provider))
	}

	writeJSON(w, http.StatusOK, meResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Providers: providers,
	})
}

func (h *AuthHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	overviews, err := h.auth.ListUsers(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if overviews == nil {
		overviews = []service.UserOverview{}
	}
	writeJSON(w, http.StatusOK, overviews)
}
