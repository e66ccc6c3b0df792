package handler

import (
	"net/http"
	"studyhub/internal/api/middleware"
	"studyhub/internal/app/service"
	"studyhub/internal/common"
	"studyhub/internal/common/security"
	"time"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	authService  *service.AuthService
	requireAuth  Middleware
	cookieSecure bool
}

func NewAuthHandler(authService *service.AuthService, requireAuth Middleware, cookieSecure bool) *AuthHandler {
	return &AuthHandler{authService: authService, requireAuth: requireAuth, cookieSecure: cookieSecure}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)

	r.Group(func(authed chi.Router) {
		authed.Use(h.requireAuth)
		authed.Post("/logout", h.logout)
		authed.Get("/me", h.me)
	})
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	h.setCookie(w, resp.Token.Token, resp.Token.ExpiresAt)
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	h.setCookie(w, resp.Token.Token, resp.Token.ExpiresAt)
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		common.RespondWithAppError(w, common.Errorf("missing token context: %w", common.ErrUnauthorized))
		return
	}
	if err := h.authService.Logout(r.Context(), token.ID, token.ExpiresAt); err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	h.setCookie(w, "", time.Unix(0, 0))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	common.RespondWithJSON(w, http.StatusOK, caller)
}

// setCookie issues the HttpOnly session cookie. An empty value clears it.
func (h *AuthHandler) setCookie(w http.ResponseWriter, value string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     security.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if h.cookieSecure {
		// Cross-site SPA requests only carry the cookie with SameSite=None.
		cookie.SameSite = http.SameSiteNoneMode
	}
	if value == "" {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
}
