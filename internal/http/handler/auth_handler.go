package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/http/response"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"
	"github.com/Dakheel-code/arena-run-sub001/internal/security"
	"github.com/Dakheel-code/arena-run-sub001/internal/service"

	"github.com/google/uuid"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	auth          service.AuthServiceInterface
	secureCookies bool
	postLoginURL  string
}

func NewAuthHandler(auth service.AuthServiceInterface, secureCookies bool, postLoginURL string) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookies: secureCookies, postLoginURL: postLoginURL}
}

func (h *AuthHandler) DiscordLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/v1/auth/discord",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.auth.LoginURL(state), http.StatusFound)
}

func (h *AuthHandler) DiscordCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	expected := security.GetCookie(r, oauthStateCookie)
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/api/v1/auth/discord",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	if code == "" || state == "" || expected == "" || state != expected {
		observability.Audit(r, "auth.callback.rejected", "reason", "state")
		response.Unauthorized(w, r)
		return
	}

	res, err := h.auth.HandleCallback(r.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrNotGuildMember) || errors.Is(err, service.ErrMemberNotAllowed) {
			observability.Audit(r, "auth.callback.denied", "error", err.Error())
			response.Error(w, r, http.StatusForbidden, response.CodeForbidden, "access denied", nil)
			return
		}
		slog.WarnContext(r.Context(), "discord login failed", "error", err)
		response.Unauthorized(w, r)
		return
	}
	observability.Audit(r, "auth.login", "member_id", res.Member.ID)

	if h.postLoginURL != "" {
		http.Redirect(w, r, h.postLoginURL+"#token="+url.QueryEscape(res.Token), http.StatusFound)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"token":      res.Token,
		"expires_at": res.ExpiresAt.UTC(),
		"member":     res.Member,
	})
}
