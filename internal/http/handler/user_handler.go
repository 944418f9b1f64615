package handler

import (
	"net/http"

	"github.com/Dakheel-code/arena-run-sub001/internal/http/middleware"
	"github.com/Dakheel-code/arena-run-sub001/internal/http/response"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler { return &UserHandler{} }

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, r)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"id":         claims.Subject,
		"name":       claims.Name,
		"avatar":     claims.Avatar,
		"role":       claims.Role,
		"is_admin":   claims.IsAdmin,
		"expires_at": claims.ExpiresAtTime(),
	})
}
