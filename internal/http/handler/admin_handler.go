package handler

import (
	"net/http"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
	"github.com/Dakheel-code/arena-run-sub001/internal/http/middleware"
	"github.com/Dakheel-code/arena-run-sub001/internal/http/response"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"
	"github.com/Dakheel-code/arena-run-sub001/internal/service"
)

type AdminHandler struct {
	settings service.SettingsServiceInterface
}

func NewAdminHandler(settings service.SettingsServiceInterface) *AdminHandler {
	return &AdminHandler{settings: settings}
}

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, s)
}

func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in domain.NotificationSettings
	if !decodeAndValidate(w, r, &in) {
		return
	}
	saved, err := h.settings.Update(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	claims, _ := middleware.ClaimsFromContext(r.Context())
	actor := ""
	if claims != nil {
		actor = claims.Subject
	}
	observability.Audit(r, "admin.settings.updated", "actor", actor)
	response.JSON(w, r, http.StatusOK, saved)
}
