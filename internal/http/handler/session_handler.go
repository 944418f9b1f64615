package handler

import (
	"net/http"
	"strings"

	"github.com/Dakheel-code/arena-run-sub001/internal/http/middleware"
	"github.com/Dakheel-code/arena-run-sub001/internal/http/response"
	"github.com/Dakheel-code/arena-run-sub001/internal/security"
	"github.com/Dakheel-code/arena-run-sub001/internal/service"

	"github.com/go-chi/chi/v5"
)

type startSessionRequest struct {
	WatchedSeconds *int64 `json:"watched_seconds" validate:"required"`
}

type updateSessionRequest struct {
	WatchSeconds *int64 `json:"watch_seconds" validate:"required,gte=0"`
}

type ingestRequest struct {
	VideoID      string `json:"video_id" validate:"required"`
	SubjectID    string `json:"subject_id" validate:"required"`
	WatchSeconds *int64 `json:"watch_seconds" validate:"required,gte=0"`
}

type SessionHandler struct {
	playback service.PlaybackServiceInterface
}

func NewSessionHandler(playback service.PlaybackServiceInterface) *SessionHandler {
	return &SessionHandler{playback: playback}
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, r)
		return
	}
	var req startSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	session, err := h.playback.Start(r.Context(), service.StartRequest{
		MemberID:       claims.Subject,
		VideoID:        chi.URLParam(r, "video_id"),
		WatchedSeconds: *req.WatchedSeconds,
		Signals:        signals(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, map[string]any{
		"session_id":     session.ID,
		"watermark_code": session.WatermarkCode,
	})
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, r)
		return
	}
	var req updateSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.playback.Update(r.Context(), claims.Subject, chi.URLParam(r, "session_id"), *req.WatchSeconds); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, r)
		return
	}
	if err := h.playback.End(r.Context(), claims.Subject, chi.URLParam(r, "session_id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ingest accepts telemetry for the caller only, unless the caller is an admin.
func (h *SessionHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, r)
		return
	}
	var req ingestRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SubjectID) != claims.Subject && !claims.IsAdmin {
		response.Error(w, r, http.StatusForbidden, response.CodeForbidden, "subject_id does not match the caller", nil)
		return
	}
	err := h.playback.Ingest(r.Context(), service.IngestRequest{
		VideoID:      req.VideoID,
		SubjectID:    req.SubjectID,
		WatchSeconds: *req.WatchSeconds,
	}, signals(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func signals(r *http.Request) service.ClientSignals {
	return service.ClientSignals{IP: security.ClientIP(r), UserAgent: r.UserAgent()}
}
