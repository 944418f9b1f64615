package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Dakheel-code/arena-run-sub001/internal/health"
	"github.com/Dakheel-code/arena-run-sub001/internal/http/handler"
	"github.com/Dakheel-code/arena-run-sub001/internal/http/middleware"
	"github.com/Dakheel-code/arena-run-sub001/internal/http/response"
)

type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	UserHandler       *handler.UserHandler
	SessionHandler    *handler.SessionHandler
	AdminHandler      *handler.AdminHandler
	Tokens            middleware.TokenVerifier
	APIRateLimitRPM   int
	LoginRateLimitRPM int
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(1 << 20))

	loginLimiter := middleware.RateLimit(middleware.RateLimitConfig{RequestLimit: dep.LoginRateLimitRPM, WindowSize: time.Minute})
	apiLimiter := middleware.RateLimit(middleware.RateLimitConfig{
		RequestLimit: dep.APIRateLimitRPM,
		WindowSize:   time.Minute,
		KeyFunc:      middleware.SubjectOrIPKey,
	})
	authn := middleware.AuthMiddleware(dep.Tokens)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, response.CodeDependencyUnready, "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		if dep.AuthHandler != nil {
			r.Route("/auth/discord", func(r chi.Router) {
				r.Use(loginLimiter)
				r.Get("/login", dep.AuthHandler.DiscordLogin)
				r.Get("/callback", dep.AuthHandler.DiscordCallback)
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Use(apiLimiter)
			r.Get("/me", dep.UserHandler.Me)
			r.Post("/videos/{video_id}/sessions", dep.SessionHandler.Start)
			r.Post("/sessions/ingest", dep.SessionHandler.Ingest)
			r.Patch("/sessions/{session_id}", dep.SessionHandler.Update)
			r.Post("/sessions/{session_id}/end", dep.SessionHandler.End)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/settings", dep.AdminHandler.GetSettings)
				r.Put("/settings", dep.AdminHandler.UpdateSettings)
			})
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
