package middleware

import (
	"context"
	"net/http"

	"github.com/Dakheel-code/arena-run-sub001/internal/http/response"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"
	"github.com/Dakheel-code/arena-run-sub001/internal/security"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
)

type TokenVerifier interface {
	Verify(raw string) (*security.Claims, error)
}

// AuthMiddleware admits requests carrying a valid bearer token. Every failure
// gets the same 401 body.
func AuthMiddleware(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := security.BearerToken(r)
			if raw == "" {
				observability.RecordTokenValidation(r.Context(), "missing")
				response.Unauthorized(w, r)
				return
			}
			claims, err := tokens.Verify(raw)
			if err != nil {
				observability.RecordTokenValidation(r.Context(), "invalid")
				response.Unauthorized(w, r)
				return
			}
			observability.RecordTokenValidation(r.Context(), "valid")
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			response.Unauthorized(w, r)
			return
		}
		if !claims.IsAdmin {
			observability.Audit(r, "admin.denied", "member_id", claims.Subject)
			response.Error(w, r, http.StatusForbidden, response.CodeForbidden, "admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
