package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/security"
)

const testSecret = "abcdefghijklmnopqrstuvwxyz123456"

func issue(t *testing.T, authority *security.TokenAuthority, claims security.Claims) string {
	t.Helper()
	token, err := authority.Issue(claims)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func TestAuthMiddlewareRejectsUniformly(t *testing.T) {
	authority := security.NewTokenAuthority(testSecret)
	expired := security.NewTokenAuthority(testSecret).WithClock(func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) })
	foreign := security.NewTokenAuthority("zyxwvutsrqponmlkjihgfedcba654321")

	cases := map[string]string{
		"missing":   "",
		"malformed": "Bearer not-a-token",
		"expired":   "Bearer " + issue(t, expired, security.Claims{Subject: "m1"}),
		"signature": "Bearer " + issue(t, foreign, security.Claims{Subject: "m1"}),
		"scheme":    "Basic " + issue(t, authority, security.Claims{Subject: "m1"}),
	}
	var bodies []string
	for name, header := range cases {
		h := AuthMiddleware(authority)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatalf("%s: expected middleware to block request", name)
		}))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("X-Request-Id", "fixed")
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rr.Code)
		}
		body := rr.Body.String()
		bodies = append(bodies, body[:strings.Index(body, `"meta"`)])
	}
	for _, b := range bodies[1:] {
		if b != bodies[0] {
			t.Fatalf("401 bodies differ: %q vs %q", b, bodies[0])
		}
	}
}

func TestAuthMiddlewareValidBearerTokenPasses(t *testing.T) {
	authority := security.NewTokenAuthority(testSecret)
	token := issue(t, authority, security.Claims{Subject: "m1", Role: "member"})

	var got *security.Claims
	h := AuthMiddleware(authority)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for valid token, got %d", rr.Code)
	}
	if got == nil || got.Subject != "m1" {
		t.Fatalf("expected claims in context, got %+v", got)
	}
}

func TestRequireAdmin(t *testing.T) {
	cases := []struct {
		name   string
		claims *security.Claims
		want   int
	}{
		{name: "no claims", claims: nil, want: http.StatusUnauthorized},
		{name: "member", claims: &security.Claims{Subject: "m1"}, want: http.StatusForbidden},
		{name: "admin", claims: &security.Claims{Subject: "m1", IsAdmin: true}, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.claims != nil {
				req = req.WithContext(context.WithValue(req.Context(), ClaimsContextKey, tc.claims))
			}
			rr := httptest.NewRecorder()
			RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, rr.Code)
			}
		})
	}
}
