package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
	"github.com/Dakheel-code/arena-run-sub001/internal/http/middleware"
	"github.com/Dakheel-code/arena-run-sub001/internal/repository"
	"github.com/Dakheel-code/arena-run-sub001/internal/security"
	"github.com/Dakheel-code/arena-run-sub001/internal/service"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
)

type fakePlayback struct {
	started   []service.StartRequest
	ingested  []service.IngestRequest
	updateErr error
	ingestErr error
}

func (f *fakePlayback) Start(_ context.Context, req service.StartRequest) (*domain.WatchSession, error) {
	if req.WatchedSeconds < service.MinQualifyingSeconds {
		return nil, fmt.Errorf("%w: watched_seconds too short", service.ErrValidation)
	}
	f.started = append(f.started, req)
	return &domain.WatchSession{ID: "s1", WatermarkCode: "AB12CD34"}, nil
}

func (f *fakePlayback) Update(context.Context, string, string, int64) error { return f.updateErr }
func (f *fakePlayback) End(context.Context, string, string) error          { return f.updateErr }

func (f *fakePlayback) Ingest(_ context.Context, req service.IngestRequest, _ service.ClientSignals) error {
	f.ingested = append(f.ingested, req)
	return f.ingestErr
}

type fakeAuth struct {
	err error
}

func (f fakeAuth) LoginURL(state string) string { return "https://discord.test/oauth2/authorize?state=" + state }

func (f fakeAuth) HandleCallback(context.Context, string) (*service.LoginResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.LoginResult{Token: "tok", ExpiresAt: time.Now().Add(time.Hour), Member: &domain.Member{ID: "42"}}, nil
}

type fakeSettings struct {
	saved *domain.NotificationSettings
}

func (f *fakeSettings) Get(context.Context) (domain.NotificationSettings, error) {
	return domain.DefaultNotificationSettings(), nil
}

func (f *fakeSettings) Update(_ context.Context, in domain.NotificationSettings) (domain.NotificationSettings, error) {
	f.saved = &in
	return in, nil
}

func withClaims(req *http.Request, claims *security.Claims) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), middleware.ClaimsContextKey, claims))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v body=%s", err, rr.Body.String())
	}
	return env.Error.Code, env.Error.Message
}

func TestStartSession(t *testing.T) {
	pb := &fakePlayback{}
	h := NewSessionHandler(pb)
	member := &security.Claims{Subject: "m1"}

	cases := []struct {
		name     string
		body     string
		want     int
		wantCode string
	}{
		{name: "ok", body: `{"watched_seconds":4}`, want: http.StatusCreated},
		{name: "missing field", body: `{}`, want: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "too short", body: `{"watched_seconds":1}`, want: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "bad json", body: `{`, want: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/v9/sessions", strings.NewReader(tc.body))
			req.Header.Set("User-Agent", "firefox")
			req.RemoteAddr = "203.0.113.5:4444"
			req = withClaims(withURLParam(req, "video_id", "v9"), member)
			rr := httptest.NewRecorder()
			h.Start(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tc.want, rr.Body.String())
			}
			if tc.wantCode != "" {
				if code, _ := errorCode(t, rr); code != tc.wantCode {
					t.Fatalf("code=%s want %s", code, tc.wantCode)
				}
				return
			}
			if !strings.Contains(rr.Body.String(), `"watermark_code":"AB12CD34"`) {
				t.Fatalf("missing watermark in %s", rr.Body.String())
			}
		})
	}
	if len(pb.started) != 1 {
		t.Fatalf("expected one start, got %d", len(pb.started))
	}
	got := pb.started[0]
	if got.MemberID != "m1" || got.VideoID != "v9" || got.Signals.IP != "203.0.113.5" || got.Signals.UserAgent != "firefox" {
		t.Fatalf("unexpected start request %+v", got)
	}
}

func TestMissingFieldMessageNamesField(t *testing.T) {
	h := NewSessionHandler(&fakePlayback{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/ingest", strings.NewReader(`{"subject_id":"m1","watch_seconds":4}`))
	req = withClaims(req, &security.Claims{Subject: "m1"})
	rr := httptest.NewRecorder()
	h.Ingest(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	if _, msg := errorCode(t, rr); msg != "video_id is required" {
		t.Fatalf("message=%q", msg)
	}
}

func TestUpdateSessionErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		body string
		want int
	}{
		{name: "ok", body: `{"watch_seconds":30}`, want: http.StatusNoContent},
		{name: "negative", body: `{"watch_seconds":-1}`, want: http.StatusBadRequest},
		{name: "not found", err: repository.ErrWatchSessionNotFound, body: `{"watch_seconds":30}`, want: http.StatusNotFound},
		{name: "storage", err: errors.New("db gone"), body: `{"watch_seconds":30}`, want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewSessionHandler(&fakePlayback{updateErr: tc.err})
			req := httptest.NewRequest(http.MethodPatch, "/api/v1/sessions/s1", strings.NewReader(tc.body))
			req = withClaims(withURLParam(req, "session_id", "s1"), &security.Claims{Subject: "m1"})
			rr := httptest.NewRecorder()
			h.Update(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tc.want, rr.Body.String())
			}
			if tc.want == http.StatusInternalServerError && strings.Contains(rr.Body.String(), "db gone") {
				t.Fatal("internal error details leaked")
			}
		})
	}
}

func TestIngestRequiresWatchSeconds(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
		msg  string
	}{
		{name: "missing", body: `{"video_id":"v1","subject_id":"m1"}`, want: http.StatusBadRequest, msg: "watch_seconds is required"},
		{name: "null", body: `{"video_id":"v1","subject_id":"m1","watch_seconds":null}`, want: http.StatusBadRequest, msg: "watch_seconds is required"},
		{name: "negative", body: `{"video_id":"v1","subject_id":"m1","watch_seconds":-5}`, want: http.StatusBadRequest, msg: "watch_seconds must be at least 0"},
		{name: "explicit zero", body: `{"video_id":"v1","subject_id":"m1","watch_seconds":0}`, want: http.StatusAccepted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pb := &fakePlayback{}
			h := NewSessionHandler(pb)
			req := withClaims(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/ingest", strings.NewReader(tc.body)), &security.Claims{Subject: "m1"})
			rr := httptest.NewRecorder()
			h.Ingest(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tc.want, rr.Body.String())
			}
			if tc.msg != "" {
				if _, msg := errorCode(t, rr); msg != tc.msg {
					t.Fatalf("message=%q want %q", msg, tc.msg)
				}
				if len(pb.ingested) != 0 {
					t.Fatal("invalid ingest must not reach the service")
				}
				return
			}
			if len(pb.ingested) != 1 || pb.ingested[0].WatchSeconds != 0 {
				t.Fatalf("unexpected ingested %+v", pb.ingested)
			}
		})
	}
}

func TestIngestAcceptsAndChecksSubject(t *testing.T) {
	pb := &fakePlayback{}
	h := NewSessionHandler(pb)
	body := `{"video_id":"v1","subject_id":"m1","watch_seconds":12}`

	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/ingest", strings.NewReader(body)), &security.Claims{Subject: "m1"})
	rr := httptest.NewRecorder()
	h.Ingest(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	req = withClaims(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/ingest", strings.NewReader(body)), &security.Claims{Subject: "m2"})
	rr = httptest.NewRecorder()
	h.Ingest(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign subject status=%d", rr.Code)
	}

	req = withClaims(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/ingest", strings.NewReader(body)), &security.Claims{Subject: "admin", IsAdmin: true})
	rr = httptest.NewRecorder()
	h.Ingest(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("admin ingest status=%d", rr.Code)
	}
	if len(pb.ingested) != 2 {
		t.Fatalf("expected 2 ingested, got %d", len(pb.ingested))
	}
}

func TestDiscordLoginSetsStateCookie(t *testing.T) {
	h := NewAuthHandler(fakeAuth{}, true, "")
	rr := httptest.NewRecorder()
	h.DiscordLogin(rr, httptest.NewRequest(http.MethodGet, "/api/v1/auth/discord/login", nil))

	if rr.Code != http.StatusFound {
		t.Fatalf("status=%d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != oauthStateCookie || !cookies[0].HttpOnly || !cookies[0].Secure {
		t.Fatalf("unexpected cookies %+v", cookies)
	}
	if loc := rr.Header().Get("Location"); !strings.HasSuffix(loc, "state="+cookies[0].Value) {
		t.Fatalf("redirect %q does not carry state %q", loc, cookies[0].Value)
	}
}

func TestDiscordCallback(t *testing.T) {
	cases := []struct {
		name   string
		auth   fakeAuth
		query  string
		cookie string
		want   int
	}{
		{name: "ok", query: "?code=c&state=s", cookie: "s", want: http.StatusOK},
		{name: "state mismatch", query: "?code=c&state=s", cookie: "other", want: http.StatusUnauthorized},
		{name: "no cookie", query: "?code=c&state=s", want: http.StatusUnauthorized},
		{name: "not in guild", auth: fakeAuth{err: service.ErrNotGuildMember}, query: "?code=c&state=s", cookie: "s", want: http.StatusForbidden},
		{name: "exchange failure", auth: fakeAuth{err: errors.New("bad code")}, query: "?code=c&state=s", cookie: "s", want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAuthHandler(tc.auth, false, "")
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/discord/callback"+tc.query, nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: tc.cookie})
			}
			rr := httptest.NewRecorder()
			h.DiscordCallback(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tc.want, rr.Body.String())
			}
		})
	}
}

func TestDiscordCallbackRedirectsWithToken(t *testing.T) {
	h := NewAuthHandler(fakeAuth{}, false, "https://arena.example.com/login")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/discord/callback?code=c&state=s", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "s"})
	rr := httptest.NewRecorder()
	h.DiscordCallback(rr, req)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "https://arena.example.com/login#token=tok" {
		t.Fatalf("unexpected redirect status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	settings := &fakeSettings{}
	h := NewAdminHandler(settings)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/settings", strings.NewReader(`{"excessive_views_threshold":0,"excessive_views_interval":10,"odd_hours_start":2,"odd_hours_end":6}`))
	rr := httptest.NewRecorder()
	h.UpdateSettings(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if settings.saved != nil {
		t.Fatal("invalid settings must not reach the service")
	}

	req = httptest.NewRequest(http.MethodPut, "/api/v1/admin/settings", strings.NewReader(`{"alert_vpn":true,"excessive_views_threshold":5,"excessive_views_interval":10,"odd_hours_start":2,"odd_hours_end":6}`))
	rr = httptest.NewRecorder()
	h.UpdateSettings(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if settings.saved == nil || !settings.saved.AlertVPN {
		t.Fatalf("expected saved settings, got %+v", settings.saved)
	}
}

func TestMeReturnsClaims(t *testing.T) {
	req := withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), &security.Claims{Subject: "m1", Name: "Raider", Role: "member"})
	rr := httptest.NewRecorder()
	NewUserHandler().Me(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"id":"m1"`) {
		t.Fatalf("unexpected response %d %s", rr.Code, rr.Body.String())
	}
}
