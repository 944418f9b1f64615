package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Dakheel-code/arena-run-sub001/internal/app"
	"github.com/Dakheel-code/arena-run-sub001/internal/config"
	"github.com/Dakheel-code/arena-run-sub001/internal/di"
	"github.com/Dakheel-code/arena-run-sub001/internal/security"
)

const tokenSecret = "integration-secret-0123456789abcdef"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type stubUpstreams struct {
	geo     *httptest.Server
	webhook *httptest.Server

	mu       sync.Mutex
	geoCalls int
	hooks    chan map[string]any
}

func newStubUpstreams(t *testing.T) *stubUpstreams {
	t.Helper()
	s := &stubUpstreams{hooks: make(chan map[string]any, 16)}
	s.geo = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.geoCalls++
		s.mu.Unlock()
		ip := strings.TrimPrefix(r.URL.Path, "/json/")
		switch ip {
		case "198.51.100.4":
			_, _ = w.Write([]byte(`{"status":"success","country":"Netherlands","city":"Amsterdam","isp":"M247","proxy":true,"hosting":false}`))
		default:
			_, _ = w.Write([]byte(`{"status":"success","country":"Saudi Arabia","city":"Riyadh","isp":"STC","proxy":false,"hosting":false}`))
		}
	}))
	s.webhook = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		s.hooks <- payload
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(s.geo.Close)
	t.Cleanup(s.webhook.Close)
	return s
}

func (s *stubUpstreams) geoCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geoCalls
}

type arenaServer struct {
	baseURL  string
	client   *http.Client
	app      *app.App
	upstream *stubUpstreams
}

func newArenaServer(t *testing.T) *arenaServer {
	t.Helper()
	up := newStubUpstreams(t)
	mr := miniredis.RunT(t)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := &config.Config{
		AppEnv:                       "test",
		HTTPAddr:                     "127.0.0.1:0",
		DatabaseURL:                  "sqlite://file:" + name + "?mode=memory&cache=shared",
		RedisAddr:                    mr.Addr(),
		TokenSecret:                  tokenSecret,
		DiscordAPIBaseURL:            "http://127.0.0.1:1",
		GeoLookupBaseURL:             up.geo.URL,
		GeoLookupTimeout:             time.Second,
		GeoCacheTTL:                  time.Hour,
		NotifyTimeout:                2 * time.Second,
		NotifyRatePerSecond:          50,
		APIRateLimitRPM:              1000,
		LoginRateLimitRPM:            100,
		ShutdownTimeout:              5 * time.Second,
		ShutdownHTTPDrainTimeout:     time.Second,
		ShutdownObservabilityTimeout: time.Second,
		OTELServiceName:              "arena-run-integration",
		OTELMetricsExportInterval:    time.Second,
	}
	a, err := di.InitializeApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("initialize app: %v", err)
	}
	srv := httptest.NewServer(a.Server.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = a.Shutdown(context.Background())
	})
	return &arenaServer{baseURL: srv.URL, client: srv.Client(), app: a, upstream: up}
}

func issueToken(t *testing.T, subject string, admin bool) string {
	t.Helper()
	tok, err := security.NewTokenAuthority(tokenSecret).Issue(security.Claims{Subject: subject, Name: subject, Role: "member", IsAdmin: admin})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (s *arenaServer) do(t *testing.T, method, path, token string, body any, headers map[string]string) (*http.Response, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.baseURL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode %s %s: %v body=%s", method, path, err, raw)
		}
	}
	return resp, env
}
