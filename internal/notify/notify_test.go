package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

type recordingServer struct {
	*httptest.Server
	hits    atomic.Int32
	lastReq atomic.Pointer[capturedRequest]
}

type capturedRequest struct {
	path string
	auth string
	body []byte
}

func newRecordingServer(t *testing.T, status int) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rs.hits.Add(1)
		rs.lastReq.Store(&capturedRequest{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body})
		w.WriteHeader(status)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func testMessage() Message {
	return Message{
		Title:       "VPN or proxy detected",
		Description: "Playback from 203.0.113.1",
		Severity:    domain.SeverityHigh,
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Fields:      []Field{{Name: "Member", Value: "m1", Inline: true}, {Name: "Empty", Value: ""}},
		URL:         "https://dash.example.com/alerts",
	}
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSeverityColor(t *testing.T) {
	cases := map[domain.Severity]int{
		domain.SeverityLow:    0x3498DB,
		domain.SeverityMedium: 0xF1C40F,
		domain.SeverityHigh:   0xE74C3C,
	}
	for sev, want := range cases {
		if got := SeverityColor(sev); got != want {
			t.Fatalf("SeverityColor(%s)=%#x want %#x", sev, got, want)
		}
	}
}

func TestBotChannelSendsEmbed(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK)
	bot := NewBotChannel("secret-token", srv.URL+"/", srv.Client())

	if err := bot.Send(context.Background(), Destination{DiscordChannelID: "123"}, testMessage()); err != nil {
		t.Fatalf("send: %v", err)
	}
	req := srv.lastReq.Load()
	if req.path != "/channels/123/messages" {
		t.Fatalf("unexpected path %q", req.path)
	}
	if req.auth != "Bot secret-token" {
		t.Fatalf("unexpected auth header %q", req.auth)
	}
	var payload struct {
		Embeds []struct {
			Title     string `json:"title"`
			URL       string `json:"url"`
			Color     int    `json:"color"`
			Timestamp string `json:"timestamp"`
			Fields    []struct {
				Name string `json:"name"`
			} `json:"fields"`
		} `json:"embeds"`
	}
	if err := json.Unmarshal(req.body, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Embeds) != 1 {
		t.Fatalf("expected one embed, got %d", len(payload.Embeds))
	}
	e := payload.Embeds[0]
	if e.Color != ColorHigh || e.Timestamp != "2026-03-01T12:00:00Z" || e.URL != "https://dash.example.com/alerts" {
		t.Fatalf("unexpected embed %+v", e)
	}
	if len(e.Fields) != 1 || e.Fields[0].Name != "Member" {
		t.Fatalf("empty fields must be dropped: %+v", e.Fields)
	}
}

func TestChainFallsBackToWebhookOnlyOnBotFailure(t *testing.T) {
	cases := []struct {
		name         string
		botStatus    int
		wantBotHits  int32
		wantHookHits int32
	}{
		{name: "bot succeeds", botStatus: http.StatusOK, wantBotHits: 1, wantHookHits: 0},
		{name: "bot fails", botStatus: http.StatusForbidden, wantBotHits: 1, wantHookHits: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			botSrv := newRecordingServer(t, tc.botStatus)
			hookSrv := newRecordingServer(t, http.StatusNoContent)
			chain := NewChain(nil, quietLogger(),
				NewBotChannel("tok", botSrv.URL, botSrv.Client()),
				NewWebhookChannel(hookSrv.Client()),
			)
			dest := Destination{DiscordChannelID: "123", WebhookURL: hookSrv.URL + "/hook"}
			if err := chain.Deliver(context.Background(), dest, testMessage()); err != nil {
				t.Fatalf("deliver: %v", err)
			}
			if botSrv.hits.Load() != tc.wantBotHits || hookSrv.hits.Load() != tc.wantHookHits {
				t.Fatalf("bot hits=%d hook hits=%d", botSrv.hits.Load(), hookSrv.hits.Load())
			}
		})
	}
}

func TestChainSkipsUnconfiguredBot(t *testing.T) {
	hookSrv := newRecordingServer(t, http.StatusOK)
	chain := NewChain(nil, quietLogger(), NewBotChannel("", "http://127.0.0.1:1", nil), NewWebhookChannel(hookSrv.Client()))
	if err := chain.Deliver(context.Background(), Destination{DiscordChannelID: "123", WebhookURL: hookSrv.URL}, testMessage()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if hookSrv.hits.Load() != 1 {
		t.Fatalf("expected webhook delivery, got %d", hookSrv.hits.Load())
	}
	req := hookSrv.lastReq.Load()
	if req.auth != "" {
		t.Fatalf("webhook must not carry authorization, got %q", req.auth)
	}
}

func TestChainErrors(t *testing.T) {
	chain := NewChain(nil, quietLogger(), NewBotChannel("tok", "http://127.0.0.1:1", nil), NewWebhookChannel(nil))
	if err := chain.Deliver(context.Background(), Destination{}, testMessage()); !errors.Is(err, ErrNoChannel) {
		t.Fatalf("expected ErrNoChannel, got %v", err)
	}

	hookSrv := newRecordingServer(t, http.StatusInternalServerError)
	chain = NewChain(nil, quietLogger(), NewWebhookChannel(hookSrv.Client()))
	err := chain.Deliver(context.Background(), Destination{WebhookURL: hookSrv.URL}, testMessage())
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestChainHonoursLimiterCancellation(t *testing.T) {
	hookSrv := newRecordingServer(t, http.StatusOK)
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	chain := NewChain(limiter, quietLogger(), NewWebhookChannel(hookSrv.Client()))
	dest := Destination{WebhookURL: hookSrv.URL}

	if err := chain.Deliver(context.Background(), dest, testMessage()); err != nil {
		t.Fatalf("first deliver: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := chain.Deliver(ctx, dest, testMessage()); err == nil {
		t.Fatal("expected limiter wait to fail once the context expires")
	}
	if hookSrv.hits.Load() != 1 {
		t.Fatalf("expected one delivery, got %d", hookSrv.hits.Load())
	}
}
