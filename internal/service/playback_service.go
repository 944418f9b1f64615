package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/detection"
	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
	"github.com/Dakheel-code/arena-run-sub001/internal/notify"

	json "github.com/goccy/go-json"
)

type Evaluator interface {
	Evaluate(ctx context.Context, ev detection.Event, settings domain.NotificationSettings) []detection.Candidate
}

type AlertEmitter interface {
	Emit(ctx context.Context, alert *domain.Alert, msg notify.Message, dest notify.Destination) error
}

// PlaybackService records a qualifying playback start and runs detection on it.
// Detection and alerting never fail the playback response.
type PlaybackService struct {
	recorder   *SessionRecorder
	settings   SettingsReader
	engine     Evaluator
	dispatcher AlertEmitter
	logger     *slog.Logger
}

type SettingsReader interface {
	Get(ctx context.Context) (domain.NotificationSettings, error)
}

func NewPlaybackService(recorder *SessionRecorder, settings SettingsReader, engine Evaluator, dispatcher AlertEmitter, logger *slog.Logger) *PlaybackService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaybackService{recorder: recorder, settings: settings, engine: engine, dispatcher: dispatcher, logger: logger}
}

func (s *PlaybackService) Start(ctx context.Context, req StartRequest) (*domain.WatchSession, error) {
	session, err := s.recorder.StartOrRecord(ctx, req)
	if err != nil {
		return nil, err
	}
	s.detect(ctx, session)
	return session, nil
}

func (s *PlaybackService) Update(ctx context.Context, memberID, sessionID string, watchSeconds int64) error {
	return s.recorder.Update(ctx, memberID, sessionID, watchSeconds)
}

func (s *PlaybackService) End(ctx context.Context, memberID, sessionID string) error {
	return s.recorder.Close(ctx, memberID, sessionID)
}

func (s *PlaybackService) Ingest(ctx context.Context, req IngestRequest, sig ClientSignals) error {
	return s.recorder.Ingest(ctx, req, sig)
}

func (s *PlaybackService) detect(ctx context.Context, session *domain.WatchSession) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "notification settings unavailable, using defaults", "error", err)
		settings = domain.DefaultNotificationSettings()
	}
	ev := detection.Event{
		MemberID:   session.MemberID,
		VideoID:    session.VideoID,
		SessionID:  session.ID,
		Country:    session.Country,
		IP:         session.IPAddress,
		UserAgent:  session.UserAgent,
		ISP:        session.ISP,
		IsVPN:      session.IsVPN,
		OccurredAt: session.StartedAt,
	}
	dest := notify.Destination{DiscordChannelID: settings.DiscordChannelID, WebhookURL: settings.WebhookURL}
	for _, c := range s.engine.Evaluate(ctx, ev, settings) {
		alert := &domain.Alert{
			Type:     c.Type,
			Severity: c.Severity,
			MemberID: c.MemberID,
			Details:  encodeDetails(c.Details),
		}
		if err := s.dispatcher.Emit(ctx, alert, buildMessage(c, session, settings), dest); err != nil {
			s.logger.ErrorContext(ctx, "alert emit failed", "type", c.Type, "member_id", c.MemberID, "error", err)
		}
	}
}

func encodeDetails(details map[string]any) string {
	if len(details) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func buildMessage(c detection.Candidate, session *domain.WatchSession, settings domain.NotificationSettings) notify.Message {
	msg := notify.Message{
		Title:       c.Title,
		Description: c.Description,
		Severity:    c.Severity,
		Timestamp:   time.Now().UTC(),
		Fields: []notify.Field{
			{Name: "Member", Value: session.MemberID, Inline: true},
			{Name: "Severity", Value: string(c.Severity), Inline: true},
			{Name: "Video", Value: session.VideoID, Inline: true},
			{Name: "IP", Value: session.IPAddress, Inline: true},
			{Name: "Country", Value: session.Country, Inline: true},
			{Name: "Watermark", Value: session.WatermarkCode, Inline: true},
		},
	}
	if base := strings.TrimRight(settings.DashboardURL, "/"); base != "" {
		msg.URL = base + "/alerts"
	}
	return msg
}
