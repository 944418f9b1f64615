package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
	"github.com/Dakheel-code/arena-run-sub001/internal/geo"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"
	"github.com/Dakheel-code/arena-run-sub001/internal/repository"
	"github.com/Dakheel-code/arena-run-sub001/internal/security"

	"github.com/google/uuid"
)

// MinQualifyingSeconds is the watched time a client must report before a
// playback start is recorded.
const MinQualifyingSeconds = 3

var ErrValidation = errors.New("validation failed")

type ClientSignals struct {
	IP        string
	UserAgent string
}

type StartRequest struct {
	MemberID       string
	VideoID        string
	WatchedSeconds int64
	Signals        ClientSignals
}

type IngestRequest struct {
	VideoID      string
	SubjectID    string
	WatchSeconds int64
}

type SessionRecorder struct {
	sessions   repository.WatchSessionRepository
	geo        geo.Resolver
	geoTimeout time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewSessionRecorder(sessions repository.WatchSessionRepository, resolver geo.Resolver, geoTimeout time.Duration, logger *slog.Logger) *SessionRecorder {
	if geoTimeout <= 0 {
		geoTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRecorder{
		sessions:   sessions,
		geo:        resolver,
		geoTimeout: geoTimeout,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// StartOrRecord supersedes any open session for the member and video, then
// records a new geo-enriched session with a fresh watermark.
func (r *SessionRecorder) StartOrRecord(ctx context.Context, req StartRequest) (*domain.WatchSession, error) {
	req.MemberID = strings.TrimSpace(req.MemberID)
	req.VideoID = strings.TrimSpace(req.VideoID)
	if req.MemberID == "" || req.VideoID == "" {
		return nil, fmt.Errorf("%w: member and video are required", ErrValidation)
	}
	if req.WatchedSeconds < MinQualifyingSeconds {
		return nil, fmt.Errorf("%w: watched_seconds must be at least %d", ErrValidation, MinQualifyingSeconds)
	}

	now := r.now()
	if n, err := r.sessions.CloseOpenForMemberVideo(ctx, req.MemberID, req.VideoID, now); err != nil {
		observability.RecordSessionEvent(ctx, "started", "error")
		return nil, fmt.Errorf("supersede open sessions: %w", err)
	} else if n > 0 {
		r.logger.InfoContext(ctx, "superseded open watch sessions", "member_id", req.MemberID, "video_id", req.VideoID, "count", n)
	}

	session, err := r.newSession(ctx, req.MemberID, req.VideoID, req.WatchedSeconds, req.Signals, now)
	if err != nil {
		observability.RecordSessionEvent(ctx, "started", "error")
		return nil, err
	}
	if err := r.sessions.Create(ctx, session); err != nil {
		observability.RecordSessionEvent(ctx, "started", "error")
		return nil, fmt.Errorf("create watch session: %w", err)
	}
	observability.RecordSessionEvent(ctx, "started", "success")
	return session, nil
}

func (r *SessionRecorder) Update(ctx context.Context, memberID, sessionID string, watchSeconds int64) error {
	if watchSeconds < 0 {
		return fmt.Errorf("%w: watch_seconds must not be negative", ErrValidation)
	}
	applied, err := r.sessions.AdvanceWatchSeconds(ctx, memberID, sessionID, watchSeconds)
	if err != nil {
		observability.RecordSessionEvent(ctx, "progress", "error")
		return err
	}
	outcome := "noop"
	if applied {
		outcome = "success"
	}
	observability.RecordSessionEvent(ctx, "progress", outcome)
	return nil
}

func (r *SessionRecorder) Close(ctx context.Context, memberID, sessionID string) error {
	closed, err := r.sessions.Close(ctx, memberID, sessionID, r.now())
	if err != nil {
		observability.RecordSessionEvent(ctx, "ended", "error")
		return err
	}
	outcome := "noop"
	if closed {
		outcome = "success"
	}
	observability.RecordSessionEvent(ctx, "ended", outcome)
	return nil
}

// Ingest is best-effort telemetry. Only missing fields are reported; storage
// failures are logged and swallowed.
func (r *SessionRecorder) Ingest(ctx context.Context, req IngestRequest, sig ClientSignals) error {
	req.VideoID = strings.TrimSpace(req.VideoID)
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	if req.VideoID == "" || req.SubjectID == "" {
		return fmt.Errorf("%w: video_id and subject_id are required", ErrValidation)
	}
	if req.WatchSeconds < 0 {
		return fmt.Errorf("%w: watch_seconds must not be negative", ErrValidation)
	}

	if err := r.ingest(ctx, req, sig); err != nil {
		observability.RecordSessionEvent(ctx, "ingested", "dropped")
		r.logger.WarnContext(ctx, "watch telemetry dropped",
			"member_id", req.SubjectID,
			"video_id", req.VideoID,
			"error", err,
		)
		return nil
	}
	observability.RecordSessionEvent(ctx, "ingested", "success")
	return nil
}

func (r *SessionRecorder) ingest(ctx context.Context, req IngestRequest, sig ClientSignals) error {
	open, err := r.sessions.FindLatestOpen(ctx, req.SubjectID, req.VideoID)
	switch {
	case err == nil:
		_, err = r.sessions.AdvanceWatchSeconds(ctx, req.SubjectID, open.ID, req.WatchSeconds)
		return err
	case errors.Is(err, repository.ErrWatchSessionNotFound):
		session, err := r.newSession(ctx, req.SubjectID, req.VideoID, req.WatchSeconds, sig, r.now())
		if err != nil {
			return err
		}
		return r.sessions.Create(ctx, session)
	default:
		return err
	}
}

func (r *SessionRecorder) newSession(ctx context.Context, memberID, videoID string, watchSeconds int64, sig ClientSignals, now time.Time) (*domain.WatchSession, error) {
	code, err := security.NewWatermarkCode()
	if err != nil {
		return nil, fmt.Errorf("generate watermark: %w", err)
	}
	loc := r.resolve(ctx, sig.IP)
	return &domain.WatchSession{
		ID:            uuid.NewString(),
		VideoID:       videoID,
		MemberID:      memberID,
		WatermarkCode: code,
		IPAddress:     sig.IP,
		UserAgent:     sig.UserAgent,
		Country:       loc.Country,
		City:          loc.City,
		ISP:           loc.ISP,
		IsVPN:         loc.IsVPN,
		WatchSeconds:  watchSeconds,
		StartedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (r *SessionRecorder) resolve(ctx context.Context, ip string) geo.Location {
	if r.geo == nil {
		return geo.Unknown()
	}
	lookupCtx, cancel := context.WithTimeout(ctx, r.geoTimeout)
	defer cancel()
	loc := r.geo.Resolve(lookupCtx, ip)
	if loc.Country == "" {
		loc.Country = domain.UnknownCountry
	}
	return loc
}
