// Package detection evaluates a just-recorded watch session against the
// member's recent history and produces alert candidates.
package detection

import (
	"context"
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
)

const (
	HistoryWindow = 24 * time.Hour
	DeviceWindow  = 5 * time.Minute
)

// Event is the session signal a rule set runs against.
type Event struct {
	MemberID   string
	VideoID    string
	SessionID  string
	Country    string
	IP         string
	UserAgent  string
	ISP        string
	IsVPN      bool
	OccurredAt time.Time
}

// History is read-only access to recorded sessions.
type History interface {
	SessionsForMemberSince(ctx context.Context, memberID string, since time.Time) ([]domain.WatchSession, error)
	CountForMemberVideoSince(ctx context.Context, memberID, videoID string, since time.Time) (int64, error)
}

// Candidate is a finding produced by one rule before it is persisted.
type Candidate struct {
	Type        domain.AlertType
	Severity    domain.Severity
	MemberID    string
	Title       string
	Description string
	Details     map[string]any
}

type Rule interface {
	Type() domain.AlertType
	Enabled(settings domain.NotificationSettings) bool
	// Evaluate returns nil when the rule does not fire.
	Evaluate(ctx context.Context, ev Event, history History, settings domain.NotificationSettings) (*Candidate, error)
}
