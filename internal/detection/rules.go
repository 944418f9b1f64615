package detection

import (
	"context"
	"fmt"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
)

// DefaultRules returns every rule in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		CountryChangeRule{},
		IPChangeRule{},
		ExcessiveViewsRule{},
		VPNRule{},
		MultipleDevicesRule{},
		OddHoursRule{},
	}
}

type CountryChangeRule struct{}

func (CountryChangeRule) Type() domain.AlertType { return domain.AlertCountryChange }

func (CountryChangeRule) Enabled(s domain.NotificationSettings) bool { return s.AlertCountryChange }

func (CountryChangeRule) Evaluate(ctx context.Context, ev Event, h History, _ domain.NotificationSettings) (*Candidate, error) {
	prior, err := h.SessionsForMemberSince(ctx, ev.MemberID, ev.OccurredAt.Add(-HistoryWindow))
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	previous, ok := countryChanged(ev.Country, prior, ev.SessionID)
	if !ok {
		return nil, nil
	}
	return &Candidate{
		Type:        domain.AlertCountryChange,
		Severity:    domain.SeverityMedium,
		MemberID:    ev.MemberID,
		Title:       "Country change detected",
		Description: fmt.Sprintf("Member watched from %s after %s within 24 hours.", ev.Country, previous),
		Details: map[string]any{
			"previous_country": previous,
			"current_country":  ev.Country,
			"session_id":       ev.SessionID,
		},
	}, nil
}

type IPChangeRule struct{}

func (IPChangeRule) Type() domain.AlertType { return domain.AlertIPChange }

func (IPChangeRule) Enabled(s domain.NotificationSettings) bool { return s.AlertIPChange }

func (IPChangeRule) Evaluate(ctx context.Context, ev Event, h History, _ domain.NotificationSettings) (*Candidate, error) {
	prior, err := h.SessionsForMemberSince(ctx, ev.MemberID, ev.OccurredAt.Add(-HistoryWindow))
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	previous, ok := ipChanged(ev.IP, prior, ev.SessionID)
	if !ok {
		return nil, nil
	}
	return &Candidate{
		Type:        domain.AlertIPChange,
		Severity:    domain.SeverityLow,
		MemberID:    ev.MemberID,
		Title:       "IP address change",
		Description: fmt.Sprintf("Member switched from %s to %s within 24 hours.", previous, ev.IP),
		Details: map[string]any{
			"previous_ip": previous,
			"current_ip":  ev.IP,
			"isp":         ev.ISP,
			"session_id":  ev.SessionID,
		},
	}, nil
}

type ExcessiveViewsRule struct{}

func (ExcessiveViewsRule) Type() domain.AlertType { return domain.AlertExcessiveViews }

func (ExcessiveViewsRule) Enabled(s domain.NotificationSettings) bool { return s.AlertExcessiveViews }

func (ExcessiveViewsRule) Evaluate(ctx context.Context, ev Event, h History, s domain.NotificationSettings) (*Candidate, error) {
	count, err := h.CountForMemberVideoSince(ctx, ev.MemberID, ev.VideoID, ev.OccurredAt.Add(-HistoryWindow))
	if err != nil {
		return nil, fmt.Errorf("count views: %w", err)
	}
	if !excessiveViewsDue(count, s.ExcessiveViewsThreshold, s.ExcessiveViewsInterval) {
		return nil, nil
	}
	return &Candidate{
		Type:        domain.AlertExcessiveViews,
		Severity:    domain.SeverityLow,
		MemberID:    ev.MemberID,
		Title:       "Excessive views",
		Description: fmt.Sprintf("Video %s was started %d times in 24 hours.", ev.VideoID, count),
		Details: map[string]any{
			"video_id":   ev.VideoID,
			"view_count": count,
			"threshold":  s.ExcessiveViewsThreshold,
			"interval":   s.ExcessiveViewsInterval,
		},
	}, nil
}

type VPNRule struct{}

func (VPNRule) Type() domain.AlertType { return domain.AlertVPNDetected }

func (VPNRule) Enabled(s domain.NotificationSettings) bool { return s.AlertVPN }

func (VPNRule) Evaluate(_ context.Context, ev Event, _ History, _ domain.NotificationSettings) (*Candidate, error) {
	if !ev.IsVPN {
		return nil, nil
	}
	return &Candidate{
		Type:        domain.AlertVPNDetected,
		Severity:    domain.SeverityHigh,
		MemberID:    ev.MemberID,
		Title:       "VPN or proxy detected",
		Description: fmt.Sprintf("Playback from %s resolves to a proxy or hosting network.", ev.IP),
		Details: map[string]any{
			"ip":         ev.IP,
			"isp":        ev.ISP,
			"country":    ev.Country,
			"session_id": ev.SessionID,
		},
	}, nil
}

type MultipleDevicesRule struct{}

func (MultipleDevicesRule) Type() domain.AlertType { return domain.AlertMultipleDevices }

func (MultipleDevicesRule) Enabled(s domain.NotificationSettings) bool { return s.AlertMultipleDevices }

func (MultipleDevicesRule) Evaluate(ctx context.Context, ev Event, h History, _ domain.NotificationSettings) (*Candidate, error) {
	prior, err := h.SessionsForMemberSince(ctx, ev.MemberID, ev.OccurredAt.Add(-DeviceWindow))
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	agents := distinctAgents(ev.UserAgent, prior, ev.SessionID)
	if len(agents) <= 1 {
		return nil, nil
	}
	return &Candidate{
		Type:        domain.AlertMultipleDevices,
		Severity:    domain.SeverityHigh,
		MemberID:    ev.MemberID,
		Title:       "Multiple devices",
		Description: fmt.Sprintf("%d different devices used within 5 minutes.", len(agents)),
		Details: map[string]any{
			"user_agents": agents,
			"session_id":  ev.SessionID,
		},
	}, nil
}

type OddHoursRule struct{}

func (OddHoursRule) Type() domain.AlertType { return domain.AlertOddHours }

func (OddHoursRule) Enabled(s domain.NotificationSettings) bool { return s.AlertOddHours }

func (OddHoursRule) Evaluate(_ context.Context, ev Event, _ History, s domain.NotificationSettings) (*Candidate, error) {
	hour := ev.OccurredAt.UTC().Hour()
	if !inOddHours(hour, s.OddHoursStart, s.OddHoursEnd) {
		return nil, nil
	}
	return &Candidate{
		Type:        domain.AlertOddHours,
		Severity:    domain.SeverityLow,
		MemberID:    ev.MemberID,
		Title:       "Playback at odd hours",
		Description: fmt.Sprintf("Playback started at %02d:00 UTC.", hour),
		Details: map[string]any{
			"hour_utc":   hour,
			"window":     fmt.Sprintf("%02d-%02d", s.OddHoursStart, s.OddHoursEnd),
			"session_id": ev.SessionID,
		},
	}, nil
}
