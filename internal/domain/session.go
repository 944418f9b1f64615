package domain

import "time"

const UnknownCountry = "Unknown"

type WatchSession struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	VideoID       string     `gorm:"size:64;not null;index:idx_watch_member_video_started,priority:2" json:"video_id"`
	MemberID      string     `gorm:"size:64;not null;index:idx_watch_member_started,priority:1;index:idx_watch_member_video_started,priority:1" json:"member_id"`
	WatermarkCode string     `gorm:"size:16;not null;index" json:"watermark_code"`
	IPAddress     string     `gorm:"size:64" json:"ip_address"`
	UserAgent     string     `gorm:"size:512" json:"user_agent"`
	Country       string     `gorm:"size:64" json:"country"`
	City          string     `gorm:"size:128" json:"city,omitempty"`
	ISP           string     `gorm:"size:128" json:"isp,omitempty"`
	IsVPN         bool       `gorm:"not null;default:false" json:"is_vpn"`
	WatchSeconds  int64      `gorm:"not null;default:0" json:"watch_seconds"`
	StartedAt     time.Time  `gorm:"not null;index:idx_watch_member_started,priority:2;index:idx_watch_member_video_started,priority:3" json:"started_at"`
	EndedAt       *time.Time `gorm:"index" json:"ended_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (s *WatchSession) Open() bool { return s.EndedAt == nil }
