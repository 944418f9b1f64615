package domain

import "time"

const NotificationSettingsID uint = 1

type NotificationSettings struct {
	ID                      uint      `gorm:"primaryKey" json:"-"`
	AlertCountryChange      bool      `json:"alert_country_change"`
	AlertIPChange           bool      `json:"alert_ip_change"`
	AlertExcessiveViews     bool      `json:"alert_excessive_views"`
	AlertVPN                bool      `json:"alert_vpn"`
	AlertMultipleDevices    bool      `json:"alert_multiple_devices"`
	AlertOddHours           bool      `json:"alert_odd_hours"`
	ExcessiveViewsThreshold int       `json:"excessive_views_threshold" validate:"min=1"`
	ExcessiveViewsInterval  int       `json:"excessive_views_interval" validate:"min=1"`
	OddHoursStart           int       `json:"odd_hours_start" validate:"min=0,max=23"`
	OddHoursEnd             int       `json:"odd_hours_end" validate:"min=0,max=24"`
	DiscordChannelID        string    `gorm:"size:64" json:"discord_channel_id"`
	WebhookURL              string    `gorm:"size:512" json:"webhook_url" validate:"omitempty,url"`
	DashboardURL            string    `gorm:"size:256" json:"dashboard_url" validate:"omitempty,url"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		ID:                      NotificationSettingsID,
		AlertCountryChange:      true,
		AlertIPChange:           true,
		AlertExcessiveViews:     true,
		AlertVPN:                true,
		AlertMultipleDevices:    true,
		AlertOddHours:           false,
		ExcessiveViewsThreshold: 5,
		ExcessiveViewsInterval:  10,
		OddHoursStart:           2,
		OddHoursEnd:             6,
	}
}
