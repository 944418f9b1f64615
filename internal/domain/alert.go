package domain

import "time"

type AlertType string

const (
	AlertCountryChange   AlertType = "country_change"
	AlertIPChange        AlertType = "ip_change"
	AlertExcessiveViews  AlertType = "excessive_views"
	AlertVPNDetected     AlertType = "vpn_detected"
	AlertMultipleDevices AlertType = "multiple_devices"
	AlertOddHours        AlertType = "odd_hours"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is append-only. Details holds the rule evidence as a JSON document.
type Alert struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      AlertType `gorm:"size:32;not null;index" json:"type"`
	Severity  Severity  `gorm:"size:16;not null" json:"severity"`
	MemberID  string    `gorm:"size:64;not null;index" json:"member_id"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
