package domain

import "time"

type Member struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	DisplayName string    `gorm:"size:128" json:"display_name"`
	Avatar      string    `gorm:"size:256" json:"avatar,omitempty"`
	Role        string    `gorm:"size:32;not null;default:member" json:"role"`
	IsAdmin     bool      `gorm:"not null" json:"is_admin"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
