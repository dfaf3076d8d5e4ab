package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WatchHistory holds the per (user, video) playback state. Exactly one row
// exists per pair (composite unique index); WatchProgress never regresses
// and IsCompleted latches true once WatchPercentage crosses the completion
// threshold.
type WatchHistory struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_video,unique" json:"user_id"`
	User            *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	VideoID         uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_video,unique" json:"video_id"`
	Video           *Video         `gorm:"constraint:OnDelete:CASCADE;foreignKey:VideoID;references:ID" json:"video,omitempty"`
	WatchProgress   float64        `gorm:"column:watch_progress;not null;default:0" json:"watch_progress"`
	WatchPercentage float64        `gorm:"column:watch_percentage;not null;default:0" json:"watch_percentage"`
	IsCompleted     bool           `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	LastWatchedAt   time.Time      `gorm:"column:last_watched_at;not null;index" json:"last_watched_at"`
	Devices         datatypes.JSON `gorm:"type:jsonb;column:devices" json:"devices,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (WatchHistory) TableName() string { return "watch_history" }

func (w *WatchHistory) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// DeviceInfo is one per-session device descriptor stored in the Devices
// JSON list of a WatchHistory row.
type DeviceInfo struct {
	SessionID  string    `json:"session_id,omitempty"`
	Platform   string    `json:"platform,omitempty"`
	Browser    string    `json:"browser,omitempty"`
	DeviceType string    `json:"device_type,omitempty"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
