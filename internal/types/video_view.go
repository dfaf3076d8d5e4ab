package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VideoView is the durable proof that a user counted as having viewed a
// video. The composite unique index on (video_id, user_id) is what makes
// view counting idempotent: the first writer wins and every later attempt
// degrades to a no-op. Rows are never mutated and never deleted by the
// normal flow.
type VideoView struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VideoID   uuid.UUID `gorm:"type:uuid;not null;index:idx_video_user,unique" json:"video_id"`
	Video     *Video    `gorm:"constraint:OnDelete:CASCADE;foreignKey:VideoID;references:ID" json:"video,omitempty"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_video_user,unique" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	UserAgent string    `gorm:"column:user_agent" json:"user_agent,omitempty"`
	IPAddress string    `gorm:"column:ip_address" json:"ip_address,omitempty"`
	Platform  string    `gorm:"column:platform" json:"platform,omitempty"`
	Browser   string    `gorm:"column:browser" json:"browser,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (VideoView) TableName() string { return "video_view" }

func (v *VideoView) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
