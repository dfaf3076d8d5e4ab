package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Video is the catalog entity. ViewCount is denormalized and owned by the
// view recording flow: it is only ever mutated through an atomic in-place
// increment, one per distinct (video, user) pair.
type Video struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ChannelID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_channel_published" json:"channel_id"`
	Channel         *Channel       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChannelID;references:ID" json:"channel,omitempty"`
	Title           string         `gorm:"column:title;not null" json:"title"`
	Description     string         `gorm:"column:description" json:"description,omitempty"`
	ThumbnailURL    string         `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	VideoURL        string         `gorm:"column:video_url" json:"video_url,omitempty"`
	DurationSeconds float64        `gorm:"column:duration_seconds;not null;default:0" json:"duration_seconds"`
	IsPublished     bool           `gorm:"column:is_published;not null;default:false;index:idx_channel_published" json:"is_published"`
	PublishedAt     *time.Time     `gorm:"column:published_at;index" json:"published_at,omitempty"`
	ViewCount       int64          `gorm:"column:view_count;not null;default:0" json:"view_count"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Video) TableName() string { return "video" }

func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
