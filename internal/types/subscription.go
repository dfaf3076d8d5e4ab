package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription links a subscriber to a channel. Existence of the row is the
// active state; unsubscribing deletes it. At most one row per
// (subscriber, channel) pair.
type Subscription struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubscriberID uuid.UUID `gorm:"type:uuid;not null;index:idx_subscriber_channel,unique" json:"subscriber_id"`
	Subscriber   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubscriberID;references:ID" json:"subscriber,omitempty"`
	ChannelID    uuid.UUID `gorm:"type:uuid;not null;index:idx_subscriber_channel,unique" json:"channel_id"`
	Channel      *Channel  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChannelID;references:ID" json:"channel,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (Subscription) TableName() string { return "subscription" }

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
