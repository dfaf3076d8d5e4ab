package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/types"
)

type SubscriptionRepo interface {
	GetBySubscriberAndChannel(ctx context.Context, tx *gorm.DB, subscriberID, channelID uuid.UUID) (*types.Subscription, error)
	// CreateIfAbsent is the idempotent-insert primitive for subscriptions:
	// INSERT ... ON CONFLICT (subscriber_id, channel_id) DO NOTHING.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.Subscription) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, subscriberID, channelID uuid.UUID) (bool, error)
	ListBySubscriber(ctx context.Context, tx *gorm.DB, subscriberID uuid.UUID) ([]*types.Subscription, error)
	CountByChannelID(ctx context.Context, tx *gorm.DB, channelID uuid.UUID) (int64, error)
}

type subscriptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) SubscriptionRepo {
	repoLog := baseLog.With("repo", "SubscriptionRepo")
	return &subscriptionRepo{db: db, log: repoLog}
}

func (r *subscriptionRepo) GetBySubscriberAndChannel(ctx context.Context, tx *gorm.DB, subscriberID, channelID uuid.UUID) (*types.Subscription, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if subscriberID == uuid.Nil || channelID == uuid.Nil {
		return nil, nil
	}

	var result types.Subscription
	err := transaction.WithContext(ctx).
		Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *subscriptionRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.Subscription) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return false, nil
	}

	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subscriber_id"}, {Name: "channel_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *subscriptionRepo) Delete(ctx context.Context, tx *gorm.DB, subscriberID, channelID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if subscriberID == uuid.Nil || channelID == uuid.Nil {
		return false, nil
	}

	res := transaction.WithContext(ctx).
		Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		Delete(&types.Subscription{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *subscriptionRepo) ListBySubscriber(ctx context.Context, tx *gorm.DB, subscriberID uuid.UUID) ([]*types.Subscription, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Subscription
	if subscriberID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID).
		Preload("Channel").
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *subscriptionRepo) CountByChannelID(ctx context.Context, tx *gorm.DB, channelID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Subscription{}).
		Where("channel_id = ?", channelID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
