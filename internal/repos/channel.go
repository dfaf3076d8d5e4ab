package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/types"
)

type ChannelRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Channel) ([]*types.Channel, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Channel, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Channel, error)
	CountSubscribers(ctx context.Context, tx *gorm.DB, channelID uuid.UUID) (int64, error)
}

type channelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChannelRepo(db *gorm.DB, baseLog *logger.Logger) ChannelRepo {
	repoLog := baseLog.With("repo", "ChannelRepo")
	return &channelRepo{db: db, log: repoLog}
}

func (r *channelRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Channel) ([]*types.Channel, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.Channel{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *channelRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Channel, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil, nil
	}

	var result types.Channel
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *channelRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Channel, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Channel
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *channelRepo) CountSubscribers(ctx context.Context, tx *gorm.DB, channelID uuid.UUID) (int64, error) {
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
