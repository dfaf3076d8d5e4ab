package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/types"
)

type VideoRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Video) ([]*types.Video, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Video, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Video, error)
	// ListPublishedByChannelIDs returns every currently published video that
	// belongs to one of the given channels, newest publish first.
	ListPublishedByChannelIDs(ctx context.Context, tx *gorm.DB, channelIDs []uuid.UUID) ([]*types.Video, error)
	LatestPublishedByChannelID(ctx context.Context, tx *gorm.DB, channelID uuid.UUID) (*types.Video, error)
	CountByChannelID(ctx context.Context, tx *gorm.DB, channelID uuid.UUID) (int64, error)
	// IncrementViewCount issues a single atomic in-place increment. Callers
	// must never read-modify-write the counter.
	IncrementViewCount(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	repoLog := baseLog.With("repo", "VideoRepo")
	return &videoRepo{db: db, log: repoLog}
}

func (r *videoRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Video) ([]*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.Video{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *videoRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil, nil
	}

	var result types.Video
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

func (r *videoRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Video
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

func (r *videoRepo) ListPublishedByChannelIDs(ctx context.Context, tx *gorm.DB, channelIDs []uuid.UUID) ([]*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Video
	if len(channelIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("channel_id IN ? AND is_published = ?", channelIDs, true).
		Order("published_at DESC").
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *videoRepo) LatestPublishedByChannelID(ctx context.Context, tx *gorm.DB, channelID uuid.UUID) (*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if channelID == uuid.Nil {
		return nil, nil
	}

	var result types.Video
	err := transaction.WithContext(ctx).
		Where("channel_id = ? AND is_published = ?", channelID, true).
		Order("published_at DESC").
		Order("created_at DESC").
		First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *videoRepo) CountByChannelID(ctx context.Context, tx *gorm.DB, channelID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Video{}).
		Where("channel_id = ? AND is_published = ?", channelID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *videoRepo) IncrementViewCount(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.Video{}).
		Where("id = ?", videoID).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error; err != nil {
		return err
	}
	return nil
}
