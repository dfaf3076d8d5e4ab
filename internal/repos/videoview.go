package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/types"
)

type VideoViewRepo interface {
	GetByVideoAndUser(ctx context.Context, tx *gorm.DB, videoID, userID uuid.UUID) (*types.VideoView, error)
	// CreateIfAbsent is the idempotent-insert primitive for view records:
	// INSERT ... ON CONFLICT (video_id, user_id) DO NOTHING. The boolean
	// reports whether this call inserted the row. Losing the race to a
	// concurrent writer is not an error.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.VideoView) (bool, error)
	CountByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (int64, error)
}

type videoViewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoViewRepo(db *gorm.DB, baseLog *logger.Logger) VideoViewRepo {
	repoLog := baseLog.With("repo", "VideoViewRepo")
	return &videoViewRepo{db: db, log: repoLog}
}

func (r *videoViewRepo) GetByVideoAndUser(ctx context.Context, tx *gorm.DB, videoID, userID uuid.UUID) (*types.VideoView, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if videoID == uuid.Nil || userID == uuid.Nil {
		return nil, nil
	}

	var result types.VideoView
	err := transaction.WithContext(ctx).
		Where("video_id = ? AND user_id = ?", videoID, userID).
		First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *videoViewRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.VideoView) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return false, nil
	}

	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *videoViewRepo) CountByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.VideoView{}).
		Where("video_id = ?", videoID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
