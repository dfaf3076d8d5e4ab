package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/pkg/pagination"
	"github.com/vidora/vidora-backend/internal/types"
)

// HistoryFilter narrows a user's watch-history listing. Zero values mean
// "no constraint".
type HistoryFilter struct {
	Search        string
	DateFrom      *time.Time
	DateTo        *time.Time
	ChannelID     uuid.UUID
	CompletedOnly bool
}

type WatchHistoryRepo interface {
	GetByUserAndVideo(ctx context.Context, tx *gorm.DB, userID, videoID uuid.UUID) (*types.WatchHistory, error)
	// CreateIfAbsent is the idempotent-insert primitive for history rows:
	// INSERT ... ON CONFLICT (user_id, video_id) DO NOTHING. The boolean
	// reports whether this call inserted the row.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.WatchHistory) (bool, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.WatchHistory) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filter HistoryFilter, page pagination.Params) ([]*types.WatchHistory, int64, error)
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	DeleteByUserAndVideo(ctx context.Context, tx *gorm.DB, userID, videoID uuid.UUID) (int64, error)
}

type watchHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWatchHistoryRepo(db *gorm.DB, baseLog *logger.Logger) WatchHistoryRepo {
	repoLog := baseLog.With("repo", "WatchHistoryRepo")
	return &watchHistoryRepo{db: db, log: repoLog}
}

func (r *watchHistoryRepo) GetByUserAndVideo(ctx context.Context, tx *gorm.DB, userID, videoID uuid.UUID) (*types.WatchHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || videoID == uuid.Nil {
		return nil, nil
	}

	var result types.WatchHistory
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *watchHistoryRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.WatchHistory) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return false, nil
	}

	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *watchHistoryRepo) Update(ctx context.Context, tx *gorm.DB, row *types.WatchHistory) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil || row.ID == uuid.Nil {
		return nil
	}

	if err := transaction.WithContext(ctx).Save(row).Error; err != nil {
		return err
	}
	return nil
}

func (r *watchHistoryRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filter HistoryFilter, page pagination.Params) ([]*types.WatchHistory, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.WatchHistory
	if userID == uuid.Nil {
		return results, 0, nil
	}

	query := transaction.WithContext(ctx).
		Model(&types.WatchHistory{}).
		Select("watch_history.*").
		Joins("JOIN video ON video.id = watch_history.video_id").
		Where("watch_history.user_id = ?", userID)

	if filter.Search != "" {
		query = query.Where("LOWER(video.title) LIKE LOWER(?)", "%"+filter.Search+"%")
	}
	if filter.DateFrom != nil {
		query = query.Where("watch_history.last_watched_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("watch_history.last_watched_at <= ?", *filter.DateTo)
	}
	if filter.ChannelID != uuid.Nil {
		query = query.Where("video.channel_id = ?", filter.ChannelID)
	}
	if filter.CompletedOnly {
		query = query.Where("watch_history.is_completed = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Scopes(pagination.SortScope("watch_history.last_watched_at", true), pagination.Scope(page)).
		Preload("Video").
		Preload("Video.Channel").
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *watchHistoryRepo) DeleteByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil {
		return 0, nil
	}

	res := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&types.WatchHistory{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *watchHistoryRepo) DeleteByUserAndVideo(ctx context.Context, tx *gorm.DB, userID, videoID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || videoID == uuid.Nil {
		return 0, nil
	}

	res := transaction.WithContext(ctx).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Delete(&types.WatchHistory{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
