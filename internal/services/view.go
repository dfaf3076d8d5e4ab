package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/platform/apierr"
	"github.com/vidora/vidora-backend/internal/repos"
	"github.com/vidora/vidora-backend/internal/types"
)

// SessionInfo is the session descriptor captured alongside a view record.
type SessionInfo struct {
	UserAgent string `json:"user_agent,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Browser   string `json:"browser,omitempty"`
}

// ViewResult reports the outcome of a view signal. Created is false on
// every replay of an already-counted (user, video) pair.
type ViewResult struct {
	Created    bool
	ViewID     uuid.UUID
	TotalViews int64
}

type ViewService interface {
	// RecordView counts at most one view per (user, video), ever. The
	// counter increment and the view-record insert commit together or not
	// at all; losing the insert race to a concurrent request degrades to
	// the already-viewed path.
	RecordView(ctx context.Context, userID, videoID uuid.UUID, session SessionInfo) (*ViewResult, error)
}

type viewService struct {
	db        *gorm.DB
	log       *logger.Logger
	userRepo  repos.UserRepo
	videoRepo repos.VideoRepo
	viewRepo  repos.VideoViewRepo
}

func NewViewService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, videoRepo repos.VideoRepo, viewRepo repos.VideoViewRepo) ViewService {
	serviceLog := log.With("service", "ViewService")
	return &viewService{
		db:        db,
		log:       serviceLog,
		userRepo:  userRepo,
		videoRepo: videoRepo,
		viewRepo:  viewRepo,
	}
}

func (s *viewService) RecordView(ctx context.Context, userID, videoID uuid.UUID, session SessionInfo) (*ViewResult, error) {
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthenticated", fmt.Errorf("view recording requires an authenticated user"))
	}
	if videoID == uuid.Nil {
		return nil, apierr.BadRequest("invalid_video_id", fmt.Errorf("invalid video id"))
	}

	// A valid token for a since-deleted account must not create rows.
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	if user == nil {
		return nil, apierr.Unauthorized("unknown_user", fmt.Errorf("authenticated user does not exist"))
	}

	video, err := s.videoRepo.GetByID(ctx, nil, videoID)
	if err != nil {
		return nil, fmt.Errorf("error fetching video: %w", err)
	}
	if video == nil {
		return nil, apierr.NotFound("video_not_found", fmt.Errorf("video does not exist"))
	}

	existing, err := s.viewRepo.GetByVideoAndUser(ctx, nil, videoID, userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching view record: %w", err)
	}
	if existing != nil {
		return &ViewResult{Created: false, ViewID: existing.ID, TotalViews: video.ViewCount}, nil
	}

	row := &types.VideoView{
		VideoID:   videoID,
		UserID:    userID,
		UserAgent: session.UserAgent,
		IPAddress: session.IPAddress,
		Platform:  session.Platform,
		Browser:   session.Browser,
	}

	var result ViewResult
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.viewRepo.CreateIfAbsent(ctx, tx, row)
		if err != nil {
			return fmt.Errorf("error creating view record: %w", err)
		}
		if !created {
			// A concurrent request won the insert race. Expected under
			// multiple tabs or retries; the counter stays untouched.
			result = ViewResult{Created: false, TotalViews: video.ViewCount}
			return nil
		}
		if err := s.videoRepo.IncrementViewCount(ctx, tx, videoID); err != nil {
			return fmt.Errorf("error incrementing view count: %w", err)
		}
		updated, err := s.videoRepo.GetByID(ctx, tx, videoID)
		if err != nil {
			return fmt.Errorf("error re-reading video: %w", err)
		}
		total := video.ViewCount + 1
		if updated != nil {
			total = updated.ViewCount
		}
		result = ViewResult{Created: true, ViewID: row.ID, TotalViews: total}
		return nil
	}); err != nil {
		s.log.Warn("RecordView transaction error", "video_id", videoID, "user_id", userID, "error", err)
		return nil, err
	}

	return &result, nil
}
