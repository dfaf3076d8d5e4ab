package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/pkg/pagination"
	"github.com/vidora/vidora-backend/internal/platform/apierr"
	"github.com/vidora/vidora-backend/internal/repos"
	"github.com/vidora/vidora-backend/internal/types"
)

// completionThresholdPct is the watch percentage at which a video counts as
// finished. Once a row crosses it, IsCompleted never reverts.
const completionThresholdPct = 90.0

type WatchHistoryService interface {
	// ReportProgress handles one playback telemetry sample. The sampling
	// gate decides whether it is persisted; either way the caller gets the
	// current watch-history state back. Progress never regresses and
	// re-sending the same value is a no-op mutation, not an error.
	ReportProgress(ctx context.Context, userID, videoID uuid.UUID, progressSeconds float64, sessionID string, device types.DeviceInfo) (*types.WatchHistory, error)
	ListHistory(ctx context.Context, userID uuid.UUID, filter repos.HistoryFilter, page pagination.Params) ([]*types.WatchHistory, int64, error)
	ClearHistory(ctx context.Context, userID uuid.UUID) (int64, error)
	RemoveVideo(ctx context.Context, userID, videoID uuid.UUID) (int64, error)
}

type watchHistoryService struct {
	log         *logger.Logger
	gate        ProgressGate
	userRepo    repos.UserRepo
	videoRepo   repos.VideoRepo
	historyRepo repos.WatchHistoryRepo
}

func NewWatchHistoryService(log *logger.Logger, gate ProgressGate, userRepo repos.UserRepo, videoRepo repos.VideoRepo, historyRepo repos.WatchHistoryRepo) WatchHistoryService {
	serviceLog := log.With("service", "WatchHistoryService")
	return &watchHistoryService{
		log:         serviceLog,
		gate:        gate,
		userRepo:    userRepo,
		videoRepo:   videoRepo,
		historyRepo: historyRepo,
	}
}

func (s *watchHistoryService) ReportProgress(ctx context.Context, userID, videoID uuid.UUID, progressSeconds float64, sessionID string, device types.DeviceInfo) (*types.WatchHistory, error) {
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthenticated", fmt.Errorf("progress reporting requires an authenticated user"))
	}
	if videoID == uuid.Nil {
		return nil, apierr.BadRequest("invalid_video_id", fmt.Errorf("invalid video id"))
	}
	if progressSeconds < 0 || math.IsNaN(progressSeconds) || math.IsInf(progressSeconds, 0) {
		return nil, apierr.BadRequest("invalid_progress", fmt.Errorf("watch progress must be a number >= 0"))
	}

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

	key := GateKey{UserID: userID, VideoID: videoID, SessionID: sessionID}
	persist, gateErr := s.gate.ShouldPersist(ctx, key, progressSeconds, video.DurationSeconds)
	if gateErr != nil {
		s.log.Warn("Progress gate error, persisting sample anyway", "video_id", videoID, "user_id", userID, "error", gateErr)
	}
	if !persist {
		existing, err := s.historyRepo.GetByUserAndVideo(ctx, nil, userID, videoID)
		if err != nil {
			return nil, fmt.Errorf("error fetching watch history: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
		// Nothing persisted yet for this pair; echo a transient snapshot so
		// the player still sees its own state.
		return s.buildRow(userID, video, progressSeconds, sessionID, device), nil
	}

	existing, err := s.historyRepo.GetByUserAndVideo(ctx, nil, userID, videoID)
	if err != nil {
		return nil, fmt.Errorf("error fetching watch history: %w", err)
	}

	if existing == nil {
		row := s.buildRow(userID, video, progressSeconds, sessionID, device)
		created, err := s.historyRepo.CreateIfAbsent(ctx, nil, row)
		if err != nil {
			return nil, fmt.Errorf("error creating watch history: %w", err)
		}
		if created {
			return row, nil
		}
		// Lost the insert race to a concurrent report; fall through to the
		// update path against the winner's row.
		existing, err = s.historyRepo.GetByUserAndVideo(ctx, nil, userID, videoID)
		if err != nil {
			return nil, fmt.Errorf("error re-fetching watch history: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("watch history row vanished after conflict")
		}
	}

	s.applySample(existing, video, progressSeconds, sessionID, device)
	if err := s.historyRepo.Update(ctx, nil, existing); err != nil {
		return nil, fmt.Errorf("error updating watch history: %w", err)
	}
	return existing, nil
}

func (s *watchHistoryService) buildRow(userID uuid.UUID, video *types.Video, progressSeconds float64, sessionID string, device types.DeviceInfo) *types.WatchHistory {
	row := &types.WatchHistory{
		UserID:        userID,
		VideoID:       video.ID,
		LastWatchedAt: time.Now(),
	}
	s.applySample(row, video, progressSeconds, sessionID, device)
	return row
}

// applySample folds one persisted sample into a row: progress is
// monotonic, the percentage is derived from the video duration and the
// completion flag latches true at the threshold.
func (s *watchHistoryService) applySample(row *types.WatchHistory, video *types.Video, progressSeconds float64, sessionID string, device types.DeviceInfo) {
	if progressSeconds > row.WatchProgress {
		row.WatchProgress = progressSeconds
	}
	if video.DurationSeconds > 0 {
		pct := row.WatchProgress / video.DurationSeconds * 100
		if pct > 100 {
			pct = 100
		}
		row.WatchPercentage = pct
	}
	if row.WatchPercentage >= completionThresholdPct {
		row.IsCompleted = true
	}
	row.LastWatchedAt = time.Now()
	row.Devices = appendDevice(row.Devices, sessionID, device, s.log)
}

func appendDevice(raw datatypes.JSON, sessionID string, device types.DeviceInfo, log *logger.Logger) datatypes.JSON {
	var devices []types.DeviceInfo
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &devices); err != nil {
			log.Warn("Could not decode stored device list, resetting it", "error", err)
			devices = nil
		}
	}

	device.SessionID = sessionID
	device.LastSeenAt = time.Now()

	found := false
	for i := range devices {
		if devices[i].SessionID == sessionID {
			devices[i] = device
			found = true
			break
		}
	}
	if !found {
		devices = append(devices, device)
	}

	encoded, err := json.Marshal(devices)
	if err != nil {
		log.Warn("Could not encode device list", "error", err)
		return raw
	}
	return datatypes.JSON(encoded)
}

func (s *watchHistoryService) ListHistory(ctx context.Context, userID uuid.UUID, filter repos.HistoryFilter, page pagination.Params) ([]*types.WatchHistory, int64, error) {
	if userID == uuid.Nil {
		return nil, 0, apierr.Unauthorized("unauthenticated", fmt.Errorf("history listing requires an authenticated user"))
	}
	rows, total, err := s.historyRepo.ListByUser(ctx, nil, userID, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing watch history: %w", err)
	}
	return rows, total, nil
}

func (s *watchHistoryService) ClearHistory(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, apierr.Unauthorized("unauthenticated", fmt.Errorf("clearing history requires an authenticated user"))
	}
	removed, err := s.historyRepo.DeleteByUser(ctx, nil, userID)
	if err != nil {
		return 0, fmt.Errorf("error clearing watch history: %w", err)
	}
	return removed, nil
}

func (s *watchHistoryService) RemoveVideo(ctx context.Context, userID, videoID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, apierr.Unauthorized("unauthenticated", fmt.Errorf("removing history requires an authenticated user"))
	}
	if videoID == uuid.Nil {
		return 0, apierr.BadRequest("invalid_video_id", fmt.Errorf("invalid video id"))
	}
	removed, err := s.historyRepo.DeleteByUserAndVideo(ctx, nil, userID, videoID)
	if err != nil {
		return 0, fmt.Errorf("error removing watch history entry: %w", err)
	}
	if removed == 0 {
		return 0, apierr.NotFound("history_not_found", fmt.Errorf("no watch history for this video"))
	}
	return removed, nil
}
