package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/platform/apierr"
	"github.com/vidora/vidora-backend/internal/repos"
	"github.com/vidora/vidora-backend/internal/types"
)

// SubscribedChannel is a subscribed channel enriched for the subscriptions
// page: live counts plus the channel's latest published video.
type SubscribedChannel struct {
	Channel         *types.Channel `json:"channel"`
	SubscriberCount int64          `json:"subscriber_count"`
	VideoCount      int64          `json:"video_count"`
	LatestVideo     *types.Video   `json:"latest_video,omitempty"`
	SubscribedAt    time.Time      `json:"subscribed_at"`
}

type SubscriptionService interface {
	// Toggle flips the subscription state and returns whether the user is
	// subscribed afterwards.
	Toggle(ctx context.Context, userID, channelID uuid.UUID) (bool, error)
	ListSubscribedChannels(ctx context.Context, userID uuid.UUID) ([]*SubscribedChannel, error)
}

type subscriptionService struct {
	log         *logger.Logger
	subRepo     repos.SubscriptionRepo
	channelRepo repos.ChannelRepo
	videoRepo   repos.VideoRepo
}

func NewSubscriptionService(log *logger.Logger, subRepo repos.SubscriptionRepo, channelRepo repos.ChannelRepo, videoRepo repos.VideoRepo) SubscriptionService {
	serviceLog := log.With("service", "SubscriptionService")
	return &subscriptionService{
		log:         serviceLog,
		subRepo:     subRepo,
		channelRepo: channelRepo,
		videoRepo:   videoRepo,
	}
}

func (s *subscriptionService) Toggle(ctx context.Context, userID, channelID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, apierr.Unauthorized("unauthenticated", fmt.Errorf("subscribing requires an authenticated user"))
	}
	if channelID == uuid.Nil {
		return false, apierr.BadRequest("invalid_channel_id", fmt.Errorf("invalid channel id"))
	}

	channel, err := s.channelRepo.GetByID(ctx, nil, channelID)
	if err != nil {
		return false, fmt.Errorf("error fetching channel: %w", err)
	}
	if channel == nil {
		return false, apierr.NotFound("channel_not_found", fmt.Errorf("channel does not exist"))
	}

	removed, err := s.subRepo.Delete(ctx, nil, userID, channelID)
	if err != nil {
		return false, fmt.Errorf("error removing subscription: %w", err)
	}
	if removed {
		return false, nil
	}

	row := &types.Subscription{SubscriberID: userID, ChannelID: channelID}
	if _, err := s.subRepo.CreateIfAbsent(ctx, nil, row); err != nil {
		return false, fmt.Errorf("error creating subscription: %w", err)
	}
	// Either this call created the row or a concurrent toggle did; both
	// end in the subscribed state.
	return true, nil
}

func (s *subscriptionService) ListSubscribedChannels(ctx context.Context, userID uuid.UUID) ([]*SubscribedChannel, error) {
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthenticated", fmt.Errorf("listing subscriptions requires an authenticated user"))
	}

	subs, err := s.subRepo.ListBySubscriber(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing subscriptions: %w", err)
	}

	results := make([]*SubscribedChannel, 0, len(subs))
	for _, sub := range subs {
		if sub.Channel == nil {
			continue
		}
		subscriberCount, err := s.subRepo.CountByChannelID(ctx, nil, sub.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("error counting subscribers: %w", err)
		}
		videoCount, err := s.videoRepo.CountByChannelID(ctx, nil, sub.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("error counting channel videos: %w", err)
		}
		latest, err := s.videoRepo.LatestPublishedByChannelID(ctx, nil, sub.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("error fetching latest channel video: %w", err)
		}
		results = append(results, &SubscribedChannel{
			Channel:         sub.Channel,
			SubscriberCount: subscriberCount,
			VideoCount:      videoCount,
			LatestVideo:     latest,
			SubscribedAt:    sub.CreatedAt,
		})
	}
	return results, nil
}
