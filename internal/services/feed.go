package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/pkg/pagination"
	"github.com/vidora/vidora-backend/internal/platform/apierr"
	"github.com/vidora/vidora-backend/internal/repos"
	"github.com/vidora/vidora-backend/internal/types"
)

// FeedEntry is one derived feed item: a channel's single most recent
// published video plus the channel's public projection. Never persisted;
// recomputed on every read.
type FeedEntry struct {
	Video   *types.Video   `json:"video"`
	Channel *types.Channel `json:"channel"`
}

type FeedService interface {
	// BuildFeed returns the subscription feed: at most one entry per
	// subscribed channel, each that channel's newest published video,
	// ordered by publish time descending. The second return value is the
	// pre-pagination entry count.
	BuildFeed(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]FeedEntry, int64, error)
}

type feedService struct {
	log       *logger.Logger
	subRepo   repos.SubscriptionRepo
	videoRepo repos.VideoRepo
}

func NewFeedService(log *logger.Logger, subRepo repos.SubscriptionRepo, videoRepo repos.VideoRepo) FeedService {
	serviceLog := log.With("service", "FeedService")
	return &feedService{
		log:       serviceLog,
		subRepo:   subRepo,
		videoRepo: videoRepo,
	}
}

func (s *feedService) BuildFeed(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]FeedEntry, int64, error) {
	if userID == uuid.Nil {
		return nil, 0, apierr.Unauthorized("unauthenticated", fmt.Errorf("feed requires an authenticated user"))
	}

	subs, err := s.subRepo.ListBySubscriber(ctx, nil, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return []FeedEntry{}, 0, nil
	}

	channelByID := make(map[uuid.UUID]*types.Channel, len(subs))
	channelIDs := make([]uuid.UUID, 0, len(subs))
	for _, sub := range subs {
		if _, ok := channelByID[sub.ChannelID]; ok {
			continue
		}
		channelByID[sub.ChannelID] = sub.Channel
		channelIDs = append(channelIDs, sub.ChannelID)
	}

	candidates, err := s.videoRepo.ListPublishedByChannelIDs(ctx, nil, channelIDs)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing channel videos: %w", err)
	}

	// Phase 1: group by channel, keeping each channel's max by publish
	// time (creation time breaks publish-time ties within a channel).
	latestPerChannel := make(map[uuid.UUID]*types.Video, len(channelIDs))
	for _, video := range candidates {
		current, ok := latestPerChannel[video.ChannelID]
		if !ok || videoNewer(video, current) {
			latestPerChannel[video.ChannelID] = video
		}
	}

	// Phase 2: flatten and re-sort by publish time descending. Channel id
	// ascending is the deterministic tiebreak between channels that
	// published at the identical instant.
	entries := make([]FeedEntry, 0, len(latestPerChannel))
	for channelID, video := range latestPerChannel {
		entries = append(entries, FeedEntry{Video: video, Channel: channelByID[channelID]})
	}
	sort.Slice(entries, func(i, j int) bool {
		ti := publishTime(entries[i].Video)
		tj := publishTime(entries[j].Video)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return strings.Compare(entries[i].Video.ChannelID.String(), entries[j].Video.ChannelID.String()) < 0
	})

	total := int64(len(entries))
	return pagination.Slice(entries, page), total, nil
}

func videoNewer(a, b *types.Video) bool {
	ta, tb := publishTime(a), publishTime(b)
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func publishTime(v *types.Video) time.Time {
	if v.PublishedAt != nil {
		return *v.PublishedAt
	}
	return v.CreatedAt
}
