package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vidora/vidora-backend/internal/platform/apierr"
	"github.com/vidora/vidora-backend/internal/repos"
	"github.com/vidora/vidora-backend/internal/types"
)

type subscriptionFixtures struct {
	db      *gorm.DB
	svc     SubscriptionService
	channel *types.Channel
	viewer  *types.User
}

func newSubscriptionService(t *testing.T) *subscriptionFixtures {
	t.Helper()
	gdb := newTestDB(t)
	log := newTestLogger()
	subRepo := repos.NewSubscriptionRepo(gdb, log)
	channelRepo := repos.NewChannelRepo(gdb, log)
	videoRepo := repos.NewVideoRepo(gdb, log)
	svc := NewSubscriptionService(log, subRepo, channelRepo, videoRepo)

	owner := seedUser(t, gdb, "creator")
	channel := seedChannel(t, gdb, owner, "creator-channel")
	viewer := seedUser(t, gdb, "viewer")

	return &subscriptionFixtures{db: gdb, svc: svc, channel: channel, viewer: viewer}
}

func TestToggleSubscription(t *testing.T) {
	fx := newSubscriptionService(t)
	ctx := context.Background()

	subscribed, err := fx.svc.Toggle(ctx, fx.viewer.ID, fx.channel.ID)
	require.NoError(t, err)
	assert.True(t, subscribed)

	var rows int64
	require.NoError(t, fx.db.Model(&types.Subscription{}).Where("subscriber_id = ?", fx.viewer.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	subscribed, err = fx.svc.Toggle(ctx, fx.viewer.ID, fx.channel.ID)
	require.NoError(t, err)
	assert.False(t, subscribed)

	require.NoError(t, fx.db.Model(&types.Subscription{}).Where("subscriber_id = ?", fx.viewer.ID).Count(&rows).Error)
	assert.Equal(t, int64(0), rows)
}

func TestToggleUnknownChannel(t *testing.T) {
	fx := newSubscriptionService(t)

	_, err := fx.svc.Toggle(context.Background(), fx.viewer.ID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apierr.StatusOf(err))
}

func TestListSubscribedChannelsEnrichment(t *testing.T) {
	fx := newSubscriptionService(t)
	ctx := context.Background()
	now := time.Now()

	seedVideo(t, fx.db, fx.channel, "older", 60, true, now.Add(-2*time.Hour))
	latest := seedVideo(t, fx.db, fx.channel, "latest", 60, true, now)
	seedVideo(t, fx.db, fx.channel, "draft", 60, false, time.Time{})

	otherViewer := seedUser(t, fx.db, "other-viewer")
	_, err := fx.svc.Toggle(ctx, fx.viewer.ID, fx.channel.ID)
	require.NoError(t, err)
	_, err = fx.svc.Toggle(ctx, otherViewer.ID, fx.channel.ID)
	require.NoError(t, err)

	channels, err := fx.svc.ListSubscribedChannels(ctx, fx.viewer.ID)
	require.NoError(t, err)
	require.Len(t, channels, 1)

	enriched := channels[0]
	assert.Equal(t, fx.channel.ID, enriched.Channel.ID)
	assert.Equal(t, int64(2), enriched.SubscriberCount)
	assert.Equal(t, int64(2), enriched.VideoCount)
	require.NotNil(t, enriched.LatestVideo)
	assert.Equal(t, latest.ID, enriched.LatestVideo.ID)
}

func TestListSubscribedChannelsEmpty(t *testing.T) {
	fx := newSubscriptionService(t)

	channels, err := fx.svc.ListSubscribedChannels(context.Background(), fx.viewer.ID)
	require.NoError(t, err)
	assert.Empty(t, channels)
}
