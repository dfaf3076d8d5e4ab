package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vidora/vidora-backend/internal/pkg/pagination"
	"github.com/vidora/vidora-backend/internal/platform/apierr"
	"github.com/vidora/vidora-backend/internal/repos"
	"github.com/vidora/vidora-backend/internal/types"
)

// passGate persists every sample, so the upsert semantics can be tested
// without the sampling policy in the way.
type passGate struct{}

func (passGate) ShouldPersist(ctx context.Context, key GateKey, current, duration float64) (bool, error) {
	return true, nil
}

type historyFixtures struct {
	db      *gorm.DB
	svc     WatchHistoryService
	video   *types.Video
	channel *types.Channel
	viewer  *types.User
}

func newHistoryService(t *testing.T, gate ProgressGate) *historyFixtures {
	t.Helper()
	gdb := newTestDB(t)
	log := newTestLogger()
	userRepo := repos.NewUserRepo(gdb, log)
	videoRepo := repos.NewVideoRepo(gdb, log)
	historyRepo := repos.NewWatchHistoryRepo(gdb, log)
	svc := NewWatchHistoryService(log, gate, userRepo, videoRepo, historyRepo)

	owner := seedUser(t, gdb, "creator")
	channel := seedChannel(t, gdb, owner, "creator-channel")
	video := seedVideo(t, gdb, channel, "long video", 100, true, time.Now())
	viewer := seedUser(t, gdb, "viewer")

	return &historyFixtures{db: gdb, svc: svc, video: video, channel: channel, viewer: viewer}
}

func TestReportProgressCreatesRecord(t *testing.T) {
	fx := newHistoryService(t, passGate{})
	ctx := context.Background()

	record, err := fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 20, "s1", types.DeviceInfo{Platform: "web", Browser: "firefox"})
	require.NoError(t, err)
	assert.Equal(t, 20.0, record.WatchProgress)
	assert.InDelta(t, 20.0, record.WatchPercentage, 0.001)
	assert.False(t, record.IsCompleted)

	var stored types.WatchHistory
	require.NoError(t, fx.db.First(&stored, "user_id = ? AND video_id = ?", fx.viewer.ID, fx.video.ID).Error)
	assert.Equal(t, 20.0, stored.WatchProgress)
}

func TestReportProgressNeverRegresses(t *testing.T) {
	fx := newHistoryService(t, passGate{})
	ctx := context.Background()

	_, err := fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 50, "s1", types.DeviceInfo{})
	require.NoError(t, err)

	record, err := fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 30, "s1", types.DeviceInfo{})
	require.NoError(t, err)
	assert.Equal(t, 50.0, record.WatchProgress)
}

func TestReportProgressCompletionLatches(t *testing.T) {
	fx := newHistoryService(t, passGate{})
	ctx := context.Background()

	record, err := fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 95, "s1", types.DeviceInfo{})
	require.NoError(t, err)
	assert.True(t, record.IsCompleted)

	// A stale lower report must not revert completion.
	record, err = fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 10, "s1", types.DeviceInfo{})
	require.NoError(t, err)
	assert.True(t, record.IsCompleted)
	assert.Equal(t, 95.0, record.WatchProgress)
}

func TestReportProgressSameValueIsNoop(t *testing.T) {
	fx := newHistoryService(t, passGate{})
	ctx := context.Background()

	first, err := fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 40, "s1", types.DeviceInfo{})
	require.NoError(t, err)
	second, err := fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 40, "s1", types.DeviceInfo{})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.WatchProgress, second.WatchProgress)

	var rows int64
	require.NoError(t, fx.db.Model(&types.WatchHistory{}).Where("user_id = ?", fx.viewer.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestReportProgressRecordsDevices(t *testing.T) {
	fx := newHistoryService(t, passGate{})
	ctx := context.Background()

	_, err := fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 10, "desktop-session", types.DeviceInfo{Platform: "web", Browser: "firefox"})
	require.NoError(t, err)
	record, err := fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 25, "phone-session", types.DeviceInfo{Platform: "ios", DeviceType: "mobile"})
	require.NoError(t, err)

	var devices []types.DeviceInfo
	require.NoError(t, json.Unmarshal(record.Devices, &devices))
	require.Len(t, devices, 2)

	// Same session again updates in place instead of duplicating.
	record, err = fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 35, "phone-session", types.DeviceInfo{Platform: "ios", DeviceType: "mobile"})
	require.NoError(t, err)
	devices = nil
	require.NoError(t, json.Unmarshal(record.Devices, &devices))
	assert.Len(t, devices, 2)
}

func TestReportProgressWithSamplingGate(t *testing.T) {
	fx := newHistoryService(t, NewMemoryProgressGate())
	ctx := context.Background()

	// t=2s: below the engagement threshold, nothing persisted.
	record, err := fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 2, "s1", types.DeviceInfo{})
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, record.ID)

	var rows int64
	require.NoError(t, fx.db.Model(&types.WatchHistory{}).Where("user_id = ?", fx.viewer.ID).Count(&rows).Error)
	assert.Equal(t, int64(0), rows)

	// t=6s: first meaningful sample.
	record, err = fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 6, "s1", types.DeviceInfo{})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.Equal(t, 6.0, record.WatchProgress)

	// t=16s: interval sample.
	record, err = fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 16, "s1", types.DeviceInfo{})
	require.NoError(t, err)
	assert.Equal(t, 16.0, record.WatchProgress)

	// t=95s of 100s: near-completion sample, completion latches.
	record, err = fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 95, "s1", types.DeviceInfo{})
	require.NoError(t, err)
	assert.Equal(t, 95.0, record.WatchProgress)
	assert.True(t, record.IsCompleted)
}

func TestReportProgressValidation(t *testing.T) {
	fx := newHistoryService(t, passGate{})
	ctx := context.Background()

	_, err := fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, -3, "s1", types.DeviceInfo{})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apierr.StatusOf(err))

	_, err = fx.svc.ReportProgress(ctx, fx.viewer.ID, uuid.New(), 10, "s1", types.DeviceInfo{})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apierr.StatusOf(err))

	_, err = fx.svc.ReportProgress(ctx, uuid.Nil, fx.video.ID, 10, "s1", types.DeviceInfo{})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusOf(err))
}

func TestReportProgressUnknownUser(t *testing.T) {
	fx := newHistoryService(t, passGate{})

	_, err := fx.svc.ReportProgress(context.Background(), uuid.New(), fx.video.ID, 10, "s1", types.DeviceInfo{})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusOf(err))
	assert.Equal(t, "unknown_user", apierr.CodeOf(err))

	var rows int64
	require.NoError(t, fx.db.Model(&types.WatchHistory{}).Count(&rows).Error)
	assert.Equal(t, int64(0), rows)
}

func TestListHistoryFiltersAndOrder(t *testing.T) {
	fx := newHistoryService(t, passGate{})
	ctx := context.Background()

	otherOwner := seedUser(t, fx.db, "other-creator")
	otherChannel := seedChannel(t, fx.db, otherOwner, "other-channel")
	cookingVideo := seedVideo(t, fx.db, otherChannel, "cooking pasta", 60, true, time.Now())

	_, err := fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 95, "s1", types.DeviceInfo{})
	require.NoError(t, err)
	// Keep last_watched_at strictly ordered across the two rows.
	time.Sleep(10 * time.Millisecond)
	_, err = fx.svc.ReportProgress(ctx, fx.viewer.ID, cookingVideo.ID, 10, "s1", types.DeviceInfo{})
	require.NoError(t, err)

	rows, total, err := fx.svc.ListHistory(ctx, fx.viewer.ID, repos.HistoryFilter{}, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 2)
	// Most recently watched first.
	assert.Equal(t, cookingVideo.ID, rows[0].VideoID)
	require.NotNil(t, rows[0].Video)
	require.NotNil(t, rows[0].Video.Channel)

	rows, total, err = fx.svc.ListHistory(ctx, fx.viewer.ID, repos.HistoryFilter{Search: "pasta"}, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, cookingVideo.ID, rows[0].VideoID)

	rows, total, err = fx.svc.ListHistory(ctx, fx.viewer.ID, repos.HistoryFilter{CompletedOnly: true}, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, fx.video.ID, rows[0].VideoID)

	rows, total, err = fx.svc.ListHistory(ctx, fx.viewer.ID, repos.HistoryFilter{ChannelID: otherChannel.ID}, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, cookingVideo.ID, rows[0].VideoID)
}

func TestClearAndRemoveHistory(t *testing.T) {
	fx := newHistoryService(t, passGate{})
	ctx := context.Background()

	otherOwner := seedUser(t, fx.db, "other-creator")
	otherChannel := seedChannel(t, fx.db, otherOwner, "other-channel")
	secondVideo := seedVideo(t, fx.db, otherChannel, "second", 60, true, time.Now())

	_, err := fx.svc.ReportProgress(ctx, fx.viewer.ID, fx.video.ID, 10, "s1", types.DeviceInfo{})
	require.NoError(t, err)
	_, err = fx.svc.ReportProgress(ctx, fx.viewer.ID, secondVideo.ID, 10, "s1", types.DeviceInfo{})
	require.NoError(t, err)

	removed, err := fx.svc.RemoveVideo(ctx, fx.viewer.ID, fx.video.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = fx.svc.RemoveVideo(ctx, fx.viewer.ID, fx.video.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apierr.StatusOf(err))

	removed, err = fx.svc.ClearHistory(ctx, fx.viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	var rows int64
	require.NoError(t, fx.db.Model(&types.WatchHistory{}).Where("user_id = ?", fx.viewer.ID).Count(&rows).Error)
	assert.Equal(t, int64(0), rows)
}
