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

func newViewService(t *testing.T) (ViewService, *testFixtures) {
	t.Helper()
	gdb := newTestDB(t)
	log := newTestLogger()
	userRepo := repos.NewUserRepo(gdb, log)
	videoRepo := repos.NewVideoRepo(gdb, log)
	viewRepo := repos.NewVideoViewRepo(gdb, log)
	svc := NewViewService(gdb, log, userRepo, videoRepo, viewRepo)

	owner := seedUser(t, gdb, "creator")
	channel := seedChannel(t, gdb, owner, "creator-channel")
	video := seedVideo(t, gdb, channel, "first upload", 120, true, time.Now())
	viewer := seedUser(t, gdb, "viewer")

	return svc, &testFixtures{db: gdb, video: video, viewer: viewer}
}

type testFixtures struct {
	db     *gorm.DB
	video  *types.Video
	viewer *types.User
}

func TestRecordViewFirstAndReplay(t *testing.T) {
	svc, fx := newViewService(t)
	ctx := context.Background()

	first, err := svc.RecordView(ctx, fx.viewer.ID, fx.video.ID, SessionInfo{UserAgent: "test-agent", Platform: "web"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.NotEqual(t, uuid.Nil, first.ViewID)
	assert.Equal(t, int64(1), first.TotalViews)

	second, err := svc.RecordView(ctx, fx.viewer.ID, fx.video.ID, SessionInfo{})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, int64(1), second.TotalViews)

	var rows int64
	require.NoError(t, fx.db.Model(&types.VideoView{}).Where("video_id = ? AND user_id = ?", fx.video.ID, fx.viewer.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	var video types.Video
	require.NoError(t, fx.db.First(&video, "id = ?", fx.video.ID).Error)
	assert.Equal(t, int64(1), video.ViewCount)
}

func TestRecordViewManyReplays(t *testing.T) {
	svc, fx := newViewService(t)
	ctx := context.Background()

	created := 0
	for i := 0; i < 10; i++ {
		result, err := svc.RecordView(ctx, fx.viewer.ID, fx.video.ID, SessionInfo{})
		require.NoError(t, err)
		if result.Created {
			created++
		}
	}
	assert.Equal(t, 1, created)

	var video types.Video
	require.NoError(t, fx.db.First(&video, "id = ?", fx.video.ID).Error)
	assert.Equal(t, int64(1), video.ViewCount)
}

func TestRecordViewDistinctUsers(t *testing.T) {
	svc, fx := newViewService(t)
	ctx := context.Background()

	other := seedUser(t, fx.db, "second-viewer")

	_, err := svc.RecordView(ctx, fx.viewer.ID, fx.video.ID, SessionInfo{})
	require.NoError(t, err)
	result, err := svc.RecordView(ctx, other.ID, fx.video.ID, SessionInfo{})
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, int64(2), result.TotalViews)
}

// A row created by a concurrent request between the existence check and the
// insert must degrade to the already-viewed path, not an error.
func TestRecordViewLosesInsertRace(t *testing.T) {
	svc, fx := newViewService(t)
	ctx := context.Background()

	// Simulate the concurrent winner.
	winner := &types.VideoView{VideoID: fx.video.ID, UserID: fx.viewer.ID}
	require.NoError(t, fx.db.Create(winner).Error)
	require.NoError(t, fx.db.Model(&types.Video{}).Where("id = ?", fx.video.ID).
		UpdateColumn("view_count", int64(1)).Error)

	result, err := svc.RecordView(ctx, fx.viewer.ID, fx.video.ID, SessionInfo{})
	require.NoError(t, err)
	assert.False(t, result.Created)

	var video types.Video
	require.NoError(t, fx.db.First(&video, "id = ?", fx.video.ID).Error)
	assert.Equal(t, int64(1), video.ViewCount)
}

func TestRecordViewUnknownVideo(t *testing.T) {
	svc, fx := newViewService(t)

	_, err := svc.RecordView(context.Background(), fx.viewer.ID, uuid.New(), SessionInfo{})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apierr.StatusOf(err))
}

func TestRecordViewUnauthenticated(t *testing.T) {
	svc, fx := newViewService(t)

	_, err := svc.RecordView(context.Background(), uuid.Nil, fx.video.ID, SessionInfo{})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusOf(err))
}

func TestRecordViewUnknownUser(t *testing.T) {
	svc, fx := newViewService(t)

	// Well-formed id with no backing account, e.g. a token outliving its user.
	_, err := svc.RecordView(context.Background(), uuid.New(), fx.video.ID, SessionInfo{})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusOf(err))
	assert.Equal(t, "unknown_user", apierr.CodeOf(err))

	var rows int64
	require.NoError(t, fx.db.Model(&types.VideoView{}).Count(&rows).Error)
	assert.Equal(t, int64(0), rows)
}
