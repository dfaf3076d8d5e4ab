package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/types"
)

func newTestLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(
		&types.User{},
		&types.Channel{},
		&types.Video{},
		&types.VideoView{},
		&types.WatchHistory{},
		&types.Subscription{},
	))
	return gdb
}

func seedUser(t *testing.T, db *gorm.DB, name string) *types.User {
	t.Helper()
	user := &types.User{
		Email:    name + "@example.com",
		Username: name,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedChannel(t *testing.T, db *gorm.DB, owner *types.User, handle string) *types.Channel {
	t.Helper()
	channel := &types.Channel{
		OwnerID: owner.ID,
		Handle:  handle,
		Name:    handle,
	}
	require.NoError(t, db.Create(channel).Error)
	return channel
}

func seedVideo(t *testing.T, db *gorm.DB, channel *types.Channel, title string, duration float64, published bool, publishedAt time.Time) *types.Video {
	t.Helper()
	video := &types.Video{
		ChannelID:       channel.ID,
		Title:           title,
		DurationSeconds: duration,
		IsPublished:     published,
	}
	if published {
		video.PublishedAt = &publishedAt
	}
	require.NoError(t, db.Create(video).Error)
	return video
}
