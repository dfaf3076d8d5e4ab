package main

import (
	"context"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vidora/vidora-backend/internal/db"
	"github.com/vidora/vidora-backend/internal/handlers"
	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/middleware"
	"github.com/vidora/vidora-backend/internal/observability"
	"github.com/vidora/vidora-backend/internal/repos"
	"github.com/vidora/vidora-backend/internal/server"
	"github.com/vidora/vidora-backend/internal/services"
	"github.com/vidora/vidora-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "vidora-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if shutdownOtel != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOtel(ctx)
		}()
	}

	// Env
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Progress gate: Redis when configured, in-process otherwise.
	var progressGate services.ProgressGate
	redisAddr := utils.GetEnv("REDIS_ADDR", "", log)
	if redisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:        redisAddr,
			DialTimeout: 5 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr := rdb.Ping(pingCtx).Err()
		cancel()
		if pingErr != nil {
			log.Warn("Redis unreachable, falling back to in-memory progress gate", "addr", redisAddr, "error", pingErr)
			_ = rdb.Close()
			progressGate = services.NewMemoryProgressGate()
		} else {
			progressGate = services.NewRedisProgressGate(rdb, log)
		}
	} else {
		log.Info("REDIS_ADDR not set, using in-memory progress gate")
		progressGate = services.NewMemoryProgressGate()
	}

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	channelRepo := repos.NewChannelRepo(thePG, log)
	videoRepo := repos.NewVideoRepo(thePG, log)
	videoViewRepo := repos.NewVideoViewRepo(thePG, log)
	watchHistoryRepo := repos.NewWatchHistoryRepo(thePG, log)
	subscriptionRepo := repos.NewSubscriptionRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	viewService := services.NewViewService(thePG, log, userRepo, videoRepo, videoViewRepo)
	historyService := services.NewWatchHistoryService(log, progressGate, userRepo, videoRepo, watchHistoryRepo)
	feedService := services.NewFeedService(log, subscriptionRepo, videoRepo)
	subscriptionService := services.NewSubscriptionService(log, subscriptionRepo, channelRepo, videoRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	viewHandler := handlers.NewViewHandler(log, viewService)
	historyHandler := handlers.NewHistoryHandler(log, historyService)
	feedHandler := handlers.NewFeedHandler(log, feedService)
	subscriptionHandler := handlers.NewSubscriptionHandler(log, subscriptionService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:      authMiddleware,
		ViewHandler:         viewHandler,
		HistoryHandler:      historyHandler,
		FeedHandler:         feedHandler,
		SubscriptionHandler: subscriptionHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
