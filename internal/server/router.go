package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/vidora/vidora-backend/internal/handlers"
	"github.com/vidora/vidora-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleware
	ViewHandler         *handlers.ViewHandler
	HistoryHandler      *handlers.HistoryHandler
	FeedHandler         *handlers.FeedHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	AllowOrigins        []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware("vidora-backend"))

	// Cors
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	{
		// Engagement
		api.POST("/videos/:id/view", cfg.ViewHandler.RecordView)
		api.POST("/videos/:id/progress", cfg.HistoryHandler.ReportProgress)
		// Watch history
		api.GET("/history", cfg.HistoryHandler.ListHistory)
		api.DELETE("/history", cfg.HistoryHandler.ClearHistory)
		api.DELETE("/history/:videoId", cfg.HistoryHandler.RemoveVideo)
		// Feed
		api.GET("/feed", cfg.FeedHandler.GetFeed)
		// Subscriptions
		api.POST("/subscriptions/:channelId/toggle", cfg.SubscriptionHandler.Toggle)
		api.GET("/subscriptions/channels", cfg.SubscriptionHandler.ListChannels)
	}

	return router
}
