package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/pkg/pagination"
	"github.com/vidora/vidora-backend/internal/requestdata"
	"github.com/vidora/vidora-backend/internal/services"
)

type FeedHandler struct {
	log *logger.Logger
	svc services.FeedService
}

func NewFeedHandler(log *logger.Logger, svc services.FeedService) *FeedHandler {
	return &FeedHandler{
		log: log.With("handler", "FeedHandler"),
		svc: svc,
	}
}

// GET /api/feed
// The subscription feed: one entry per subscribed channel, newest first.
func (h *FeedHandler) GetFeed(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}

	page := pagination.FromQuery(c.Query("page"), c.Query("limit"))

	entries, total, err := h.svc.BuildFeed(c.Request.Context(), rd.UserID, page)
	if err != nil {
		h.log.Warn("BuildFeed failed", "user_id", rd.UserID, "error", err)
		RespondServiceError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"feed":  entries,
		"total": total,
		"page":  page.Normalize().Page,
		"limit": page.Normalize().Limit,
	})
}
