package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/requestdata"
	"github.com/vidora/vidora-backend/internal/services"
)

type SubscriptionHandler struct {
	log *logger.Logger
	svc services.SubscriptionService
}

func NewSubscriptionHandler(log *logger.Logger, svc services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		log: log.With("handler", "SubscriptionHandler"),
		svc: svc,
	}
}

// POST /api/subscriptions/:channelId/toggle
func (h *SubscriptionHandler) Toggle(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("channelId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_channel_id", err)
		return
	}

	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}

	subscribed, err := h.svc.Toggle(c.Request.Context(), rd.UserID, channelID)
	if err != nil {
		h.log.Warn("Toggle failed", "user_id", rd.UserID, "channel_id", channelID, "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"subscribed": subscribed})
}

// GET /api/subscriptions/channels
func (h *SubscriptionHandler) ListChannels(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}

	channels, err := h.svc.ListSubscribedChannels(c.Request.Context(), rd.UserID)
	if err != nil {
		h.log.Warn("ListChannels failed", "user_id", rd.UserID, "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"channels": channels})
}
