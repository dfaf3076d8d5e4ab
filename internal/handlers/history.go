package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/pkg/pagination"
	"github.com/vidora/vidora-backend/internal/platform/apierr"
	"github.com/vidora/vidora-backend/internal/repos"
	"github.com/vidora/vidora-backend/internal/requestdata"
	"github.com/vidora/vidora-backend/internal/services"
	"github.com/vidora/vidora-backend/internal/types"
)

type HistoryHandler struct {
	log *logger.Logger
	svc services.WatchHistoryService
}

func NewHistoryHandler(log *logger.Logger, svc services.WatchHistoryService) *HistoryHandler {
	return &HistoryHandler{
		log: log.With("handler", "HistoryHandler"),
		svc: svc,
	}
}

type reportProgressRequest struct {
	WatchProgress *float64         `json:"watchProgress"`
	SessionID     string           `json:"sessionId"`
	DeviceInfo    types.DeviceInfo `json:"deviceInfo"`
}

// POST /api/videos/:id/progress
// Playback telemetry. Best-effort: storage failures are logged and
// swallowed so they never interrupt playback; only caller mistakes
// (bad ids, negative progress) surface as errors.
func (h *HistoryHandler) ReportProgress(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_video_id", err)
		return
	}

	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}

	var req reportProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.WatchProgress == nil {
		RespondError(c, http.StatusBadRequest, "invalid_progress", nil)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = rd.SessionID
	}

	record, err := h.svc.ReportProgress(c.Request.Context(), rd.UserID, videoID, *req.WatchProgress, sessionID, req.DeviceInfo)
	if err != nil {
		if apierr.StatusOf(err) < http.StatusInternalServerError {
			RespondServiceError(c, err)
			return
		}
		h.log.Warn("ReportProgress failed, swallowing", "video_id", videoID, "user_id", rd.UserID, "error", err)
		RespondOK(c, gin.H{"recorded": false})
		return
	}

	RespondOK(c, gin.H{"history": record})
}

// GET /api/history
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}

	filter := repos.HistoryFilter{
		Search:        c.Query("search"),
		CompletedOnly: c.Query("completedOnly") == "true",
	}
	if raw := c.Query("channelId"); raw != "" {
		channelID, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_channel_id", err)
			return
		}
		filter.ChannelID = channelID
	}
	if raw := c.Query("dateFrom"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_date_from", err)
			return
		}
		filter.DateFrom = &from
	}
	if raw := c.Query("dateTo"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_date_to", err)
			return
		}
		filter.DateTo = &to
	}

	page := pagination.FromQuery(c.Query("page"), c.Query("limit"))

	rows, total, err := h.svc.ListHistory(c.Request.Context(), rd.UserID, filter, page)
	if err != nil {
		h.log.Warn("ListHistory failed", "user_id", rd.UserID, "error", err)
		RespondServiceError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"history": rows,
		"total":   total,
		"page":    page.Normalize().Page,
		"limit":   page.Normalize().Limit,
	})
}

// DELETE /api/history
func (h *HistoryHandler) ClearHistory(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}

	removed, err := h.svc.ClearHistory(c.Request.Context(), rd.UserID)
	if err != nil {
		h.log.Warn("ClearHistory failed", "user_id", rd.UserID, "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"removed": removed})
}

// DELETE /api/history/:videoId
func (h *HistoryHandler) RemoveVideo(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("videoId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_video_id", err)
		return
	}

	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}

	removed, err := h.svc.RemoveVideo(c.Request.Context(), rd.UserID, videoID)
	if err != nil {
		h.log.Warn("RemoveVideo failed", "user_id", rd.UserID, "video_id", videoID, "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"removed": removed})
}
