package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidora/vidora-backend/internal/logger"
	"github.com/vidora/vidora-backend/internal/requestdata"
	"github.com/vidora/vidora-backend/internal/services"
)

type ViewHandler struct {
	log *logger.Logger
	svc services.ViewService
}

func NewViewHandler(log *logger.Logger, svc services.ViewService) *ViewHandler {
	return &ViewHandler{
		log: log.With("handler", "ViewHandler"),
		svc: svc,
	}
}

type recordViewRequest struct {
	SessionInfo services.SessionInfo `json:"sessionInfo"`
}

// POST /api/videos/:id/view
// Count the authenticated user's view of this video, at most once ever.
func (h *ViewHandler) RecordView(c *gin.Context) {
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

	var req recordViewRequest
	// The body is optional; a bare POST still counts a view.
	_ = c.ShouldBindJSON(&req)
	if req.SessionInfo.UserAgent == "" {
		req.SessionInfo.UserAgent = c.GetHeader("User-Agent")
	}
	if req.SessionInfo.IPAddress == "" {
		req.SessionInfo.IPAddress = c.ClientIP()
	}

	result, err := h.svc.RecordView(c.Request.Context(), rd.UserID, videoID, req.SessionInfo)
	if err != nil {
		h.log.Warn("RecordView failed", "video_id", videoID, "user_id", rd.UserID, "error", err)
		RespondServiceError(c, err)
		return
	}

	if !result.Created {
		RespondOK(c, gin.H{"alreadyViewed": true, "totalViews": result.TotalViews})
		return
	}
	RespondOK(c, gin.H{"viewId": result.ViewID, "newView": true, "totalViews": result.TotalViews})
}
