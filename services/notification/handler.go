package notification

import (
	"net/http"

	"endurancy-platform/internal/httpapi"
	"endurancy-platform/pkg/middleware"
	"endurancy-platform/pkg/session"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	p, err := httpapi.BindPagination(c)
	if err != nil {
		c.Error(err)
		return
	}

	unread, _ := httpapi.Query(c)["unread"].(bool)
	data, info, err := h.service.List(c.Request.Context(), session.Current(c).UserID, unread, p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpapi.NewListResponse(c, data, info))
}

func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.service.UnreadCount(c.Request.Context(), session.Current(c).UserID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *Handler) MarkRead(c *gin.Context) {
	n, err := h.service.MarkRead(c.Request.Context(), session.Current(c).UserID, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	n, err := h.service.MarkAllRead(c.Request.Context(), session.Current(c).UserID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *Handler) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	info, err := h.service.Broadcast(c.Request.Context(), middleware.OrganizationID(c), session.Current(c).UserID, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"taskId": info.ID})
}
