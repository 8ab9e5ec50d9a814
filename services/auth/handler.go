package auth

import (
	"net/http"
	"time"

	"endurancy-platform/internal/httpapi"
	"endurancy-platform/pkg/access"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/middleware"
	"endurancy-platform/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service  *Service
	sessions *session.Manager
}

func NewHandler(service *Service, sessions *session.Manager) *Handler {
	return &Handler{service: service, sessions: sessions}
}

func (h *Handler) start(c *gin.Context, data *session.Data) {
	if err := h.sessions.Start(c, data); err != nil {
		zap.L().Error("failed to save session", zap.Error(err))
		c.Error(errutil.Internal("Failed to create session", err))
		return
	}
	c.JSON(http.StatusOK, LoginResponse{User: sessionUser(data), Redirect: access.DashboardPath(data.Role)})
}

func (h *Handler) login(audience Audience) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := httpapi.BindJSON(c, &req); err != nil {
			c.Error(err)
			return
		}

		data, err := h.service.Login(c.Request.Context(), audience, req)
		if err != nil {
			c.Error(err)
			return
		}
		h.start(c, data)
	}
}

func (h *Handler) Me(c *gin.Context) {
	s := session.Current(c)
	if s == nil {
		c.Error(errutil.Unauthorized("Not authenticated", nil))
		return
	}
	c.JSON(http.StatusOK, sessionUser(s))
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Destroy(c); err != nil {
		zap.L().Warn("failed to destroy session", zap.Error(err))
		c.Error(errutil.Internal("Failed to logout", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	u, err := h.service.Register(c.Request.Context(), session.Current(c), middleware.OrganizationID(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) TestStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

func (h *Handler) TestLogin(c *gin.Context) {
	var req TestLoginRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	data, err := h.service.TestLogin(req)
	if err != nil {
		c.Error(err)
		return
	}
	h.start(c, data)
}
