package user

import (
	"net/http"

	"endurancy-platform/internal/httpapi"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/session"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func sessionUserID(c *gin.Context) (string, error) {
	s := session.Current(c)
	if s == nil || s.Test {
		return "", errutil.Unauthorized("Not authenticated", nil)
	}
	return s.UserID, nil
}

func (h *Handler) GetProfile(c *gin.Context) {
	id, err := sessionUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	u, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	id, err := sessionUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var req UpdateProfileRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	u, err := h.service.UpdateProfile(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	id, err := sessionUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var req ChangePasswordRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), id, req); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
