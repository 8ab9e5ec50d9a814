package expedicao

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

func actorOf(c *gin.Context) Actor {
	return Actor{UserID: session.Current(c).UserID, OrganizationID: middleware.OrganizationID(c)}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	sh, err := h.service.Create(c.Request.Context(), actorOf(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, sh)
}

func (h *Handler) List(c *gin.Context) {
	p, err := httpapi.BindPagination(c)
	if err != nil {
		c.Error(err)
		return
	}
	data, info, err := h.service.List(c.Request.Context(), actorOf(c), ListRequest{Status: c.Query("status"), State: c.Query("state")}, p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpapi.NewListResponse(c, data, info))
}

func (h *Handler) Get(c *gin.Context) {
	sh, err := h.service.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sh)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	sh, err := h.service.UpdateStatus(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sh)
}

func (h *Handler) ByState(c *gin.Context) {
	rows, err := h.service.ByState(c.Request.Context(), actorOf(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
