package organization

import (
	"net/http"

	"endurancy-platform/internal/httpapi"
	"endurancy-platform/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	org, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, org)
}

func (h *Handler) List(c *gin.Context) {
	p, err := httpapi.BindPagination(c)
	if err != nil {
		c.Error(err)
		return
	}

	data, info, err := h.service.List(c.Request.Context(), ListRequest{
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Query:  c.Query("q"),
	}, p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpapi.NewListResponse(c, data, info))
}

func (h *Handler) Get(c *gin.Context) {
	org, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, org)
}

func (h *Handler) Current(c *gin.Context) {
	org, err := h.service.Get(c.Request.Context(), middleware.OrganizationID(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, org)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	org, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, org)
}
