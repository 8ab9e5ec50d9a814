package module

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

func (h *Handler) Catalog(c *gin.Context) {
	rows, err := h.service.Catalog(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *Handler) CreateModule(c *gin.Context) {
	var req CreateModuleRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	m, err := h.service.CreateModule(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) Plans(c *gin.Context) {
	rows, err := h.service.Plans(c.Request.Context(), c.Query("moduleId"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *Handler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	p, err := h.service.CreatePlan(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) OrganizationModules(c *gin.Context) {
	rows, err := h.service.OrganizationModules(c.Request.Context(), middleware.OrganizationID(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *Handler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	sub, err := h.service.Subscribe(c.Request.Context(), middleware.OrganizationID(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *Handler) Unsubscribe(c *gin.Context) {
	if err := h.service.Unsubscribe(c.Request.Context(), middleware.OrganizationID(c), c.Param("moduleId")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
