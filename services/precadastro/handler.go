package precadastro

import (
	"net/http"

	"endurancy-platform/internal/httpapi"

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
	lead, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func (h *Handler) List(c *gin.Context) {
	p, err := httpapi.BindPagination(c)
	if err != nil {
		c.Error(err)
		return
	}
	data, info, err := h.service.List(c.Request.Context(), ListRequest{Status: c.Query("status"), Query: c.Query("q")}, p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpapi.NewListResponse(c, data, info))
}

func (h *Handler) Get(c *gin.Context) {
	lead, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	lead, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

func (h *Handler) Convert(c *gin.Context) {
	var req ConvertRequest
	if c.Request.ContentLength > 0 {
		if err := httpapi.BindJSON(c, &req); err != nil {
			c.Error(err)
			return
		}
	}
	res, err := h.service.Convert(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	if res.WorkflowID != "" {
		c.JSON(http.StatusAccepted, res)
		return
	}
	c.JSON(http.StatusOK, res)
}
