package carteirinha

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

func (h *Handler) Issue(c *gin.Context) {
	var req IssueRequest
	if err := httpapi.BindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	card, err := h.service.Issue(c.Request.Context(), actorOf(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (h *Handler) List(c *gin.Context) {
	p, err := httpapi.BindPagination(c)
	if err != nil {
		c.Error(err)
		return
	}
	data, info, err := h.service.List(c.Request.Context(), actorOf(c), ListRequest{PatientID: c.Query("patientId"), Status: c.Query("status")}, p)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpapi.NewListResponse(c, data, info))
}

func (h *Handler) Get(c *gin.Context) {
	card, err := h.service.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) Mine(c *gin.Context) {
	card, err := h.service.Mine(c.Request.Context(), actorOf(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) Revoke(c *gin.Context) {
	var req RevokeRequest
	if c.Request.ContentLength > 0 {
		if err := httpapi.BindJSON(c, &req); err != nil {
			c.Error(err)
			return
		}
	}
	card, err := h.service.Revoke(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) Verify(c *gin.Context) {
	res, err := h.service.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}
