package paymentemail

import (
	"context"
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

func (h *Handler) enqueue(send func(ctx context.Context, req Request) (*Accepted, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Request
		if err := httpapi.BindJSON(c, &req); err != nil {
			c.Error(err)
			return
		}
		res, err := send(c.Request.Context(), req)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusAccepted, res)
	}
}

func (h *Handler) Config(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Config())
}
