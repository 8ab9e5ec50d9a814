package expedicao

import (
	"endurancy-platform/internal/httpapi"

	"go.uber.org/fx"
)

var Module = fx.Module("expedicao.service",
	fx.Provide(NewService, NewHandler),
)

var Gateway = fx.Module("expedicao.gateway",
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *httpapi.Router, h *Handler) {
	g := r.Private.Group("/expedicao")
	g.GET("/shipments-by-state", h.ByState)
	g.GET("/shipments", h.List)
	g.POST("/shipments", h.Create)
	g.GET("/shipments/:id", h.Get)
	g.PATCH("/shipments/:id/status", h.UpdateStatus)
}
