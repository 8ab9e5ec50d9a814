package organization

import (
	"endurancy-platform/internal/httpapi"

	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(NewService, NewHandler),
)

var Gateway = fx.Module("organization.gateway",
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *httpapi.Router, h *Handler) {
	g := r.Private.Group("/organizations")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/current", h.Current)
	g.GET("/:id", h.Get)
	g.PUT("/:id/status", h.UpdateStatus)
}
