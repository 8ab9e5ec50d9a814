package module

import (
	"endurancy-platform/internal/httpapi"

	"go.uber.org/fx"
)

var Module = fx.Module("module.service",
	fx.Provide(NewService, NewHandler),
)

var Gateway = fx.Module("module.gateway",
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *httpapi.Router, h *Handler) {
	m := r.Private.Group("/modules")
	m.GET("", h.Catalog)
	m.POST("", h.CreateModule)
	m.GET("/organization", h.OrganizationModules)
	m.POST("/organization", h.Subscribe)
	m.DELETE("/organization/:moduleId", h.Unsubscribe)

	p := r.Private.Group("/module-plans")
	p.GET("", h.Plans)
	p.POST("", h.CreatePlan)
}
