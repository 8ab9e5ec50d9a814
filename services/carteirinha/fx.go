package carteirinha

import (
	"endurancy-platform/internal/httpapi"

	"go.uber.org/fx"
)

var Module = fx.Module("carteirinha.service",
	fx.Provide(NewSigner, NewService, NewHandler),
)

var Gateway = fx.Module("carteirinha.gateway",
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *httpapi.Router, h *Handler) {
	r.Public.GET("/carteirinha/verify/:id", h.Verify)

	g := r.Private.Group("/carteirinha")
	g.GET("", h.List)
	g.POST("", h.Issue)
	g.GET("/me", h.Mine)
	g.GET("/:id", h.Get)
	g.POST("/:id/revoke", h.Revoke)
}
