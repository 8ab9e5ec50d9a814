package auth

import (
	"endurancy-platform/internal/httpapi"
	"endurancy-platform/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("auth.service",
	fx.Provide(NewService, NewHandler),
)

var Gateway = fx.Module("auth.gateway",
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *httpapi.Router, h *Handler, cfg *config.Config) {
	a := r.Public.Group("/auth")
	a.POST("/login", h.login(AudienceStaff))
	a.POST("/patient/login", h.login(AudiencePatient))
	a.GET("/me", h.Me)
	a.POST("/logout", h.Logout)
	r.Private.POST("/auth/register", h.Register)

	if !cfg.Session.TestAuth {
		return
	}

	zap.L().Warn("test authentication endpoints enabled")
	t := r.Public.Group("/test-auth")
	t.GET("/status", h.TestStatus)
	t.POST("/login", h.TestLogin)
	t.GET("/me", h.Me)
	t.POST("/logout", h.Logout)
}
