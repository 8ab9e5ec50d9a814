package user

import (
	"endurancy-platform/internal/httpapi"

	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(NewService, NewHandler),
)

var Gateway = fx.Module("user.gateway",
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *httpapi.Router, h *Handler) {
	r.Private.GET("/profile", h.GetProfile)
	r.Private.PUT("/profile", h.UpdateProfile)
	r.Private.PUT("/profile/password", h.ChangePassword)
}
