package affiliate

import (
	"endurancy-platform/internal/httpapi"
	"endurancy-platform/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("affiliate.service",
	fx.Provide(NewService, NewHandler),
)

var Gateway = fx.Module("affiliate.gateway",
	fx.Invoke(registerRoutes),
)

var Worker = fx.Module("affiliate.worker",
	fx.Invoke(func(mux *asynq.ServeMux, s *Service) {
		mux.HandleFunc(taskname.AffiliateReferralNotify, s.HandleReferralNotify)
	}),
)

func registerRoutes(r *httpapi.Router, h *Handler) {
	g := r.Private.Group("/affiliates")
	g.POST("", h.Enroll)
	g.GET("", h.List)
	g.GET("/me", h.Me)

	g.POST("/referrals", h.CreateReferral)

	g.GET("/rewards", h.ListRewards)
	g.POST("/rewards", h.CreateReward)
	g.PUT("/rewards/:id", h.UpdateReward)

	g.GET("/materials", h.ListMaterials)
	g.POST("/materials", h.UploadMaterial)
	g.GET("/materials/:id/download", h.DownloadMaterial)

	g.POST("/redemptions/:id/complete", h.processRedemption(RedemptionCompleted))
	g.POST("/redemptions/:id/fail", h.processRedemption(RedemptionFailed))
	g.POST("/redemptions/:id/cancel", h.processRedemption(RedemptionCancelled))

	g.GET("/:id", h.Get)
	g.PUT("/:id/level", h.SetLevel)
	g.PUT("/:id/status", h.SetStatus)
	g.GET("/:id/points", h.ListPoints)
	g.POST("/:id/points", h.AddPoints)
	g.GET("/:id/points/verify", h.VerifyPoints)
	g.GET("/:id/referrals", h.ListReferrals)
	g.GET("/:id/redemptions", h.ListRedemptions)
	g.POST("/:id/redemptions", h.Redeem)
	g.GET("/:id/stats", h.Stats)
}
