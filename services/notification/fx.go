package notification

import (
	"context"

	"endurancy-platform/internal/httpapi"
	"endurancy-platform/pkg/taskname"

	"github.com/hibiken/asynq"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(
		NewService,
		NewHandler,
		func(s *Service) Notifier { return s },
	),
)

var Gateway = fx.Module("notification.gateway",
	fx.Invoke(registerRoutes),
)

var Worker = fx.Module("notification.worker",
	fx.Provide(newPool, NewBroadcaster),
	fx.Invoke(registerHandlers),
)

func registerRoutes(r *httpapi.Router, h *Handler) {
	g := r.Private.Group("/notifications")
	g.GET("", h.List)
	g.GET("/unread-count", h.UnreadCount)
	g.PATCH("/read-all", h.MarkAllRead)
	g.PATCH("/:id/read", h.MarkRead)
	g.POST("/broadcast", h.Broadcast)
}

func registerHandlers(lc fx.Lifecycle, mux *asynq.ServeMux, b *Broadcaster, pool *ants.Pool) {
	mux.HandleFunc(taskname.NotificationBroadcast, b.Handle)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			pool.Release()
			return nil
		},
	})
}
