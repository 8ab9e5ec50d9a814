package paymentemail

import (
	"endurancy-platform/internal/httpapi"
	"endurancy-platform/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentemail.service",
	fx.Provide(NewService, NewHandler),
)

var Gateway = fx.Module("paymentemail.gateway",
	fx.Invoke(registerRoutes),
)

var Worker = fx.Module("paymentemail.worker",
	fx.Provide(NewDeliverer),
	fx.Invoke(func(mux *asynq.ServeMux, d *Deliverer) {
		mux.HandleFunc(taskname.PaymentConfirmation, d.HandleConfirmation)
		mux.HandleFunc(taskname.PaymentFailure, d.HandleFailure)
	}),
)

func registerRoutes(r *httpapi.Router, h *Handler) {
	g := r.Private.Group("/payment-email")
	g.POST("/confirmation", h.enqueue(h.service.Confirmation))
	g.POST("/failure", h.enqueue(h.service.Failure))
	g.GET("/config", h.Config)
}
