package precadastro

import (
	"endurancy-platform/internal/httpapi"
	appworkflow "endurancy-platform/pkg/workflow"

	"go.temporal.io/sdk/worker"
	"go.uber.org/fx"
)

var Module = fx.Module("precadastro.service",
	fx.Provide(NewActivities, NewService, NewHandler),
)

var Gateway = fx.Module("precadastro.gateway",
	fx.Invoke(registerRoutes),
)

// Worker contributes the onboarding workflow to the Temporal worker.
var Worker = fx.Module("precadastro.worker",
	fx.Provide(NewActivities),
	fx.Provide(fx.Annotate(registerOnboarding, fx.ResultTags(`group:"temporal.registrations"`))),
)

func registerOnboarding(a *Activities) appworkflow.Registration {
	return func(w worker.Registry) {
		w.RegisterWorkflow(OnboardLead)
		w.RegisterActivity(a)
	}
}

func registerRoutes(r *httpapi.Router, h *Handler) {
	r.Public.POST("/pre-cadastro", h.Create)

	g := r.Private.Group("/pre-cadastro")
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id/status", h.UpdateStatus)
	g.POST("/:id/converter", h.Convert)
}
