package httpapi

import (
	"endurancy-platform/pkg/access"
	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/health"
	"endurancy-platform/pkg/middleware"
	"endurancy-platform/pkg/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewEngine, NewRouter),
)

// Router exposes the two /api groups services mount their routes on.
// Private routes require a session and pass the access policy.
type Router struct {
	Public  *gin.RouterGroup
	Private *gin.RouterGroup
}

type EngineParams struct {
	fx.In
	Config  *config.Config
	Session *session.Manager
	Health  health.HealthService
}

func NewEngine(p EngineParams) *gin.Engine {
	if p.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		otelgin.Middleware(p.Config.AppName),
		middleware.RequestLogger(),
		middleware.CORS(p.Config.Server.CorsOrigins),
		p.Session.Load(),
		middleware.CSRF(p.Config),
		middleware.Error(),
	)

	r.GET("/health/liveness", p.Health.Liveness)
	r.GET("/health/readiness", p.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func NewRouter(r *gin.Engine, authz access.Authorizer) *Router {
	api := r.Group("/api")
	private := r.Group("/api", middleware.RequireSession(), middleware.Authorize(authz))
	return &Router{Public: api, Private: private}
}
