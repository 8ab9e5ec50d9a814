package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("health", fx.Provide(ProvideHealth))

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

type Dependency struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Health struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Deps    []Dependency `json:"deps,omitempty"`
}

type HealthService interface {
	Liveness(c *gin.Context)
	Readiness(c *gin.Context)
	// Check pings every dependency; the gRPC health server reuses it.
	Check(ctx context.Context) Health
	// Drain makes readiness fail from now on so load balancers stop routing
	// before the servers shut down.
	Drain()
}

type health struct {
	db       *gorm.DB
	redis    *redis.Client
	draining atomic.Bool
}

type HealthParams struct {
	fx.In
	DB    *gorm.DB      `optional:"true"`
	Redis *redis.Client `optional:"true"`
}

func ProvideHealth(p HealthParams) HealthService {
	return &health{
		db:    p.DB,
		redis: p.Redis,
	}
}

func (h *health) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, &Health{
		Status:  statusHealthy,
		Message: "OK",
	})
}

func (h *health) Readiness(c *gin.Context) {
	res := h.Check(c.Request.Context())
	code := http.StatusOK
	if res.Status != statusHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, res)
}

func (h *health) Drain() {
	h.draining.Store(true)
}

func (h *health) Check(ctx context.Context) Health {
	if h.draining.Load() {
		return Health{Status: statusUnhealthy, Message: "shutting down"}
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res := Health{Status: statusHealthy, Message: "OK"}

	if h.db != nil {
		dep := Dependency{Name: "database", Status: statusHealthy, Message: "OK"}
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			dep.Status = statusUnhealthy
			dep.Message = err.Error()
		}
		res.Deps = append(res.Deps, dep)
	}

	if h.redis != nil {
		dep := Dependency{Name: "redis", Status: statusHealthy, Message: "OK"}
		if err := h.redis.Ping(ctx).Err(); err != nil {
			dep.Status = statusUnhealthy
			dep.Message = err.Error()
		}
		res.Deps = append(res.Deps, dep)
	}

	for _, d := range res.Deps {
		if d.Status != statusHealthy {
			res.Status = statusUnhealthy
			res.Message = "one or more dependencies are unavailable"
		}
	}
	return res
}

func (h Health) Healthy() bool {
	return h.Status == statusHealthy
}
