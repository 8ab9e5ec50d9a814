package redis

import (
	"context"
	"fmt"
	"time"

	"endurancy-platform/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/wait"
)

var Module = fx.Module("redis",
	fx.Provide(New),
)

var connectBackoff = wait.Backoff{Duration: time.Second, Factor: 2, Jitter: 0.1, Steps: 5}

// Options maps the REDIS config section onto the client options. The client
// name makes connections from each binary identifiable in CLIENT LIST.
func Options(c *config.Config) *redis.Options {
	return &redis.Options{
		Addr:        c.Redis.Addr,
		Password:    c.Redis.Password,
		DB:          c.Redis.DB,
		PoolSize:    c.Redis.PoolSize,
		PoolTimeout: c.Redis.PoolTimeout,
		ClientName:  c.AppName,
	}
}

// Ping retries until the server answers or the backoff is exhausted.
func Ping(ctx context.Context, rdb *redis.Client, backoff wait.Backoff) error {
	attempt := 0
	return wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			zap.L().Warn("redis not ready", zap.Int("attempt", attempt), zap.Error(err))
			return false, nil
		}
		return true, nil
	})
}

func New(lc fx.Lifecycle, c *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(Options(c))

	if err := Ping(context.Background(), rdb, connectBackoff); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", c.Redis.Addr, err)
	}
	zap.L().Info("redis connected",
		zap.String("addr", c.Redis.Addr),
		zap.Int("db", c.Redis.DB),
		zap.Int("pool_size", c.Redis.PoolSize),
	)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})
	return rdb, nil
}
