package workflow

import (
	"context"
	"log/slog"
	"os"
	"time"

	"endurancy-platform/pkg/config"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ProvideClient dials Temporal when TEMPORAL.ADDR is set. Without it the
// provided client is nil and callers run workflow steps inline.
var ProvideClient = fx.Module("temporal",
	fx.Provide(NewClient),
	fx.Invoke(Close),
)

// Worker runs the registered workflows and activities on TEMPORAL.TASK_QUEUE.
var Worker = fx.Module("temporal.worker",
	fx.Provide(NewWorker),
	fx.Invoke(RunWorker),
)

func NewClient(cfg *config.Config) client.Client {
	if cfg.Temporal.Addr == "" {
		zap.L().Warn("TEMPORAL.ADDR not set, workflows run inline")
		return nil
	}

	var c client.Client
	var err error

	clientOptions := client.Options{
		HostPort:  cfg.Temporal.Addr,
		Namespace: cfg.Temporal.Namespace,
		ConnectionOptions: client.ConnectionOptions{
			KeepAliveTime:    30 * time.Second,
			KeepAliveTimeout: 30 * time.Second,
			DialOptions: []grpc.DialOption{
				grpc.WithTransportCredentials(
					insecure.NewCredentials(),
				),
			},
		},
		Logger: log.With(
			slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			})), "component", "temporal"),
	}

	for i := 1; i <= 3; i++ {
		c, err = client.Dial(clientOptions)
		if err == nil {
			break
		}
		zap.L().Warn("retrying Temporal client connection", zap.Int("attempt", i), zap.Error(err))
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		zap.L().Fatal("failed to connect Temporal server after retries", zap.Error(err))
	}

	zap.L().Info("Connected to Temporal server", zap.String("addr", cfg.Temporal.Addr))
	return c
}

func Close(lc fx.Lifecycle, c client.Client) {
	if c == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			c.Close()
			return nil
		},
	})
}

// Registration is contributed by services that own workflows.
type Registration func(w worker.Registry)

type WorkerParams struct {
	fx.In
	Config        *config.Config
	Client        client.Client  `optional:"true"`
	Registrations []Registration `group:"temporal.registrations"`
}

func NewWorker(p WorkerParams) worker.Worker {
	if p.Client == nil {
		return nil
	}

	w := worker.New(p.Client, p.Config.Temporal.TaskQueue, worker.Options{})
	for _, register := range p.Registrations {
		register(w)
	}
	return w
}

func RunWorker(lc fx.Lifecycle, w worker.Worker, cfg *config.Config) {
	if w == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			zap.L().Info("Starting Temporal worker", zap.String("task_queue", cfg.Temporal.TaskQueue))
			return w.Start()
		},
		OnStop: func(ctx context.Context) error {
			w.Stop()
			return nil
		},
	})
}
