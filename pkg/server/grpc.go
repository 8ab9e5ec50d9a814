package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/health"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ProvideGRPCServer serves grpc.health.v1 so orchestrators can health-check the API
// over gRPC with the same checks as /health/readiness.
var ProvideGRPCServer = fx.Module("grpc.server",
	fx.Provide(NewGRPCServer),
	fx.Invoke(StartGRPCServer),
)

func interceptorLogger(l *zap.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		zf := make([]zap.Field, 0, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			key, _ := fields[i].(string)
			zf = append(zf, zap.Any(key, fields[i+1]))
		}

		switch lvl {
		case logging.LevelDebug:
			l.Debug(msg, zf...)
		case logging.LevelInfo:
			l.Info(msg, zf...)
		case logging.LevelWarn:
			l.Warn(msg, zf...)
		default:
			l.Error(msg, zf...)
		}
	})
}

func withStatsHandler(tp trace.TracerProvider, mp metric.MeterProvider) grpc.ServerOption {
	return grpc.StatsHandler(otelgrpc.NewServerHandler(
		otelgrpc.WithTracerProvider(tp),
		otelgrpc.WithMeterProvider(mp),
	))
}

func NewGRPCServer() *grpc.Server {
	recoverFn := recovery.WithRecoveryHandler(func(p any) error {
		zap.L().Error("grpc panic recovered", zap.Any("panic", p))
		return status.Error(codes.Internal, "internal error")
	})

	srv := grpc.NewServer(
		withStatsHandler(otel.GetTracerProvider(), otel.GetMeterProvider()),
		grpc.ChainUnaryInterceptor(
			logging.UnaryServerInterceptor(interceptorLogger(zap.L())),
			recovery.UnaryServerInterceptor(recoverFn),
		),
		grpc.ChainStreamInterceptor(
			logging.StreamServerInterceptor(interceptorLogger(zap.L())),
			recovery.StreamServerInterceptor(recoverFn),
		),
	)
	reflection.Register(srv)
	return srv
}

func StartGRPCServer(lc fx.Lifecycle, cfg *config.Config, srv *grpc.Server, checker health.HealthService) {
	hs := grpchealth.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)

	var listener net.Listener
	stop := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			listener, err = net.Listen("tcp", cfg.Grpc.Addr)
			if err != nil {
				return fmt.Errorf("grpc listen: %w", err)
			}

			go watchHealth(hs, checker, stop)

			go func() {
				zap.L().Info("Starting gRPC server...", zap.String("addr", cfg.Grpc.Addr))
				if err := srv.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
					zap.L().Fatal("gRPC server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			zap.L().Info("Shutting down gRPC server...", zap.String("addr", cfg.Grpc.Addr))
			close(stop)
			hs.Shutdown()

			done := make(chan struct{})
			go func() {
				srv.GracefulStop()
				close(done)
			}()

			select {
			case <-ctx.Done():
				srv.Stop()
			case <-done:
			}
			return nil
		},
	})
}

func watchHealth(hs *grpchealth.Server, checker health.HealthService, stop <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		st := grpc_health_v1.HealthCheckResponse_SERVING
		if !checker.Check(context.Background()).Healthy() {
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", st)

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}
