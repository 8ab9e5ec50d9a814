package profiling

import (
	"context"
	"os"
	"runtime"

	"endurancy-platform/pkg/config"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("profiling", fx.Invoke(Start))

var baseProfiles = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

// Profiles returns the profile types to push. Mutex and block profiles need
// runtime sampling switched on and are only collected when requested.
func Profiles(contention bool) []pyroscope.ProfileType {
	types := append([]pyroscope.ProfileType{}, baseProfiles...)
	if contention {
		types = append(types,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		)
	}
	return types
}

// Start pushes continuous profiles to PYROSCOPE.ADDR. It is a no-op when no
// address is configured.
func Start(lc fx.Lifecycle, c *config.Config) error {
	pc := c.Pyroscope
	if pc.Addr == "" {
		return nil
	}

	if pc.Contention {
		runtime.SetMutexProfileFraction(5)
		runtime.SetBlockProfileRate(5)
	}

	host, _ := os.Hostname()
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   c.AppName,
		ServerAddress:     pc.Addr,
		BasicAuthUser:     pc.User,
		BasicAuthPassword: pc.Password,
		ProfileTypes:      Profiles(pc.Contention),
		Tags: map[string]string{
			"service_name": c.AppName,
			"env":          c.AppEnv,
			"version":      c.AppVersion,
			"hostname":     host,
		},
	})
	if err != nil {
		return err
	}
	zap.L().Info("pyroscope profiling enabled", zap.String("addr", pc.Addr), zap.Bool("contention", pc.Contention))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return profiler.Stop()
		},
	})
	return nil
}
