package main

import (
	"context"
	"log"
	"time"

	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/db"
	"endurancy-platform/pkg/gen"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/mailer"
	"endurancy-platform/pkg/minio"
	"endurancy-platform/pkg/otelcol"
	"endurancy-platform/pkg/profiling"
	"endurancy-platform/pkg/redis"
	"endurancy-platform/pkg/sequence"
	"endurancy-platform/pkg/task"
	"endurancy-platform/pkg/workflow"
	"endurancy-platform/services/affiliate"
	"endurancy-platform/services/notification"
	"endurancy-platform/services/organization"
	"endurancy-platform/services/paymentemail"
	"endurancy-platform/services/precadastro"
	"endurancy-platform/services/tarefa"
	"endurancy-platform/services/user"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	opts := []fx.Option{
		config.Source(),
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		sequence.Module,
		gen.Module,
		minio.Client,
		mailer.Module,
		mailer.OutboxModule,
		mailer.Worker,
		workflow.ProvideClient,

		organization.Module,
		user.Module,
		notification.Module,
		notification.Worker,
		tarefa.Module,
		tarefa.Worker,
		affiliate.Module,
		affiliate.Worker,
		paymentemail.Worker,
		precadastro.Worker,
		workflow.Worker,

		fx.Provide(newScheduler),
		fx.Invoke(scheduleReminderSweep),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func newScheduler(lc fx.Lifecycle) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			zap.L().Info("[Scheduler] started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Shutdown()
		},
	})
	return s, nil
}

// scheduleReminderSweep queues due-date reminders every hour. Every replica
// runs it; the sweep enqueues under a per due date task id, so overlapping
// runs on different workers queue each reminder once.
func scheduleReminderSweep(s gocron.Scheduler, tarefas *tarefa.Service) error {
	_, err := s.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			ctx := context.Background()
			n, err := tarefas.SweepDueReminders(ctx, time.Now().UTC())
			if err != nil {
				zap.L().Error("due reminder sweep failed", zap.Error(err))
				return
			}
			zap.L().Info("due reminder sweep finished", zap.Int("queued", n))
		}),
		gocron.WithName("tarefa-due-reminders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	return err
}
