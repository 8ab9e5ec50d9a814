package main

import (
	"log"

	"endurancy-platform/internal/httpapi"
	"endurancy-platform/pkg/access"
	"endurancy-platform/pkg/cache"
	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/db"
	"endurancy-platform/pkg/dns"
	"endurancy-platform/pkg/featureflags"
	"endurancy-platform/pkg/gen"
	"endurancy-platform/pkg/hashistack/servicediscover"
	"endurancy-platform/pkg/health"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/mailer"
	"endurancy-platform/pkg/minio"
	"endurancy-platform/pkg/otelcol"
	"endurancy-platform/pkg/profiling"
	"endurancy-platform/pkg/redis"
	"endurancy-platform/pkg/sequence"
	"endurancy-platform/pkg/server"
	"endurancy-platform/pkg/session"
	"endurancy-platform/pkg/task"
	"endurancy-platform/pkg/workflow"
	"endurancy-platform/services/affiliate"
	"endurancy-platform/services/auth"
	"endurancy-platform/services/carteirinha"
	"endurancy-platform/services/expedicao"
	"endurancy-platform/services/module"
	"endurancy-platform/services/notification"
	"endurancy-platform/services/organization"
	"endurancy-platform/services/paymentemail"
	"endurancy-platform/services/precadastro"
	"endurancy-platform/services/tarefa"
	"endurancy-platform/services/user"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	opts := []fx.Option{
		config.Source(),
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		cache.Module,
		task.Client,
		sequence.Module,
		gen.Module,
		session.Module,
		access.Module,
		health.Module,
		minio.Client,
		dns.Module,
		featureflags.Module,
		mailer.OutboxModule,
		workflow.ProvideClient,
		fx.Invoke(migrate),

		httpapi.Module,
		organization.Module,
		organization.Gateway,
		user.Module,
		user.Gateway,
		auth.Module,
		auth.Gateway,
		notification.Module,
		notification.Gateway,
		tarefa.Module,
		tarefa.Gateway,
		affiliate.Module,
		affiliate.Gateway,
		precadastro.Module,
		precadastro.Gateway,
		module.Module,
		module.Gateway,
		expedicao.Module,
		expedicao.Gateway,
		paymentemail.Module,
		paymentemail.Gateway,
		carteirinha.Module,
		carteirinha.Gateway,

		server.ProvideHTTPServer,
		server.ProvideGRPCServer,
		servicediscover.Module,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "development" {
		return &fxevent.ZapLogger{Logger: logger}
	}
	return fxevent.NopLogger
})

// migrate keeps development databases in step with the models. Production
// runs `endurancyctl migrate up` instead.
func migrate(cfg *config.Config, gdb *gorm.DB) error {
	models := []any{
		&organization.Organization{},
		&user.User{},
		&notification.Notification{},
		&precadastro.PreCadastro{},
		&expedicao.Shipment{},
		&carteirinha.Card{},
	}
	models = append(models, tarefa.Models()...)
	models = append(models, affiliate.Models()...)
	models = append(models, module.Models()...)
	return db.AutoMigrate(cfg, gdb, models...)
}
