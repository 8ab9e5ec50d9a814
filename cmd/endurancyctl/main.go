package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"endurancy-platform/migrations"
	"endurancy-platform/pkg/cache"
	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/db"
	"endurancy-platform/pkg/featureflags"
	"endurancy-platform/pkg/gen"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/redis"
	"endurancy-platform/services/module"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	root := &cobra.Command{
		Use:          "endurancyctl",
		Short:        "Endurancy operations CLI",
		SilenceUsage: true,
	}
	root.AddCommand(migrateCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig runs only the config and logger modules and hands back the
// resulting Config.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	app := fx.New(config.Source(), logger.Module, fx.Populate(&cfg), fx.NopLogger)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openPostgres(cfg *config.Config) (*sql.DB, error) {
	d := cfg.Database
	if d.Type != "" && d.Type != "postgres" {
		return nil, fmt.Errorf("migrations target postgres, DATABASE.TYPE is %q", d.Type)
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBNAME, d.SSLMode)
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return conn, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := openPostgres(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			n, err := db.NewMigrator(conn, migrations.FS).Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed after %d applied: %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := openPostgres(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			statuses, err := db.NewMigrator(conn, migrations.FS).Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-32s %-8s %s\n", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status, at := "pending", ""
				if s.Applied {
					status = "applied"
					at = s.AppliedAt.Format(time.DateTime)
				}
				fmt.Fprintf(out, "%-32s %-8s %s\n", s.Name, status, at)
			}
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "modules",
		Short: "Create the default module catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc *module.Service
			app := fx.New(
				config.Source(),
				logger.Module,
				db.Module,
				redis.Module,
				cache.Module,
				gen.Module,
				featureflags.Module,
				module.Module,
				fx.Populate(&svc),
				fx.NopLogger,
			)
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := app.Start(ctx); err != nil {
				return err
			}
			defer app.Stop(context.Background())

			n, err := svc.Seed(ctx, module.DefaultCatalog())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d module(s).\n", n)
			return nil
		},
	})

	return cmd
}
