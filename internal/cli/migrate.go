package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"prime-quiz-bot/internal/config"
	pgmigrations "prime-quiz-bot/internal/infra/postgres/migrations"
	"prime-quiz-bot/internal/logger"
)

var errNoPostgres = errors.New("postgres url not configured")

// NewMigrateCmd creates or upgrades the records table of the postgres store.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the postgres records table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger.Init(cfg.Log.Level, cfg.Log.Format)
			return migrateRecords(cmd.Context(), cfg)
		},
	}
}

// migrateRecords also runs on every start with the postgres driver.
func migrateRecords(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return errNoPostgres
	}
	applied, err := pgmigrations.Apply(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		slog.Info("records schema up to date, no new migrations")
		return nil
	}
	slog.Info("migrations applied", "migrations", applied)
	return nil
}
