package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/iliyamo/lang-learner-backend/internal/config"
	"github.com/iliyamo/lang-learner-backend/internal/database"
	"github.com/iliyamo/lang-learner-backend/internal/logging"
	"github.com/iliyamo/lang-learner-backend/internal/repository"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending migrations for the configured DB_DRIVER.`,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	ctx := cmdContext(cmd)

	cmd.Println("Connecting to database...")
	db, err := database.Open(ctx, cfg, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer func() { _ = db.Close() }()

	cmd.Println("Running migrations...")
	if err := database.Migrate(ctx, db); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	n, err := repository.NewUserRepo(db).Count(ctx)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "count users").Wrap(err)
	}
	cmd.Printf("Migrations completed successfully (%d accounts)\n", n)
	return nil
}
