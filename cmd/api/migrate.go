package main

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"tasktree/backend/internal/config"
	"tasktree/backend/internal/database"
)

func migrateCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply or roll back database migrations",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDB(ctx, cmd, func(ctx context.Context, m migrator) error {
						applied, err := database.RunMigrations(ctx, m.db, m.dialect)
						if err != nil {
							return err
						}
						logger.Info("migrations applied", "versions", applied)
						return nil
					})
				},
			},
			{
				Name:  "down",
				Usage: "Roll back the latest migration",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDB(ctx, cmd, func(ctx context.Context, m migrator) error {
						version, err := database.RollbackMigration(ctx, m.db, m.dialect)
						if err != nil {
							return err
						}
						logger.Info("migration rolled back", "version", version)
						return nil
					})
				},
			},
		},
	}
}

func initConfigCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:      "init-config",
		Usage:     "Write an example configuration file",
		ArgsUsage: "[path]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				path = "config.toml"
			}
			if err := config.CreateConfigFile(path); err != nil {
				return err
			}
			logger.Info("config file created", "path", path)
			return nil
		},
	}
}
