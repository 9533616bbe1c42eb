package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"tasktree/backend/internal/logging"
)

func main() {
	logger := logging.NewLogger(os.Stderr, os.Getenv("LOG_LEVEL"))
	if err := newApp(logger).Run(context.Background(), os.Args); err != nil {
		logger.Fatal("application error", "err", err)
	}
}

func newApp(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Hierarchical task list API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (optional)",
				Sources: cli.EnvVars("TASKTREE_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(logger),
			migrateCommand(logger),
			initConfigCommand(logger),
		},
		DefaultCommand: "serve",
	}
}
