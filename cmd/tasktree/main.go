// tasktree はSQLiteファイル上で入れ子のタスクリストを操作するローカルCLIです。
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
		logger.Error(err)
		os.Exit(exitCode(err))
	}
}

func newApp(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "tasktree",
		Usage: "Manage nested task lists stored in a local SQLite file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Path to the SQLite database file",
				Value:   "tasktree.db",
				Sources: cli.EnvVars("TASKTREE_DB"),
			},
			&cli.IntFlag{
				Name:    "owner",
				Usage:   "Owner id used for every operation",
				Value:   1,
				Sources: cli.EnvVars("TASKTREE_OWNER"),
			},
		},
		Commands: []*cli.Command{
			listsCommand(logger),
			itemsCommand(logger),
			treeCommand(logger),
			migrateCommand(logger),
		},
	}
}
