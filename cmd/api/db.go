package main

import (
	"context"
	"database/sql"

	"github.com/urfave/cli/v3"

	"tasktree/backend/internal/config"
	"tasktree/backend/internal/database"
)

type migrator struct {
	db      *sql.DB
	dialect string
}

// withDB は設定を読み込んでDBを開き、fn の後に閉じます。
func withDB(ctx context.Context, cmd *cli.Command, fn func(ctx context.Context, m migrator) error) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	db, dialect, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, migrator{db: db, dialect: dialect.Name})
}
