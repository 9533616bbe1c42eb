package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"tasktree/backend/internal/apperr"
	"tasktree/backend/internal/config"
	"tasktree/backend/internal/database"
	"tasktree/backend/internal/services"
	"tasktree/backend/internal/storage/sqlstore"
)

// session は1回のコマンド実行で使うサービスと出力先です。
type session struct {
	tasks *services.TaskService
	owner int64
	out   io.Writer
}

// withSession はDBを開いてマイグレーションを適用し、fn の後に閉じます。
func withSession(ctx context.Context, cmd *cli.Command, logger *log.Logger, fn func(ctx context.Context, s *session) error) error {
	cfg := config.Default()
	db, dialect, err := openSQLite(cmd.String("db"))
	if err != nil {
		return err
	}
	store := sqlstore.New(db, sqlstore.SQLite)
	defer store.Close()

	if _, err := database.RunMigrations(ctx, db, dialect); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return fn(ctx, &session{
		tasks: services.NewTaskService(store, cfg.Store, logger),
		owner: int64(cmd.Int("owner")),
		out:   cmd.Root().Writer,
	})
}

// openSQLite は path のSQLiteファイルを開きます。
func openSQLite(path string) (*sql.DB, string, error) {
	db, dialect, err := database.Open(config.DatabaseConfig{Driver: "sqlite", Path: path})
	if err != nil {
		return nil, "", err
	}
	return db, dialect.Name, nil
}

// argID は n 番目の位置引数をIDとして読みます。
func argID(cmd *cli.Command, n int, name string) (int64, error) {
	raw := cmd.Args().Get(n)
	if raw == "" {
		return 0, apperr.Validationf("missing %s", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("invalid %s %q", name, raw)
	}
	return id, nil
}

// exitCode はエラー種別を終了コードに変換します。
func exitCode(err error) int {
	switch apperr.KindOf(err) {
	case apperr.ErrValidation:
		return 2
	case apperr.ErrNotFound:
		return 3
	case apperr.ErrConflict:
		return 4
	default:
		return 1
	}
}
