package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"tasktree/backend/internal/config"
	"tasktree/backend/internal/database"
	"tasktree/backend/internal/logging"
	"tasktree/backend/internal/routes"
	"tasktree/backend/internal/storage/sqlstore"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run migrations and start the HTTP server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "skip-migrate",
				Usage: "Do not apply pending migrations on startup",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			logger.SetLevel(logging.ParseLevel(cfg.Log.Level))
			return serve(ctx, cfg, !cmd.Bool("skip-migrate"), logger)
		},
	}
}

// serve はDBに接続してサーバーを起動し、SIGINT/SIGTERM で穏やかに停止します。
func serve(ctx context.Context, cfg *config.Config, migrate bool, logger *log.Logger) error {
	db, dialect, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	store := sqlstore.New(db, dialect)
	defer store.Close()

	if migrate {
		applied, err := database.RunMigrations(ctx, db, dialect.Name)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if len(applied) > 0 {
			logger.Info("applied migrations", "versions", applied)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	r, err := routes.SetupRouter(cfg, store, logger)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr, "driver", dialect.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
