// Package routesはroutingを行います。
package routes

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tasktree/backend/internal/config"
	"tasktree/backend/internal/handlers"
	"tasktree/backend/internal/services"
	"tasktree/backend/internal/storage"
)

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(cfg *config.Config, store storage.Store, logger *log.Logger) (*gin.Engine, error) {
	jwtService, err := services.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to set up auth: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger.WithPrefix("http")))
	r.Use(RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))

	// CORS対策
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader}
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsConfig))

	// サービス
	taskService := services.NewTaskService(store, cfg.Store, logger)
	userService := services.NewUserService(store, cfg.Store, logger)

	// ハンドラー
	healthHandler := handlers.NewHealthHandler(store)
	userHandler := handlers.NewUserHandler(userService, jwtService)
	listHandler := handlers.NewListHandler(taskService)
	itemHandler := handlers.NewItemHandler(taskService)

	// ルーティング
	r.GET("/api/hello", healthHandler.HelloHandler)
	r.GET("/api/dbcheck", healthHandler.DBCheckHandler)
	r.POST("/api/register", userHandler.RegisterHandler)
	r.POST("/api/login", userHandler.LoginHandler)

	authorized := r.Group("/api")
	authorized.Use(AuthMiddleware(jwtService))
	{
		authorized.GET("/protected", userHandler.ProtectedHandler)

		authorized.GET("/lists", listHandler.GetListsHandler)
		authorized.POST("/lists", listHandler.CreateListHandler)
		authorized.GET("/lists/:id", listHandler.GetListHandler)
		authorized.DELETE("/lists/:id", listHandler.DeleteListHandler)
		authorized.GET("/lists/:id/tree", listHandler.GetTreeHandler)
		authorized.GET("/overview", listHandler.GetOverviewHandler)

		authorized.POST("/items", itemHandler.CreateItemHandler)
		authorized.GET("/items/:id", itemHandler.GetItemHandler)
		authorized.PATCH("/items/:id", itemHandler.UpdateItemHandler)
		authorized.DELETE("/items/:id", itemHandler.DeleteItemHandler)
		authorized.PUT("/items/:id/move", itemHandler.MoveItemHandler)
		authorized.PUT("/items/:id/complete", itemHandler.CompleteItemHandler)
	}

	return r, nil
}
