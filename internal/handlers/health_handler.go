package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktree/backend/internal/storage"
)

// HealthHandler は疎通確認用のハンドラーです。
type HealthHandler struct {
	store storage.Store
}

// NewHealthHandler は新しいHealthHandlerを作成します。
func NewHealthHandler(store storage.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// HelloHandler は固定メッセージを返します。
func (h *HealthHandler) HelloHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello from Go Backend!"})
}

// DBCheckHandler はストレージへの接続を確認します。
func (h *HealthHandler) DBCheckHandler(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database connection failed", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Database connection is healthy"})
}
