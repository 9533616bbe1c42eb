// Package handlers はHTTPリクエストをサービスの呼び出しに変換します。
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tasktree/backend/internal/apperr"
	"tasktree/backend/internal/repositories"
	"tasktree/backend/internal/services"
)

// CurrentOwnerID は AuthMiddleware がコンテキストに設定したユーザーIDを返します。
func CurrentOwnerID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

// requireOwner はユーザーIDを取り出し、なければ401を返します。
func requireOwner(c *gin.Context) (int64, bool) {
	id, ok := CurrentOwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return 0, false
	}
	return id, true
}

// parseID はパスパラメータのIDを取り出し、不正なら400を返します。
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return 0, false
	}
	return id, true
}

// respondError はエラー種別をHTTPステータスに変換してレスポンスを書きます。
// 認証と登録のエラーは種別より先に判定します。
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	case errors.Is(err, repositories.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
		return
	}

	switch apperr.KindOf(err) {
	case apperr.ErrValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.ErrConflict:
		c.JSON(http.StatusConflict, gin.H{"error": "Concurrent modification, please retry"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
