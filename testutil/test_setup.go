// Package testutil はHTTPテスト用のルーターとヘルパーを提供します。
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"tasktree/backend/internal/config"
	"tasktree/backend/internal/logging"
	"tasktree/backend/internal/models"
	"tasktree/backend/internal/routes"
	"tasktree/backend/internal/services"
	"tasktree/backend/internal/storage"
	"tasktree/backend/internal/storage/memstore"
)

// テストユーザー (SetupTestRouter が登録します)
const (
	NormalUserEmail    = "normal_user@example.com"
	NormalUserPassword = "password123"
	AdminEmail         = "admin@example.com"
	AdminPassword      = "adminpass"
)

// TestConfig はテスト用の設定を返します。レート制限は無効です。
func TestConfig() *config.Config {
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Server.RateLimit = 0
	cfg.Store.RetryBackoffMS = 1
	return cfg
}

// SetupTestRouter はインメモリストア上のルーターを作り、テストユーザーを登録します。
func SetupTestRouter(t *testing.T) (*gin.Engine, storage.Store) {
	t.Helper()
	return SetupTestRouterWith(t, TestConfig(), memstore.New())
}

// SetupTestRouterWith は指定の設定とストアでルーターを作り、テストユーザーを登録します。
func SetupTestRouterWith(t *testing.T, cfg *config.Config, store storage.Store) (*gin.Engine, storage.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.Discard()
	r, err := routes.SetupRouter(cfg, store, logger)
	require.NoError(t, err)

	users := services.NewUserService(store, cfg.Store, logger)
	ctx := context.Background()
	_, err = users.CreateUser(ctx, "normal_user", NormalUserEmail, NormalUserPassword, "user")
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, "admin_user", AdminEmail, AdminPassword, "admin")
	require.NoError(t, err)

	return r, store
}

// DoJSON はJSONリクエストを送り、レスポンスを返します。token が空なら認証ヘッダーを付けません。
func DoJSON(t *testing.T, router *gin.Engine, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// CreateTestList はAPI経由でリストを作成します。
func CreateTestList(t *testing.T, router *gin.Engine, token, title string) *models.List {
	t.Helper()
	resp := DoJSON(t, router, http.MethodPost, "/api/lists", token, map[string]any{"title": title})
	require.Equal(t, http.StatusCreated, resp.Code, "リスト作成に失敗しました: %s", resp.Body.String())

	var list models.List
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	return &list
}

// CreateTestItem はAPI経由でアイテムを作成します。parentID が nil ならルートです。
func CreateTestItem(t *testing.T, router *gin.Engine, token string, listID int64, parentID *int64, content string) *models.Item {
	t.Helper()
	payload := map[string]any{"list_id": listID, "content": content}
	if parentID != nil {
		payload["parent_id"] = *parentID
	}
	resp := DoJSON(t, router, http.MethodPost, "/api/items", token, payload)
	require.Equal(t, http.StatusCreated, resp.Code, "アイテム作成に失敗しました: %s", resp.Body.String())

	var item models.Item
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &item))
	return &item
}

// LoginAndGetToken はログインしてJWTトークンを返します。
func LoginAndGetToken(t *testing.T, router *gin.Engine, email, password string) (string, error) {
	resp := DoJSON(t, router, http.MethodPost, "/api/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.Code != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d: %s", resp.Code, resp.Body.String())
	}

	var loginRes map[string]interface{}
	if err := json.Unmarshal(resp.Body.Bytes(), &loginRes); err != nil {
		return "", fmt.Errorf("failed to unmarshal login response: %w", err)
	}

	token, ok := loginRes["token"].(string)
	if !ok {
		return "", errors.New("token not found or not a string in login response")
	}
	return token, nil
}
