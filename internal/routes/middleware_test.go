package routes_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktree/backend/internal/logging"
	"tasktree/backend/internal/routes"
	"tasktree/backend/internal/storage/memstore"
	"tasktree/backend/testutil"
)

func TestAuthMiddleware_ValidToken(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)

	token, err := testutil.LoginAndGetToken(t, r, testutil.NormalUserEmail, testutil.NormalUserPassword)
	require.NoError(t, err)

	w := testutil.DoJSON(t, r, http.MethodGet, "/api/protected", token, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	err = json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Access granted", response["message"])
	assert.Equal(t, float64(1), response["user_id"]) // user_idはfloat64でデコードされる
	assert.Equal(t, testutil.NormalUserEmail, response["email"])
	assert.Equal(t, "user", response["role"])
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)

	w := testutil.DoJSON(t, r, http.MethodGet, "/api/protected", "invalid.jwt.token", nil) // 不正なトークン

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Contains(t, response["error"], "Invalid or expired token")
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)

	w := testutil.DoJSON(t, r, http.MethodGet, "/api/protected", "", nil) // トークンなし

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Contains(t, response["error"], "Authorization header required")
}

func TestAuthMiddleware_WrongScheme(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)

	req, _ := http.NewRequest(http.MethodGet, "/api/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid token format")
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)

	w := testutil.DoJSON(t, r, http.MethodGet, "/api/hello", "", nil)
	assert.NotEmpty(t, w.Header().Get(routes.RequestIDHeader))

	req, _ := http.NewRequest(http.MethodGet, "/api/hello", nil)
	req.Header.Set(routes.RequestIDHeader, "given-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "given-id", w.Header().Get(routes.RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(routes.RateLimit(0.001, 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestSetupRouter_RequiresSecret(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.Auth.JWTSecret = ""
	_, err := routes.SetupRouter(cfg, memstore.New(), logging.Discard())
	assert.Error(t, err)
}

func TestCORS_Preflight(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)

	req, _ := http.NewRequest(http.MethodOptions, "/api/items/1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
}
