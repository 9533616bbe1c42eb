package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"tasktree/backend/internal/apperr"
	"tasktree/backend/internal/repositories"
	"tasktree/backend/internal/services"
	"tasktree/backend/internal/storage"
	"tasktree/backend/internal/tree"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.Wrap(apperr.ErrValidation, tree.ErrInvalidText, "content"), http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("get tree: %w", apperr.Wrap(apperr.ErrNotFound, nil, "list 3")), http.StatusNotFound},
		{"conflict", apperr.Wrap(apperr.ErrConflict, storage.ErrConflict, "move item"), http.StatusConflict},
		{"storage", apperr.Wrap(apperr.ErrStorage, errors.New("disk full"), "create item"), http.StatusInternalServerError},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
		{"bad password", apperr.Wrap(apperr.ErrValidation, services.ErrInvalidCredentials, "login"), http.StatusUnauthorized},
		{"unknown email", apperr.Wrap(apperr.ErrNotFound, services.ErrInvalidCredentials, "login"), http.StatusUnauthorized},
		{"duplicate user", apperr.Wrap(apperr.ErrValidation, repositories.ErrDuplicateEmail, "register"), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tt.err)
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}
