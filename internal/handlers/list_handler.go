package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktree/backend/internal/models"
	"tasktree/backend/internal/services"
)

// ListHandler はリスト関連のハンドラーを管理します。
type ListHandler struct {
	taskService *services.TaskService
}

// NewListHandler は新しいListHandlerを作成します。
func NewListHandler(taskService *services.TaskService) *ListHandler {
	return &ListHandler{taskService: taskService}
}

// GetListsHandler はユーザーのリストを返します。
func (h *ListHandler) GetListsHandler(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	lists, err := h.taskService.GetLists(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

// CreateListHandler はリストを作成します。
func (h *ListHandler) CreateListHandler(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var req models.CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	list, err := h.taskService.CreateList(c.Request.Context(), owner, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

// GetListHandler は指定IDのリストを返します。
func (h *ListHandler) GetListHandler(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.taskService.GetList(c.Request.Context(), owner, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// DeleteListHandler はリストとそのアイテムを削除します。
func (h *ListHandler) DeleteListHandler(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.taskService.DeleteList(c.Request.Context(), owner, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetTreeHandler はリストのアイテムを入れ子で返します。
func (h *ListHandler) GetTreeHandler(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	lt, err := h.taskService.GetTree(c.Request.Context(), owner, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lt)
}

// GetOverviewHandler はすべてのリストをアイテムの木と一緒に返します。
func (h *ListHandler) GetOverviewHandler(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	overview, err := h.taskService.GetOverview(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
