package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktree/backend/internal/models"
	"tasktree/backend/internal/services"
)

// ItemHandler はアイテム関連のハンドラーを管理します。
type ItemHandler struct {
	taskService *services.TaskService
}

// NewItemHandler は新しいItemHandlerを作成します。
func NewItemHandler(taskService *services.TaskService) *ItemHandler {
	return &ItemHandler{taskService: taskService}
}

// CreateItemHandler はアイテムを作成します。
func (h *ItemHandler) CreateItemHandler(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var in models.CreateItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	item, err := h.taskService.CreateItem(c.Request.Context(), owner, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// GetItemHandler は指定IDのアイテムを返します。
func (h *ItemHandler) GetItemHandler(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	item, err := h.taskService.GetItem(c.Request.Context(), owner, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// UpdateItemHandler は内容と完了状態を部分更新します。
// 送られなかったフィールドは変更しません。
func (h *ItemHandler) UpdateItemHandler(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in models.UpdateItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	item, err := h.taskService.UpdateItem(c.Request.Context(), owner, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// MoveItemHandler はアイテムを別の親やリストへ移動します。空のボディならルートへ移動します。
func (h *ItemHandler) MoveItemHandler(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in models.MoveItemInput
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	item, err := h.taskService.MoveItem(c.Request.Context(), owner, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// CompleteItemHandler はアイテムを完了にします。
func (h *ItemHandler) CompleteItemHandler(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	item, err := h.taskService.CompleteItem(c.Request.Context(), owner, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteItemHandler はアイテムと子孫を削除します。
func (h *ItemHandler) DeleteItemHandler(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.taskService.DeleteItem(c.Request.Context(), owner, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
