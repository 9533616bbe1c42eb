package models

import "time"

// Item はリストに属するタスクです。ParentID が nil ならルートです。
type Item struct {
	ID        int64     `json:"id"`
	ListID    int64     `json:"list_id"`
	ParentID  *int64    `json:"parent_id"`
	Content   string    `json:"content"` // 1〜200文字
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRoot はアイテムが親を持たないかどうかを返します。
func (i *Item) IsRoot() bool {
	return i.ParentID == nil
}

// TreeNode は入れ子になったアイテムです。SubItems は作成順です。
type TreeNode struct {
	Item
	SubItems []*TreeNode `json:"sub_items"`
}

// CreateItemInput はアイテム作成の入力です。
type CreateItemInput struct {
	ListID   int64  `json:"list_id" binding:"required"`
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id"`
}

// UpdateItemInput は部分更新の入力です。nil のフィールドは変更しません。
type UpdateItemInput struct {
	Content   *string `json:"content"`
	Completed *bool   `json:"completed"`
}

// MoveItemInput は移動先です。ParentID が nil なら移動先リストのルートになります。
// ListID が nil なら現在のリストのままです。
type MoveItemInput struct {
	ParentID *int64 `json:"parent_id"`
	ListID   *int64 `json:"list_id"`
}
