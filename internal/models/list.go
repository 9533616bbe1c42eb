// Package models はリスト・アイテム・ユーザーを定義します。
package models

import "time"

// List はユーザーが所有するタスクリストです。
type List struct {
	ID        int64     `json:"id"`       // 主キー
	OwnerID   int64     `json:"owner_id"` // 所有者 (ユーザーID)
	Title     string    `json:"title"`    // 1〜100文字
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateListRequest はリスト作成リクエストです。
type CreateListRequest struct {
	Title string `json:"title"`
}

// ListTree はリストとその入れ子のアイテムです。
type ListTree struct {
	List  *List       `json:"list"`
	Items []*TreeNode `json:"items"`
}
