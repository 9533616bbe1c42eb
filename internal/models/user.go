package models

import "time"

// User はユーザーのデータベース構造体を表します。
// JSONタグ: クライアントとの通信用
// bindingタグ: Ginでのリクエストバリデーション用
type User struct {
	ID           int64     `json:"id,omitempty"`
	Username     string    `json:"username" binding:"required,min=8"`        // 8文字以上
	Email        string    `json:"email" binding:"required,email"`           // email形式
	PasswordHash string    `json:"-"`                                        // JSONに出さない
	Role         string    `json:"role" binding:"required,oneof=user admin"` // user または admin
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserRegisterRequest struct {
	Username string `json:"username" binding:"required,min=8"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"` // 生パスワード
}

type UserLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"` // 生パスワード
}

// JWTClaims は検証済みトークンから取り出した利用者情報です。
type JWTClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}
