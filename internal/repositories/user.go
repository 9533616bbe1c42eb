// Package repositories は storage.Txn 上でモデルの読み書きを行うリポジトリを提供します。
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tasktree/backend/internal/models"
	"tasktree/backend/internal/storage"

	"golang.org/x/crypto/bcrypt" // パスワードのハッシュ化用
)

// UserRepository はユーザーの読み書きを行います。
type UserRepository struct {
	tx storage.Txn
}

// NewUserRepository は tx 上で動く新しいUserRepositoryインスタンスを作成します。
func NewUserRepository(tx storage.Txn) *UserRepository {
	return &UserRepository{tx: tx}
}

// HashPassword は与えられたパスワードをbcryptでハッシュ化します。
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedPassword), nil
}

// VerifyPassword はハッシュ化されたパスワードと平文のパスワードを比較します。
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

var (
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrUserNotFound   = errors.New("user not found")
)

// Create は新しいユーザーを挿入します。
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	id, err := r.tx.Insert(ctx, storage.EntityUsers, storage.Record{
		"username":      u.Username,
		"email":         u.Email,
		"password_hash": u.PasswordHash,
		"role":          u.Role,
		"created_at":    now,
		"updated_at":    now,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("could not insert user: %w", err)
	}
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return u, nil
}

// FindByEmail はメールアドレスでユーザーを検索します。
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	recs, err := r.tx.Query(ctx, storage.EntityUsers, storage.Filter{"email": email})
	if err != nil {
		return nil, fmt.Errorf("could not query user: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrUserNotFound
	}
	return userFromRecord(recs[0]), nil
}

// FindByID はIDでユーザーを検索します。
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	rec, err := r.tx.Get(ctx, storage.EntityUsers, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not query user: %w", err)
	}
	return userFromRecord(rec), nil
}

func userFromRecord(rec storage.Record) *models.User {
	return &models.User{
		ID:           rec.Int64("id"),
		Username:     rec.String("username"),
		Email:        rec.String("email"),
		PasswordHash: rec.String("password_hash"),
		Role:         rec.String("role"),
		CreatedAt:    rec.Time("created_at"),
		UpdatedAt:    rec.Time("updated_at"),
	}
}
