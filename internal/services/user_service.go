package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"tasktree/backend/internal/apperr"
	"tasktree/backend/internal/config"
	"tasktree/backend/internal/models"
	"tasktree/backend/internal/repositories"
	"tasktree/backend/internal/storage"
)

// ErrInvalidCredentials はメールアドレスかパスワードが一致しない場合のエラーです。
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserService はユーザー関連のビジネスロジックを扱います。
type UserService struct {
	tx     txRunner
	logger *log.Logger
}

// NewUserService は新しいUserServiceを作成します。
func NewUserService(store storage.Store, cfg config.StoreConfig, logger *log.Logger) *UserService {
	logger = logger.WithPrefix("users")
	return &UserService{tx: newTxRunner(store, cfg, logger), logger: logger}
}

// RegisterUser は一般ユーザーを登録します。
func (s *UserService) RegisterUser(ctx context.Context, req models.UserRegisterRequest) (*models.User, error) {
	return s.CreateUser(ctx, req.Username, req.Email, req.Password, "user")
}

// CreateUser は役割を指定してユーザーを作成します。
func (s *UserService) CreateUser(ctx context.Context, username, email, password, role string) (*models.User, error) {
	hashedPassword, err := repositories.HashPassword(password)
	if err != nil {
		s.logger.Error("Failed to hash password", "err", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
	}

	var createdUser *models.User
	err = s.tx.run(ctx, "create user", false, func(tx storage.Txn) error {
		u, err := repositories.NewUserRepository(tx).Create(ctx, newUser)
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return apperr.Wrap(apperr.ErrValidation, err, "username or email already exists")
		}
		createdUser = u
		return err
	})
	if err != nil {
		return nil, err
	}
	createdUser.PasswordHash = "" // レスポンスにパスワードを含めない
	s.logger.Info("user registered", "id", createdUser.ID, "role", role)
	return createdUser, nil
}

// AuthenticateUser はユーザーを認証し、成功したらユーザーを返します。
func (s *UserService) AuthenticateUser(ctx context.Context, req models.UserLoginRequest) (*models.User, error) {
	var foundUser *models.User
	err := s.tx.run(ctx, "authenticate user", true, func(tx storage.Txn) error {
		u, err := repositories.NewUserRepository(tx).FindByEmail(ctx, req.Email)
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperr.Wrap(apperr.ErrNotFound, ErrInvalidCredentials, "login")
		}
		foundUser = u
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := repositories.VerifyPassword(foundUser.PasswordHash, req.Password); err != nil {
		return nil, apperr.Wrap(apperr.ErrValidation, ErrInvalidCredentials, "login")
	}

	foundUser.PasswordHash = "" // レスポンスにパスワードを含めない
	return foundUser, nil
}
