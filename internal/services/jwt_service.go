package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tasktree/backend/internal/config"
	"tasktree/backend/internal/models"
)

const tokenIssuer = "tasktree"

// ErrInvalidToken はトークンが検証できない場合のエラーです。
var ErrInvalidToken = errors.New("invalid token")

// tokenClaims はトークンに載せる利用者情報です。sub にもユーザーIDを入れます。
type tokenClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService はJWTトークンの生成と検証を扱います。
type JWTService struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTService は新しいJWTServiceを作成します。シークレットが空ならエラーです。
func NewJWTService(cfg config.AuthConfig) (*JWTService, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is not configured (auth.jwt_secret or JWT_SECRET)")
	}
	ttl := cfg.TokenTTL()
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTService{secret: []byte(cfg.JWTSecret), ttl: ttl}, nil
}

// GenerateToken は userID の署名付きトークンを発行します。
func (s *JWTService) GenerateToken(userID int64, email, role string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken は署名・発行者・有効期限を確認し、利用者情報を返します。
func (s *JWTService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 || claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, fmt.Errorf("%w: subject does not match user_id", ErrInvalidToken)
	}
	return &models.JWTClaims{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}
