// Package config はTOMLファイルと環境変数からアプリケーション設定を読み込みます。
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config はアプリケーション全体の設定です。
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Store    StoreConfig    `toml:"store"`
	Auth     AuthConfig     `toml:"auth"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig はHTTPサーバーの設定です。
type ServerConfig struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	AllowOrigins []string `toml:"allow_origins"`
	RateLimit    float64  `toml:"rate_limit"`
	RateBurst    int      `toml:"rate_burst"`
}

// Addr は listen するアドレスを返します。
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig はデータベース接続の設定です。
type DatabaseConfig struct {
	Driver             string `toml:"driver"`
	User               string `toml:"user"`
	Pass               string `toml:"pass"`
	Host               string `toml:"host"`
	Port               string `toml:"port"`
	Name               string `toml:"name"`
	Path               string `toml:"path"`
	MaxOpenConns       int    `toml:"max_open_conns"`
	MaxIdleConns       int    `toml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `toml:"conn_max_lifetime_sec"`
}

// ConnMaxLifetime は接続の最大生存時間です。
func (d DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(d.ConnMaxLifetimeSec) * time.Second
}

// StoreConfig はトランザクション再試行の設定です。
type StoreConfig struct {
	ConflictRetries int `toml:"conflict_retries"`
	RetryBackoffMS  int `toml:"retry_backoff_ms"`
}

// RetryBackoff は再試行の基本待ち時間です。
func (s StoreConfig) RetryBackoff() time.Duration {
	return time.Duration(s.RetryBackoffMS) * time.Millisecond
}

// AuthConfig はJWTの設定です。
type AuthConfig struct {
	JWTSecret     string `toml:"jwt_secret"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
}

// TokenTTL はトークンの有効期間です。
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// LogConfig はログの設定です。
type LogConfig struct {
	Level string `toml:"level"`
}

// Default は埋め込みの設定例から既定値を返します。
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &cfg
}

// Load は .env、TOMLファイル (path が空なら読まない)、環境変数の順に設定を重ねます。
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv は環境変数が設定されている項目を上書きします。
func (c *Config) applyEnv() error {
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Pass, "DB_PASS")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		c.Server.AllowOrigins = strings.Split(v, ",")
	}
	if err := setInt(&c.Server.Port, "PORT"); err != nil {
		return err
	}
	return setInt(&c.Store.ConflictRetries, "STORE_CONFLICT_RETRIES")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

// CreateConfigFile は設定例を path に書き出します。既存ファイルは上書きしません。
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
