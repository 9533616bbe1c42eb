// Package database はデータベース接続とマイグレーションを扱います。
package database

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"tasktree/backend/internal/config"
	"tasktree/backend/internal/storage/sqlstore"
)

// GetDSN は設定からMySQL接続文字列 (DSN) を構築します。
func GetDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&clientFoundRows=true",
		cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.Name)
}

// SQLiteDSN はSQLiteファイルの接続文字列を構築します。
// 書き込みトランザクションは BEGIN IMMEDIATE で直列化し、ロック待ちは busy_timeout で打ち切ります。
func SQLiteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Open は設定に従ってデータベース接続を開き、疎通を確認します。
func Open(cfg config.DatabaseConfig) (*sql.DB, sqlstore.Dialect, error) {
	dialect, err := sqlstore.DialectFor(cfg.Driver)
	if err != nil {
		return nil, sqlstore.Dialect{}, err
	}

	var db *sql.DB
	switch dialect.Name {
	case "mysql":
		db, err = sql.Open("mysql", GetDSN(cfg))
	default:
		db, err = sql.Open("sqlite", SQLiteDSN(cfg.Path))
	}
	if err != nil {
		return nil, dialect, fmt.Errorf("failed to open database connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime())
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, dialect, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, dialect, nil
}
