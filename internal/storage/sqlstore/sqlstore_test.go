package sqlstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktree/backend/internal/config"
	"tasktree/backend/internal/database"
	"tasktree/backend/internal/storage"
	"tasktree/backend/internal/storage/sqlstore"
	"tasktree/backend/internal/storage/storagetest"
)

// newSQLiteStore は一時ファイルのSQLiteにマイグレーションを適用したストアを返します。
func newSQLiteStore(t *testing.T) storage.Store {
	t.Helper()
	db, dialect, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "store.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = database.RunMigrations(context.Background(), db, dialect.Name)
	require.NoError(t, err)
	return sqlstore.New(db, dialect)
}

func TestContract_SQLite(t *testing.T) {
	storagetest.Run(t, newSQLiteStore)
}

func TestForeignKeys_SQLite(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx, storage.TxOptions{})
	require.NoError(t, err)
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.Insert(ctx, storage.EntityItems, storage.Record{
		"list_id": int64(999), "parent_id": nil, "content": "orphan", "completed": false,
		"created_at": now, "updated_at": now,
	})
	assert.Error(t, err, "items must reference an existing list")
}

func TestDialectFor(t *testing.T) {
	d, err := sqlstore.DialectFor("mysql")
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name)
	require.NotNil(t, d.WriteTx)

	d, err = sqlstore.DialectFor("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name)

	_, err = sqlstore.DialectFor("postgres")
	assert.Error(t, err)
}

func TestBegin_CanceledContext(t *testing.T) {
	s := newSQLiteStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Begin(ctx, storage.TxOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
