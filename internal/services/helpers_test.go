package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tasktree/backend/internal/config"
	"tasktree/backend/internal/database"
	"tasktree/backend/internal/logging"
	"tasktree/backend/internal/models"
	"tasktree/backend/internal/repositories"
	"tasktree/backend/internal/storage"
	"tasktree/backend/internal/storage/memstore"
	"tasktree/backend/internal/storage/sqlstore"
)

const owner = int64(1)

var testStoreConfig = config.StoreConfig{ConflictRetries: 5, RetryBackoffMS: 1}

// forEachStore はインメモリとSQLiteの両方のストアで fn を実行します。
func forEachStore(t *testing.T, fn func(t *testing.T, store storage.Store)) {
	t.Run("memstore", func(t *testing.T) {
		fn(t, memstore.New())
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newSQLiteStore(t))
	})
}

func newSQLiteStore(t *testing.T) storage.Store {
	t.Helper()
	db, dialect, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "tasks.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = database.RunMigrations(context.Background(), db, dialect.Name)
	require.NoError(t, err)
	return sqlstore.New(db, dialect)
}

func newTaskService(store storage.Store) *TaskService {
	return NewTaskService(store, testStoreConfig, logging.Discard())
}

func mustList(t *testing.T, s *TaskService, owner int64, title string) *models.List {
	t.Helper()
	l, err := s.CreateList(context.Background(), owner, title)
	require.NoError(t, err)
	return l
}

func mustItem(t *testing.T, s *TaskService, listID int64, parent *int64, content string) *models.Item {
	t.Helper()
	it, err := s.CreateItem(context.Background(), owner, models.CreateItemInput{ListID: listID, ParentID: parent, Content: content})
	require.NoError(t, err)
	return it
}

// flatItems はストアから直接リストのアイテムを読み出します。
func flatItems(t *testing.T, store storage.Store, listID int64) []*models.Item {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx, storage.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer tx.Rollback()
	items, err := repositories.NewItemRepository(tx).FindByList(ctx, listID)
	require.NoError(t, err)
	return items
}

func idPtr(v int64) *int64 { return &v }

// faultyStore は指定した回数だけ Commit や Delete を失敗させるストアです。
type faultyStore struct {
	storage.Store
	commitErrs []error // Commit ごとに先頭から消費する
	deleteErr  error
	deleteAt   int // n 回目の Delete で失敗させる (1始まり)
	deletes    int
	commits    int
}

func (f *faultyStore) Begin(ctx context.Context, opts storage.TxOptions) (storage.Txn, error) {
	tx, err := f.Store.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &faultyTxn{Txn: tx, f: f}, nil
}

type faultyTxn struct {
	storage.Txn
	f *faultyStore
}

func (t *faultyTxn) Delete(ctx context.Context, entity storage.Entity, id int64) error {
	t.f.deletes++
	if t.f.deleteErr != nil && t.f.deletes == t.f.deleteAt {
		return t.f.deleteErr
	}
	return t.Txn.Delete(ctx, entity, id)
}

func (t *faultyTxn) Commit() error {
	t.f.commits++
	if len(t.f.commitErrs) > 0 {
		err := t.f.commitErrs[0]
		t.f.commitErrs = t.f.commitErrs[1:]
		if err != nil {
			if rbErr := t.Txn.Rollback(); rbErr != nil {
				return errors.Join(err, rbErr)
			}
			return err
		}
	}
	return t.Txn.Commit()
}
