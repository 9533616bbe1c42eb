// Package storagetest は storage.Store 実装が共通で満たすべき振る舞いのテストです。
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktree/backend/internal/storage"
)

// Run は newStore が返すストアに対して契約テストを実行します。newStore は毎回空のストアを返してください。
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("InsertGetRoundTrip", func(t *testing.T) { testInsertGet(t, newStore(t)) })
	t.Run("QueryFilters", func(t *testing.T) { testQueryFilters(t, newStore(t)) })
	t.Run("UpdateAndDelete", func(t *testing.T) { testUpdateDelete(t, newStore(t)) })
	t.Run("RollbackDiscardsWrites", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("DuplicateUnique", func(t *testing.T) { testDuplicate(t, newStore(t)) })
	t.Run("UnknownField", func(t *testing.T) { testUnknownField(t, newStore(t)) })
}

func begin(t *testing.T, s storage.Store, readOnly bool) storage.Txn {
	t.Helper()
	tx, err := s.Begin(context.Background(), storage.TxOptions{ReadOnly: readOnly})
	require.NoError(t, err)
	return tx
}

func newList(owner int64, title string) storage.Record {
	now := time.Now().UTC()
	return storage.Record{"owner_id": owner, "title": title, "created_at": now, "updated_at": now}
}

func newItem(listID int64, parentID *int64, content string) storage.Record {
	now := time.Now().UTC()
	return storage.Record{
		"list_id":    listID,
		"parent_id":  parentID,
		"content":    content,
		"completed":  false,
		"created_at": now,
		"updated_at": now,
	}
}

func testInsertGet(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := begin(t, s, false)
	listID, err := tx.Insert(ctx, storage.EntityLists, newList(7, "Groceries"))
	require.NoError(t, err)
	itemID, err := tx.Insert(ctx, storage.EntityItems, newItem(listID, nil, "Produce"))
	require.NoError(t, err)
	childID, err := tx.Insert(ctx, storage.EntityItems, newItem(listID, &itemID, "Apples"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Greater(t, childID, itemID, "ids must follow insertion order")

	tx = begin(t, s, true)
	defer tx.Rollback()

	list, err := tx.Get(ctx, storage.EntityLists, listID)
	require.NoError(t, err)
	assert.Equal(t, listID, list.Int64("id"))
	assert.Equal(t, int64(7), list.Int64("owner_id"))
	assert.Equal(t, "Groceries", list.String("title"))
	assert.WithinDuration(t, time.Now(), list.Time("created_at"), time.Minute)

	root, err := tx.Get(ctx, storage.EntityItems, itemID)
	require.NoError(t, err)
	assert.Nil(t, root.NullInt64("parent_id"))
	assert.False(t, root.Bool("completed"))

	child, err := tx.Get(ctx, storage.EntityItems, childID)
	require.NoError(t, err)
	require.NotNil(t, child.NullInt64("parent_id"))
	assert.Equal(t, itemID, *child.NullInt64("parent_id"))

	_, err = tx.Get(ctx, storage.EntityItems, childID+100)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func testQueryFilters(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := begin(t, s, false)
	listA, err := tx.Insert(ctx, storage.EntityLists, newList(1, "A"))
	require.NoError(t, err)
	listB, err := tx.Insert(ctx, storage.EntityLists, newList(2, "B"))
	require.NoError(t, err)
	r1, err := tx.Insert(ctx, storage.EntityItems, newItem(listA, nil, "r1"))
	require.NoError(t, err)
	r2, err := tx.Insert(ctx, storage.EntityItems, newItem(listA, nil, "r2"))
	require.NoError(t, err)
	c1, err := tx.Insert(ctx, storage.EntityItems, newItem(listA, &r1, "c1"))
	require.NoError(t, err)
	c2, err := tx.Insert(ctx, storage.EntityItems, newItem(listA, &r2, "c2"))
	require.NoError(t, err)
	_, err = tx.Insert(ctx, storage.EntityItems, newItem(listB, nil, "other"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx = begin(t, s, true)
	defer tx.Rollback()

	roots, err := tx.Query(ctx, storage.EntityItems, storage.Filter{"list_id": listA, "parent_id": nil})
	require.NoError(t, err)
	assert.Equal(t, []int64{r1, r2}, ids(roots))

	children, err := tx.Query(ctx, storage.EntityItems, storage.Filter{"parent_id": []int64{r2, r1}})
	require.NoError(t, err)
	assert.Equal(t, []int64{c1, c2}, ids(children), "results are ordered by id")

	none, err := tx.Query(ctx, storage.EntityItems, storage.Filter{"parent_id": []int64{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	lists, err := tx.Query(ctx, storage.EntityLists, storage.Filter{"owner_id": int64(2)})
	require.NoError(t, err)
	assert.Equal(t, []int64{listB}, ids(lists))

	all, err := tx.Query(ctx, storage.EntityItems, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func testUpdateDelete(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := begin(t, s, false)
	listID, err := tx.Insert(ctx, storage.EntityLists, newList(1, "L"))
	require.NoError(t, err)
	itemID, err := tx.Insert(ctx, storage.EntityItems, newItem(listID, nil, "before"))
	require.NoError(t, err)

	require.NoError(t, tx.Update(ctx, storage.EntityItems, itemID, storage.Record{"content": "after", "completed": true}))
	// 値が変わらない更新も成功する
	require.NoError(t, tx.Update(ctx, storage.EntityItems, itemID, storage.Record{"completed": true}))

	rec, err := tx.Get(ctx, storage.EntityItems, itemID)
	require.NoError(t, err)
	assert.Equal(t, "after", rec.String("content"))
	assert.True(t, rec.Bool("completed"))

	err = tx.Update(ctx, storage.EntityItems, itemID+50, storage.Record{"content": "x"})
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	require.NoError(t, tx.Delete(ctx, storage.EntityItems, itemID))
	err = tx.Delete(ctx, storage.EntityItems, itemID)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "second delete reports not found")
	require.NoError(t, tx.Commit())

	assert.Error(t, tx.Commit(), "finished transaction cannot be committed again")
}

func testRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := begin(t, s, false)
	listID, err := tx.Insert(ctx, storage.EntityLists, newList(1, "keep"))
	require.NoError(t, err)
	itemID, err := tx.Insert(ctx, storage.EntityItems, newItem(listID, nil, "keep"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx = begin(t, s, false)
	_, err = tx.Insert(ctx, storage.EntityItems, newItem(listID, &itemID, "discard"))
	require.NoError(t, err)
	require.NoError(t, tx.Update(ctx, storage.EntityItems, itemID, storage.Record{"content": "changed"}))
	require.NoError(t, tx.Rollback())

	tx = begin(t, s, true)
	defer tx.Rollback()
	items, err := tx.Query(ctx, storage.EntityItems, storage.Filter{"list_id": listID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "keep", items[0].String("content"))
}

func testDuplicate(t *testing.T, s storage.Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	user := func(name, email string) storage.Record {
		return storage.Record{
			"username": name, "email": email, "password_hash": "x", "role": "user",
			"created_at": now, "updated_at": now,
		}
	}

	tx := begin(t, s, false)
	_, err := tx.Insert(ctx, storage.EntityUsers, user("alice", "alice@example.com"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx = begin(t, s, false)
	defer tx.Rollback()
	_, err = tx.Insert(ctx, storage.EntityUsers, user("alice2", "alice@example.com"))
	assert.True(t, errors.Is(err, storage.ErrDuplicate), "got %v", err)
}

func testUnknownField(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := begin(t, s, false)
	defer tx.Rollback()

	_, err := tx.Insert(ctx, storage.EntityLists, storage.Record{"owner_id": int64(1), "title": "x", "color": "red"})
	assert.True(t, errors.Is(err, storage.ErrUnknownField))

	_, err = tx.Query(ctx, storage.EntityItems, storage.Filter{"nope": 1})
	assert.True(t, errors.Is(err, storage.ErrUnknownField))
}

func ids(recs []storage.Record) []int64 {
	out := make([]int64, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Int64("id"))
	}
	return out
}
