package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tasktree/backend/internal/models"
	"tasktree/backend/internal/storage"
)

// ErrItemNotFound はアイテムが見つからない場合のエラーです。
var ErrItemNotFound = errors.New("item not found")

// ItemRepository はアイテムの読み書きを行います。
type ItemRepository struct {
	tx storage.Txn
}

// NewItemRepository は tx 上で動く新しいItemRepositoryを作成します。
func NewItemRepository(tx storage.Txn) *ItemRepository {
	return &ItemRepository{tx: tx}
}

// Create はアイテムを挿入します。
func (r *ItemRepository) Create(ctx context.Context, it *models.Item) (*models.Item, error) {
	now := time.Now().UTC()
	id, err := r.tx.Insert(ctx, storage.EntityItems, storage.Record{
		"list_id":    it.ListID,
		"parent_id":  it.ParentID,
		"content":    it.Content,
		"completed":  it.Completed,
		"created_at": now,
		"updated_at": now,
	})
	if err != nil {
		return nil, fmt.Errorf("could not insert item: %w", err)
	}
	it.ID = id
	it.CreatedAt = now
	it.UpdatedAt = now
	return it, nil
}

// FindByID はIDでアイテムを取得します。
func (r *ItemRepository) FindByID(ctx context.Context, id int64) (*models.Item, error) {
	rec, err := r.tx.Get(ctx, storage.EntityItems, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("could not query item: %w", err)
	}
	return itemFromRecord(rec), nil
}

// FindByList はリストのアイテムをすべて作成順で返します。
func (r *ItemRepository) FindByList(ctx context.Context, listID int64) ([]*models.Item, error) {
	return r.query(ctx, storage.Filter{"list_id": listID})
}

// FindByLists は複数リストのアイテムを作成順で返します。
func (r *ItemRepository) FindByLists(ctx context.Context, listIDs []int64) ([]*models.Item, error) {
	return r.query(ctx, storage.Filter{"list_id": listIDs})
}

// ChildIDs は parentIDs の直接の子のIDを返します。
func (r *ItemRepository) ChildIDs(ctx context.Context, parentIDs []int64) ([]int64, error) {
	recs, err := r.tx.Query(ctx, storage.EntityItems, storage.Filter{"parent_id": parentIDs})
	if err != nil {
		return nil, fmt.Errorf("could not query child items: %w", err)
	}
	ids := make([]int64, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.Int64("id"))
	}
	return ids, nil
}

// ParentID は id の親IDを返します。ルートなら nil です。
func (r *ItemRepository) ParentID(ctx context.Context, id int64) (*int64, error) {
	it, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return it.ParentID, nil
}

// Update は content と completed を保存します。
func (r *ItemRepository) Update(ctx context.Context, it *models.Item) error {
	it.UpdatedAt = time.Now().UTC()
	return r.update(ctx, it.ID, storage.Record{
		"content":    it.Content,
		"completed":  it.Completed,
		"updated_at": it.UpdatedAt,
	})
}

// Move は parent_id と list_id を保存します。
func (r *ItemRepository) Move(ctx context.Context, it *models.Item) error {
	it.UpdatedAt = time.Now().UTC()
	return r.update(ctx, it.ID, storage.Record{
		"list_id":    it.ListID,
		"parent_id":  it.ParentID,
		"updated_at": it.UpdatedAt,
	})
}

// SetList は ids の list_id を書き換えます。
func (r *ItemRepository) SetList(ctx context.Context, ids []int64, listID int64) error {
	now := time.Now().UTC()
	for _, id := range ids {
		if err := r.update(ctx, id, storage.Record{"list_id": listID, "updated_at": now}); err != nil {
			return err
		}
	}
	return nil
}

// Delete はアイテムを1件削除します。
func (r *ItemRepository) Delete(ctx context.Context, id int64) error {
	if err := r.tx.Delete(ctx, storage.EntityItems, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("could not delete item: %w", err)
	}
	return nil
}

func (r *ItemRepository) update(ctx context.Context, id int64, fields storage.Record) error {
	if err := r.tx.Update(ctx, storage.EntityItems, id, fields); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("could not update item: %w", err)
	}
	return nil
}

func (r *ItemRepository) query(ctx context.Context, filter storage.Filter) ([]*models.Item, error) {
	recs, err := r.tx.Query(ctx, storage.EntityItems, filter)
	if err != nil {
		return nil, fmt.Errorf("could not query items: %w", err)
	}
	items := make([]*models.Item, 0, len(recs))
	for _, rec := range recs {
		items = append(items, itemFromRecord(rec))
	}
	return items, nil
}

func itemFromRecord(rec storage.Record) *models.Item {
	return &models.Item{
		ID:        rec.Int64("id"),
		ListID:    rec.Int64("list_id"),
		ParentID:  rec.NullInt64("parent_id"),
		Content:   rec.String("content"),
		Completed: rec.Bool("completed"),
		CreatedAt: rec.Time("created_at"),
		UpdatedAt: rec.Time("updated_at"),
	}
}
