package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tasktree/backend/internal/models"
	"tasktree/backend/internal/storage"
)

// ErrListNotFound はリストが見つからない場合のエラーです。
var ErrListNotFound = errors.New("list not found")

// ListRepository はリストの読み書きを行います。
type ListRepository struct {
	tx storage.Txn
}

// NewListRepository は tx 上で動く新しいListRepositoryを作成します。
func NewListRepository(tx storage.Txn) *ListRepository {
	return &ListRepository{tx: tx}
}

// Create はリストを挿入します。
func (r *ListRepository) Create(ctx context.Context, l *models.List) (*models.List, error) {
	now := time.Now().UTC()
	id, err := r.tx.Insert(ctx, storage.EntityLists, storage.Record{
		"owner_id":   l.OwnerID,
		"title":      l.Title,
		"created_at": now,
		"updated_at": now,
	})
	if err != nil {
		return nil, fmt.Errorf("could not insert list: %w", err)
	}
	l.ID = id
	l.CreatedAt = now
	l.UpdatedAt = now
	return l, nil
}

// FindByID はIDでリストを取得します。
func (r *ListRepository) FindByID(ctx context.Context, id int64) (*models.List, error) {
	rec, err := r.tx.Get(ctx, storage.EntityLists, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrListNotFound
		}
		return nil, fmt.Errorf("could not query list: %w", err)
	}
	return listFromRecord(rec), nil
}

// FindByOwner は所有者のリストを作成順で返します。
func (r *ListRepository) FindByOwner(ctx context.Context, ownerID int64) ([]*models.List, error) {
	recs, err := r.tx.Query(ctx, storage.EntityLists, storage.Filter{"owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("could not query lists: %w", err)
	}
	lists := make([]*models.List, 0, len(recs))
	for _, rec := range recs {
		lists = append(lists, listFromRecord(rec))
	}
	return lists, nil
}

// Touch は updated_at を現在時刻にします。
func (r *ListRepository) Touch(ctx context.Context, id int64) error {
	err := r.tx.Update(ctx, storage.EntityLists, id, storage.Record{"updated_at": time.Now().UTC()})
	if errors.Is(err, storage.ErrNotFound) {
		return ErrListNotFound
	}
	return err
}

// Delete はリストを削除します。アイテムは呼び出し側が先に削除してください。
func (r *ListRepository) Delete(ctx context.Context, id int64) error {
	if err := r.tx.Delete(ctx, storage.EntityLists, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrListNotFound
		}
		return fmt.Errorf("could not delete list: %w", err)
	}
	return nil
}

func listFromRecord(rec storage.Record) *models.List {
	return &models.List{
		ID:        rec.Int64("id"),
		OwnerID:   rec.Int64("owner_id"),
		Title:     rec.String("title"),
		CreatedAt: rec.Time("created_at"),
		UpdatedAt: rec.Time("updated_at"),
	}
}
