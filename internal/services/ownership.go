package services

import (
	"context"
	"errors"

	"tasktree/backend/internal/apperr"
	"tasktree/backend/internal/models"
	"tasktree/backend/internal/repositories"
)

// ownedList はリストを取得し、所有者が owner であることを確認します。
// 他人のリストは存在しないものとして扱います。
func ownedList(ctx context.Context, lists *repositories.ListRepository, owner, listID int64) (*models.List, error) {
	l, err := lists.FindByID(ctx, listID)
	if errors.Is(err, repositories.ErrListNotFound) || (err == nil && l.OwnerID != owner) {
		return nil, apperr.Wrap(apperr.ErrNotFound, repositories.ErrListNotFound, fmtID("list", listID))
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ownedItem はアイテムと、そのアイテムが属するリストの所有者を確認します。
func ownedItem(ctx context.Context, lists *repositories.ListRepository, items *repositories.ItemRepository, owner, itemID int64) (*models.Item, error) {
	it, err := items.FindByID(ctx, itemID)
	if errors.Is(err, repositories.ErrItemNotFound) {
		return nil, apperr.Wrap(apperr.ErrNotFound, err, fmtID("item", itemID))
	}
	if err != nil {
		return nil, err
	}
	if _, err := ownedList(ctx, lists, owner, it.ListID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Wrap(apperr.ErrNotFound, repositories.ErrItemNotFound, fmtID("item", itemID))
		}
		return nil, err
	}
	return it, nil
}
