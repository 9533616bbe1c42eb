package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"tasktree/backend/internal/apperr"
	"tasktree/backend/internal/config"
	"tasktree/backend/internal/models"
	"tasktree/backend/internal/repositories"
	"tasktree/backend/internal/storage"
	"tasktree/backend/internal/tree"
)

// TaskService はリストと入れ子のアイテムに関するビジネスロジックを扱います。
// すべての変更は1つのストレージトランザクションで行い、途中で失敗すれば何も残しません。
type TaskService struct {
	tx     txRunner
	logger *log.Logger
}

// NewTaskService は新しいTaskServiceを作成します。
func NewTaskService(store storage.Store, cfg config.StoreConfig, logger *log.Logger) *TaskService {
	logger = logger.WithPrefix("tasks")
	return &TaskService{tx: newTxRunner(store, cfg, logger), logger: logger}
}

func fmtID(kind string, id int64) string {
	return fmt.Sprintf("%s %d", kind, id)
}

// CreateList は owner のリストを作成します。
func (s *TaskService) CreateList(ctx context.Context, owner int64, title string) (*models.List, error) {
	if err := tree.ValidateOwner(owner); err != nil {
		return nil, err
	}
	title, err := tree.ValidateTitle(title)
	if err != nil {
		return nil, err
	}

	var created *models.List
	err = s.tx.run(ctx, "create list", false, func(tx storage.Txn) error {
		l, err := repositories.NewListRepository(tx).Create(ctx, &models.List{OwnerID: owner, Title: title})
		created = l
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("list created", "id", created.ID, "owner", owner)
	return created, nil
}

// CreateItem はリストにアイテムを作成します。ParentID があればその子になります。
func (s *TaskService) CreateItem(ctx context.Context, owner int64, in models.CreateItemInput) (*models.Item, error) {
	content, err := tree.ValidateContent(in.Content)
	if err != nil {
		return nil, err
	}

	var created *models.Item
	err = s.tx.run(ctx, "create item", false, func(tx storage.Txn) error {
		lists := repositories.NewListRepository(tx)
		items := repositories.NewItemRepository(tx)

		if _, err := ownedList(ctx, lists, owner, in.ListID); err != nil {
			return err
		}
		if in.ParentID != nil {
			parent, err := items.FindByID(ctx, *in.ParentID)
			if errors.Is(err, repositories.ErrItemNotFound) {
				return apperr.Wrap(apperr.ErrNotFound, err, fmtID("parent item", *in.ParentID))
			}
			if err != nil {
				return err
			}
			if parent.ListID != in.ListID {
				// 他人のアイテムは存在を明かさない
				if _, err := ownedList(ctx, lists, owner, parent.ListID); err != nil {
					return apperr.Wrap(apperr.ErrNotFound, repositories.ErrItemNotFound, fmtID("parent item", *in.ParentID))
				}
			}
			if err := tree.ValidateParent(parent, in.ListID); err != nil {
				return err
			}
		}

		it, err := items.Create(ctx, &models.Item{
			ListID:   in.ListID,
			ParentID: in.ParentID,
			Content:  content,
		})
		if err != nil {
			return err
		}
		created = it
		return lists.Touch(ctx, in.ListID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("item created", "id", created.ID, "list", created.ListID, "parent", created.ParentID)
	return created, nil
}

// UpdateItem は内容と完了状態を部分更新します。nil のフィールドは変更しません。
func (s *TaskService) UpdateItem(ctx context.Context, owner, id int64, in models.UpdateItemInput) (*models.Item, error) {
	var content string
	if in.Content != nil {
		c, err := tree.ValidateContent(*in.Content)
		if err != nil {
			return nil, err
		}
		content = c
	}

	var updated *models.Item
	err := s.tx.run(ctx, "update item", false, func(tx storage.Txn) error {
		lists := repositories.NewListRepository(tx)
		items := repositories.NewItemRepository(tx)
		it, err := ownedItem(ctx, lists, items, owner, id)
		if err != nil {
			return err
		}
		if in.Content == nil && in.Completed == nil {
			updated = it
			return nil
		}
		if in.Content != nil {
			it.Content = content
		}
		if in.Completed != nil {
			it.Completed = *in.Completed
		}
		if err := items.Update(ctx, it); err != nil {
			return err
		}
		updated = it
		return lists.Touch(ctx, it.ListID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("item updated", "id", id)
	return updated, nil
}

// CompleteItem はアイテムを完了にします。完了済みなら何もしません。子孫には影響しません。
func (s *TaskService) CompleteItem(ctx context.Context, owner, id int64) (*models.Item, error) {
	var done *models.Item
	err := s.tx.run(ctx, "complete item", false, func(tx storage.Txn) error {
		lists := repositories.NewListRepository(tx)
		items := repositories.NewItemRepository(tx)
		it, err := ownedItem(ctx, lists, items, owner, id)
		if err != nil {
			return err
		}
		done = it
		if it.Completed {
			return nil
		}
		it.Completed = true
		if err := items.Update(ctx, it); err != nil {
			return err
		}
		return lists.Touch(ctx, it.ListID)
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

// MoveItem はアイテムを別の親 (nil ならルート) や別のリストへ移動します。
// リストが変わる場合は子孫もすべて同じリストへ移ります。
func (s *TaskService) MoveItem(ctx context.Context, owner, id int64, in models.MoveItemInput) (*models.Item, error) {
	var moved *models.Item
	err := s.tx.run(ctx, "move item", false, func(tx storage.Txn) error {
		lists := repositories.NewListRepository(tx)
		items := repositories.NewItemRepository(tx)

		it, err := ownedItem(ctx, lists, items, owner, id)
		if err != nil {
			return err
		}
		target := it.ListID
		if in.ListID != nil {
			if _, err := ownedList(ctx, lists, owner, *in.ListID); err != nil {
				return err
			}
			target = *in.ListID
		}

		var parent *models.Item
		var ancestors []int64
		if in.ParentID != nil {
			parent, err = s.moveParent(ctx, lists, items, owner, *in.ParentID)
			if err != nil {
				return err
			}
			ancestors, err = tree.Ancestors(ctx, parent.ID, items.ParentID)
			if err != nil && !errors.Is(err, tree.ErrCycle) {
				return err
			}
			if err != nil && !slices.Contains(ancestors, it.ID) {
				return apperr.Wrap(apperr.ErrStorage, err, "corrupt parent chain")
			}
		}
		if err := tree.ValidateMove(it, parent, target, ancestors); err != nil {
			return err
		}

		oldList := it.ListID
		it.ListID = target
		it.ParentID = nil
		if parent != nil {
			pid := parent.ID
			it.ParentID = &pid
		}
		if err := items.Move(ctx, it); err != nil {
			return err
		}
		if target != oldList {
			desc, err := tree.Descendants(ctx, it.ID, items.ChildIDs)
			if err != nil {
				return err
			}
			if err := items.SetList(ctx, desc, target); err != nil {
				return err
			}
			if err := lists.Touch(ctx, oldList); err != nil {
				return err
			}
		}
		moved = it
		return lists.Touch(ctx, target)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("item moved", "id", id, "list", moved.ListID, "parent", moved.ParentID)
	return moved, nil
}

// moveParent は移動先の親を取得します。存在しない親や他人の親は検証エラーです。
func (s *TaskService) moveParent(ctx context.Context, lists *repositories.ListRepository, items *repositories.ItemRepository, owner, parentID int64) (*models.Item, error) {
	parent, err := items.FindByID(ctx, parentID)
	if errors.Is(err, repositories.ErrItemNotFound) {
		return nil, apperr.Wrap(apperr.ErrValidation, tree.ErrMissingParent, fmtID("parent item", parentID))
	}
	if err != nil {
		return nil, err
	}
	if _, err := ownedList(ctx, lists, owner, parent.ListID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Wrap(apperr.ErrValidation, tree.ErrMissingParent, fmtID("parent item", parentID))
		}
		return nil, err
	}
	return parent, nil
}

// DeleteItem はアイテムと子孫をすべて削除します。子から先に消します。
// すでに消えている子孫は無視するので、中断後の再実行も安全です。
func (s *TaskService) DeleteItem(ctx context.Context, owner, id int64) error {
	var removed int
	err := s.tx.run(ctx, "delete item", false, func(tx storage.Txn) error {
		lists := repositories.NewListRepository(tx)
		items := repositories.NewItemRepository(tx)
		it, err := ownedItem(ctx, lists, items, owner, id)
		if err != nil {
			return err
		}
		desc, err := tree.Descendants(ctx, id, items.ChildIDs)
		if err != nil {
			return err
		}
		slices.Reverse(desc)
		removed = 0
		for _, d := range append(desc, id) {
			err := items.Delete(ctx, d)
			if errors.Is(err, repositories.ErrItemNotFound) && d != id {
				continue
			}
			if err != nil {
				return err
			}
			removed++
		}
		return lists.Touch(ctx, it.ListID)
	})
	if err != nil {
		return err
	}
	s.logger.Debug("item deleted", "id", id, "removed", removed)
	return nil
}

// DeleteList はリストとそのアイテムをすべて削除します。
func (s *TaskService) DeleteList(ctx context.Context, owner, id int64) error {
	var removed int
	err := s.tx.run(ctx, "delete list", false, func(tx storage.Txn) error {
		lists := repositories.NewListRepository(tx)
		items := repositories.NewItemRepository(tx)
		if _, err := ownedList(ctx, lists, owner, id); err != nil {
			return err
		}
		all, err := items.FindByList(ctx, id)
		if err != nil {
			return err
		}
		order := deletionOrder(all)
		for _, itemID := range order {
			if err := items.Delete(ctx, itemID); err != nil && !errors.Is(err, repositories.ErrItemNotFound) {
				return err
			}
		}
		removed = len(order)
		return lists.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Debug("list deleted", "id", id, "items", removed)
	return nil
}

// deletionOrder は子が親より先に来る削除順を返します。
// 木に組み込めない (循環した) アイテムは最後に並べます。
func deletionOrder(items []*models.Item) []int64 {
	roots := tree.Assemble(items)
	order := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	tree.Walk(roots, func(n *models.TreeNode, _ int) bool {
		order = append(order, n.ID)
		seen[n.ID] = struct{}{}
		return true
	})
	slices.Reverse(order)
	for _, it := range items {
		if _, ok := seen[it.ID]; !ok {
			seen[it.ID] = struct{}{}
			order = append(order, it.ID)
		}
	}
	return order
}

// GetLists は owner のリストを作成順で返します。
func (s *TaskService) GetLists(ctx context.Context, owner int64) ([]*models.List, error) {
	if err := tree.ValidateOwner(owner); err != nil {
		return nil, err
	}
	var lists []*models.List
	err := s.tx.run(ctx, "get lists", true, func(tx storage.Txn) error {
		var err error
		lists, err = repositories.NewListRepository(tx).FindByOwner(ctx, owner)
		return err
	})
	return lists, err
}

// GetList は owner のリストを1件返します。
func (s *TaskService) GetList(ctx context.Context, owner, id int64) (*models.List, error) {
	var list *models.List
	err := s.tx.run(ctx, "get list", true, func(tx storage.Txn) error {
		var err error
		list, err = ownedList(ctx, repositories.NewListRepository(tx), owner, id)
		return err
	})
	return list, err
}

// GetItem は owner のアイテムを1件返します。
func (s *TaskService) GetItem(ctx context.Context, owner, id int64) (*models.Item, error) {
	var item *models.Item
	err := s.tx.run(ctx, "get item", true, func(tx storage.Txn) error {
		var err error
		item, err = ownedItem(ctx, repositories.NewListRepository(tx), repositories.NewItemRepository(tx), owner, id)
		return err
	})
	return item, err
}

// GetTree はリストのアイテムを入れ子にして返します。
func (s *TaskService) GetTree(ctx context.Context, owner, listID int64) (*models.ListTree, error) {
	var lt *models.ListTree
	err := s.tx.run(ctx, "get tree", true, func(tx storage.Txn) error {
		list, err := ownedList(ctx, repositories.NewListRepository(tx), owner, listID)
		if err != nil {
			return err
		}
		items, err := repositories.NewItemRepository(tx).FindByList(ctx, listID)
		if err != nil {
			return err
		}
		lt = &models.ListTree{List: list, Items: tree.Assemble(items)}
		return nil
	})
	return lt, err
}

// GetOverview は owner のすべてのリストをアイテムの木と一緒に返します。
func (s *TaskService) GetOverview(ctx context.Context, owner int64) ([]*models.ListTree, error) {
	if err := tree.ValidateOwner(owner); err != nil {
		return nil, err
	}
	var out []*models.ListTree
	err := s.tx.run(ctx, "get overview", true, func(tx storage.Txn) error {
		lists, err := repositories.NewListRepository(tx).FindByOwner(ctx, owner)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(lists))
		for _, l := range lists {
			ids = append(ids, l.ID)
		}
		items, err := repositories.NewItemRepository(tx).FindByLists(ctx, ids)
		if err != nil {
			return err
		}
		byList := make(map[int64][]*models.Item, len(lists))
		for _, it := range items {
			byList[it.ListID] = append(byList[it.ListID], it)
		}
		out = make([]*models.ListTree, 0, len(lists))
		for _, l := range lists {
			out = append(out, &models.ListTree{List: l, Items: tree.Assemble(byList[l.ID])})
		}
		return nil
	})
	return out, err
}
