// Package tree はアイテムの親子関係に関する純粋な処理 (検証・組み立て・子孫探索) を提供します。
// ストレージには直接触れず、必要な参照は呼び出し側が関数として渡します。
package tree

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"tasktree/backend/internal/apperr"
	"tasktree/backend/internal/models"
)

// 文字数の上限 (Unicodeコードポイント数)。
const (
	MaxTitleLen   = 100
	MaxContentLen = 200
)

var (
	ErrEmpty          = errors.New("must not be empty")
	ErrInvalidText    = errors.New("must be valid UTF-8")
	ErrTooLong        = errors.New("too long")
	ErrSelfParent     = errors.New("item cannot be its own parent")
	ErrIntoSubtree    = errors.New("new parent is a descendant of the item")
	ErrCrossList      = errors.New("parent belongs to a different list")
	ErrStaleParent    = errors.New("parent must be given or cleared when changing lists")
	ErrCycle          = errors.New("cycle in parent chain")
	ErrMissingParent  = errors.New("parent does not exist")
	ErrInvalidOwnerID = errors.New("owner id must be positive")
)

// ValidateTitle は前後の空白を除いたタイトルを検証して返します。
func ValidateTitle(title string) (string, error) {
	return validateText("title", title, MaxTitleLen)
}

// ValidateContent は前後の空白を除いた内容を検証して返します。
func ValidateContent(content string) (string, error) {
	return validateText("content", content, MaxContentLen)
}

func validateText(field, s string, max int) (string, error) {
	if !utf8.ValidString(s) {
		return "", apperr.Wrap(apperr.ErrValidation, ErrInvalidText, field)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperr.Wrap(apperr.ErrValidation, ErrEmpty, field)
	}
	if n := utf8.RuneCountInString(s); n > max {
		return "", apperr.Wrap(apperr.ErrValidation, ErrTooLong,
			fmt.Sprintf("%s has %d characters, limit is %d", field, n, max))
	}
	return s, nil
}

// ValidateOwner は所有者IDが有効か確認します。
func ValidateOwner(ownerID int64) error {
	if ownerID <= 0 {
		return apperr.Wrap(apperr.ErrValidation, ErrInvalidOwnerID, fmt.Sprintf("owner %d", ownerID))
	}
	return nil
}

// ValidateParent は新しいアイテムの親が listID と同じリストにあるか確認します。
func ValidateParent(parent *models.Item, listID int64) error {
	if parent.ListID != listID {
		return apperr.Wrap(apperr.ErrValidation, ErrCrossList,
			fmt.Sprintf("parent %d is in list %d, not %d", parent.ID, parent.ListID, listID))
	}
	return nil
}

// ValidateMove は item を newParent の下 (nil ならルート) かつ targetListID のリストへ移動できるか確認します。
// parentAncestors は newParent の祖先IDの列 (Ancestors の結果) です。
// リストが変わるのに親が元のリストのまま、という組み合わせは拒否します。
func ValidateMove(item, newParent *models.Item, targetListID int64, parentAncestors []int64) error {
	if newParent == nil {
		return nil
	}
	if newParent.ID == item.ID {
		return apperr.Wrap(apperr.ErrValidation, ErrSelfParent, fmt.Sprintf("item %d", item.ID))
	}
	if slices.Contains(parentAncestors, item.ID) {
		return apperr.Wrap(apperr.ErrValidation, ErrIntoSubtree,
			fmt.Sprintf("item %d is an ancestor of %d", item.ID, newParent.ID))
	}
	if newParent.ListID != targetListID {
		if targetListID != item.ListID && newParent.ListID == item.ListID {
			return apperr.Wrap(apperr.ErrValidation, ErrStaleParent,
				fmt.Sprintf("parent %d stays in list %d", newParent.ID, item.ListID))
		}
		return apperr.Wrap(apperr.ErrValidation, ErrCrossList,
			fmt.Sprintf("parent %d is in list %d, not %d", newParent.ID, newParent.ListID, targetListID))
	}
	return nil
}

// VerifyForest はアイテム集合が森になっているか確認します。
// 各アイテムの親をたどると、高々 len(items) 手でルートに着かなければなりません。
func VerifyForest(items []*models.Item) error {
	byID := make(map[int64]*models.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	limit := len(items)
	for _, it := range items {
		cur := it
		for steps := 0; cur.ParentID != nil; steps++ {
			if steps >= limit {
				return fmt.Errorf("%w: item %d", ErrCycle, it.ID)
			}
			parent, ok := byID[*cur.ParentID]
			if !ok {
				return fmt.Errorf("%w: item %d references %d", ErrMissingParent, cur.ID, *cur.ParentID)
			}
			if parent.ListID != cur.ListID {
				return fmt.Errorf("%w: item %d", ErrCrossList, cur.ID)
			}
			cur = parent
		}
	}
	return nil
}
