package tree

import (
	"context"
	"fmt"
)

// ChildrenFunc は parentIDs の直接の子のIDを返します。
type ChildrenFunc func(ctx context.Context, parentIDs []int64) ([]int64, error)

// ParentFunc は id の親IDを返します。ルートなら nil です。
type ParentFunc func(ctx context.Context, id int64) (*int64, error)

// Descendants は rootID の子孫をすべて幅優先で返します (rootID 自身は含みません)。
// 深さごとに childrenOf を1回呼びます。訪問済み集合で打ち切るので、
// データが循環していても各アイテムは一度しか返りません。子孫がなければ空スライスです。
func Descendants(ctx context.Context, rootID int64, childrenOf ChildrenFunc) ([]int64, error) {
	visited := map[int64]struct{}{rootID: {}}
	out := []int64{}
	frontier := []int64{rootID}
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		children, err := childrenOf(ctx, frontier)
		if err != nil {
			return nil, err
		}
		next := make([]int64, 0, len(children))
		for _, id := range children {
			if _, seen := visited[id]; seen {
				continue
			}
			visited[id] = struct{}{}
			out = append(out, id)
			next = append(next, id)
		}
		frontier = next
	}
	return out, nil
}

// Ancestors は startID の祖先を近い順に返します (startID 自身は含みません)。
// 親のチェーンが循環していれば ErrCycle を返します。
func Ancestors(ctx context.Context, startID int64, parentOf ParentFunc) ([]int64, error) {
	visited := map[int64]struct{}{startID: {}}
	var out []int64
	cur := startID
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parent, err := parentOf(ctx, cur)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return out, nil
		}
		if _, seen := visited[*parent]; seen {
			return out, fmt.Errorf("%w: item %d reached again from %d", ErrCycle, *parent, cur)
		}
		visited[*parent] = struct{}{}
		out = append(out, *parent)
		cur = *parent
	}
}
