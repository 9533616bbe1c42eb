package tree

import (
	"cmp"
	"slices"

	"tasktree/backend/internal/models"
)

func byID(a, b *models.Item) int {
	return cmp.Compare(a.ID, b.ID)
}

// Assemble はリストのフラットなアイテム集合から入れ子の木を組み立て、ルートを作成順で返します。
//
// 親が集合に含まれないアイテムはルートとして扱います。壊れたデータで循環しているアイテムは
// どのルートからも到達できないので出力されません。同じIDが重複していれば最初のものを使います。
func Assemble(items []*models.Item) []*models.TreeNode {
	sorted := items
	if !slices.IsSortedFunc(items, byID) {
		sorted = slices.Clone(items)
		slices.SortStableFunc(sorted, byID)
	}

	nodes := make(map[int64]*models.TreeNode, len(sorted))
	order := make([]*models.TreeNode, 0, len(sorted))
	for _, it := range sorted {
		if _, dup := nodes[it.ID]; dup {
			continue
		}
		n := &models.TreeNode{Item: *it, SubItems: []*models.TreeNode{}}
		nodes[it.ID] = n
		order = append(order, n)
	}

	roots := []*models.TreeNode{}
	for _, n := range order {
		if n.IsRoot() {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[*n.ParentID]
		if !ok {
			roots = append(roots, n)
			continue
		}
		// 各ノードの親は高々1つなので、ルートから到達できる部分は必ず木になる
		parent.SubItems = append(parent.SubItems, n)
	}
	return roots
}

// Walk は roots を深さ優先 (行きがけ順) でたどり、各ノードと深さ (ルートは0) で fn を呼びます。
// 再帰せず明示的なスタックを使います。fn が false を返すとそのノードの子は訪れません。
func Walk(roots []*models.TreeNode, fn func(n *models.TreeNode, depth int) bool) {
	type frame struct {
		node  *models.TreeNode
		depth int
	}
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{roots[i], 0})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.node, f.depth) {
			continue
		}
		for i := len(f.node.SubItems) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.SubItems[i], f.depth + 1})
		}
	}
}

// Count は木に含まれるノード数を返します。
func Count(roots []*models.TreeNode) int {
	n := 0
	Walk(roots, func(*models.TreeNode, int) bool {
		n++
		return true
	})
	return n
}
