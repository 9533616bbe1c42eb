package tree

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktree/backend/internal/models"
)

func TestAssemble_Scenario(t *testing.T) {
	items := []*models.Item{
		{ID: 2, ListID: 1, ParentID: ptr(1), Content: "Apples"},
		{ID: 1, ListID: 1, Content: "Produce"},
	}
	roots := Assemble(items)

	require.Len(t, roots, 1)
	assert.Equal(t, "Produce", roots[0].Content)
	assert.False(t, roots[0].Completed)
	require.Len(t, roots[0].SubItems, 1)
	assert.Equal(t, "Apples", roots[0].SubItems[0].Content)
	assert.NotNil(t, roots[0].SubItems[0].SubItems)
	assert.Empty(t, roots[0].SubItems[0].SubItems)

	// 入力スライスは並べ替えない
	assert.Equal(t, int64(2), items[0].ID)
}

func TestAssemble_Empty(t *testing.T) {
	roots := Assemble(nil)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
}

func TestAssemble_SiblingsInCreationOrder(t *testing.T) {
	items := []*models.Item{
		{ID: 9, ParentID: ptr(1)},
		{ID: 1},
		{ID: 4, ParentID: ptr(1)},
		{ID: 6, ParentID: ptr(1)},
		{ID: 3},
	}
	roots := Assemble(items)
	require.Len(t, roots, 2)
	assert.Equal(t, int64(1), roots[0].ID)
	assert.Equal(t, int64(3), roots[1].ID)

	var got []int64
	for _, c := range roots[0].SubItems {
		got = append(got, c.ID)
	}
	assert.Equal(t, []int64{4, 6, 9}, got)
}

func TestAssemble_OrphansAndCycles(t *testing.T) {
	items := []*models.Item{
		{ID: 1},
		{ID: 2, ParentID: ptr(100)}, // 親が存在しない
		{ID: 3, ParentID: ptr(4)},   // 3 <-> 4 の循環
		{ID: 4, ParentID: ptr(3)},
		{ID: 5, ParentID: ptr(5)}, // 自己参照
		{ID: 6, ParentID: ptr(2)},
		{ID: 1, Content: "duplicate"},
	}
	roots := Assemble(items)

	var ids []int64
	Walk(roots, func(n *models.TreeNode, _ int) bool {
		ids = append(ids, n.ID)
		return true
	})
	assert.Equal(t, []int64{1, 2, 6}, ids)
	assert.Equal(t, "", roots[0].Content, "first occurrence of a duplicate id wins")
}

func TestAssemble_DeepChainIsIterative(t *testing.T) {
	const depth = 100_000
	items := make([]*models.Item, depth)
	for i := range items {
		it := &models.Item{ID: int64(i + 1)}
		if i > 0 {
			it.ParentID = ptr(int64(i))
		}
		items[i] = it
	}
	roots := Assemble(items)
	require.Len(t, roots, 1)

	maxDepth := 0
	Walk(roots, func(_ *models.TreeNode, d int) bool {
		maxDepth = max(maxDepth, d)
		return true
	})
	assert.Equal(t, depth-1, maxDepth)
	assert.Equal(t, depth, Count(roots))
}

func TestWalk_Prune(t *testing.T) {
	roots := Assemble([]*models.Item{
		{ID: 1},
		{ID: 2, ParentID: ptr(1)},
		{ID: 3, ParentID: ptr(2)},
		{ID: 4},
	})
	var visited []int64
	Walk(roots, func(n *models.TreeNode, depth int) bool {
		visited = append(visited, n.ID)
		return depth < 1
	})
	assert.Equal(t, []int64{1, 2, 4}, visited)
}

// randomForest は非循環な親割り当てでn個のアイテムを作ります。親は必ず自分より小さいIDです。
func randomForest(r *rand.Rand, n int) []*models.Item {
	items := make([]*models.Item, n)
	for i := range items {
		it := &models.Item{ID: int64(i + 1), ListID: 1}
		if i > 0 && r.IntN(4) != 0 {
			it.ParentID = ptr(int64(r.IntN(i) + 1))
		}
		items[i] = it
	}
	return items
}

func TestAssemble_RoundTripProperty(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 200; round++ {
		n := r.IntN(60)
		items := randomForest(r, n)
		require.NoError(t, VerifyForest(items))

		shuffled := make([]*models.Item, n)
		copy(shuffled, items)
		r.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		roots := Assemble(shuffled)

		seen := make(map[int64]int)
		parentOf := make(map[int64]*int64)
		Walk(roots, func(node *models.TreeNode, depth int) bool {
			seen[node.ID]++
			if depth == 0 {
				parentOf[node.ID] = nil
			}
			for _, c := range node.SubItems {
				id := node.ID
				parentOf[c.ID] = &id
			}
			return true
		})

		require.Len(t, seen, n, "round %d", round)
		for _, it := range items {
			assert.Equal(t, 1, seen[it.ID], "item %d emitted once", it.ID)
			assert.Equal(t, it.ParentID, parentOf[it.ID], "item %d under its parent", it.ID)
		}
		for _, root := range roots {
			assert.Nil(t, root.ParentID)
		}
		var wantRoots int
		for _, it := range items {
			if it.ParentID == nil {
				wantRoots++
			}
		}
		assert.Len(t, roots, wantRoots)
	}
}
