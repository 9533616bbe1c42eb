package tree

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// edges は親ID -> 子IDの隣接リストから ChildrenFunc を作ります。
func childrenFrom(edges map[int64][]int64, calls *int) ChildrenFunc {
	return func(_ context.Context, parents []int64) ([]int64, error) {
		if calls != nil {
			*calls++
		}
		var out []int64
		for _, p := range parents {
			out = append(out, edges[p]...)
		}
		return out, nil
	}
}

func parentsFrom(parents map[int64]int64) ParentFunc {
	return func(_ context.Context, id int64) (*int64, error) {
		p, ok := parents[id]
		if !ok {
			return nil, nil
		}
		return &p, nil
	}
}

func TestDescendants(t *testing.T) {
	edges := map[int64][]int64{
		1: {2, 3},
		2: {4},
		4: {5, 6},
	}
	calls := 0
	got, err := Descendants(context.Background(), 1, childrenFrom(edges, &calls))
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4, 5, 6}, got)
	assert.Equal(t, 4, calls, "one lookup per level plus the empty last level")
}

func TestDescendants_Leaf(t *testing.T) {
	got, err := Descendants(context.Background(), 42, childrenFrom(nil, nil))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDescendants_CyclicDataTerminates(t *testing.T) {
	edges := map[int64][]int64{
		1: {2},
		2: {3, 1},
		3: {2, 4},
		4: {4},
	}
	got, err := Descendants(context.Background(), 1, childrenFrom(edges, nil))
	require.NoError(t, err)
	slices.Sort(got)
	assert.Equal(t, []int64{2, 3, 4}, got)
}

func TestDescendants_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Descendants(ctx, 1, childrenFrom(map[int64][]int64{1: {2}}, nil))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDescendants_LookupError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Descendants(context.Background(), 1, func(context.Context, []int64) ([]int64, error) {
		return nil, boom
	})
	assert.True(t, errors.Is(err, boom))
}

func TestAncestors(t *testing.T) {
	parents := map[int64]int64{5: 4, 4: 2, 2: 1}
	got, err := Ancestors(context.Background(), 5, parentsFrom(parents))
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 2, 1}, got)

	got, err = Ancestors(context.Background(), 1, parentsFrom(parents))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAncestors_Cycle(t *testing.T) {
	parents := map[int64]int64{1: 2, 2: 3, 3: 1}
	_, err := Ancestors(context.Background(), 1, parentsFrom(parents))
	assert.True(t, errors.Is(err, ErrCycle))
}
