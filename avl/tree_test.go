package avl_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruquant/checker/avl"
	"github.com/ruquant/checker/tez"
)

func item(id int64, collateral int64) avl.Item[string] {
	return avl.Item[string]{ID: id, Payload: "p", Collateral: tez.OfInt64(collateral)}
}

func addAll(t *avl.Tree[string], ids []int64) avl.OptHandle {
	root := avl.Empty()
	for _, id := range ids {
		root = t.Add(root, item(id, id))
	}
	return root
}

func idsOf(items []avl.Item[string]) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestAddToListSortedUnique(t *testing.T) {
	tree := avl.NewTree[string]()
	ids := []int64{5, 1, 9, 1, 3, -2, 5, 7}
	root := addAll(tree, ids)

	require.NoError(t, tree.AssertInvariants(root))
	require.NoError(t, tree.AssertNoDanglingHandles([]avl.OptHandle{root}))

	got := idsOf(tree.ToList(root))
	assert.Equal(t, uniqueSorted(ids), got)
}

func TestAddOverwritesPayloadAndCollateral(t *testing.T) {
	tree := avl.NewTree[string]()
	root := tree.Add(avl.Empty(), avl.Item[string]{ID: 1, Payload: "first", Collateral: tez.OfInt64(10)})
	root = tree.Add(root, avl.Item[string]{ID: 1, Payload: "second", Collateral: tez.OfInt64(20)})

	list := tree.ToList(root)
	require.Len(t, list, 1)
	assert.Equal(t, "second", list[0].Payload)
	assert.Equal(t, 0, list[0].Collateral.Cmp(tez.OfInt64(20)))
}

func TestDelRemovesExactlyOneId(t *testing.T) {
	tree := avl.NewTree[string]()
	ids := []int64{10, 5, 20, 1, 7, 15, 25}
	root := addAll(tree, ids)

	root = tree.Del(root, 7)
	require.NoError(t, tree.AssertInvariants(root))
	require.NoError(t, tree.AssertNoDanglingHandles([]avl.OptHandle{root}))

	want := uniqueSorted(ids)
	for i, id := range want {
		if id == 7 {
			want = append(want[:i], want[i+1:]...)
			break
		}
	}
	assert.Equal(t, want, idsOf(tree.ToList(root)))
}

func TestDelAbsentIsNoOp(t *testing.T) {
	tree := avl.NewTree[string]()
	root := addAll(tree, []int64{1, 2, 3})
	before := idsOf(tree.ToList(root))

	root = tree.Del(root, 999)
	assert.Equal(t, before, idsOf(tree.ToList(root)))
}

func TestDelToEmpty(t *testing.T) {
	tree := avl.NewTree[string]()
	root := tree.Add(avl.Empty(), item(1, 1))
	root = tree.Del(root, 1)
	assert.False(t, root.Valid)
	assert.True(t, tree.Arena.IsEmpty())
}

func TestJoinConcatenatesInOrder(t *testing.T) {
	tree := avl.NewTree[string]()
	left := addAll(tree, []int64{1, 2, 3, 4, 5})
	right := addAll(tree, []int64{10, 11, 12})

	joined := avl.Some(tree.Join(left, right))
	require.NoError(t, tree.AssertInvariants(joined))
	require.NoError(t, tree.AssertNoDanglingHandles([]avl.OptHandle{joined}))

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 10, 11, 12}, idsOf(tree.ToList(joined)))
}

func TestJoinWithEmptySide(t *testing.T) {
	tree := avl.NewTree[string]()
	left := addAll(tree, []int64{1, 2, 3})

	h := tree.Join(left, avl.Empty())
	assert.Equal(t, []int64{1, 2, 3}, idsOf(tree.ToList(avl.Some(h))))
}

func TestSplitPrefixIsLongestUnderLimit(t *testing.T) {
	tree := avl.NewTree[string]()
	root := avl.Empty()
	// collateral 1 each, ids 1..10
	for id := int64(1); id <= 10; id++ {
		root = tree.Add(root, item(id, 1))
	}

	left, right := tree.Split(root, tez.OfInt64(4))
	if left.Valid {
		require.NoError(t, tree.AssertInvariants(left))
	}
	if right.Valid {
		require.NoError(t, tree.AssertInvariants(right))
	}

	leftIDs := idsOf(tree.ToList(left))
	rightIDs := idsOf(tree.ToList(right))
	assert.Equal(t, []int64{1, 2, 3, 4}, leftIDs)
	assert.Equal(t, []int64{5, 6, 7, 8, 9, 10}, rightIDs)

	var combined []int64
	combined = append(combined, leftIDs...)
	combined = append(combined, rightIDs...)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, combined)

	var roots []avl.OptHandle
	if left.Valid {
		roots = append(roots, left)
	}
	if right.Valid {
		roots = append(roots, right)
	}
	require.NoError(t, tree.AssertNoDanglingHandles(roots))
}

func TestSplitEmptyTree(t *testing.T) {
	tree := avl.NewTree[string]()
	left, right := tree.Split(avl.Empty(), tez.OfInt64(5))
	assert.False(t, left.Valid)
	assert.False(t, right.Valid)
}

func TestSplitEverythingFits(t *testing.T) {
	tree := avl.NewTree[string]()
	root := addAll(tree, []int64{1, 2, 3})
	left, right := tree.Split(root, tez.OfInt64(1000))
	assert.False(t, right.Valid)
	assert.Equal(t, []int64{1, 2, 3}, idsOf(tree.ToList(left)))
}

func TestMinMax(t *testing.T) {
	tree := avl.NewTree[string]()
	root := addAll(tree, []int64{5, 1, 9, 3})

	min, ok := tree.Min(root)
	require.True(t, ok)
	assert.Equal(t, int64(1), min.ID)

	max, ok := tree.Max(root)
	require.True(t, ok)
	assert.Equal(t, int64(9), max.ID)

	_, ok = tree.Min(avl.Empty())
	assert.False(t, ok)
}

func TestRandomizedAddDelInvariants(t *testing.T) {
	tree := avl.NewTree[string]()
	root := avl.Empty()
	ids := []int64{50, 25, 75, 10, 30, 60, 80, 5, 15, 27, 33, 55, 65, 77, 90, -5, -10, 100, 1, 2, 3, 4}
	for _, id := range ids {
		root = tree.Add(root, item(id, (id%7)+1))
		require.NoError(t, tree.AssertInvariants(root))
	}
	for _, id := range ids {
		root = tree.Del(root, id)
		require.NoError(t, tree.AssertInvariants(root))
		require.NoError(t, tree.AssertNoDanglingHandles([]avl.OptHandle{root}))
	}
	assert.False(t, root.Valid)
	assert.True(t, tree.Arena.IsEmpty())
}

func TestDebugDigestStableAcrossEquivalentBuildOrders(t *testing.T) {
	t1 := avl.NewTree[string]()
	r1 := addAll(t1, []int64{1, 2, 3, 4, 5})

	t2 := avl.NewTree[string]()
	r2 := addAll(t2, []int64{5, 4, 3, 2, 1})

	assert.Equal(t, t1.DebugDigest(r1), t2.DebugDigest(r2))
}
