// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package avl

import (
	"fmt"

	"github.com/cespare/xxhash"

	"github.com/ruquant/checker/bigmap"
	"github.com/ruquant/checker/tez"
)

// AssertInvariants walks root and checks, at every branch: the cached
// left/right height and collateral aggregates match the recomputed
// values of the referenced children, every child's parent link points
// back at its actual parent, the AVL balance property holds, and Key
// equals the id of the minimum element of the right subtree. It is a
// debug-only entry point (spec.md §6); a violation is a programming
// error, reported as a descriptive error rather than a panic so test
// code can assert on the message.
func (t *Tree[T]) AssertInvariants(root OptHandle) error {
	if !root.Valid {
		return nil
	}
	_, _, err := t.checkNode(root.H, None())
	return err
}

func (t *Tree[T]) checkNode(h bigmap.Handle, expectedParent OptHandle) (int64, tez.Tez, error) {
	n, err := t.Arena.Get(h)
	if err != nil {
		return 0, tez.ZeroTez(), err
	}
	if n.Parent != expectedParent {
		return 0, tez.ZeroTez(), fmt.Errorf("avl: node %d has parent %+v, want %+v", h, n.Parent, expectedParent)
	}
	if n.Kind == KindLeaf {
		return 1, n.Item.Collateral, nil
	}

	leftHeight, leftCollateral, err := t.checkNode(n.Left, Some(h))
	if err != nil {
		return 0, tez.ZeroTez(), err
	}
	rightHeight, rightCollateral, err := t.checkNode(n.Right, Some(h))
	if err != nil {
		return 0, tez.ZeroTez(), err
	}

	if leftHeight != n.LeftHeight {
		return 0, tez.ZeroTez(), fmt.Errorf("avl: node %d left_height %d, actual %d", h, n.LeftHeight, leftHeight)
	}
	if rightHeight != n.RightHeight {
		return 0, tez.ZeroTez(), fmt.Errorf("avl: node %d right_height %d, actual %d", h, n.RightHeight, rightHeight)
	}
	if leftCollateral.Cmp(n.LeftCollateral) != 0 {
		return 0, tez.ZeroTez(), fmt.Errorf("avl: node %d left_collateral mismatch", h)
	}
	if rightCollateral.Cmp(n.RightCollateral) != 0 {
		return 0, tez.ZeroTez(), fmt.Errorf("avl: node %d right_collateral mismatch", h)
	}

	diff := leftHeight - rightHeight
	if diff > 1 || diff < -1 {
		return 0, tez.ZeroTez(), fmt.Errorf("avl: node %d unbalanced: left_height=%d right_height=%d", h, leftHeight, rightHeight)
	}

	if minRight := t.minID(n.Right); minRight != n.Key {
		return 0, tez.ZeroTez(), fmt.Errorf("avl: node %d key %d, min(right)=%d", h, n.Key, minRight)
	}

	height := leftHeight + 1
	if rightHeight > leftHeight {
		height = rightHeight + 1
	}
	return height, leftCollateral.Add(rightCollateral), nil
}

// AssertNoDanglingHandles checks that the set of handles reachable from
// roots equals the arena's entire key set: no handle is orphaned
// (unreachable from every declared root) and no declared root points at
// a handle missing from the arena.
func (t *Tree[T]) AssertNoDanglingHandles(roots []OptHandle) error {
	reachable := make(map[bigmap.Handle]bool)
	var walk func(h bigmap.Handle) error
	walk = func(h bigmap.Handle) error {
		if reachable[h] {
			return nil
		}
		reachable[h] = true
		n, err := t.Arena.Get(h)
		if err != nil {
			return err
		}
		if n.Kind == KindBranch {
			if err := walk(n.Left); err != nil {
				return err
			}
			if err := walk(n.Right); err != nil {
				return err
			}
		}
		return nil
	}

	for _, r := range roots {
		if r.Valid {
			if err := walk(r.H); err != nil {
				return err
			}
		}
	}

	for _, h := range t.Arena.Handles() {
		if !reachable[h] {
			return fmt.Errorf("avl: handle %d unreachable from declared roots", h)
		}
	}
	if len(reachable) != t.Arena.Len() {
		return fmt.Errorf("avl: reachable set has %d handles, arena has %d", len(reachable), t.Arena.Len())
	}
	return nil
}

// DebugDigest folds a structural hash of root -- ids, heights, and
// collateral, not payloads -- for cheap tree-shape comparisons in the
// round-trip test suite, and for including in AssertInvariants-style
// failure messages without dumping an entire tree.
func (t *Tree[T]) DebugDigest(root OptHandle) uint64 {
	d := xxhash.New()
	var walk func(h bigmap.Handle)
	walk = func(h bigmap.Handle) {
		n := t.Arena.MustGet(h)
		if n.Kind == KindLeaf {
			fmt.Fprintf(d, "L:%d:%s;", n.Item.ID, n.Item.Collateral.FixedPoint().Raw().String())
			return
		}
		fmt.Fprintf(d, "B:%d:%d:%d;", n.Key, n.LeftHeight, n.RightHeight)
		walk(n.Left)
		walk(n.Right)
	}
	if root.Valid {
		walk(root.H)
	}
	return d.Sum64()
}
