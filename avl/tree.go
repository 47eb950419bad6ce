// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package avl implements the liquidation queue: an order-statistic AVL
// tree over package bigmap's arena, keyed by liquidation-item id, carrying
// per-subtree aggregates (total collateral, height) so that split/join by
// prefix collateral sum run in O(log n).
//
// Nodes never hold language pointers to each other; every link -- parent,
// left child, right child -- is a bigmap.Handle into the Tree's Arena
// (spec.md §9, "arena + index" substitute for a pointer graph). A branch's
// two children always exist (a branch is never allowed to have a missing
// child); only a whole subtree -- represented at the API boundary as an
// OptHandle -- can be empty.
package avl

import (
	"github.com/ruquant/checker/bigmap"
	"github.com/ruquant/checker/tez"
)

// NodeKind distinguishes a Leaf (one item) from a Branch (two children
// plus cached aggregates).
type NodeKind int

const (
	KindLeaf NodeKind = iota
	KindBranch
)

// OptHandle is a possibly-absent bigmap.Handle: "root_or_none" at the API
// boundary, and a node's parent link (none only for an actual tree root).
type OptHandle struct {
	H     bigmap.Handle
	Valid bool
}

// None is the absent handle.
func None() OptHandle { return OptHandle{} }

// Some wraps a definite handle.
func Some(h bigmap.Handle) OptHandle { return OptHandle{H: h, Valid: true} }

// Item is a liquidation-queue entry: a totally ordered id, an arbitrary
// payload, and the tez collateral backing it.
type Item[T any] struct {
	ID         int64
	Payload    T
	Collateral tez.Tez
}

// Node is either a Leaf (Kind == KindLeaf, only Item and Parent are
// meaningful) or a Branch (Kind == KindBranch; Item is unused). Branch's
// Key is the id of the minimum element of its right subtree: id < Key
// steers left, id >= Key steers right.
type Node[T any] struct {
	Kind NodeKind

	// Leaf fields.
	Item Item[T]

	// Branch fields.
	Left, Right                     bigmap.Handle
	LeftHeight, RightHeight         int64
	LeftCollateral, RightCollateral tez.Tez
	Key                             int64

	// Shared: back-handle to the parent branch, none if this node is a
	// declared tree root.
	Parent OptHandle
}

// Tree is the AVL engine bound to one Arena of Node[T]. Distinct logical
// trees (e.g. the two halves of a Split) may share the same Tree/Arena;
// what distinguishes them is only which root handle the caller holds.
type Tree[T any] struct {
	Arena *bigmap.Arena[Node[T]]
}

// NewTree allocates an empty arena for a fresh AVL tree.
func NewTree[T any]() *Tree[T] {
	return &Tree[T]{Arena: bigmap.New[Node[T]]()}
}

// Empty is the empty tree's root: a convenience alias for None, named to
// match spec.md's "empty" entry point.
func Empty() OptHandle { return None() }

func (t *Tree[T]) heightOf(h bigmap.Handle) int64 {
	n := t.Arena.MustGet(h)
	if n.Kind == KindLeaf {
		return 1
	}
	if n.LeftHeight > n.RightHeight {
		return n.LeftHeight + 1
	}
	return n.RightHeight + 1
}

func (t *Tree[T]) collateralOf(h bigmap.Handle) tez.Tez {
	n := t.Arena.MustGet(h)
	if n.Kind == KindLeaf {
		return n.Item.Collateral
	}
	return n.LeftCollateral.Add(n.RightCollateral)
}

func (t *Tree[T]) setParent(h bigmap.Handle, parent bigmap.Handle) {
	t.setParentOpt(h, Some(parent))
}

func (t *Tree[T]) setParentOpt(h bigmap.Handle, parent OptHandle) {
	n := t.Arena.MustGet(h)
	n.Parent = parent
	_ = t.Arena.Set(h, n)
}

func (t *Tree[T]) minID(h bigmap.Handle) int64 {
	n := t.Arena.MustGet(h)
	for n.Kind == KindBranch {
		n = t.Arena.MustGet(n.Left)
	}
	return n.Item.ID
}

func (t *Tree[T]) maxID(h bigmap.Handle) int64 {
	n := t.Arena.MustGet(h)
	for n.Kind == KindBranch {
		n = t.Arena.MustGet(n.Right)
	}
	return n.Item.ID
}

// rotateRight promotes h's left child to subtree root. Both nodes'
// aggregates and the moved grandchild's parent link are refreshed; the
// new root inherits h's old parent link.
func (t *Tree[T]) rotateRight(h bigmap.Handle) bigmap.Handle {
	node := t.Arena.MustGet(h)
	oldParent := node.Parent
	leftHandle := node.Left
	left := t.Arena.MustGet(leftHandle)

	moved := left.Right
	node.Left = moved
	t.setParent(moved, h)
	node.LeftHeight = t.heightOf(moved)
	node.LeftCollateral = t.collateralOf(moved)
	node.Parent = Some(leftHandle)
	_ = t.Arena.Set(h, node)

	left.Right = h
	left.RightHeight = t.heightOf(h)
	left.RightCollateral = t.collateralOf(h)
	left.Parent = oldParent
	_ = t.Arena.Set(leftHandle, left)

	return leftHandle
}

// rotateLeft is the mirror of rotateRight.
func (t *Tree[T]) rotateLeft(h bigmap.Handle) bigmap.Handle {
	node := t.Arena.MustGet(h)
	oldParent := node.Parent
	rightHandle := node.Right
	right := t.Arena.MustGet(rightHandle)

	moved := right.Left
	node.Right = moved
	t.setParent(moved, h)
	node.RightHeight = t.heightOf(moved)
	node.RightCollateral = t.collateralOf(moved)
	node.Parent = Some(rightHandle)
	_ = t.Arena.Set(h, node)

	right.Left = h
	right.LeftHeight = t.heightOf(h)
	right.LeftCollateral = t.collateralOf(h)
	right.Parent = oldParent
	_ = t.Arena.Set(rightHandle, right)

	return rightHandle
}

// balance restores |left_height - right_height| <= 1 at h, which can only
// be off by exactly 2 after a single add/del step, per spec.md §4.3.
func (t *Tree[T]) balance(h bigmap.Handle) bigmap.Handle {
	n := t.Arena.MustGet(h)
	diff := n.LeftHeight - n.RightHeight
	switch {
	case diff == 2:
		left := t.Arena.MustGet(n.Left)
		if left.LeftHeight >= left.RightHeight {
			return t.rotateRight(h)
		}
		newLeft := t.rotateLeft(n.Left)
		n.Left = newLeft
		n.LeftHeight = t.heightOf(newLeft)
		n.LeftCollateral = t.collateralOf(newLeft)
		_ = t.Arena.Set(h, n)
		return t.rotateRight(h)
	case diff == -2:
		right := t.Arena.MustGet(n.Right)
		if right.RightHeight >= right.LeftHeight {
			return t.rotateLeft(h)
		}
		newRight := t.rotateRight(n.Right)
		n.Right = newRight
		n.RightHeight = t.heightOf(newRight)
		n.RightCollateral = t.collateralOf(newRight)
		_ = t.Arena.Set(h, n)
		return t.rotateLeft(h)
	default:
		return h
	}
}

// Add inserts item into the tree rooted at root, returning the new root.
// Inserting an id already present overwrites its payload and collateral
// in place, preserving the leaf's parent link -- the source comments that
// this overwrite-on-collision behaviour may be unintentional, but it is
// preserved rather than turned into a failure (spec.md §9).
func (t *Tree[T]) Add(root OptHandle, item Item[T]) OptHandle {
	if !root.Valid {
		h := t.Arena.Alloc(Node[T]{Kind: KindLeaf, Item: item})
		return Some(h)
	}
	return Some(t.add(root.H, item))
}

func (t *Tree[T]) add(h bigmap.Handle, item Item[T]) bigmap.Handle {
	n := t.Arena.MustGet(h)
	if n.Kind == KindLeaf {
		if n.Item.ID == item.ID {
			n.Item = item
			_ = t.Arena.Set(h, n)
			return h
		}

		newHandle := t.Arena.Alloc(Node[T]{Kind: KindLeaf, Item: item})
		var leftItem, rightItem Item[T]
		var leftHandle, rightHandle bigmap.Handle
		if item.ID < n.Item.ID {
			leftItem, rightItem = item, n.Item
			leftHandle, rightHandle = newHandle, h
		} else {
			leftItem, rightItem = n.Item, item
			leftHandle, rightHandle = h, newHandle
		}
		branchHandle := t.Arena.Alloc(Node[T]{
			Kind:           KindBranch,
			Left:           leftHandle,
			Right:          rightHandle,
			LeftHeight:     1,
			RightHeight:    1,
			LeftCollateral: leftItem.Collateral,
			RightCollateral: rightItem.Collateral,
			Key:            rightItem.ID,
			Parent:         n.Parent,
		})
		t.setParent(leftHandle, branchHandle)
		t.setParent(rightHandle, branchHandle)
		return branchHandle
	}

	if item.ID < n.Key {
		newLeft := t.add(n.Left, item)
		n.Left = newLeft
		t.setParent(newLeft, h)
		n.LeftHeight = t.heightOf(newLeft)
		n.LeftCollateral = t.collateralOf(newLeft)
	} else {
		newRight := t.add(n.Right, item)
		n.Right = newRight
		t.setParent(newRight, h)
		n.RightHeight = t.heightOf(newRight)
		n.RightCollateral = t.collateralOf(newRight)
	}
	_ = t.Arena.Set(h, n)
	return t.balance(h)
}

// Del removes id from the tree rooted at root, returning the new root (or
// None if the tree becomes empty). Deleting an absent id is a no-op.
func (t *Tree[T]) Del(root OptHandle, id int64) OptHandle {
	if !root.Valid {
		return root
	}
	return t.del(root.H, id)
}

func (t *Tree[T]) del(h bigmap.Handle, id int64) OptHandle {
	n := t.Arena.MustGet(h)
	if n.Kind == KindLeaf {
		if n.Item.ID != id {
			return Some(h)
		}
		t.Arena.Del(h)
		return None()
	}

	if id < n.Key {
		res := t.del(n.Left, id)
		if !res.Valid {
			t.Arena.Del(h)
			t.setParentOpt(n.Right, n.Parent)
			return Some(n.Right)
		}
		n.Left = res.H
		t.setParent(res.H, h)
		n.LeftHeight = t.heightOf(res.H)
		n.LeftCollateral = t.collateralOf(res.H)
		_ = t.Arena.Set(h, n)
		return Some(t.balance(h))
	}

	res := t.del(n.Right, id)
	if !res.Valid {
		t.Arena.Del(h)
		t.setParentOpt(n.Left, n.Parent)
		return Some(n.Left)
	}
	n.Right = res.H
	n.Key = t.minID(res.H)
	t.setParent(res.H, h)
	n.RightHeight = t.heightOf(res.H)
	n.RightCollateral = t.collateralOf(res.H)
	_ = t.Arena.Set(h, n)
	return Some(t.balance(h))
}

// Join concatenates left and right, which must satisfy
// max(left).id < min(right).id, into one tree and returns its root. At
// least one side must be non-empty.
func (t *Tree[T]) Join(left, right OptHandle) bigmap.Handle {
	if !left.Valid && !right.Valid {
		panic("avl: join of two empty trees")
	}
	if !left.Valid {
		t.setParentOpt(right.H, None())
		return right.H
	}
	if !right.Valid {
		t.setParentOpt(left.H, None())
		return left.H
	}
	h := t.join(left.H, right.H)
	t.setParentOpt(h, None())
	return h
}

func (t *Tree[T]) join(l, r bigmap.Handle) bigmap.Handle {
	lh, rh := t.heightOf(l), t.heightOf(r)
	diff := lh - rh
	if diff >= -1 && diff <= 1 {
		branchHandle := t.Arena.Alloc(Node[T]{
			Kind:            KindBranch,
			Left:            l,
			Right:           r,
			LeftHeight:      lh,
			RightHeight:     rh,
			LeftCollateral:  t.collateralOf(l),
			RightCollateral: t.collateralOf(r),
			Key:             t.minID(r),
		})
		t.setParent(l, branchHandle)
		t.setParent(r, branchHandle)
		return branchHandle
	}
	if diff > 1 {
		lnode := t.Arena.MustGet(l)
		newRight := t.join(lnode.Right, r)
		lnode.Right = newRight
		t.setParent(newRight, l)
		lnode.RightHeight = t.heightOf(newRight)
		lnode.RightCollateral = t.collateralOf(newRight)
		_ = t.Arena.Set(l, lnode)
		return t.balance(l)
	}
	rnode := t.Arena.MustGet(r)
	newLeft := t.join(l, rnode.Left)
	rnode.Left = newLeft
	t.setParent(newLeft, r)
	rnode.LeftHeight = t.heightOf(newLeft)
	rnode.LeftCollateral = t.collateralOf(newLeft)
	_ = t.Arena.Set(r, rnode)
	return t.balance(r)
}

// Split returns the longest in-order prefix of root whose total
// collateral is <= limit, plus the remainder, per spec.md §4.3.
func (t *Tree[T]) Split(root OptHandle, limit tez.Tez) (OptHandle, OptHandle) {
	if !root.Valid {
		return None(), None()
	}
	a, b := t.split(root.H, limit)
	if a.Valid {
		t.setParentOpt(a.H, None())
	}
	if b.Valid {
		t.setParentOpt(b.H, None())
	}
	return a, b
}

func (t *Tree[T]) split(h bigmap.Handle, limit tez.Tez) (OptHandle, OptHandle) {
	n := t.Arena.MustGet(h)
	if n.Kind == KindLeaf {
		if n.Item.Collateral.Cmp(limit) <= 0 {
			return Some(h), None()
		}
		return None(), Some(h)
	}

	total := n.LeftCollateral.Add(n.RightCollateral)
	if total.Cmp(limit) <= 0 {
		return Some(h), None()
	}
	if n.LeftCollateral.Cmp(limit) == 0 {
		t.Arena.Del(h)
		t.setParentOpt(n.Left, None())
		t.setParentOpt(n.Right, None())
		return Some(n.Left), Some(n.Right)
	}
	if limit.Cmp(n.LeftCollateral) < 0 {
		leftA, leftB := t.split(n.Left, limit)
		// leftB is non-empty: limit < n.LeftCollateral means the left
		// subtree's own split left a genuine remainder.
		joined := t.Join(leftB, Some(n.Right))
		t.Arena.Del(h)
		if leftA.Valid {
			t.setParentOpt(leftA.H, None())
		}
		t.setParentOpt(joined, None())
		return leftA, Some(joined)
	}

	remaining := limit.Sub(n.LeftCollateral)
	rightA, rightB := t.split(n.Right, remaining)
	t.Arena.Del(h)
	if rightA.Valid {
		joined := t.Join(Some(n.Left), rightA)
		t.setParentOpt(joined, None())
		if rightB.Valid {
			t.setParentOpt(rightB.H, None())
		}
		return Some(joined), rightB
	}
	t.setParentOpt(n.Left, None())
	if rightB.Valid {
		t.setParentOpt(rightB.H, None())
	}
	return Some(n.Left), rightB
}

// Min returns the item with the smallest id in root, if any.
func (t *Tree[T]) Min(root OptHandle) (Item[T], bool) {
	if !root.Valid {
		var zero Item[T]
		return zero, false
	}
	n := t.Arena.MustGet(root.H)
	for n.Kind == KindBranch {
		n = t.Arena.MustGet(n.Left)
	}
	return n.Item, true
}

// Max returns the item with the largest id in root, if any.
func (t *Tree[T]) Max(root OptHandle) (Item[T], bool) {
	if !root.Valid {
		var zero Item[T]
		return zero, false
	}
	n := t.Arena.MustGet(root.H)
	for n.Kind == KindBranch {
		n = t.Arena.MustGet(n.Right)
	}
	return n.Item, true
}

// ToList returns every item in root, in-order (ascending id).
func (t *Tree[T]) ToList(root OptHandle) []Item[T] {
	var out []Item[T]
	var walk func(h bigmap.Handle)
	walk = func(h bigmap.Handle) {
		n := t.Arena.MustGet(h)
		if n.Kind == KindLeaf {
			out = append(out, n.Item)
			return
		}
		walk(n.Left)
		walk(n.Right)
	}
	if root.Valid {
		walk(root.H)
	}
	return out
}

// TotalCollateral returns the sum of collateral under root.
func (t *Tree[T]) TotalCollateral(root OptHandle) tez.Tez {
	if !root.Valid {
		return tez.ZeroTez()
	}
	return t.collateralOf(root.H)
}

// Height returns the height of root (0 for an empty tree).
func (t *Tree[T]) Height(root OptHandle) int64 {
	if !root.Valid {
		return 0
	}
	return t.heightOf(root.H)
}
