// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package bigmap implements the arena: an append-only indexed store of
// nodes, addressed by monotonically increasing 64-bit handles. It is the
// "arena + index" substitute for a pointer graph described in spec.md §9:
// AVL branch/leaf nodes hold Handle-valued back- and child-links into an
// Arena rather than language pointers, so the AVL engine (package avl) can
// be written as plain value types over a generic arena.
//
// The arena performs no garbage collection (spec.md §1 Non-goals): del
// frees a slot's value but never reuses its handle.
package bigmap

import (
	"errors"
	"fmt"
)

// Handle addresses a single node in an Arena. Alloc hands out handle 0
// first, so the zero Handle is a real node and a "none" sentinel must be
// represented out-of-band (see avl.OptHandle).
type Handle int64

// ErrDanglingHandle is returned by Get when the handle was never
// allocated or has already been deleted.
var ErrDanglingHandle = errors.New("bigmap: dangling handle")

// Arena maps handles to values of type T. New handles are strictly
// greater than any handle ever allocated, starting at 0.
type Arena[T any] struct {
	nodes map[Handle]T
	next  Handle
}

// New returns an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{nodes: make(map[Handle]T)}
}

// IsEmpty reports whether the arena currently holds no live nodes. This
// does not mean no handle was ever allocated -- only that every allocated
// handle has since been deleted.
func (a *Arena[T]) IsEmpty() bool {
	return len(a.nodes) == 0
}

// Len reports the number of live nodes.
func (a *Arena[T]) Len() int {
	return len(a.nodes)
}

// Alloc reserves and returns a fresh handle for v, strictly greater than
// any handle previously allocated by this arena.
func (a *Arena[T]) Alloc(v T) Handle {
	h := a.next
	a.next++
	a.nodes[h] = v
	return h
}

// Get fetches the value stored at h. Fails with ErrDanglingHandle if h was
// never allocated or has been deleted.
func (a *Arena[T]) Get(h Handle) (T, error) {
	v, ok := a.nodes[h]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %d", ErrDanglingHandle, h)
	}
	return v, nil
}

// MustGet is Get without the error return, for call sites that have
// already established h is live (e.g. immediately after Alloc, or under
// an invariant the caller is responsible for). A dangling handle here is
// a programming error and panics, per spec.md §7.
func (a *Arena[T]) MustGet(h Handle) T {
	v, err := a.Get(h)
	if err != nil {
		panic(err)
	}
	return v
}

// Set overwrites the value stored at h. Fails with ErrDanglingHandle if h
// is not currently live.
func (a *Arena[T]) Set(h Handle, v T) error {
	if _, ok := a.nodes[h]; !ok {
		return fmt.Errorf("%w: %d", ErrDanglingHandle, h)
	}
	a.nodes[h] = v
	return nil
}

// Update applies f to the value stored at h and writes the result back.
func (a *Arena[T]) Update(h Handle, f func(T) T) error {
	v, err := a.Get(h)
	if err != nil {
		return err
	}
	return a.Set(h, f(v))
}

// Del frees the slot at h. Deleting an absent handle is a no-op: callers
// (package avl) only ever free handles they just looked up.
func (a *Arena[T]) Del(h Handle) {
	delete(a.nodes, h)
}

// Handles returns every currently-live handle, order unspecified. Used by
// the no-dangling-handles invariant check in package avl.
func (a *Arena[T]) Handles() []Handle {
	out := make([]Handle, 0, len(a.nodes))
	for h := range a.nodes {
		out = append(out, h)
	}
	return out
}
