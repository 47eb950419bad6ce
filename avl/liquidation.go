// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package avl

import (
	"blockwatch.cc/tzgo/tezos"
)

// BurrowRef is the concrete liquidation-item payload used by the rest of
// this repo: which burrow the collateral came from and who owns it. The
// engine itself is payload-agnostic (spec.md §9: "no ordering on payloads
// is required"); BurrowRef is what package server actually stores.
type BurrowRef struct {
	BurrowID int64
	Owner    tezos.Address
}

// NewBurrowRef parses owner as a Tezos address and pairs it with a burrow
// id, for building LiquidationItem payloads from config or API input.
func NewBurrowRef(burrowID int64, owner string) (BurrowRef, error) {
	addr, err := tezos.ParseAddress(owner)
	if err != nil {
		return BurrowRef{}, err
	}
	return BurrowRef{BurrowID: burrowID, Owner: addr}, nil
}
