// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package tez defines the protocol's two monetary scalar types, Tez and
// Kit. Both share the fixedpoint.FixedPoint representation and 2^64
// scaling, but are tagged as distinct nominal types so that a Tez value
// can never be added to a Kit value by accident -- the boundary between
// collateral (tez) and synthetic debt (kit) is exactly where checker's
// invariants live, and mixing them is always a programming error.
package tez

import (
	"math/big"

	"github.com/ruquant/checker/fixedpoint"
)

// Tez is a fixed-point amount of the native coin, used as collateral and
// as the AMM's counter-asset.
type Tez struct{ v fixedpoint.FixedPoint }

// Kit is a fixed-point amount of the synthetic token minted by burrows.
type Kit struct{ v fixedpoint.FixedPoint }

// mukitPerKit is the number of micro-kit in one kit.
var mukitPerKit = big.NewInt(1_000_000)

func OfFixedPoint(x fixedpoint.FixedPoint) Tez { return Tez{v: x} }
func KitOfFixedPoint(x fixedpoint.FixedPoint) Kit { return Kit{v: x} }

// ZeroTez and ZeroKit are the additive identities.
func ZeroTez() Tez { return Tez{v: fixedpoint.Zero()} }
func ZeroKit() Kit { return Kit{v: fixedpoint.Zero()} }

// OfInt64 builds the Tez amount representing n whole tez.
func OfInt64(n int64) Tez { return Tez{v: fixedpoint.OfInt64(n)} }

// KitOfInt64 builds the Kit amount representing n whole kit.
func KitOfInt64(n int64) Kit { return Kit{v: fixedpoint.OfInt64(n)} }

// KitOfMukit builds the Kit amount representing n micro-kit (n / 1_000_000
// kit). Because 10^6 does not evenly divide 2^64, the conversion is not
// always exact; it floors, consistent with the controller's uniform floor
// discipline (spec.md §4.4) rather than rounding to nearest.
func KitOfMukit(n int64) Kit {
	scaledNum := new(big.Int).Mul(big.NewInt(n), fixedpoint.Scaling)
	raw := new(big.Int).Div(scaledNum, mukitPerKit) // Euclidean: floors for a positive divisor
	return Kit{v: fixedpoint.FromRaw(raw)}
}

// FixedPoint exposes the underlying scaled value for arithmetic that must
// cross into package ratio or fixedpoint.
func (t Tez) FixedPoint() fixedpoint.FixedPoint { return t.v }
func (k Kit) FixedPoint() fixedpoint.FixedPoint { return k.v }

func (t Tez) Add(o Tez) Tez { return Tez{v: t.v.Add(o.v)} }
func (t Tez) Sub(o Tez) Tez { return Tez{v: t.v.Sub(o.v)} }
func (t Tez) Cmp(o Tez) int { return t.v.Cmp(o.v) }
func (t Tez) Sign() int     { return t.v.Sign() }
func (t Tez) String() string { return t.v.String() + "tz" }

func (k Kit) Add(o Kit) Kit { return Kit{v: k.v.Add(o.v)} }
func (k Kit) Sub(o Kit) Kit { return Kit{v: k.v.Sub(o.v)} }
func (k Kit) Cmp(o Kit) int { return k.v.Cmp(o.v) }
func (k Kit) Sign() int     { return k.v.Sign() }
func (k Kit) String() string { return k.v.String() + "kit" }
