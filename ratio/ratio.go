// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package ratio implements exact rational arithmetic: a numerator/
// denominator pair of arbitrary-precision integers, always kept in lowest
// terms with a strictly positive denominator. The controller (package
// parameters) chains several multiplications and divisions per tick;
// doing that in fixed-point would compound rounding error at every step,
// so every intermediate result is carried as a Ratio and only floored to
// a fixedpoint.FixedPoint at the final assignment boundary.
package ratio

import (
	"fmt"
	"math/big"

	"github.com/ruquant/checker/fixedpoint"
)

// Ratio is an exact fraction num/den, den > 0, gcd(|num|, den) = 1.
// The zero value is not a valid Ratio; use Zero() or New.
type Ratio struct {
	num *big.Int
	den *big.Int
}

// New builds num/den in lowest terms. Panics if den is zero: a Ratio with
// a zero denominator is a programming error, never a user-facing one (see
// spec.md §7 on numeric-edge errors).
func New(num, den *big.Int) Ratio {
	if den.Sign() == 0 {
		panic("ratio: zero denominator")
	}
	n := new(big.Int).Set(num)
	d := new(big.Int).Set(den)
	if d.Sign() < 0 {
		n.Neg(n)
		d.Neg(d)
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(n), d)
	if g.Sign() != 0 && g.Cmp(big.NewInt(1)) != 0 {
		n.Quo(n, g)
		d.Quo(d, g)
	}
	return Ratio{num: n, den: d}
}

// OfInt64 builds the Ratio n/1.
func OfInt64(n int64) Ratio {
	return New(big.NewInt(n), big.NewInt(1))
}

// Zero is the additive identity, 0/1.
func Zero() Ratio { return OfInt64(0) }

// One is the multiplicative identity, 1/1.
func One() Ratio { return OfInt64(1) }

// OfFixedPoint converts x exactly: x.Raw() / fixedpoint.Scaling.
func OfFixedPoint(x fixedpoint.FixedPoint) Ratio {
	return New(x.Raw(), fixedpoint.Scaling)
}

// Num and Den expose the reduced numerator/denominator. Callers must not
// mutate the returned values.
func (r Ratio) Num() *big.Int { return r.num }
func (r Ratio) Den() *big.Int { return r.den }

func (r Ratio) normalized() Ratio {
	if r.den == nil {
		return One()
	}
	return r
}

// Add returns r + s.
func (r Ratio) Add(s Ratio) Ratio {
	r, s = r.normalized(), s.normalized()
	num := new(big.Int).Add(new(big.Int).Mul(r.num, s.den), new(big.Int).Mul(s.num, r.den))
	den := new(big.Int).Mul(r.den, s.den)
	return New(num, den)
}

// Sub returns r - s.
func (r Ratio) Sub(s Ratio) Ratio {
	return r.Add(s.Neg())
}

// Neg returns -r.
func (r Ratio) Neg() Ratio {
	r = r.normalized()
	return Ratio{num: new(big.Int).Neg(r.num), den: new(big.Int).Set(r.den)}
}

// Mul returns r * s.
func (r Ratio) Mul(s Ratio) Ratio {
	r, s = r.normalized(), s.normalized()
	return New(new(big.Int).Mul(r.num, s.num), new(big.Int).Mul(r.den, s.den))
}

// Inv returns 1/r. Panics if r is zero, a programming error per spec.md §7.
func (r Ratio) Inv() Ratio {
	r = r.normalized()
	if r.num.Sign() == 0 {
		panic("ratio: inverse of zero")
	}
	return New(r.den, r.num)
}

// Div returns r / s.
func (r Ratio) Div(s Ratio) Ratio {
	return r.Mul(s.Inv())
}

// Cmp compares r and s: -1, 0, 1.
func (r Ratio) Cmp(s Ratio) int {
	r, s = r.normalized(), s.normalized()
	lhs := new(big.Int).Mul(r.num, s.den)
	rhs := new(big.Int).Mul(s.num, r.den)
	return lhs.Cmp(rhs)
}

// Sign returns -1, 0, or 1.
func (r Ratio) Sign() int {
	return r.normalized().num.Sign()
}

// Clamp bounds r into [lo, hi] (inclusive).
func (r Ratio) Clamp(lo, hi Ratio) Ratio {
	if r.Cmp(lo) < 0 {
		return lo
	}
	if r.Cmp(hi) > 0 {
		return hi
	}
	return r
}

// OfFixedPointFloor converts a FixedPoint through Ratio with no rounding;
// kept for symmetry with ToFixedPointFloor/Ceil below.
func OfFixedPointFloor(x fixedpoint.FixedPoint) Ratio { return OfFixedPoint(x) }

// ToFixedPointFloor converts r to the greatest FixedPoint <= r. Every
// controller equation (spec.md §4.4) uses this conversion, never Ceil,
// per the protocol's deterministic-rounding rule.
func (r Ratio) ToFixedPointFloor() fixedpoint.FixedPoint {
	r = r.normalized()
	scaledNum := new(big.Int).Mul(r.num, fixedpoint.Scaling)
	raw := floorDiv(scaledNum, r.den)
	return fixedpoint.FromRaw(raw)
}

// ToFixedPointCeil converts r to the least FixedPoint >= r.
func (r Ratio) ToFixedPointCeil() fixedpoint.FixedPoint {
	r = r.normalized()
	scaledNum := new(big.Int).Mul(r.num, fixedpoint.Scaling)
	raw := ceilDiv(scaledNum, r.den)
	return fixedpoint.FromRaw(raw)
}

// floorDiv computes floor(n/d) for d > 0 using Euclidean semantics.
func floorDiv(n, d *big.Int) *big.Int {
	q := new(big.Int)
	m := new(big.Int)
	q.QuoRem(n, d, m)
	if m.Sign() != 0 && (m.Sign() < 0) != (d.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return q
}

// ceilDiv computes ceil(n/d) for d > 0.
func ceilDiv(n, d *big.Int) *big.Int {
	q := floorDiv(n, d)
	prod := new(big.Int).Mul(q, d)
	if prod.Cmp(n) != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// String renders r as "num/den".
func (r Ratio) String() string {
	r = r.normalized()
	return fmt.Sprintf("%s/%s", r.num.String(), r.den.String())
}
