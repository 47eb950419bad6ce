// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package fixedpoint implements the protocol's scaled fixed-point numeric
// type: a signed integer interpreted as a multiple of 2^-64. Addition and
// subtraction are exact; multiplication and division are defined in terms
// of an exact big.Int intermediate so that truncation direction (always
// toward zero) is the only source of rounding, never integer overflow.
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ericlagergren/decimal"
)

// ScalingExponent is the number of fractional bits; Scaling = 2^ScalingExponent.
const ScalingExponent = 64

// ErrDivideByZero is returned by Div when the divisor is zero.
var ErrDivideByZero = errors.New("fixedpoint: divide by zero")

// Scaling is 2^64, the implicit denominator of every FixedPoint value.
var Scaling = new(big.Int).Lsh(big.NewInt(1), ScalingExponent)

// FixedPoint is an exact multiple of 2^-64, stored as an arbitrary-precision
// signed integer raw value. It is never silently rounded: every operation
// that can lose precision (Mul, Div, Pow) documents its truncation rule.
type FixedPoint struct {
	raw *big.Int
}

// Raw exposes the underlying scaled integer. Callers must not mutate it.
func (x FixedPoint) Raw() *big.Int {
	if x.raw == nil {
		return big.NewInt(0)
	}
	return x.raw
}

func fromRaw(raw *big.Int) FixedPoint {
	return FixedPoint{raw: raw}
}

// FromRaw builds a FixedPoint from an already-scaled raw integer. Exposed
// for package ratio's floor/ceil conversions; ordinary callers should
// prefer OfInt64 or arithmetic on existing values.
func FromRaw(raw *big.Int) FixedPoint {
	return fromRaw(new(big.Int).Set(raw))
}

// Zero is the additive identity.
func Zero() FixedPoint { return fromRaw(big.NewInt(0)) }

// One is the multiplicative identity, i.e. raw value Scaling.
func One() FixedPoint { return fromRaw(new(big.Int).Set(Scaling)) }

// OfInt64 builds the FixedPoint representing the integer n exactly.
func OfInt64(n int64) FixedPoint {
	return fromRaw(new(big.Int).Mul(big.NewInt(n), Scaling))
}

// Add returns x + y, exactly.
func (x FixedPoint) Add(y FixedPoint) FixedPoint {
	return fromRaw(new(big.Int).Add(x.Raw(), y.Raw()))
}

// Sub returns x - y, exactly.
func (x FixedPoint) Sub(y FixedPoint) FixedPoint {
	return fromRaw(new(big.Int).Sub(x.Raw(), y.Raw()))
}

// Neg returns -x.
func (x FixedPoint) Neg() FixedPoint {
	return fromRaw(new(big.Int).Neg(x.Raw()))
}

// Mul returns x * y, truncating the fractional result toward zero.
func (x FixedPoint) Mul(y FixedPoint) FixedPoint {
	product := new(big.Int).Mul(x.Raw(), y.Raw())
	return fromRaw(new(big.Int).Quo(product, Scaling))
}

// Div returns x / y, truncating toward zero. Fails with ErrDivideByZero
// when y is zero.
func (x FixedPoint) Div(y FixedPoint) (FixedPoint, error) {
	if y.Raw().Sign() == 0 {
		return FixedPoint{}, ErrDivideByZero
	}
	scaledDividend := new(big.Int).Mul(x.Raw(), Scaling)
	return fromRaw(new(big.Int).Quo(scaledDividend, y.Raw())), nil
}

// Pow computes x^n for n >= 0: Pow(x, 0) = 1, Pow(x, n) = x^n / scaling^(n-1)
// on the raw values, truncated toward zero once at the end.
func (x FixedPoint) Pow(n uint) FixedPoint {
	if n == 0 {
		return One()
	}
	num := new(big.Int).Exp(x.Raw(), big.NewInt(int64(n)), nil)
	den := new(big.Int).Exp(Scaling, big.NewInt(int64(n-1)), nil)
	return fromRaw(num.Quo(num, den))
}

// Exp returns the first-order Taylor approximation of e^a used throughout
// the controller: exp(a) = 1 + a. This is deliberately not a higher-order
// approximation; the protocol's drift/target equations are specified in
// terms of exactly this truncation.
func Exp(a FixedPoint) FixedPoint {
	return One().Add(a)
}

// Cmp compares x and y: -1, 0, 1.
func (x FixedPoint) Cmp(y FixedPoint) int {
	return x.Raw().Cmp(y.Raw())
}

// Sign returns -1, 0, or 1 for negative, zero, positive x.
func (x FixedPoint) Sign() int {
	return x.Raw().Sign()
}

// String renders the value as its exact decimal expansion (see
// DecimalString).
func (x FixedPoint) String() string {
	return x.DecimalString()
}

// DecimalString renders the exact decimal expansion of x. Because the
// denominator 2^64 only has prime factor 2, the expansion always
// terminates; ericlagergren/decimal computes it exactly instead of
// going through a lossy float64 conversion.
func (x FixedPoint) DecimalString() string {
	num := new(decimal.Big).SetBigMantScale(new(big.Int).Set(x.Raw()), 0)
	den := new(decimal.Big).SetBigMantScale(new(big.Int).Set(Scaling), 0)
	// raw/2^64 = raw*5^64/10^64 has at most digits(raw)+45 significant
	// digits, so this precision never rounds.
	ctx := decimal.Context{Precision: len(x.Raw().String()) + ScalingExponent}
	out := new(decimal.Big)
	ctx.Quo(out, num, den)
	return out.String()
}

// OfHexString parses an optional sign, a hexadecimal integer part, and an
// optional "." followed by a hexadecimal fractional part: the k fractional
// digits, read as one integer, are scaled by 2^64 and divided by 16^k. The
// result is exact for k <= 16; longer fractions are truncated toward zero.
func OfHexString(s string) (FixedPoint, error) {
	negative := false
	rest := s
	if strings.HasPrefix(rest, "-") {
		negative = true
		rest = rest[1:]
	} else if strings.HasPrefix(rest, "+") {
		rest = rest[1:]
	}

	intPart := rest
	fracPart := ""
	if idx := strings.IndexByte(rest, '.'); idx >= 0 {
		intPart = rest[:idx]
		fracPart = rest[idx+1:]
	}
	if intPart == "" {
		intPart = "0"
	}

	intVal, ok := new(big.Int).SetString(intPart, 16)
	if !ok {
		return FixedPoint{}, fmt.Errorf("fixedpoint: invalid hex integer part %q", intPart)
	}
	raw := new(big.Int).Mul(intVal, Scaling)

	if fracPart != "" {
		fracVal, ok := new(big.Int).SetString(fracPart, 16)
		if !ok {
			return FixedPoint{}, fmt.Errorf("fixedpoint: invalid hex fractional part %q", fracPart)
		}
		// fracVal represents fracVal / 16^len(fracPart); scale it into the
		// same 2^64 base by multiplying by Scaling and dividing by 16^k.
		k := uint(len(fracPart))
		denom := new(big.Int).Lsh(big.NewInt(1), 4*k)
		scaledFrac := new(big.Int).Mul(fracVal, Scaling)
		scaledFrac.Quo(scaledFrac, denom)
		raw.Add(raw, scaledFrac)
	}

	if negative {
		raw.Neg(raw)
	}
	return fromRaw(raw), nil
}
