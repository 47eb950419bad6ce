// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package parameters implements the protocol's per-tick controller
// (spec.md §4.4): a discrete-time state machine updating a protected
// index, a drift/target feedback loop, and two multiplicative
// accumulator indices that convert nominal burrow obligations into
// inflation-adjusted ones.
//
// Touch is the single entry point. Every intermediate quantity is
// carried as an exact ratio.Ratio; only the final assignment to each
// Parameters field floors it to a fixedpoint.FixedPoint (spec.md §9:
// "compute each expression as an exact rational and floor-convert to
// FixedPoint only at the assignment boundary").
package parameters

import (
	"errors"
	"time"

	"github.com/ruquant/checker/fixedpoint"
	"github.com/ruquant/checker/ratio"
	"github.com/ruquant/checker/tez"
)

// ErrNonPositiveTarget signals a precondition violation in
// computeDriftDerivative: target must be strictly positive. Per spec.md
// §4.4/§7 this is a programming error, not a user-facing one.
var ErrNonPositiveTarget = errors.New("parameters: target must be positive")

// Timestamp is the oracle/controller clock; the protocol treats it as an
// opaque monotonically-nondecreasing instant (spec.md §1: timestamp
// sources are an external collaborator).
type Timestamp = time.Time

// Parameters is the controller's full state, replaced wholesale on every
// tick rather than mutated field-by-field (spec.md §3 "Lifecycles").
type Parameters struct {
	Q               fixedpoint.FixedPoint
	Index           tez.Tez
	ProtectedIndex  tez.Tez
	Target          fixedpoint.FixedPoint
	Drift           fixedpoint.FixedPoint
	DriftDerivative fixedpoint.FixedPoint
	BurrowFeeIndex  fixedpoint.FixedPoint
	ImbalanceIndex  fixedpoint.FixedPoint
	OutstandingKit  tez.Kit
	CirculatingKit  tez.Kit
	LastTouched     Timestamp
}

// MakeInitial builds the genesis Parameters record at timestamp now: unit
// q, target and protected index, zero index/drift, identity fee/imbalance
// indices, and no outstanding or circulating kit.
func MakeInitial(now Timestamp) Parameters {
	return Parameters{
		Q:               fixedpoint.One(),
		Index:           tez.ZeroTez(),
		ProtectedIndex:  tez.OfInt64(1),
		Target:          fixedpoint.One(),
		Drift:           fixedpoint.Zero(),
		DriftDerivative: fixedpoint.Zero(),
		BurrowFeeIndex:  fixedpoint.One(),
		ImbalanceIndex:  fixedpoint.One(),
		OutstandingKit:  tez.ZeroKit(),
		CirculatingKit:  tez.ZeroKit(),
		LastTouched:     now,
	}
}

func expRatio(a ratio.Ratio) ratio.Ratio {
	return ratio.One().Add(a)
}

// Touch advances params by Δt = now - params.LastTouched seconds, given
// the freshly observed oracle index and kit price, and returns the kit
// accrual that must be pushed into the AMM (via uniswap.AddAccruedKit)
// together with the replacement Parameters record.
func Touch(now Timestamp, oracleIndex tez.Tez, kitPriceInCoin ratio.Ratio, params Parameters) (tez.Kit, Parameters, error) {
	dtSeconds := now.Sub(params.LastTouched).Seconds()
	if dtSeconds < 0 {
		return tez.Kit{}, Parameters{}, errors.New("parameters: now precedes last_touched")
	}
	dt := ratio.New(bi(int64(dtSeconds)), bi(1))

	oracleIndexRatio := ratio.OfFixedPoint(oracleIndex.FixedPoint())
	protectedIndexRatio := ratio.OfFixedPoint(params.ProtectedIndex.FixedPoint())

	// 1. Protected index: clamp the relative move into [exp(-eps*dt), exp(+eps*dt)].
	relativeMove := oracleIndexRatio.Div(protectedIndexRatio)
	epsDt := ProtectedIndexEpsilon.Mul(dt)
	clampedMove := relativeMove.Clamp(expRatio(epsDt.Neg()), expRatio(epsDt))
	newProtectedIndexRatio := protectedIndexRatio.Mul(clampedMove)
	newProtectedIndex := tez.OfFixedPoint(newProtectedIndexRatio.ToFixedPointFloor())

	// 2. Drift derivative, from the *previous* target.
	target := ratio.OfFixedPoint(params.Target)
	if target.Sign() <= 0 {
		return tez.Kit{}, Parameters{}, ErrNonPositiveTarget
	}
	newDriftDerivative, err := computeDriftDerivative(target)
	if err != nil {
		return tez.Kit{}, Parameters{}, err
	}
	oldDriftDerivative := ratio.OfFixedPoint(params.DriftDerivative)

	// 3. Drift: trapezoidal integration of the derivative.
	half := ratio.New(bi(1), bi(2))
	newDrift := ratio.OfFixedPoint(params.Drift).Add(
		half.Mul(oldDriftDerivative.Add(newDriftDerivative)).Mul(dt),
	)

	// 4. q: exponentiate the Simpson-weighted average drift over the tick.
	sixth := ratio.New(bi(1), bi(6))
	driftExponent := ratio.OfFixedPoint(params.Drift).Add(
		sixth.Mul(ratio.OfInt64(2).Mul(oldDriftDerivative).Add(newDriftDerivative)).Mul(dt),
	).Mul(dt)
	newQ := ratio.OfFixedPoint(params.Q).Mul(expRatio(driftExponent))

	// 5. Target.
	newTarget := newQ.Mul(oracleIndexRatio).Div(kitPriceInCoin)

	// 6. Burrow-fee index.
	newBurrowFeeIndex := ratio.OfFixedPoint(params.BurrowFeeIndex).Mul(
		ratio.One().Add(BurrowFeePercentage.Mul(dt).Div(SecondsInAYear)),
	)

	// 7. Imbalance percentage.
	outstanding := ratio.OfFixedPoint(params.OutstandingKit.FixedPoint())
	circulating := ratio.OfFixedPoint(params.CirculatingKit.FixedPoint())
	imbalancePercentage, err := computeImbalance(outstanding, circulating)
	if err != nil {
		return tez.Kit{}, Parameters{}, err
	}

	// 8. Imbalance index.
	newImbalanceIndex := ratio.OfFixedPoint(params.ImbalanceIndex).Mul(
		ratio.One().Add(imbalancePercentage.Mul(dt).Div(SecondsInAYear)),
	)

	// 9. With-burrow-fee outstanding.
	withBurrowFee := outstanding.Mul(newBurrowFeeIndex).Div(ratio.OfFixedPoint(params.BurrowFeeIndex))

	// 10. Accrual to the AMM.
	accrual := withBurrowFee.Sub(outstanding)

	// 11. New outstanding.
	newOutstanding := withBurrowFee.Mul(newImbalanceIndex).Div(ratio.OfFixedPoint(params.ImbalanceIndex))

	// 12. New circulating.
	newCirculating := circulating.Add(accrual)

	newParams := Parameters{
		Q:               newQ.ToFixedPointFloor(),
		Index:           oracleIndex,
		ProtectedIndex:  newProtectedIndex,
		Target:          newTarget.ToFixedPointFloor(),
		Drift:           newDrift.ToFixedPointFloor(),
		DriftDerivative: newDriftDerivative.ToFixedPointFloor(),
		BurrowFeeIndex:  newBurrowFeeIndex.ToFixedPointFloor(),
		ImbalanceIndex:  newImbalanceIndex.ToFixedPointFloor(),
		OutstandingKit:  tez.KitOfFixedPoint(newOutstanding.ToFixedPointFloor()),
		CirculatingKit:  tez.KitOfFixedPoint(newCirculating.ToFixedPointFloor()),
		LastTouched:     now,
	}
	return tez.KitOfFixedPoint(accrual.ToFixedPointFloor()), newParams, nil
}

// computeDriftDerivative implements spec.md §4.4 step 2's five brackets.
// The inequality directions (strict vs non-strict) are preserved exactly
// as given: the boundary target == exp(+/-low) belongs to the
// mid-magnitude bracket, not the zero bracket, and target == exp(+/-high)
// belongs to the large-magnitude bracket (spec.md §9, Open Questions).
func computeDriftDerivative(target ratio.Ratio) (ratio.Ratio, error) {
	if target.Sign() <= 0 {
		return ratio.Ratio{}, ErrNonPositiveTarget
	}
	daySquared := ratio.OfInt64(SecondsInADay * SecondsInADay)
	small := driftDerivativeSmallPerDaySquared.Div(daySquared)
	large := driftDerivativeLargePerDaySquared.Div(daySquared)

	expLow := expRatio(TargetLowBracket)
	expNegLow := expRatio(TargetLowBracket.Neg())
	expHigh := expRatio(TargetHighBracket)
	expNegHigh := expRatio(TargetHighBracket.Neg())

	switch {
	case target.Cmp(expNegLow) > 0 && target.Cmp(expLow) < 0:
		return ratio.Zero(), nil
	case target.Cmp(expNegHigh) > 0 && target.Cmp(expNegLow) <= 0:
		return small.Neg(), nil
	case target.Cmp(expLow) >= 0 && target.Cmp(expHigh) < 0:
		return small, nil
	case target.Cmp(expNegHigh) <= 0:
		return large.Neg(), nil
	default: // target >= expHigh
		return large, nil
	}
}

// computeImbalance implements spec.md §4.4 step 7. outstanding == 0 is
// documented in the reference implementation as implying circulating ==
// 0 too; this implementation preserves that assertion (spec.md §9, Open
// Questions) rather than silently special-casing a nonzero circulating
// balance with no outstanding debt.
func computeImbalance(outstanding, circulating ratio.Ratio) (ratio.Ratio, error) {
	if outstanding.Sign() == 0 {
		if circulating.Sign() != 0 {
			return ratio.Ratio{}, errors.New("parameters: circulating_kit must be zero when outstanding_kit is zero")
		}
		return ratio.Zero(), nil
	}
	d := outstanding.Sub(circulating)
	bound := ImbalanceMaxClamp.Mul(outstanding)
	clamped := d.Clamp(bound.Neg(), bound)
	return clamped.Mul(ImbalanceScalingFactor).Div(outstanding), nil
}
