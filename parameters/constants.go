// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package parameters

import (
	"math/big"

	"github.com/ruquant/checker/ratio"
)

// Protocol constants (spec.md §6). These are genesis-fixed parameters of
// the protocol, not runtime-tunable; spec.md leaves the exact numeric
// value of ProtectedIndexEpsilon/TargetLowBracket/TargetHighBracket
// unspecified (an Open Question -- see DESIGN.md). The values below are
// this implementation's documented choice, picked so that a one-hour
// tick clamps the protected index only against large oracle moves and
// the five compute_drift_derivative brackets stay non-degenerate.
const (
	SecondsInADay = 24 * 3600
)

func bi(n int64) *big.Int { return big.NewInt(n) }

var (
	// SecondsInAYear uses the Julian year (365.25 days).
	SecondsInAYear = ratio.OfInt64(365*SecondsInADay + SecondsInADay/4)

	// ProtectedIndexEpsilon bounds the protected index's per-second
	// relative drift. Chosen generously (0.05% per second) so a
	// one-hour tick only clamps the protected index against genuinely
	// large oracle moves, not ordinary market noise.
	ProtectedIndexEpsilon = ratio.New(bi(5), bi(10_000))

	// TargetLowBracket / TargetHighBracket are the compute_drift_derivative
	// thresholds: inside (-low, low) drift accrues no correction; outside
	// (-high, high) it accrues the larger correction.
	TargetLowBracket  = ratio.New(bi(5), bi(1000))
	TargetHighBracket = ratio.New(bi(75), bi(1000))

	// BurrowFeePercentage is the annualised burrow-fee rate (spec.md §6:
	// "burrow_fee_percentage = 0.005").
	BurrowFeePercentage = ratio.New(bi(5), bi(1000))

	// ImbalanceScalingFactor is the 0.01 factor in compute_imbalance
	// (spec.md §4.4 step 7).
	ImbalanceScalingFactor = ratio.New(bi(1), bi(100))

	// ImbalanceMaxClamp is the 5x multiplier bounding the imbalance
	// clamp window to +/-5*outstanding.
	ImbalanceMaxClamp = ratio.OfInt64(5)

	// driftDerivativeSmallPerDaySquared / driftDerivativeLargePerDaySquared
	// are the two magnitude tiers from spec.md §4.4 step 2, expressed per
	// second squared (the /seconds_in_a_day^2 division is applied where
	// they're used, not baked in here).
	driftDerivativeSmallPerDaySquared = ratio.New(bi(1), bi(10_000))
	driftDerivativeLargePerDaySquared = ratio.New(bi(5), bi(10_000))
)
