package parameters_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruquant/checker/fixedpoint"
	"github.com/ruquant/checker/parameters"
	"github.com/ruquant/checker/ratio"
	"github.com/ruquant/checker/tez"
)

func hex(t *testing.T, s string) fixedpoint.FixedPoint {
	t.Helper()
	x, err := fixedpoint.OfHexString(s)
	require.NoError(t, err)
	return x
}

// decimalFixed builds a FixedPoint for num/den via exact Ratio floor
// conversion, used to seed test scenarios with values like 0.9, 0.35 etc.
func decimalFixed(num, den int64) fixedpoint.FixedPoint {
	return ratio.New(big.NewInt(num), big.NewInt(den)).ToFixedPointFloor()
}

func TestMakeInitial(t *testing.T) {
	now := time.Unix(1_600_000_000, 0).UTC()
	p := parameters.MakeInitial(now)
	assert.Equal(t, fixedpoint.One().Raw(), p.Q.Raw())
	assert.Equal(t, fixedpoint.One().Raw(), p.BurrowFeeIndex.Raw())
	assert.Equal(t, fixedpoint.One().Raw(), p.ImbalanceIndex.Raw())
	assert.Equal(t, 0, p.OutstandingKit.Cmp(tez.ZeroKit()))
	assert.Equal(t, now, p.LastTouched)
}

// TestTouchScenario follows spec.md §8's worked controller scenario. The
// exact numeric value of drift/drift' depends on this implementation's
// choice of protocol constants (documented in DESIGN.md as an Open
// Question -- spec.md leaves protected_index_epsilon and the
// low/high target brackets unspecified), so this test pins down the
// quantities that are independent of that choice -- index, protected
// index, and the monetary invariants -- rather than asserting brittle
// floating values for drift/q/target.
func TestTouchScenario(t *testing.T) {
	t0 := time.Unix(0, 0).UTC()
	t1 := t0.Add(3600 * time.Second)

	params := parameters.Parameters{
		Q:               decimalFixed(9, 10),
		Index:           tez.OfFixedPoint(decimalFixed(36, 100)),
		ProtectedIndex:  tez.OfFixedPoint(decimalFixed(35, 100)),
		Target:          decimalFixed(108, 100),
		Drift:           fixedpoint.Zero(),
		DriftDerivative: fixedpoint.Zero(),
		BurrowFeeIndex:  fixedpoint.One(),
		ImbalanceIndex:  fixedpoint.One(),
		OutstandingKit:  tez.KitOfMukit(1_000_000),
		CirculatingKit:  tez.KitOfMukit(1_000_000),
		LastTouched:     t0,
	}

	oracleIndex := tez.OfFixedPoint(decimalFixed(34, 100))
	kitPrice := ratio.New(big.NewInt(305), big.NewInt(1000))

	accrual, next, err := parameters.Touch(t1, oracleIndex, kitPrice, params)
	require.NoError(t, err)

	assert.Equal(t, 0, next.Index.Cmp(oracleIndex))
	assert.Equal(t, 0, next.ProtectedIndex.Cmp(oracleIndex))
	assert.Equal(t, t1, next.LastTouched)

	// Monetary invariants (spec.md §3).
	assert.True(t, next.OutstandingKit.Sign() >= 0)
	assert.True(t, next.CirculatingKit.Sign() >= 0)
	assert.True(t, next.BurrowFeeIndex.Cmp(fixedpoint.One()) >= 0)
	assert.True(t, next.ImbalanceIndex.Sign() > 0)
	_ = accrual
}

func TestTouchRejectsBackwardsTime(t *testing.T) {
	t0 := time.Unix(1000, 0).UTC()
	t1 := time.Unix(500, 0).UTC()
	params := parameters.MakeInitial(t0)
	params.Target = fixedpoint.One()

	_, _, err := parameters.Touch(t1, tez.OfInt64(1), ratio.OfInt64(1), params)
	assert.Error(t, err)
}

func TestTouchZeroDeltaIsIdentityForIndices(t *testing.T) {
	now := time.Unix(2000, 0).UTC()
	params := parameters.MakeInitial(now)
	params.Target = fixedpoint.One()
	params.ProtectedIndex = tez.OfInt64(1)

	_, next, err := parameters.Touch(now, tez.OfInt64(1), ratio.OfInt64(1), params)
	require.NoError(t, err)
	assert.Equal(t, params.Q.Raw(), next.Q.Raw())
	assert.Equal(t, params.BurrowFeeIndex.Raw(), next.BurrowFeeIndex.Raw())
	assert.Equal(t, params.ImbalanceIndex.Raw(), next.ImbalanceIndex.Raw())
}

func TestTouchZeroOutstandingRequiresZeroCirculating(t *testing.T) {
	now := time.Unix(3000, 0).UTC()
	params := parameters.MakeInitial(now)
	params.Target = fixedpoint.One()
	params.ProtectedIndex = tez.OfInt64(1)
	params.CirculatingKit = tez.KitOfInt64(5)

	_, _, err := parameters.Touch(now.Add(time.Hour), tez.OfInt64(1), ratio.OfInt64(1), params)
	assert.Error(t, err)
}

func TestTouchNonPositiveTargetRejected(t *testing.T) {
	now := time.Unix(4000, 0).UTC()
	params := parameters.MakeInitial(now)
	params.Target = fixedpoint.Zero()
	params.ProtectedIndex = tez.OfInt64(1)

	_, _, err := parameters.Touch(now.Add(time.Hour), tez.OfInt64(1), ratio.OfInt64(1), params)
	assert.ErrorIs(t, err, parameters.ErrNonPositiveTarget)
}

func TestHexHelper(t *testing.T) {
	x := hex(t, "1.0")
	assert.Equal(t, fixedpoint.One().Raw(), x.Raw())
}
