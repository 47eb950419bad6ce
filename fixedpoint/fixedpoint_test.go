package fixedpoint_test

import (
	"testing"

	"github.com/ruquant/checker/fixedpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSubExact(t *testing.T) {
	a := fixedpoint.OfInt64(3)
	b := fixedpoint.OfInt64(2)
	assert.Equal(t, fixedpoint.OfInt64(5).Raw(), a.Add(b).Raw())
	assert.Equal(t, fixedpoint.OfInt64(1).Raw(), a.Sub(b).Raw())
}

func TestMulTruncatesTowardZero(t *testing.T) {
	half, err := fixedpoint.OfInt64(1).Div(fixedpoint.OfInt64(2))
	require.NoError(t, err)
	third, err := fixedpoint.OfInt64(1).Div(fixedpoint.OfInt64(3))
	require.NoError(t, err)

	got := half.Mul(third)
	want, err := fixedpoint.OfInt64(1).Div(fixedpoint.OfInt64(6))
	require.NoError(t, err)
	assert.Equal(t, want.Raw(), got.Raw())

	negHalf := half.Neg()
	negThird := negHalf.Mul(third)
	assert.Equal(t, want.Neg().Raw(), negThird.Raw())
}

func TestDivByZero(t *testing.T) {
	_, err := fixedpoint.OfInt64(1).Div(fixedpoint.Zero())
	assert.ErrorIs(t, err, fixedpoint.ErrDivideByZero)
}

func TestPow(t *testing.T) {
	x := fixedpoint.OfInt64(2)
	assert.Equal(t, fixedpoint.One().Raw(), x.Pow(0).Raw())
	assert.Equal(t, fixedpoint.OfInt64(2).Raw(), x.Pow(1).Raw())
	assert.Equal(t, fixedpoint.OfInt64(8).Raw(), x.Pow(3).Raw())
}

func TestExp(t *testing.T) {
	a := fixedpoint.OfInt64(0)
	assert.Equal(t, fixedpoint.One().Raw(), fixedpoint.Exp(a).Raw())
}

func TestOfHexStringRoundTrip(t *testing.T) {
	x, err := fixedpoint.OfHexString("1.8")
	require.NoError(t, err)
	want := fixedpoint.OfInt64(1).Add(mustDiv(t, fixedpoint.OfInt64(1), fixedpoint.OfInt64(2)))
	assert.Equal(t, want.Raw(), x.Raw())

	neg, err := fixedpoint.OfHexString("-1.8")
	require.NoError(t, err)
	assert.Equal(t, want.Neg().Raw(), neg.Raw())
}

func TestOfHexStringInvalid(t *testing.T) {
	_, err := fixedpoint.OfHexString("zz")
	assert.Error(t, err)
}

func mustDiv(t *testing.T, x, y fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	t.Helper()
	r, err := x.Div(y)
	require.NoError(t, err)
	return r
}
