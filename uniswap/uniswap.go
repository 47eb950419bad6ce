// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package uniswap implements the constant-product AMM surface that pairs
// the native coin with kit (spec.md §6). It is the controller's
// collaborator, invoked only through AddAccruedKit -- everything else
// here exists so a complete repo has something real behind that call,
// not because the core depends on it.
//
// Every quantity that can overflow a fixed-point multiply is computed
// with math/big, the same way the constant-product formula in
// blinklabs-io/shai's internal/spectrum package handles pool arithmetic:
// numerator and denominator built up as big.Int products, then floor
// divided once at the end.
package uniswap

import (
	"errors"
	"math/big"
	"time"

	"github.com/ruquant/checker/fixedpoint"
	"github.com/ruquant/checker/ratio"
	"github.com/ruquant/checker/tez"
)

// ErrExpired, ErrTooLittleKit, ErrTooLittleCoin and ErrEmptyPool are the
// four user-facing protocol errors spec.md §7 assigns to AMM operations.
// The pool is returned untouched alongside each of these.
var (
	ErrExpired       = errors.New("uniswap: deadline has passed")
	ErrTooLittleKit  = errors.New("uniswap: computed kit output below minimum")
	ErrTooLittleCoin = errors.New("uniswap: computed coin output below minimum")
	ErrEmptyPool     = errors.New("uniswap: pool has a zero-balance side")
)

// feeNum/feeDenom encode the AMM's 0.2% fee (spec.md §6 "AMM fee = 0.002")
// as the 998/1000 multiplier used directly in the buy/sell formulas.
const (
	feeNum   = 998
	feeDenom = 1000
)

// Pool is the AMM's full state: coin and kit reserves plus the
// outstanding liquidity token supply. Every operation below takes a
// Pool by value and returns a new one; on error the caller's original
// Pool is untouched (spec.md §7 "the caller receives the old AMM back
// untouched").
type Pool struct {
	CoinBalance tez.Tez
	KitBalance  tez.Kit
	LqtTotal    int64
}

// New seeds a pool with an initial coin/kit balance and liquidity token
// supply, as at genesis or migration.
func New(coin tez.Tez, kit tez.Kit, lqtTotal int64) Pool {
	return Pool{CoinBalance: coin, KitBalance: kit, LqtTotal: lqtTotal}
}

// KitInCoin is the spot price coin_balance / kit_balance (spec.md §6).
func KitInCoin(p Pool) (ratio.Ratio, error) {
	if p.KitBalance.Sign() == 0 {
		return ratio.Ratio{}, ErrEmptyPool
	}
	return ratio.OfFixedPoint(p.CoinBalance.FixedPoint()).Div(ratio.OfFixedPoint(p.KitBalance.FixedPoint())), nil
}

func bigOfTez(t tez.Tez) *big.Int    { return bigOfFixed(t.FixedPoint()) }
func bigOfKit(k tez.Kit) *big.Int    { return bigOfFixed(k.FixedPoint()) }
func bigOfFixed(f fixedpoint.FixedPoint) *big.Int { return f.Raw() }

// constantProductOut computes floor(in_amount * out_balance * feeNum /
// (in_balance * feeDenom + in_amount * feeNum)), the shared core of
// buy_kit/sell_kit (spec.md §6), mirroring the big.Int numerator/
// denominator construction of Pool.OutputForInput in the Cardano
// reference pool.
func constantProductOut(inAmount, inBalance, outBalance *big.Int) *big.Int {
	numerator := new(big.Int).Mul(inAmount, outBalance)
	numerator.Mul(numerator, big.NewInt(feeNum))

	denominator := new(big.Int).Mul(inBalance, big.NewInt(feeDenom))
	denominator.Add(denominator, new(big.Int).Mul(inAmount, big.NewInt(feeNum)))

	return new(big.Int).Quo(numerator, denominator)
}

func checkDeadline(now, deadline time.Time) error {
	if now.After(deadline) {
		return ErrExpired
	}
	return nil
}

// BuyKit exchanges coinIn for kit: kit_out = floor(coin_in * kit *
// 998 / (coin * 1000 + coin_in * 998)) (spec.md §6).
func BuyKit(p Pool, coinIn tez.Tez, minKit tez.Kit, now, deadline time.Time) (tez.Kit, Pool, error) {
	if err := checkDeadline(now, deadline); err != nil {
		return tez.Kit{}, p, err
	}
	if p.CoinBalance.Sign() == 0 || p.KitBalance.Sign() == 0 {
		return tez.Kit{}, p, ErrEmptyPool
	}
	out := constantProductOut(bigOfTez(coinIn), bigOfTez(p.CoinBalance), bigOfKit(p.KitBalance))
	kitOut := tez.KitOfFixedPoint(fixedpoint.FromRaw(out))
	if kitOut.Cmp(minKit) < 0 {
		return tez.Kit{}, p, ErrTooLittleKit
	}
	next := Pool{
		CoinBalance: p.CoinBalance.Add(coinIn),
		KitBalance:  p.KitBalance.Sub(kitOut),
		LqtTotal:    p.LqtTotal,
	}
	return kitOut, next, nil
}

// SellKit is BuyKit's mirror image: kit in, coin out.
func SellKit(p Pool, kitIn tez.Kit, minCoin tez.Tez, now, deadline time.Time) (tez.Tez, Pool, error) {
	if err := checkDeadline(now, deadline); err != nil {
		return tez.Tez{}, p, err
	}
	if p.CoinBalance.Sign() == 0 || p.KitBalance.Sign() == 0 {
		return tez.Tez{}, p, ErrEmptyPool
	}
	out := constantProductOut(bigOfKit(kitIn), bigOfKit(p.KitBalance), bigOfTez(p.CoinBalance))
	coinOut := tez.OfFixedPoint(fixedpoint.FromRaw(out))
	if coinOut.Cmp(minCoin) < 0 {
		return tez.Tez{}, p, ErrTooLittleCoin
	}
	next := Pool{
		CoinBalance: p.CoinBalance.Sub(coinOut),
		KitBalance:  p.KitBalance.Add(kitIn),
		LqtTotal:    p.LqtTotal,
	}
	return coinOut, next, nil
}

// BuyLiquidity mints floor(n * coin / coin_balance) liquidity tokens for
// a coin/kit deposit, where n is the current token supply (spec.md §6).
// The pool's coin:kit ratio is preserved; the shorter of the two offered
// amounts is fully absorbed and the longer side's excess is refunded.
func BuyLiquidity(p Pool, coin tez.Tez, kit tez.Kit) (tokensMinted int64, coinRefund tez.Tez, kitRefund tez.Kit, next Pool, err error) {
	if p.CoinBalance.Sign() == 0 || p.KitBalance.Sign() == 0 {
		if p.LqtTotal != 0 {
			return 0, tez.Tez{}, tez.Kit{}, p, ErrEmptyPool
		}
		// Genesis deposit into an empty pool: the offered amounts become
		// the balances, one token is minted per whole unit of coin
		// offered, and nothing is refunded.
		minted := new(big.Int).Div(coin.FixedPoint().Raw(), fixedpoint.Scaling).Int64()
		return minted, tez.ZeroTez(), tez.ZeroKit(), Pool{CoinBalance: coin, KitBalance: kit, LqtTotal: minted}, nil
	}

	coinRatio := ratio.OfFixedPoint(coin.FixedPoint()).Div(ratio.OfFixedPoint(p.CoinBalance.FixedPoint()))
	kitRatio := ratio.OfFixedPoint(kit.FixedPoint()).Div(ratio.OfFixedPoint(p.KitBalance.FixedPoint()))

	shareRatio := coinRatio
	if kitRatio.Cmp(shareRatio) < 0 {
		shareRatio = kitRatio
	}

	mintedRatio := ratio.OfInt64(p.LqtTotal).Mul(shareRatio)
	tokensMinted = new(big.Int).Div(mintedRatio.Num(), mintedRatio.Den()).Int64()

	usedCoin := tez.OfFixedPoint(ratio.OfFixedPoint(p.CoinBalance.FixedPoint()).Mul(shareRatio).ToFixedPointFloor())
	usedKit := tez.KitOfFixedPoint(ratio.OfFixedPoint(p.KitBalance.FixedPoint()).Mul(shareRatio).ToFixedPointFloor())

	coinRefund = coin.Sub(usedCoin)
	kitRefund = kit.Sub(usedKit)

	next = Pool{
		CoinBalance: p.CoinBalance.Add(usedCoin),
		KitBalance:  p.KitBalance.Add(usedKit),
		LqtTotal:    p.LqtTotal + tokensMinted,
	}
	return tokensMinted, coinRefund, kitRefund, next, nil
}

// SellLiquidity redeems tokens pro-rata for a coin/kit share of the pool.
func SellLiquidity(p Pool, tokens int64) (tez.Tez, tez.Kit, Pool, error) {
	if p.LqtTotal == 0 {
		return tez.Tez{}, tez.Kit{}, p, ErrEmptyPool
	}
	share := ratio.New(big.NewInt(tokens), big.NewInt(p.LqtTotal))
	coinOut := tez.OfFixedPoint(ratio.OfFixedPoint(p.CoinBalance.FixedPoint()).Mul(share).ToFixedPointFloor())
	kitOut := tez.KitOfFixedPoint(ratio.OfFixedPoint(p.KitBalance.FixedPoint()).Mul(share).ToFixedPointFloor())

	next := Pool{
		CoinBalance: p.CoinBalance.Sub(coinOut),
		KitBalance:  p.KitBalance.Sub(kitOut),
		LqtTotal:    p.LqtTotal - tokens,
	}
	return coinOut, kitOut, next, nil
}

// AddAccruedKit increases the kit side of the pool without minting
// tokens -- the controller's only direct touchpoint on the AMM
// (spec.md §6, invoked from parameters.Touch's accrual in step 10).
func AddAccruedKit(p Pool, kit tez.Kit) Pool {
	return Pool{
		CoinBalance: p.CoinBalance,
		KitBalance:  p.KitBalance.Add(kit),
		LqtTotal:    p.LqtTotal,
	}
}
