// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package oracle supplies the external median price feed spec.md §1
// calls an opaque collaborator ("oracle aggregation... an opaque median
// feed") and §6 names only by the shape of its output: a Tez index fed
// into parameters.Touch. The aggregation itself -- median of a small set
// of timestamped observations, discarding any older than a staleness
// window -- is this package's own concern; fetching the observations is
// delegated to Feed implementations, of which TzstatsFeed (backed by
// blockwatch.cc/tzstats-go, the teacher's sibling client library) is the
// one wired up for a running checkerd.
package oracle

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"sort"
	"time"

	tzstats "blockwatch.cc/tzstats-go"

	"github.com/ruquant/checker/fixedpoint"
	"github.com/ruquant/checker/ratio"
	"github.com/ruquant/checker/tez"
)

// ErrNoObservations is returned by Median when given an empty set.
var ErrNoObservations = errors.New("oracle: no observations")

// ErrStale is returned when every observation in a Feed's response falls
// outside the staleness window relative to now.
var ErrStale = errors.New("oracle: all observations are stale")

// Observation is a single source's reported price, in tez per kit
// (coin-denominated), timestamped at the source.
type Observation struct {
	Source     string
	Index      tez.Tez
	ObservedAt time.Time
}

// Feed fetches the current set of raw observations from one or more
// upstream sources.
type Feed interface {
	Fetch(ctx context.Context) ([]Observation, error)
}

// Median computes the median index across obs, after dropping any
// observation older than maxAge relative to now. It fails closed:
// ErrNoObservations if obs is empty, ErrStale if every observation is
// too old to use.
func Median(now time.Time, maxAge time.Duration, obs []Observation) (tez.Tez, error) {
	if len(obs) == 0 {
		return tez.Tez{}, ErrNoObservations
	}
	fresh := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if now.Sub(o.ObservedAt) <= maxAge {
			fresh = append(fresh, o)
		}
	}
	if len(fresh) == 0 {
		return tez.Tez{}, ErrStale
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].Index.Cmp(fresh[j].Index) < 0 })
	mid := len(fresh) / 2
	if len(fresh)%2 == 1 {
		return fresh[mid].Index, nil
	}
	lo, hi := fresh[mid-1].Index, fresh[mid].Index
	return lo.Add(hi.Sub(lo)), nil // caller-visible tie-break: upper of the two middles
}

// TzstatsFeed reports a single observation per Fetch, taken from the
// configured market's ticker (e.g. "XTZ_USD") on a tzstats-compatible
// indexer (the teacher's own
// data API). It stands in for whatever aggregation of exchanges the
// real protocol's median feed draws from; spec.md treats the
// aggregation's data source as opaque, so a single upstream is enough
// to exercise the Feed contract end to end.
type TzstatsFeed struct {
	client *tzstats.Client
	market string
}

// NewTzstatsFeed builds a feed against baseURL (a tzstats API root, e.g.
// "https://api.tzstats.com") for the given market pair (e.g. "XTZ_USD").
func NewTzstatsFeed(baseURL, market string) (*TzstatsFeed, error) {
	client, err := tzstats.NewClient(baseURL, http.DefaultClient)
	if err != nil {
		return nil, err
	}
	return &TzstatsFeed{client: client, market: market}, nil
}

// Fetch queries the configured market's current ticker and converts its
// last-trade price into a single Observation.
func (f *TzstatsFeed) Fetch(ctx context.Context) ([]Observation, error) {
	ticker, err := f.client.GetTicker(ctx, f.market)
	if err != nil {
		return nil, err
	}
	return []Observation{{
		Source:     f.market,
		Index:      tez.OfFixedPoint(floatToFixed(ticker.Last)),
		ObservedAt: ticker.Timestamp,
	}}, nil
}

// floatToFixed converts a float64 price (as reported by a ticker) into
// a FixedPoint via an exact big.Rat intermediate, avoiding the direct
// float64->FixedPoint rounding pitfalls of scaling a float by 2^64.
func floatToFixed(f float64) fixedpoint.FixedPoint {
	r := new(big.Rat).SetFloat64(f)
	return ratio.New(r.Num(), r.Denom()).ToFixedPointFloor()
}
