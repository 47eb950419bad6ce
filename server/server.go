// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package server is checkerd's HTTP surface over the core: a thin
// gorilla/mux router exposing the controller's touch entry point, the
// current Parameters record, and a read-only view of which burrows sit
// in the liquidation queue. None of the three subsystems' algorithms
// live here -- this package only marshals requests into calls against
// package parameters, package uniswap and package avl, and marshals
// their results back out as JSON, the way the teacher's own server
// package is a routing/marshalling layer over package etl (spec.md §1:
// "any CLI/serialisation layer" is explicitly out of the specified
// core).
package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"golang.org/x/net/netutil"

	"github.com/ruquant/checker/avl"
	"github.com/ruquant/checker/oracle"
	"github.com/ruquant/checker/parameters"
	"github.com/ruquant/checker/uniswap"
)

// State is the transaction context spec.md §5 says owns the arena and
// the parameter record: "the arena and the parameter record are owned
// by the surrounding transaction context. No two AVL operations may
// interleave on the same arena." A single mutex enforces that rule at
// the HTTP boundary -- the core itself stays single-threaded and
// lock-free.
type State struct {
	mu         sync.Mutex
	Params     parameters.Parameters
	Pool       uniswap.Pool
	Tree       *avl.Tree[avl.BurrowRef]
	Root       avl.OptHandle
	Feed       oracle.Feed
	StaleAfter time.Duration
}

// NewState builds a fresh transaction context at genesis.
func NewState(now time.Time, pool uniswap.Pool, feed oracle.Feed) *State {
	return &State{
		Params:     parameters.MakeInitial(now),
		Pool:       pool,
		Tree:       avl.NewTree[avl.BurrowRef](),
		Root:       avl.Empty(),
		Feed:       feed,
		StaleAfter: 10 * time.Minute,
	}
}

// Router builds the mux.Router exposing State's three endpoints.
func Router(state *State) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/parameters", state.handleGetParameters).Methods(http.MethodGet)
	r.HandleFunc("/touch", state.handleTouch).Methods(http.MethodPost)
	r.HandleFunc("/liquidations", state.handleListLiquidations).Methods(http.MethodGet)
	return r
}

// Serve runs the router on addr, rejecting new connections past
// maxConnections the way the teacher's own server bounds concurrent
// clients -- golang.org/x/net/netutil.LimitListener wraps the raw
// listener rather than adding per-handler bookkeeping.
func Serve(addr string, maxConnections int, state *State) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln = netutil.LimitListener(ln, maxConnections)
	return http.Serve(ln, Router(state))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type parametersView struct {
	Q               string `json:"q"`
	Index           string `json:"index"`
	ProtectedIndex  string `json:"protected_index"`
	Target          string `json:"target"`
	Drift           string `json:"drift"`
	DriftDerivative string `json:"drift_derivative"`
	BurrowFeeIndex  string `json:"burrow_fee_index"`
	ImbalanceIndex  string `json:"imbalance_index"`
	OutstandingKit  string `json:"outstanding_kit"`
	CirculatingKit  string `json:"circulating_kit"`
	LastTouched     string `json:"last_touched"`
}

func viewOf(p parameters.Parameters) parametersView {
	return parametersView{
		Q:               p.Q.String(),
		Index:           p.Index.String(),
		ProtectedIndex:  p.ProtectedIndex.String(),
		Target:          p.Target.String(),
		Drift:           p.Drift.String(),
		DriftDerivative: p.DriftDerivative.String(),
		BurrowFeeIndex:  p.BurrowFeeIndex.String(),
		ImbalanceIndex:  p.ImbalanceIndex.String(),
		OutstandingKit:  p.OutstandingKit.String(),
		CirculatingKit:  p.CirculatingKit.String(),
		LastTouched:     p.LastTouched.Format(time.RFC3339),
	}
}

func (s *State) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, viewOf(s.Params))
}

// ErrNoFreshPrice is returned when the touch endpoint's oracle feed has
// nothing usable to report.
var ErrNoFreshPrice = errors.New("server: oracle feed produced no usable price")

func (s *State) handleTouch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	obs, err := s.Feed.Fetch(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	oracleIndex, err := oracle.Median(now, s.StaleAfter, obs)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	kitPrice, err := uniswap.KitInCoin(s.Pool)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}

	accrual, next, err := parameters.Touch(now, oracleIndex, kitPrice, s.Params)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	s.Params = next
	s.Pool = uniswap.AddAccruedKit(s.Pool, accrual)
	writeJSON(w, http.StatusOK, viewOf(s.Params))
}

type liquidationsQuery struct {
	Limit int64 `schema:"limit"`
}

type liquidationEntry struct {
	BurrowID   int64  `json:"burrow_id"`
	Owner      string `json:"owner"`
	Collateral string `json:"collateral"`
}

var schemaDecoder = schema.NewDecoder()

func (s *State) handleListLiquidations(w http.ResponseWriter, r *http.Request) {
	var q liquidationsQuery
	if err := schemaDecoder.Decode(&q, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if q.Limit <= 0 {
		q.Limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.Tree.ToList(s.Root)
	if int64(len(items)) > q.Limit {
		items = items[:q.Limit]
	}
	out := make([]liquidationEntry, 0, len(items))
	for _, it := range items {
		out = append(out, liquidationEntry{
			BurrowID:   it.Payload.BurrowID,
			Owner:      it.Payload.Owner.String(),
			Collateral: it.Collateral.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
