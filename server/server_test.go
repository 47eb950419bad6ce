package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruquant/checker/oracle"
	"github.com/ruquant/checker/server"
	"github.com/ruquant/checker/tez"
	"github.com/ruquant/checker/uniswap"
)

type fixedFeed struct {
	index tez.Tez
}

func (f fixedFeed) Fetch(ctx context.Context) ([]oracle.Observation, error) {
	return []oracle.Observation{{Source: "fixed", Index: f.index, ObservedAt: time.Now()}}, nil
}

func TestHandleGetParameters(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	pool := uniswap.New(tez.OfInt64(1000), tez.KitOfInt64(500), 1000)
	state := server.NewState(now, pool, fixedFeed{index: tez.OfInt64(1)})

	ts := httptest.NewServer(server.Router(state))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/parameters")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body, "q")
	assert.Contains(t, body, "outstanding_kit")
}

func TestHandleTouchAdvancesParameters(t *testing.T) {
	now := time.Now().UTC().Add(-time.Hour)
	pool := uniswap.New(tez.OfInt64(1000), tez.KitOfInt64(500), 1000)
	state := server.NewState(now, pool, fixedFeed{index: tez.OfInt64(1)})

	ts := httptest.NewServer(server.Router(state))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/touch", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleListLiquidationsEmpty(t *testing.T) {
	now := time.Unix(0, 0).UTC()
	pool := uniswap.New(tez.OfInt64(1000), tez.KitOfInt64(500), 1000)
	state := server.NewState(now, pool, fixedFeed{index: tez.OfInt64(1)})

	ts := httptest.NewServer(server.Router(state))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/liquidations?limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body)
}
