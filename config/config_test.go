package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruquant/checker/config"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadGenesisValid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "genesis.yaml", `
network: mainnet
seed_coin: 1000000
seed_kit: 500000
seed_liquidity: 1000000
oracle_market: XTZ_USD
oracle_base_url: https://api.tzstats.com
`)
	g, err := config.LoadGenesis(path)
	require.NoError(t, err)
	assert.Equal(t, "mainnet", g.Network)
	assert.Equal(t, int64(1000000), g.SeedCoin)
}

func TestLoadGenesisRejectsMissingRequiredField(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "genesis.yaml", `
seed_coin: 1000000
seed_kit: 500000
seed_liquidity: 1000000
`)
	_, err := config.LoadGenesis(path)
	assert.Error(t, err)
}

func TestLoadServerValid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "server.yaml", `
listen_addr: ":8732"
max_connections: 128
`)
	s, err := config.LoadServer(path)
	require.NoError(t, err)
	assert.Equal(t, ":8732", s.ListenAddr)
	assert.Equal(t, 128, s.MaxConnections)
}

func TestDefaultServer(t *testing.T) {
	s := config.DefaultServer()
	assert.NotEmpty(t, s.ListenAddr)
	assert.Greater(t, s.MaxConnections, 0)
}
