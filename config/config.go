// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package config loads the two configuration documents a running
// checkerd needs: the genesis record (network name, AMM pool seed
// amounts, and the oracle feed's market and endpoint) and the server's
// runtime settings (listen address and connection limit). Both are
// YAML, loaded through
// echa/config (the teacher's own config-loading library) and validated
// against a JSON Schema via qri-io/jsonschema before use, so a
// malformed genesis file fails fast at startup rather than surfacing
// as a confusing Touch error later.
package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/echa/config"
	"github.com/qri-io/jsonschema"
)

// Genesis is the protocol's fixed-at-genesis configuration: the
// network the oracle feed and server bind to, plus the seed amounts
// for the AMM pool spec.md §6 describes as "fixed at genesis."
type Genesis struct {
	Network       string `yaml:"network" json:"network"`
	SeedCoin      int64  `yaml:"seed_coin" json:"seed_coin"`
	SeedKit       int64  `yaml:"seed_kit" json:"seed_kit"`
	SeedLiquidity int64  `yaml:"seed_liquidity" json:"seed_liquidity"`
	OracleMarket  string `yaml:"oracle_market" json:"oracle_market"`
	OracleBaseURL string `yaml:"oracle_base_url" json:"oracle_base_url"`
}

// Server is checkerd's runtime configuration: what the HTTP surface
// binds to and how it's bounded.
type Server struct {
	ListenAddr     string `yaml:"listen_addr" json:"listen_addr"`
	MaxConnections int    `yaml:"max_connections" json:"max_connections"`
}

const genesisSchemaJSON = `{
  "type": "object",
  "required": ["network", "seed_coin", "seed_kit", "seed_liquidity"],
  "properties": {
    "network":        {"type": "string", "minLength": 1},
    "seed_coin":       {"type": "integer", "minimum": 0},
    "seed_kit":        {"type": "integer", "minimum": 0},
    "seed_liquidity":  {"type": "integer", "minimum": 0},
    "oracle_market":   {"type": "string"},
    "oracle_base_url": {"type": "string"}
  }
}`

const serverSchemaJSON = `{
  "type": "object",
  "required": ["listen_addr"],
  "properties": {
    "listen_addr":     {"type": "string", "minLength": 1},
    "max_connections": {"type": "integer", "minimum": 1}
  }
}`

// LoadGenesis reads the genesis document at path using echa/config's
// file loader and validates its shape against genesisSchemaJSON before
// returning it.
func LoadGenesis(path string) (Genesis, error) {
	var g Genesis
	if err := config.ReadConfigFile(&g, path); err != nil {
		return Genesis{}, fmt.Errorf("config: loading genesis: %w", err)
	}
	if err := validate(genesisSchemaJSON, g); err != nil {
		return Genesis{}, fmt.Errorf("config: genesis %s: %w", path, err)
	}
	return g, nil
}

// LoadServer reads checkerd's server configuration at path the same way.
func LoadServer(path string) (Server, error) {
	var s Server
	if err := config.ReadConfigFile(&s, path); err != nil {
		return Server{}, fmt.Errorf("config: loading server config: %w", err)
	}
	if err := validate(serverSchemaJSON, s); err != nil {
		return Server{}, fmt.Errorf("config: server config %s: %w", path, err)
	}
	return s, nil
}

func validate(schemaJSON string, doc interface{}) error {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(schemaJSON), rs); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	errs, err := rs.ValidateBytes(context.Background(), docBytes)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", errs[0].Error())
	}
	return nil
}

// DefaultServer is the configuration checkerd falls back to when no
// config file is supplied on the command line.
func DefaultServer() Server {
	return Server{ListenAddr: ":8732", MaxConnections: 256}
}
