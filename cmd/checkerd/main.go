// Copyright (c) 2020-2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// checkerd is the runnable entry point spec.md §1 excludes from the
// specified core ("any CLI/serialisation layer" is an external
// collaborator) but a complete repo still needs: a small cobra CLI
// wiring the genesis config, the oracle feed, and the HTTP server
// together.
package main

import (
	"fmt"
	"os"
	"time"

	ct "github.com/daviddengcn/go-colortext"
	"github.com/echa/log"
	"github.com/spf13/cobra"

	"github.com/ruquant/checker/config"
	"github.com/ruquant/checker/oracle"
	"github.com/ruquant/checker/server"
	"github.com/ruquant/checker/tez"
	"github.com/ruquant/checker/uniswap"
)

var (
	genesisPath string
	serverPath  string
)

func fatal(err error) {
	ct.ChangeColor(ct.Red, true, ct.None, false)
	fmt.Fprintf(os.Stderr, "checkerd: %s\n", err.Error())
	ct.ResetColor()
	os.Exit(1)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&genesisPath, "genesis", "genesis.yaml", "genesis config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(touchCmd)
	rootCmd.AddCommand(genesisCmd)

	if err := rootCmd.Execute(); err != nil {
		fatal(err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "checkerd",
	Short: "checkerd runs the checker protocol's controller and AMM surface",
	Long:  "checkerd runs the checker protocol's controller and AMM surface",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve runs the HTTP surface over the core",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := config.LoadGenesis(genesisPath)
		if err != nil {
			return err
		}
		sc := config.DefaultServer()
		if serverPath != "" {
			if sc2, err := config.LoadServer(serverPath); err == nil {
				sc = sc2
			}
		}

		feed, err := oracle.NewTzstatsFeed(g.OracleBaseURL, g.OracleMarket)
		if err != nil {
			return fmt.Errorf("checkerd: building oracle feed: %w", err)
		}

		pool := uniswap.New(tez.OfInt64(g.SeedCoin), tez.KitOfInt64(g.SeedKit), g.SeedLiquidity)
		state := server.NewState(time.Now().UTC(), pool, feed)

		log.Infof("checkerd listening on %s (network=%s)", sc.ListenAddr, g.Network)
		return server.Serve(sc.ListenAddr, sc.MaxConnections, state)
	},
}

var touchCmd = &cobra.Command{
	Use:   "touch",
	Short: "touch always fails with an error; controller ticks are issued via POST /touch on a running checkerd",
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("checkerd touch: not yet wired to a remote client (see server.Router's /touch)")
	},
}

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "genesis validates a genesis config file without starting the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := config.LoadGenesis(genesisPath)
		if err != nil {
			return err
		}
		ct.ChangeColor(ct.Green, true, ct.None, false)
		fmt.Printf("genesis OK: network=%s seed_coin=%d seed_kit=%d seed_liquidity=%d\n",
			g.Network, g.SeedCoin, g.SeedKit, g.SeedLiquidity)
		ct.ResetColor()
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverPath, "server-config", "", "server config file (defaults used if omitted)")
}
