package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feever-health/feever/internal/store"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Manage the reference rate table",
}

var ratesMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the rate table schema and extensions",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := requireStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}
		zap.L().Info("rate table migrated")
		return nil
	},
}

var ratesLoadCmd = &cobra.Command{
	Use:   "load <seed.yaml>",
	Short: "Load reference rates from a YAML seed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := requireStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rates, err := store.LoadSeed(args[0])
		if err != nil {
			return err
		}

		n, err := st.LoadRates(cmd.Context(), rates)
		if err != nil {
			return err
		}
		zap.L().Info("rates loaded", zap.String("seed", args[0]), zap.Int64("count", n))
		return nil
	},
}

var ratesSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search the rate table for a line-item description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := requireStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		match, err := st.SearchRates(cmd.Context(), args[0], cfg.Benchmark.SimilarityThreshold)
		if err != nil {
			return err
		}
		if match == nil {
			cmd.Println("no match")
			return nil
		}

		encoded, err := json.MarshalIndent(match, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode match")
		}
		cmd.Println(string(encoded))
		return nil
	},
}

var ratesCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Report how many reference rates are loaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := requireStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.Count(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("%d\n", n)
		return nil
	},
}

func requireStore(cmd *cobra.Command) (store.RateStore, error) {
	st, err := openStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("rates: no rate store configured, set store.driver and store.database_url")
	}
	return st, nil
}

func init() {
	ratesCmd.AddCommand(ratesMigrateCmd, ratesLoadCmd, ratesSearchCmd, ratesCountCmd)
	rootCmd.AddCommand(ratesCmd)
}
