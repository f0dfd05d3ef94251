package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feever-health/feever/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "feever",
	Short: "Medical bill analysis service",
	Long:  "Reads medical bill images via a hosted extraction workflow, flags duplicate charges and overpriced line items against a reference rate table, and drafts dispute emails.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
