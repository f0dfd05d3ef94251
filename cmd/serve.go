package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/feever-health/feever/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bill analysis HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		svc, err := env.newService()
		if err != nil {
			return err
		}

		srv := server.New(cfg.Server, svc, env.Store, cfg.Benchmark.SimilarityThreshold)
		return srv.Run(ctx, fmt.Sprintf(":%d", resolvePort(servePort, cfg.Server.Port)))
	},
}

// resolvePort prefers the flag, then config, then the default.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort > 0 {
		return flagPort
	}
	if cfgPort > 0 {
		return cfgPort
	}
	return 8080
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
