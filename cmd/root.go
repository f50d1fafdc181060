package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lawfinder-au/collector-cli/internal/config"
	"github.com/lawfinder-au/collector-cli/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "collector-cli",
	Short: "Lawyer directory collection pipeline",
	Long:  "Searches Google Places for medical negligence firms, enriches them from their websites, generates profile copy, and imports the results into the directory database.",
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

// openStore connects to the configured destination database.
func openStore(cmd *cobra.Command) (store.Store, error) {
	poolCfg := &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	}
	return store.Open(cmd.Context(), cfg.Store.Driver, cfg.Store.DatabaseURL, poolCfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
