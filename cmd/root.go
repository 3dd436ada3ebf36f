package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/takp-dkp/lootledger/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lootledger",
	Short: "Raid-loot ownership reconciliation",
	Long:  "Reconciles the raid purchase ledger against a character inventory snapshot, attributing each purchase to the account member who actually received the item.",
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
