package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/takp-dkp/lootledger/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent assignment runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		hist, err := store.NewHistory(cfg.Store.HistoryPath)
		if err != nil {
			return eris.Wrap(err, "history: open store")
		}
		defer hist.Close() //nolint:errcheck
		if err := hist.Migrate(ctx); err != nil {
			return eris.Wrap(err, "history: migrate")
		}

		runs, err := hist.ListRuns(ctx, historyLimit)
		if err != nil {
			return eris.Wrap(err, "history: list runs")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "max runs to list")
	rootCmd.AddCommand(historyCmd)
}
