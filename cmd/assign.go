package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/takp-dkp/lootledger/internal/report"
	"github.com/takp-dkp/lootledger/internal/store"
)

var (
	assignLedger    string
	assignOut       string
	assignCountsOut string
	assignRecompute bool
	assignDryRun    bool
	assignNoHistory bool
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign each ledger purchase to the character holding the item",
	Long: `Runs the loot-to-owner allocation pass over the purchase ledger.

By default the run is incremental: rows that already carry an assignment are
preserved and only undecided rows are computed. Human-confirmed rows are
never altered, in any mode.

Examples:
  # Incremental pass with configured paths
  lootledger assign

  # Recompute every machine-made assignment from scratch
  lootledger assign --recompute

  # Evaluate without writing anything
  lootledger assign --dry-run`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := buildEnv(runMode(assignRecompute), assignLedger)
		if err != nil {
			return eris.Wrap(err, "assign: build inputs")
		}

		decisions, stats := env.Engine.Run(env.Ledger.Rows)

		zap.L().Info("assign: run complete",
			zap.Int("rows", stats.RowsTotal),
			zap.Int("preserved", stats.Preserved),
			zap.Int("decided", stats.Decided),
			zap.Int("unassigned", stats.Unassigned),
			zap.Int("skipped", stats.Skipped),
		)

		if assignDryRun {
			return nil
		}

		env.Ledger.Apply(decisions)

		outPath := assignOut
		if outPath == "" {
			outPath = cfg.Ledger.OutPath
		}
		if err := env.Ledger.Write(outPath); err != nil {
			return eris.Wrap(err, "assign: write ledger")
		}

		countsPath := assignCountsOut
		if countsPath == "" {
			countsPath = cfg.Ledger.CountsPath
		}
		counts := report.Counts(env.Ledger.Rows, decisions, env.Directory)
		if err := report.WriteCounts(countsPath, counts); err != nil {
			return eris.Wrap(err, "assign: write counts")
		}

		if !assignNoHistory && cfg.Store.HistoryPath != "" {
			hist, err := store.NewHistory(cfg.Store.HistoryPath)
			if err != nil {
				zap.L().Error("assign: open run history", zap.Error(err))
				return nil // history is best-effort, the run itself succeeded
			}
			defer hist.Close() //nolint:errcheck
			if err := hist.Migrate(ctx); err != nil {
				zap.L().Error("assign: migrate run history", zap.Error(err))
				return nil
			}
			if _, err := hist.RecordRun(ctx, runMode(assignRecompute), outPath, stats); err != nil {
				zap.L().Error("assign: record run", zap.Error(err))
			}
		}

		return nil
	},
}

func init() {
	assignCmd.Flags().StringVar(&assignLedger, "ledger", "", "ledger CSV path (default from config)")
	assignCmd.Flags().StringVar(&assignOut, "out", "", "output ledger CSV path (default from config)")
	assignCmd.Flags().StringVar(&assignCountsOut, "counts-out", "", "output counts CSV path (default from config)")
	assignCmd.Flags().BoolVar(&assignRecompute, "recompute", false, "recompute machine-made assignments from scratch")
	assignCmd.Flags().BoolVar(&assignDryRun, "dry-run", false, "run the pass but write nothing")
	assignCmd.Flags().BoolVar(&assignNoHistory, "no-history", false, "skip recording the run in the history store")
	rootCmd.AddCommand(assignCmd)
}
