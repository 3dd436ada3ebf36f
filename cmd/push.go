package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/takp-dkp/lootledger/internal/ledger"
	"github.com/takp-dkp/lootledger/internal/report"
	"github.com/takp-dkp/lootledger/internal/store"
)

var (
	pushLedger string
	pushCounts bool
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Apply ledger assignment columns back to Postgres by row id",
	Long: `Pushes assigned_owner_id, assigned_owner_name, and assignment_provenance
back to the raid_loot table in batches, updating rows by id so nothing is
duplicated. Rows without a positive integer id are skipped; rows that are
manual in the database are never overwritten.

With --counts, the per-character summary derived from the ledger also
replaces the character_loot_assignment_counts table.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Store.DatabaseURL == "" {
			return eris.New("push: store.database_url is not configured")
		}

		path := pushLedger
		if path == "" {
			path = cfg.Ledger.OutPath
		}
		led, err := ledger.Parse(path)
		if err != nil {
			return eris.Wrap(err, "push: parse ledger")
		}

		st, err := store.NewLedgerStore(ctx, cfg.Store.DatabaseURL, cfg.Store.PushBatch, cfg.Store.PushRatePerS)
		if err != nil {
			return eris.Wrap(err, "push: connect")
		}
		defer st.Close()

		updated, err := st.PushAssignments(ctx, led.Rows)
		if err != nil {
			return eris.Wrap(err, "push: push assignments")
		}

		zap.L().Info("push complete", zap.Int64("updated", updated), zap.Int("rows", len(led.Rows)))

		if pushCounts {
			counts := report.Counts(led.Rows, nil, nil)
			inserted, err := st.PushCounts(ctx, counts)
			if err != nil {
				return eris.Wrap(err, "push: push counts")
			}
			zap.L().Info("counts push complete", zap.Int64("inserted", inserted))
		}

		return nil
	},
}

func init() {
	pushCmd.Flags().StringVar(&pushLedger, "ledger", "", "ledger CSV to push (default: ledger.out_path)")
	pushCmd.Flags().BoolVar(&pushCounts, "counts", false, "also replace the per-character counts table")
	rootCmd.AddCommand(pushCmd)
}
