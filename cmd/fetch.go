package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/takp-dkp/lootledger/internal/ledger"
	"github.com/takp-dkp/lootledger/internal/store"
)

var fetchOut string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Export the raid_loot table from Postgres to the ledger CSV",
	Long: `Fetches the full raid_loot table, row ids included, so an assignment run
starts from the authoritative store and its output can be pushed back as
updates rather than inserts. Requires store.database_url
(LOOTLEDGER_STORE_DATABASE_URL).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Store.DatabaseURL == "" {
			return eris.New("fetch: store.database_url is not configured")
		}

		st, err := store.NewLedgerStore(ctx, cfg.Store.DatabaseURL, cfg.Store.PushBatch, cfg.Store.PushRatePerS)
		if err != nil {
			return eris.Wrap(err, "fetch: connect")
		}
		defer st.Close()

		rows, err := st.FetchLedger(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch: fetch ledger")
		}

		outPath := fetchOut
		if outPath == "" {
			outPath = cfg.Ledger.Path
		}
		return ledger.WriteEvents(outPath, rows)
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "output ledger CSV path (default: ledger.path)")
	rootCmd.AddCommand(fetchCmd)
}
