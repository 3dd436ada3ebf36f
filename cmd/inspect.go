package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/takp-dkp/lootledger/internal/model"
)

var (
	inspectLedger string
	inspectRow    int
	inspectItem   string
	inspectBuyer  string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Explain how one ledger row is decided",
	Long: `Replays the allocation pass for the account owning one purchase row and
prints the candidate pool, held and consumed counts, the classification rule,
and the decision. Nothing is written.

Select the row by index (--row) or by the first match of --item/--buyer.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := buildEnv(model.ModeRecompute, inspectLedger)
		if err != nil {
			return eris.Wrap(err, "inspect: build inputs")
		}

		target := inspectRow
		if target < 0 {
			target = findRow(env.Ledger.Rows, inspectItem, inspectBuyer)
			if target < 0 {
				return eris.Errorf("inspect: no row matches item %q buyer %q", inspectItem, inspectBuyer)
			}
		}

		exp, err := env.Engine.Explain(env.Ledger.Rows, target)
		if err != nil {
			return eris.Wrap(err, "inspect: explain")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(exp)
	},
}

// findRow locates the first row matching the item and/or buyer filters,
// case-insensitively.
func findRow(rows []model.PurchaseEvent, item, buyer string) int {
	item = strings.ToLower(strings.TrimSpace(item))
	buyer = strings.ToLower(strings.TrimSpace(buyer))
	if item == "" && buyer == "" {
		return -1
	}
	for i, row := range rows {
		if item != "" && !strings.Contains(strings.ToLower(row.ItemName), item) {
			continue
		}
		if buyer != "" && !strings.Contains(strings.ToLower(row.BuyerName), buyer) {
			continue
		}
		return i
	}
	return -1
}

func init() {
	inspectCmd.Flags().StringVar(&inspectLedger, "ledger", "", "ledger CSV path (default from config)")
	inspectCmd.Flags().IntVar(&inspectRow, "row", -1, "row index to inspect (0-based)")
	inspectCmd.Flags().StringVar(&inspectItem, "item", "", "find the first row whose item name contains this")
	inspectCmd.Flags().StringVar(&inspectBuyer, "buyer", "", "find the first row whose buyer name contains this")
	rootCmd.AddCommand(inspectCmd)
}
