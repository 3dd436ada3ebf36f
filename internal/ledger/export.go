package ledger

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/takp-dkp/lootledger/internal/model"
)

// exportHeader is the canonical column set for ledgers exported from the
// persistent store. The id column comes first so pushes can update by id.
var exportHeader = []string{
	"id", "raid_id", "event_id", "item_name", "buyer_id", "buyer_name", "cost",
	colAssignedOwnerID, colAssignedOwnerName, colProvenance,
}

// WriteEvents serializes rows fetched from the persistent store to a fresh
// ledger CSV.
func WriteEvents(path string, rows []model.PurchaseEvent) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "ledger: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		return eris.Wrap(err, "ledger: write header")
	}
	for _, row := range rows {
		rec := []string{
			row.RowID,
			row.RaidID,
			row.EventID,
			row.ItemName,
			row.BuyerID,
			row.BuyerName,
			strconv.FormatFloat(row.Cost, 'f', -1, 64),
			row.AssignedOwnerID,
			row.AssignedOwnerName,
			string(row.Provenance),
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "ledger: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "ledger: flush")
	}

	zap.L().Info("ledger exported", zap.String("path", path), zap.Int("rows", len(rows)))
	return nil
}
