package ledger

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/takp-dkp/lootledger/internal/model"
)

// Canonical assignment columns written back to the ledger.
const (
	colAssignedOwnerID   = "assigned_owner_id"
	colAssignedOwnerName = "assigned_owner_name"
	colProvenance        = "assignment_provenance"
)

// Ledger is a parsed purchase ledger. It keeps the raw CSV records alongside
// the decoded rows so that untouched rows (manual above all) round-trip
// byte-identical, and so an id column survives for UPDATE-by-id pushes.
type Ledger struct {
	header  []string
	records [][]string
	colIdx  map[string]int

	Rows []model.PurchaseEvent
}

// Parse reads the ledger CSV at path. The file must exist and carry at least
// raid_id and item_name columns; everything else is optional.
func Parse(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ledger: read csv")
	}
	if len(all) == 0 {
		return nil, eris.New("ledger: csv is empty")
	}

	header := all[0]
	colIdx := mapColumns(header)
	for _, col := range []string{"raid_id", "item_name"} {
		if _, ok := colIdx[col]; !ok {
			return nil, eris.Errorf("ledger: missing required column %q", col)
		}
	}

	l := &Ledger{
		header:  header,
		records: all[1:],
		colIdx:  colIdx,
	}

	l.Rows = make([]model.PurchaseEvent, len(l.records))
	for i, rec := range l.records {
		row := model.PurchaseEvent{
			RowID:             getCol(rec, colIdx, "id"),
			RaidID:            getCol(rec, colIdx, "raid_id"),
			EventID:           getCol(rec, colIdx, "event_id"),
			OriginalIndex:     i,
			ItemName:          getCol(rec, colIdx, "item_name"),
			BuyerID:           firstNonEmptyCol(rec, colIdx, "buyer_id", "char_id"),
			BuyerName:         firstNonEmptyCol(rec, colIdx, "buyer_name", "character_name"),
			Cost:              parseFloatOr(getCol(rec, colIdx, "cost"), 0),
			AssignedOwnerID:   firstNonEmptyCol(rec, colIdx, colAssignedOwnerID, "assigned_char_id"),
			AssignedOwnerName: firstNonEmptyCol(rec, colIdx, colAssignedOwnerName, "assigned_character_name"),
			Provenance:        parseProvenance(rec, colIdx),
		}
		// The manual_assignment column, when truthy, forces manual
		// provenance regardless of the provenance cell.
		if parseBoolFlag(getCol(rec, colIdx, "manual_assignment")) {
			row.Provenance = model.ProvenanceManual
		}
		l.Rows[i] = row
	}

	return l, nil
}

// parseProvenance reads the provenance cell, falling back to the legacy
// assigned_via_magelo flag from older exports.
func parseProvenance(rec []string, colIdx map[string]int) model.Provenance {
	switch getCol(rec, colIdx, colProvenance) {
	case string(model.ProvenanceManual):
		return model.ProvenanceManual
	case string(model.ProvenanceInventory):
		return model.ProvenanceInventory
	}
	if parseBoolFlag(getCol(rec, colIdx, "assigned_via_magelo")) {
		return model.ProvenanceInventory
	}
	return model.ProvenanceNone
}

// Apply writes changed decisions back into the raw records. Rows whose
// decision is not marked Changed are left untouched, cell for cell: the
// header may grow assignment columns, but only changed records are padded,
// so manual and preserved rows re-serialize exactly as they were read.
func (l *Ledger) Apply(decisions []model.Decision) {
	any := false
	for _, d := range decisions {
		if d.Changed {
			any = true
			break
		}
	}
	if !any {
		return
	}

	l.ensureColumn(colAssignedOwnerID)
	l.ensureColumn(colAssignedOwnerName)
	l.ensureColumn(colProvenance)

	for i, d := range decisions {
		if i >= len(l.records) || !d.Changed {
			continue
		}
		l.setCell(i, colAssignedOwnerID, d.OwnerID)
		l.setCell(i, colAssignedOwnerName, d.OwnerName)
		l.setCell(i, colProvenance, string(d.Provenance))

		// Keep legacy columns coherent when the input carried them.
		l.setCellIfPresent(i, "assigned_char_id", d.OwnerID)
		l.setCellIfPresent(i, "assigned_character_name", d.OwnerName)
		if _, ok := l.colIdx["assigned_via_magelo"]; ok {
			flag := "0"
			if d.Provenance == model.ProvenanceInventory {
				flag = "1"
			}
			l.setCell(i, "assigned_via_magelo", flag)
		}

		l.Rows[i].AssignedOwnerID = d.OwnerID
		l.Rows[i].AssignedOwnerName = d.OwnerName
		l.Rows[i].Provenance = d.Provenance
	}
}

// Write serializes the ledger, header first, to path.
func (l *Ledger) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "ledger: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(l.header); err != nil {
		return eris.Wrap(err, "ledger: write header")
	}
	for _, rec := range l.records {
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "ledger: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "ledger: flush")
	}

	zap.L().Info("ledger written", zap.String("path", path), zap.Int("rows", len(l.records)))
	return nil
}

// ensureColumn appends a column to the header when the input did not already
// carry it. Records are not padded here; setCell extends exactly the records
// that receive a value, leaving every other record byte-identical.
func (l *Ledger) ensureColumn(name string) {
	if _, ok := l.colIdx[name]; ok {
		return
	}
	l.header = append(l.header, name)
	l.colIdx[name] = len(l.header) - 1
}

func (l *Ledger) setCell(row int, col, val string) {
	idx, ok := l.colIdx[col]
	if !ok {
		return
	}
	rec := l.records[row]
	for len(rec) <= idx {
		rec = append(rec, "")
	}
	rec[idx] = val
	l.records[row] = rec
}

func (l *Ledger) setCellIfPresent(row int, col, val string) {
	if _, ok := l.colIdx[col]; ok {
		l.setCell(row, col, val)
	}
}
