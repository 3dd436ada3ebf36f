// Package report folds final per-row decisions into the per-character
// assignment summary and serializes it.
package report

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/takp-dkp/lootledger/internal/model"
	"github.com/takp-dkp/lootledger/internal/roster"
)

// Owner returns a row's final owner after the run: the decision when the run
// changed the row, the row's prior assignment otherwise.
func Owner(row model.PurchaseEvent, d model.Decision) (id, name string) {
	if d.Changed {
		return d.OwnerID, d.OwnerName
	}
	return row.AssignedOwnerID, row.AssignedOwnerName
}

// Counts aggregates final assignments into one summary record per character,
// sorted by items assigned descending, character id ascending on ties.
func Counts(rows []model.PurchaseEvent, decisions []model.Decision, dir *roster.Directory) []model.OwnerCount {
	totals := map[string]int{}
	displayNames := map[string]string{}

	for i, row := range rows {
		var d model.Decision
		if i < len(decisions) {
			d = decisions[i]
		}
		id, name := Owner(row, d)
		if id == "" && name == "" {
			continue
		}
		if id == "" {
			id = name
		}
		totals[id]++
		if name != "" {
			displayNames[id] = name
		}
	}

	out := make([]model.OwnerCount, 0, len(totals))
	for id, n := range totals {
		name := displayNames[id]
		if name == "" && dir != nil {
			name = dir.DisplayName(id)
		}
		out = append(out, model.OwnerCount{CharacterID: id, CharacterName: name, ItemsAssigned: n})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemsAssigned != out[j].ItemsAssigned {
			return out[i].ItemsAssigned > out[j].ItemsAssigned
		}
		return lessID(out[i].CharacterID, out[j].CharacterID)
	})
	return out
}

// WriteCounts writes the summary CSV (char_id, character_name, items_assigned).
func WriteCounts(path string, counts []model.OwnerCount) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"char_id", "character_name", "items_assigned"}); err != nil {
		return eris.Wrap(err, "report: write header")
	}
	for _, c := range counts {
		rec := []string{c.CharacterID, c.CharacterName, strconv.Itoa(c.ItemsAssigned)}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "report: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "report: flush")
	}

	zap.L().Info("counts written", zap.String("path", path), zap.Int("characters", len(counts)))
	return nil
}

// lessID compares character ids numerically when possible so "9" sorts
// before "10".
func lessID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
