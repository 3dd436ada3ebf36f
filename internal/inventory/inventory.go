// Package inventory indexes the point-in-time snapshot of which items each
// character holds. The snapshot is a mandatory input: without it no supply
// cap can be established and the engine must not run.
package inventory

import (
	"bufio"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/takp-dkp/lootledger/internal/model"
	"github.com/takp-dkp/lootledger/internal/names"
)

// Index maps each snapshot character id to the multiset of items it holds.
// Absent characters yield empty results, never errors.
type Index struct {
	items      map[string][]model.InventoryItem
	nameCounts map[string]map[string]int // char id → normalized item name → held count
}

// Load reads the tab-separated inventory snapshot
// (character_id, slot, item_id, item_name; one row per held instance).
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "inventory: open snapshot %s", path)
	}
	defer f.Close()

	idx := &Index{
		items:      map[string][]model.InventoryItem{},
		nameCounts: map[string]map[string]int{},
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	charIdx, slotIdx, idIdx, nameIdx := 0, 1, 2, 3
	first := true
	rows := 0
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), "\t")
		if first {
			first = false
			if c, s, i, n, ok := headerColumns(parts); ok {
				charIdx, slotIdx, idIdx, nameIdx = c, s, i, n
			}
			continue
		}
		if len(parts) <= nameIdx {
			continue
		}
		item := model.InventoryItem{
			CharacterID: strings.TrimSpace(parts[charIdx]),
			Slot:        strings.ToLower(strings.TrimSpace(parts[slotIdx])),
			ItemID:      strings.TrimSpace(parts[idIdx]),
			ItemName:    strings.TrimSpace(parts[nameIdx]),
		}
		if item.CharacterID == "" {
			continue
		}
		idx.add(item)
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "inventory: scan %s", path)
	}

	zap.L().Info("inventory snapshot loaded",
		zap.String("path", path),
		zap.Int("rows", rows),
		zap.Int("characters", len(idx.items)),
	)
	return idx, nil
}

func (x *Index) add(item model.InventoryItem) {
	x.items[item.CharacterID] = append(x.items[item.CharacterID], item)
	counts, ok := x.nameCounts[item.CharacterID]
	if !ok {
		counts = map[string]int{}
		x.nameCounts[item.CharacterID] = counts
	}
	counts[names.Normalize(item.ItemName)]++
}

// headerColumns detects named columns in a snapshot header line.
func headerColumns(parts []string) (charIdx, slotIdx, idIdx, nameIdx int, ok bool) {
	charIdx, slotIdx, idIdx, nameIdx = -1, -1, -1, -1
	for i, p := range parts {
		switch names.Normalize(p) {
		case "character_id", "char_id":
			charIdx = i
		case "slot":
			slotIdx = i
		case "item_id":
			idIdx = i
		case "item_name", "name":
			nameIdx = i
		}
	}
	if charIdx >= 0 && slotIdx >= 0 && idIdx >= 0 && nameIdx >= 0 {
		return charIdx, slotIdx, idIdx, nameIdx, true
	}
	return 0, 0, 0, 0, false
}

// Items returns the multiset of items a character holds.
func (x *Index) Items(charID string) []model.InventoryItem {
	return x.items[charID]
}

// CountByName returns how many copies of the item (by normalized name) the
// character holds.
func (x *Index) CountByName(charID, normName string) int {
	return x.nameCounts[charID][normName]
}

// CountWhere returns how many of the character's items satisfy the predicate.
func (x *Index) CountWhere(charID string, pred func(model.InventoryItem) bool) int {
	n := 0
	for _, item := range x.items[charID] {
		if pred(item) {
			n++
		}
	}
	return n
}

// Walk visits every item instance in the snapshot.
func (x *Index) Walk(fn func(model.InventoryItem)) {
	for _, list := range x.items {
		for _, item := range list {
			fn(item)
		}
	}
}
