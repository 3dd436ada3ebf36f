// Package roster builds the Ownership Directory: which account owns which
// characters, and how the ledger's character ids map onto the inventory
// snapshot's ids for the same physical characters.
package roster

import (
	"bufio"
	"encoding/csv"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/takp-dkp/lootledger/internal/model"
	"github.com/takp-dkp/lootledger/internal/names"
)

// Directory resolves characters to accounts and across id schemes. It is
// built once before the allocation pass and read-only afterwards.
type Directory struct {
	chars      map[string]*model.Character // ledger char id → character
	byNormName map[string]string           // normalized display name → ledger char id
	accounts   map[string][]string         // account id → member char ids (sorted)
	charToAcct map[string]string
}

// Paths locates the three directory source tables. SnapshotChars is the
// inventory-side character dump used to cross-reference the two id schemes.
type Paths struct {
	CharacterAccount string
	Characters       string
	SnapshotChars    string
}

// Load builds the directory. Missing source tables degrade to an emptier
// directory (every buyer then resolves to an unknown account) rather than
// failing the run.
func Load(p Paths) (*Directory, error) {
	log := zap.L().With(zap.String("component", "roster"))

	d := &Directory{
		chars:      map[string]*model.Character{},
		byNormName: map[string]string{},
		accounts:   map[string][]string{},
		charToAcct: map[string]string{},
	}

	if err := d.loadCharacters(p.Characters); err != nil {
		return nil, err
	}
	if err := d.loadCharacterAccounts(p.CharacterAccount); err != nil {
		return nil, err
	}
	if err := d.loadSnapshotChars(p.SnapshotChars); err != nil {
		return nil, err
	}

	for acct := range d.accounts {
		members := d.accounts[acct]
		sort.Slice(members, func(i, j int) bool {
			return idLess(members[i], members[j])
		})
	}

	log.Info("directory built",
		zap.Int("characters", len(d.chars)),
		zap.Int("accounts", len(d.accounts)),
	)
	return d, nil
}

// loadCharacters reads characters.csv (char_id, name, class).
func (d *Directory) loadCharacters(path string) error {
	records, colIdx, err := readCSV(path)
	if err != nil || records == nil {
		return err
	}
	for _, rec := range records {
		id := col(rec, colIdx, "char_id")
		name := col(rec, colIdx, "name")
		if id == "" || name == "" {
			continue
		}
		d.chars[id] = &model.Character{
			ID:    id,
			Name:  name,
			Class: strings.ToLower(col(rec, colIdx, "class")),
		}
		d.byNormName[names.Normalize(name)] = id
	}
	return nil
}

// loadCharacterAccounts reads character_account.csv (char_id, account_id).
func (d *Directory) loadCharacterAccounts(path string) error {
	records, colIdx, err := readCSV(path)
	if err != nil || records == nil {
		return err
	}
	for _, rec := range records {
		cid := col(rec, colIdx, "char_id")
		aid := col(rec, colIdx, "account_id")
		if cid == "" || aid == "" {
			continue
		}
		d.charToAcct[cid] = aid
		d.accounts[aid] = append(d.accounts[aid], cid)
		if c, ok := d.chars[cid]; ok {
			c.AccountID = aid
		} else {
			d.chars[cid] = &model.Character{ID: cid, AccountID: aid}
		}
	}
	return nil
}

// loadSnapshotChars reads the tab-separated snapshot character dump and joins
// it to the ledger roster by normalized display name. This is the only place
// the two id schemes meet.
func (d *Directory) loadSnapshotChars(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Warn("snapshot character dump missing, id cross-reference disabled", zap.String("path", path))
			return nil
		}
		return eris.Wrapf(err, "roster: open %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	nameIdx, idIdx := 0, 8 // dump layout: name first, id in the ninth column
	first := true
	matched := 0
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), "\t")
		if first {
			first = false
			if i, j, ok := headerColumns(parts); ok {
				nameIdx, idIdx = i, j
			}
			continue
		}
		if len(parts) <= idIdx || len(parts) <= nameIdx {
			continue
		}
		name := strings.TrimSpace(parts[nameIdx])
		invID := strings.TrimSpace(parts[idIdx])
		if name == "" || invID == "" {
			continue
		}
		if cid, ok := d.byNormName[names.Normalize(name)]; ok {
			d.chars[cid].InventoryID = invID
			matched++
		}
	}
	if err := scanner.Err(); err != nil {
		return eris.Wrapf(err, "roster: scan %s", path)
	}

	zap.L().Info("snapshot characters cross-referenced", zap.Int("matched", matched))
	return nil
}

// headerColumns looks for name/id columns in a snapshot dump header line.
func headerColumns(parts []string) (nameIdx, idIdx int, ok bool) {
	nameIdx, idIdx = -1, -1
	for i, p := range parts {
		switch names.Normalize(p) {
		case "name", "character_name":
			nameIdx = i
		case "id", "char_id", "character_id":
			idIdx = i
		}
	}
	if nameIdx >= 0 && idIdx >= 0 {
		return nameIdx, idIdx, true
	}
	return 0, 0, false
}

// ResolveBuyer maps a ledger buyer reference (id and/or display name) to a
// character id known to the directory. Falls back to the raw id when the
// directory never saw the character.
func (d *Directory) ResolveBuyer(buyerID, buyerName string) (string, bool) {
	if buyerID != "" {
		if _, ok := d.chars[buyerID]; ok {
			return buyerID, true
		}
	}
	if buyerName != "" {
		if cid, ok := d.byNormName[names.Normalize(buyerName)]; ok {
			return cid, true
		}
	}
	if buyerID != "" {
		return buyerID, false
	}
	return "", false
}

// AccountOf returns the account owning the character, or ok=false when the
// account is unknown, in which case the candidate pool is the buyer alone.
func (d *Directory) AccountOf(charID string) (string, bool) {
	aid, ok := d.charToAcct[charID]
	return aid, ok
}

// Members returns the sorted character ids on an account.
func (d *Directory) Members(accountID string) []string {
	return d.accounts[accountID]
}

// InventoryID translates a ledger character id into the snapshot id scheme,
// falling back to the same id when no cross-reference exists.
func (d *Directory) InventoryID(charID string) string {
	if c, ok := d.chars[charID]; ok && c.InventoryID != "" {
		return c.InventoryID
	}
	return charID
}

// Class returns the character's class (lowercased), empty when unknown.
func (d *Directory) Class(charID string) string {
	if c, ok := d.chars[charID]; ok {
		return c.Class
	}
	return ""
}

// DisplayName returns the character's display name, falling back to the id.
func (d *Directory) DisplayName(charID string) string {
	if c, ok := d.chars[charID]; ok && c.Name != "" {
		return c.Name
	}
	return charID
}

// idLess compares character ids numerically when both parse as integers so
// "9" sorts before "10". Member order feeds the engine's final tie-break, so
// it must agree with how ids are compared everywhere else.
func idLess(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// readCSV loads an optional CSV table; a missing file returns nil records.
func readCSV(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Warn("roster table missing", zap.String("path", path))
			return nil, nil, nil
		}
		return nil, nil, eris.Wrapf(err, "roster: open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrapf(err, "roster: read %s", path)
	}
	if len(all) < 2 {
		return nil, nil, nil
	}

	colIdx := make(map[string]int, len(all[0]))
	for i, c := range all[0] {
		colIdx[names.Normalize(c)] = i
	}
	return all[1:], colIdx, nil
}

// col gets a trimmed cell by normalized column name.
func col(rec []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[name]
	if !ok || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}
