package ledger

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LoadRaidDates reads raids.csv (raid_id, date_iso) into a lookup map used to
// order purchases chronologically. A missing file is not fatal: rows then
// sort by raid id alone, which is still deterministic.
func LoadRaidDates(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Warn("raids file missing, ordering by raid id only", zap.String("path", path))
			return map[string]string{}, nil
		}
		return nil, eris.Wrapf(err, "ledger: open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ledger: read raids csv")
	}
	if len(all) == 0 {
		return map[string]string{}, nil
	}

	colIdx := mapColumns(all[0])
	dates := make(map[string]string, len(all)-1)
	for _, rec := range all[1:] {
		rid := getCol(rec, colIdx, "raid_id")
		if rid == "" {
			continue
		}
		dates[rid] = getCol(rec, colIdx, "date_iso")
	}
	return dates, nil
}
