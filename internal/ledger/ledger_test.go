package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takp-dkp/lootledger/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleLedger = `id,raid_id,event_id,item_name,buyer_id,buyer_name,cost,assigned_owner_id,assigned_owner_name,assignment_provenance
7,r1,e1,Cloak of Embers,c1,Aelith,25,,,
8,r1,e2,Elemental Boot Mold,c2,Bryn,abc,,,
9,r2,e1,Staff of Sparks,c1,Aelith,10,c1,Aelith,manual
`

func TestParse_Columns(t *testing.T) {
	path := writeFile(t, "loot.csv", sampleLedger)

	led, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, led.Rows, 3)

	first := led.Rows[0]
	assert.Equal(t, "7", first.RowID)
	assert.Equal(t, "r1", first.RaidID)
	assert.Equal(t, "e1", first.EventID)
	assert.Equal(t, "Cloak of Embers", first.ItemName)
	assert.Equal(t, "c1", first.BuyerID)
	assert.Equal(t, "Aelith", first.BuyerName)
	assert.Equal(t, 25.0, first.Cost)
	assert.Equal(t, 0, first.OriginalIndex)
	assert.False(t, first.Manual())
}

func TestParse_MalformedCostIsZero(t *testing.T) {
	path := writeFile(t, "loot.csv", sampleLedger)

	led, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, led.Rows[1].Cost)
}

func TestParse_ManualProvenance(t *testing.T) {
	path := writeFile(t, "loot.csv", sampleLedger)

	led, err := Parse(path)
	require.NoError(t, err)
	assert.True(t, led.Rows[2].Manual())
	assert.Equal(t, model.ProvenanceManual, led.Rows[2].Provenance)
}

func TestParse_ManualFlagColumnForcesManual(t *testing.T) {
	csv := `raid_id,event_id,item_name,buyer_id,cost,assigned_owner_id,assignment_provenance,manual_assignment
r1,e1,Cloak of Embers,c1,10,c1,inventory_matched,true
`
	led, err := Parse(writeFile(t, "loot.csv", csv))
	require.NoError(t, err)
	assert.Equal(t, model.ProvenanceManual, led.Rows[0].Provenance)
}

func TestParse_LegacyColumnNames(t *testing.T) {
	csv := `raid_id,event_id,item_name,char_id,character_name,cost,assigned_char_id,assigned_character_name,assigned_via_magelo
r1,e1,Cloak of Embers,c1,Aelith,10,c2,Bryn,1
`
	led, err := Parse(writeFile(t, "loot.csv", csv))
	require.NoError(t, err)

	row := led.Rows[0]
	assert.Equal(t, "c1", row.BuyerID)
	assert.Equal(t, "Aelith", row.BuyerName)
	assert.Equal(t, "c2", row.AssignedOwnerID)
	assert.Equal(t, "Bryn", row.AssignedOwnerName)
	assert.Equal(t, model.ProvenanceInventory, row.Provenance)
}

func TestParse_MissingRequiredColumn(t *testing.T) {
	_, err := Parse(writeFile(t, "loot.csv", "event_id,buyer_id\ne1,c1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}

func TestParse_MissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestApplyWrite_RoundTrip(t *testing.T) {
	path := writeFile(t, "loot.csv", sampleLedger)
	led, err := Parse(path)
	require.NoError(t, err)

	decisions := make([]model.Decision, 3)
	decisions[0] = model.Decision{
		OwnerID:    "c2",
		OwnerName:  "Bryn",
		Provenance: model.ProvenanceInventory,
		Changed:    true,
	}
	led.Apply(decisions)

	out := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, led.Write(out))

	reparsed, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, reparsed.Rows, 3)

	assert.Equal(t, "c2", reparsed.Rows[0].AssignedOwnerID)
	assert.Equal(t, "Bryn", reparsed.Rows[0].AssignedOwnerName)
	assert.Equal(t, model.ProvenanceInventory, reparsed.Rows[0].Provenance)
	// The id column survives so the output can be pushed back as updates.
	assert.Equal(t, "7", reparsed.Rows[0].RowID)
}

func TestApplyWrite_UntouchedRowsAreByteIdentical(t *testing.T) {
	path := writeFile(t, "loot.csv", sampleLedger)
	led, err := Parse(path)
	require.NoError(t, err)

	// No decisions changed anything.
	led.Apply(make([]model.Decision, 3))

	out := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, led.Write(out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, sampleLedger, string(got))
}

func TestApply_AddsAssignmentColumnsWhenAbsent(t *testing.T) {
	csv := `raid_id,event_id,item_name,buyer_id,cost
r1,e1,Cloak of Embers,c1,10
`
	led, err := Parse(writeFile(t, "loot.csv", csv))
	require.NoError(t, err)

	led.Apply([]model.Decision{{
		OwnerID:    "c1",
		OwnerName:  "Aelith",
		Provenance: model.ProvenanceInventory,
		Changed:    true,
	}})

	out := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, led.Write(out))

	reparsed, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "c1", reparsed.Rows[0].AssignedOwnerID)
	assert.Equal(t, model.ProvenanceInventory, reparsed.Rows[0].Provenance)
}

func TestApply_ColumnlessInputKeepsManualRowsByteIdentical(t *testing.T) {
	// A legacy export with no assignment columns at all. When another row is
	// decided, the header grows, but the manual row's record must serialize
	// exactly as it was read.
	csv := `raid_id,event_id,item_name,buyer_id,cost,manual_assignment
r1,e1,Cloak of Embers,c1,10,
r1,e2,Staff of Sparks,c2,25,true
`
	led, err := Parse(writeFile(t, "loot.csv", csv))
	require.NoError(t, err)

	led.Apply([]model.Decision{
		{OwnerID: "c1", OwnerName: "Aelith", Provenance: model.ProvenanceInventory, Changed: true},
		{},
	})

	out := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, led.Write(out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)

	lines := strings.Split(string(got), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t,
		"raid_id,event_id,item_name,buyer_id,cost,manual_assignment,assigned_owner_id,assigned_owner_name,assignment_provenance",
		lines[0])
	assert.Equal(t, "r1,e1,Cloak of Embers,c1,10,,c1,Aelith,inventory_matched", lines[1])
	assert.Equal(t, "r1,e2,Staff of Sparks,c2,25,true", lines[2])
}

func TestApply_NoChangesWritesInputVerbatim(t *testing.T) {
	csv := `raid_id,event_id,item_name,buyer_id,cost
r1,e1,Cloak of Embers,c1,10
`
	led, err := Parse(writeFile(t, "loot.csv", csv))
	require.NoError(t, err)

	// Nothing changed: the header must not grow assignment columns.
	led.Apply(make([]model.Decision, 1))

	out := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, led.Write(out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, csv, string(got))
}

func TestLoadRaidDates(t *testing.T) {
	csv := `raid_id,date_iso
r1,2024-01-05
r2,2024-02-10
`
	dates, err := LoadRaidDates(writeFile(t, "raids.csv", csv))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", dates["r1"])
	assert.Equal(t, "2024-02-10", dates["r2"])
}

func TestLoadRaidDates_MissingFileIsEmpty(t *testing.T) {
	dates, err := LoadRaidDates(filepath.Join(t.TempDir(), "raids.csv"))
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestWriteEvents(t *testing.T) {
	rows := []model.PurchaseEvent{
		{RowID: "1", RaidID: "r1", EventID: "e1", ItemName: "Cloak of Embers", BuyerID: "c1", BuyerName: "Aelith", Cost: 12.5},
		{RowID: "2", RaidID: "r1", EventID: "e2", ItemName: "Staff of Sparks", BuyerID: "c2", BuyerName: "Bryn", Cost: 0,
			AssignedOwnerID: "c2", AssignedOwnerName: "Bryn", Provenance: model.ProvenanceInventory},
	}

	out := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, WriteEvents(out, rows))

	led, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, led.Rows, 2)
	assert.Equal(t, "1", led.Rows[0].RowID)
	assert.Equal(t, 12.5, led.Rows[0].Cost)
	assert.Equal(t, model.ProvenanceInventory, led.Rows[1].Provenance)
}
