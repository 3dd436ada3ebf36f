package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takp-dkp/lootledger/internal/model"
)

func TestOwner(t *testing.T) {
	row := model.PurchaseEvent{AssignedOwnerID: "c1", AssignedOwnerName: "Aelith"}

	id, name := Owner(row, model.Decision{})
	assert.Equal(t, "c1", id)
	assert.Equal(t, "Aelith", name)

	id, name = Owner(row, model.Decision{OwnerID: "c2", OwnerName: "Bryn", Changed: true})
	assert.Equal(t, "c2", id)
	assert.Equal(t, "Bryn", name)

	// A changed decision with no owner cleared the assignment.
	id, name = Owner(row, model.Decision{Changed: true})
	assert.Empty(t, id)
	assert.Empty(t, name)
}

func TestCounts(t *testing.T) {
	rows := []model.PurchaseEvent{
		{ItemName: "Cloak of Embers", AssignedOwnerID: "c1", AssignedOwnerName: "Aelith"},
		{ItemName: "Staff of Sparks"},
		{ItemName: "Singed Scroll", AssignedOwnerID: "c2", AssignedOwnerName: "Bryn"},
		{ItemName: "Crown of Cinders"},
	}
	decisions := []model.Decision{
		{},
		{OwnerID: "c2", OwnerName: "Bryn", Provenance: model.ProvenanceInventory, Changed: true},
		{},
		{Skipped: true},
	}

	counts := Counts(rows, decisions, nil)
	require.Len(t, counts, 2)

	// Bryn has two items and sorts first; Aelith has one.
	assert.Equal(t, model.OwnerCount{CharacterID: "c2", CharacterName: "Bryn", ItemsAssigned: 2}, counts[0])
	assert.Equal(t, model.OwnerCount{CharacterID: "c1", CharacterName: "Aelith", ItemsAssigned: 1}, counts[1])
}

func TestCounts_NumericIDTieOrder(t *testing.T) {
	rows := []model.PurchaseEvent{
		{AssignedOwnerID: "10", AssignedOwnerName: "Tenth"},
		{AssignedOwnerID: "9", AssignedOwnerName: "Ninth"},
	}

	counts := Counts(rows, make([]model.Decision, 2), nil)
	require.Len(t, counts, 2)
	assert.Equal(t, "9", counts[0].CharacterID)
	assert.Equal(t, "10", counts[1].CharacterID)
}

func TestCounts_NameOnlyAssignment(t *testing.T) {
	rows := []model.PurchaseEvent{
		{AssignedOwnerName: "Aelith"},
		{AssignedOwnerName: "Aelith"},
	}

	counts := Counts(rows, make([]model.Decision, 2), nil)
	require.Len(t, counts, 1)
	assert.Equal(t, "Aelith", counts[0].CharacterID)
	assert.Equal(t, "Aelith", counts[0].CharacterName)
	assert.Equal(t, 2, counts[0].ItemsAssigned)
}

func TestWriteCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.csv")
	err := WriteCounts(path, []model.OwnerCount{
		{CharacterID: "c1", CharacterName: "Aelith", ItemsAssigned: 3},
		{CharacterID: "c2", CharacterName: "Bryn", ItemsAssigned: 1},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "char_id,character_name,items_assigned\nc1,Aelith,3\nc2,Bryn,1\n", string(data))
}
