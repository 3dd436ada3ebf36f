package model

// Provenance classifies how a purchase row got its owner assignment.
type Provenance string

const (
	// ProvenanceNone marks a row with no assignment decision yet.
	ProvenanceNone Provenance = ""
	// ProvenanceInventory marks a machine-made assignment backed by the
	// inventory snapshot.
	ProvenanceInventory Provenance = "inventory_matched"
	// ProvenanceManual marks a human-confirmed assignment. Manual rows are
	// immutable: no run may alter them.
	ProvenanceManual Provenance = "manual"
)

// PurchaseEvent is one row of the raid-loot ledger.
type PurchaseEvent struct {
	// RowID is the persistent-store row id, round-tripped verbatim so the
	// output can be applied back as an UPDATE. Empty when the input had no
	// id column.
	RowID string `json:"id,omitempty"`

	RaidID  string `json:"raid_id"`
	EventID string `json:"event_id"`
	// OriginalIndex is the row's position in the input file. It exists only
	// to make sort order fully deterministic when raid/event identity ties.
	OriginalIndex int `json:"-"`

	ItemName  string  `json:"item_name"`
	BuyerID   string  `json:"buyer_id"`
	BuyerName string  `json:"buyer_name"`
	Cost      float64 `json:"cost"`

	AssignedOwnerID   string     `json:"assigned_owner_id,omitempty"`
	AssignedOwnerName string     `json:"assigned_owner_name,omitempty"`
	Provenance        Provenance `json:"assignment_provenance,omitempty"`
}

// Assigned reports whether the row already carries an owner decision.
func (p PurchaseEvent) Assigned() bool {
	return p.AssignedOwnerID != "" || p.AssignedOwnerName != ""
}

// Manual reports whether the row is human-confirmed and therefore immutable.
func (p PurchaseEvent) Manual() bool {
	return p.Provenance == ProvenanceManual
}
