package model

// RunMode selects how the engine treats rows that already carry a
// machine-made assignment.
type RunMode string

const (
	// ModeIncremental decides only previously-undecided rows; prior
	// machine assignments are preserved and folded into running state.
	ModeIncremental RunMode = "incremental"
	// ModeRecompute re-decides every non-manual row from scratch.
	ModeRecompute RunMode = "recompute"
)

// Decision is the engine's verdict for one ledger row, indexed by the row's
// OriginalIndex.
type Decision struct {
	OwnerID    string     `json:"owner_id,omitempty"`
	OwnerName  string     `json:"owner_name,omitempty"`
	Provenance Provenance `json:"provenance,omitempty"`
	// Changed is true only when this run altered the row; untouched rows
	// (manual, preserved, skipped) must be re-serialized byte-identical.
	Changed bool `json:"changed,omitempty"`
	// Skipped is true when the row was malformed and left exactly as
	// received.
	Skipped bool `json:"skipped,omitempty"`
}

// OwnerCount is one line of the per-character assignment summary.
type OwnerCount struct {
	CharacterID   string `json:"char_id"`
	CharacterName string `json:"character_name"`
	ItemsAssigned int    `json:"items_assigned"`
}

// RunStats summarizes one engine run.
type RunStats struct {
	RowsTotal  int `json:"rows_total"`
	Preserved  int `json:"rows_preserved"`
	Decided    int `json:"rows_decided"`
	Unassigned int `json:"rows_unassigned"`
	Skipped    int `json:"rows_skipped"`
}
