package model

// Character is one playable character from the roster.
type Character struct {
	ID        string `json:"char_id"`
	Name      string `json:"name"`
	Class     string `json:"class,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	// InventoryID is the character's id in the inventory-snapshot scheme,
	// which differs from the ledger scheme. Resolved once by display name
	// when the directory is built; empty when the snapshot never saw the
	// character.
	InventoryID string `json:"inventory_id,omitempty"`
}

// InventoryItem is one concrete item instance a character currently holds.
// Duplicate rows represent multiple copies.
type InventoryItem struct {
	CharacterID string `json:"character_id"`
	Slot        string `json:"slot,omitempty"`
	ItemID      string `json:"item_id"`
	ItemName    string `json:"item_name"`
}
