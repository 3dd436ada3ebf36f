// Package catalog resolves which purchase names are convertible tokens (a
// mold or pattern redeemed for class-specific gear) and how each one matches
// against a character's inventory.
package catalog

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/takp-dkp/lootledger/internal/inventory"
	"github.com/takp-dkp/lootledger/internal/model"
	"github.com/takp-dkp/lootledger/internal/names"
)

// MatchKind selects how a classified purchase matches inventory.
type MatchKind int

const (
	// MatchExact compares normalized item names.
	MatchExact MatchKind = iota
	// MatchIdentity maps the candidate's class to one concrete item id.
	MatchIdentity
	// MatchFamily matches any convertible-family item satisfying the
	// rule's slot/material requirement.
	MatchFamily
)

// String names the match kind for logs and the inspect command.
func (k MatchKind) String() string {
	switch k {
	case MatchIdentity:
		return "class_identity"
	case MatchFamily:
		return "slot_material"
	default:
		return "exact_name"
	}
}

// Rule is the outcome of classifying one purchase name.
type Rule struct {
	Kind MatchKind
	// Key is the normalized purchase name; it is also the consumed-counter
	// key for supply caps.
	Key string
	// IDByClass maps class → concrete item id (MatchIdentity only).
	IDByClass map[string]string
	// Slot and Material constrain family matching; either may be empty, in
	// which case the constraint is absent. An empty Material defers to the
	// candidate's class at match time.
	Slot     string
	Material string
}

// familyItem describes one wearable belonging to a convertible family.
type familyItem struct {
	Slot     string `json:"slot"`
	Material string `json:"material"`
	Class    string `json:"class,omitempty"`
}

// catalogFile is the on-disk JSON shape of the convertible-item reference.
type catalogFile struct {
	// Purchases maps an explicit purchase name to its per-class concrete
	// item ids plus its slot/material, for identity-based conversions.
	Purchases map[string]struct {
		Slot         string            `json:"slot,omitempty"`
		Material     string            `json:"material,omitempty"`
		ItemsByClass map[string]string `json:"item_ids_by_class"`
	} `json:"purchases"`
	// FamilyItems maps wearable item id → its place in the family.
	FamilyItems map[string]familyItem `json:"family_items"`
}

// Catalog holds the loaded convertible-item reference data. A zero catalog
// (nothing loaded) degrades every classification to exact-name matching.
type Catalog struct {
	identity  map[string]Rule       // normalized purchase name → identity rule
	family    map[string]familyItem // wearable item id → family info
	convNames map[string]bool       // normalized names that classify as convertible
	overrides []string              // configured extra convertible purchase names
	tables    Tables

	slotKeys     []string
	materialKeys []string
}

// Load reads the catalog JSON and lookup tables. Both files are optional
// reference data: a missing catalog is reported and matching degrades to
// exact names, never fails.
func Load(path, tablesPath string, extraConvertible []string) (*Catalog, error) {
	log := zap.L().With(zap.String("component", "catalog"))

	tables, err := LoadTables(tablesPath)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		identity:     map[string]Rule{},
		family:       map[string]familyItem{},
		convNames:    map[string]bool{},
		overrides:    extraConvertible,
		tables:       tables,
		slotKeys:     keywordsByLength(tables.SlotKeywords),
		materialKeys: keywordsByLength(tables.MaterialKeywords),
	}
	for _, name := range extraConvertible {
		if n := names.Normalize(name); n != "" {
			c.convNames[n] = true
		}
	}

	if path == "" {
		log.Warn("no convertible-item catalog configured, exact-name matching only")
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("convertible-item catalog missing, exact-name matching only", zap.String("path", path))
			return c, nil
		}
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "catalog: parse %s", path)
	}

	for name, p := range file.Purchases {
		key := names.Normalize(name)
		if key == "" || len(p.ItemsByClass) == 0 {
			continue
		}
		byClass := make(map[string]string, len(p.ItemsByClass))
		for class, id := range p.ItemsByClass {
			byClass[strings.ToLower(class)] = id
		}
		c.identity[key] = Rule{
			Kind:      MatchIdentity,
			Key:       key,
			IDByClass: byClass,
			Slot:      strings.ToLower(p.Slot),
			Material:  strings.ToLower(p.Material),
		}
	}
	for id, item := range file.FamilyItems {
		item.Slot = strings.ToLower(item.Slot)
		item.Material = strings.ToLower(item.Material)
		item.Class = strings.ToLower(item.Class)
		c.family[id] = item
	}

	log.Info("convertible-item catalog loaded",
		zap.Int("identity_rules", len(c.identity)),
		zap.Int("family_items", len(c.family)),
	)
	return c, nil
}

// BindInventory completes the convertible-name set by scanning the snapshot
// for items whose id belongs to the family. Must run once before Classify.
func (c *Catalog) BindInventory(x *inventory.Index) {
	if len(c.family) == 0 {
		return
	}
	added := 0
	x.Walk(func(item model.InventoryItem) {
		if _, ok := c.family[item.ItemID]; !ok {
			return
		}
		n := names.Normalize(item.ItemName)
		if n != "" && !c.convNames[n] {
			c.convNames[n] = true
			added++
		}
	})
	zap.L().Debug("convertible names scanned from inventory", zap.Int("added", added))
}

// Classify decides how the purchase name matches inventory, in the fixed
// order: explicit per-class identity, convertible family, exact name.
func (c *Catalog) Classify(purchaseName string) Rule {
	key := names.Normalize(purchaseName)
	if rule, ok := c.identity[key]; ok {
		return rule
	}
	if c.convNames[key] && len(c.family) > 0 {
		slot, material := c.parseKeywords(key)
		if slot == "" && material == "" {
			// Permissive on purpose: a family name with no recognizable
			// keyword matches any family instance for the candidate's
			// class.
			zap.L().Debug("convertible name without slot or material keyword", zap.String("name", purchaseName))
		}
		return Rule{Kind: MatchFamily, Key: key, Slot: slot, Material: material}
	}
	return Rule{Kind: MatchExact, Key: key}
}

// parseKeywords extracts a slot and material from a normalized name. Longer
// keywords win so compound terms are not shadowed by their substrings.
func (c *Catalog) parseKeywords(normName string) (slot, material string) {
	for _, kw := range c.slotKeys {
		if strings.Contains(normName, kw) {
			slot = c.tables.SlotKeywords[kw]
			break
		}
	}
	for _, kw := range c.materialKeys {
		if strings.Contains(normName, kw) {
			material = c.tables.MaterialKeywords[kw]
			break
		}
	}
	return slot, material
}

// HeldCount evaluates how many inventory instances on the candidate satisfy
// the rule. class is the candidate's class; invID is the candidate's id in
// the snapshot scheme.
func (c *Catalog) HeldCount(x *inventory.Index, invID, class string, rule Rule) int {
	switch rule.Kind {
	case MatchIdentity:
		id := rule.IDByClass[class]
		if id == "" {
			return 0
		}
		return x.CountWhere(invID, func(item model.InventoryItem) bool {
			return item.ItemID == id
		})
	case MatchFamily:
		material := rule.Material
		if material == "" {
			material = c.tables.ClassMaterials[class]
		}
		return x.CountWhere(invID, func(item model.InventoryItem) bool {
			info, ok := c.family[item.ItemID]
			if !ok {
				return false
			}
			if rule.Slot != "" && info.Slot != rule.Slot {
				return false
			}
			if material != "" && info.Material != material {
				return false
			}
			return true
		})
	default:
		return x.CountByName(invID, rule.Key)
	}
}

// Degraded reports whether the catalog is running without family data.
func (c *Catalog) Degraded() bool {
	return len(c.family) == 0 && len(c.identity) == 0
}
