package catalog

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Tables are the static keyword and class lookups consulted by
// classification. They ship with compiled-in defaults and can be overridden
// wholesale from a YAML file.
type Tables struct {
	// SlotKeywords maps a substring of a purchase name to an equipment slot.
	SlotKeywords map[string]string `yaml:"slot_keywords"`
	// MaterialKeywords maps a substring of a purchase name to an armor
	// material.
	MaterialKeywords map[string]string `yaml:"material_keywords"`
	// ClassMaterials maps a character class to the material its convertible
	// armor resolves to when the purchase name does not pin one.
	ClassMaterials map[string]string `yaml:"class_materials"`
}

// DefaultTables returns the built-in lookup tables.
func DefaultTables() Tables {
	return Tables{
		SlotKeywords: map[string]string{
			"helm":        "head",
			"cap":         "head",
			"coif":        "head",
			"boot":        "feet",
			"boots":       "feet",
			"sandals":     "feet",
			"gauntlets":   "hands",
			"gloves":      "hands",
			"bracer":      "wrists",
			"bracers":     "wrists",
			"vambraces":   "arms",
			"sleeves":     "arms",
			"arms":        "arms",
			"breastplate": "chest",
			"chestguard":  "chest",
			"tunic":       "chest",
			"robe":        "chest",
			"chest":       "chest",
			"greaves":     "legs",
			"leggings":    "legs",
			"legs":        "legs",
			"girdle":      "waist",
			"belt":        "waist",
			"gorget":      "neck",
		},
		MaterialKeywords: map[string]string{
			"plate":   "plate",
			"chain":   "chain",
			"leather": "leather",
			"silk":    "silk",
		},
		ClassMaterials: map[string]string{
			"war": "plate", "clr": "plate", "pal": "plate", "shd": "plate", "brd": "plate",
			"rog": "chain", "shm": "chain", "rng": "chain",
			"mnk": "leather", "bst": "leather", "dru": "leather",
			"nec": "silk", "mag": "silk", "wiz": "silk", "enc": "silk",
		},
	}
}

// LoadTables reads lookup tables from a YAML file, falling back to the
// defaults when path is empty or the file does not exist. Only non-empty
// sections override their default counterpart.
func LoadTables(path string) (Tables, error) {
	tables := DefaultTables()
	if path == "" {
		return tables, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Warn("catalog tables file missing, using defaults", zap.String("path", path))
			return tables, nil
		}
		return tables, eris.Wrapf(err, "catalog: read tables %s", path)
	}

	var override Tables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return tables, eris.Wrapf(err, "catalog: parse tables %s", path)
	}
	if len(override.SlotKeywords) > 0 {
		tables.SlotKeywords = override.SlotKeywords
	}
	if len(override.MaterialKeywords) > 0 {
		tables.MaterialKeywords = override.MaterialKeywords
	}
	if len(override.ClassMaterials) > 0 {
		tables.ClassMaterials = override.ClassMaterials
	}
	return tables, nil
}

// keywordsByLength returns the table's keys longest first so that, e.g.,
// "bracers" wins over "arms" when both occur in a name. Ties break
// lexicographically to keep classification deterministic.
func keywordsByLength(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
