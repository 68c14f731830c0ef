package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ItemCategory distinguishes how an item behaves when activated.
type ItemCategory int

const (
	CategoryGeneric   ItemCategory = 0
	CategoryUsable    ItemCategory = 1
	CategoryEquipment ItemCategory = 2
)

var categoryMap = map[string]ItemCategory{
	"":          CategoryGeneric,
	"generic":   CategoryGeneric,
	"usable":    CategoryUsable,
	"equipment": CategoryEquipment,
}

// ItemClass holds item template data loaded from YAML.
// Flat struct — fields that don't apply to a category are zero-valued.
type ItemClass struct {
	ItemID     int32
	Name       string
	Category   ItemCategory
	Weight     int32 // grams; never 0 after load
	Value      int32 // base trade value
	MaxPerSlot int32 // stack limit; equipment is always 1
	SpriteID   int32 // 0 = use ItemID as sprite

	// Script attached to the item's use/activation events.
	Engine string
	Script string
}

type itemYAML struct {
	ItemID     int32  `yaml:"item_id"`
	Name       string `yaml:"name"`
	Category   string `yaml:"category"`
	Weight     int32  `yaml:"weight"`
	Value      int32  `yaml:"value"`
	MaxPerSlot int32  `yaml:"max_per_slot"`
	SpriteID   int32  `yaml:"sprite_id"`
	Engine     string `yaml:"engine"`
	Script     string `yaml:"script"`
}

type itemListFile struct {
	Items []itemYAML `yaml:"items"`
}

// ItemTable holds all item classes indexed by ItemID.
type ItemTable struct {
	items map[int32]*ItemClass
}

// LoadItemTable loads item classes from a YAML file. Suspicious values are
// normalized rather than rejected: zero weight becomes 1 so carry math
// never divides by zero, and equipment is forced to one per slot.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item_list: %w", err)
	}
	var f itemListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse item_list: %w", err)
	}
	t := &ItemTable{items: make(map[int32]*ItemClass, len(f.Items))}
	for i := range f.Items {
		y := &f.Items[i]
		if y.ItemID <= 0 {
			return nil, fmt.Errorf("item_list entry %d: missing item_id", i)
		}
		cat, ok := categoryMap[y.Category]
		if !ok {
			return nil, fmt.Errorf("item %d: unknown category %q", y.ItemID, y.Category)
		}
		it := &ItemClass{
			ItemID:     y.ItemID,
			Name:       y.Name,
			Category:   cat,
			Weight:     y.Weight,
			Value:      y.Value,
			MaxPerSlot: y.MaxPerSlot,
			SpriteID:   y.SpriteID,
			Engine:     y.Engine,
			Script:     y.Script,
		}
		if it.Weight <= 0 {
			it.Weight = 1
		}
		if it.Category == CategoryEquipment {
			it.MaxPerSlot = 1
		} else if it.MaxPerSlot <= 0 {
			it.MaxPerSlot = 1
		}
		if it.SpriteID == 0 {
			it.SpriteID = it.ItemID
		}
		t.items[it.ItemID] = it
	}
	return t, nil
}

// Get returns an item class by ID, or nil if not found.
func (t *ItemTable) Get(itemID int32) *ItemClass {
	return t.items[itemID]
}

// Count returns the number of loaded item classes.
func (t *ItemTable) Count() int {
	return len(t.items)
}

// All iterates over every item class.
func (t *ItemTable) All(fn func(*ItemClass)) {
	for _, it := range t.items {
		fn(it)
	}
}
