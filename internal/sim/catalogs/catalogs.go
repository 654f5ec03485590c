package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
)

type Catalogs struct {
	Blocks BlockCatalog
	Items  ItemCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID           string      `json:"id"`
	Hardness     float64     `json:"hardness"`
	HarvestLevel int         `json:"harvest_level,omitempty"`
	Liquid       bool        `json:"liquid,omitempty"`
	OreTags      []string    `json:"ore_tags,omitempty"`
	Drops        []ItemCount `json:"drops,omitempty"`
	// Machine names the machine kind a block of this id hosts.
	Machine string `json:"machine,omitempty"`
	// RangeBooster blocks stacked above a miner widen its range.
	RangeBooster bool `json:"range_booster,omitempty"`
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID         string         `json:"id"`
	MaxStack   int            `json:"max_stack,omitempty"`
	PlaceAs    string         `json:"place_as,omitempty"`
	Ingredient *IngredientDef `json:"ingredient,omitempty"`
}

// IngredientDef is the coffee flavor an item provides.
type IngredientDef struct {
	Effects      []EffectDef `json:"effects"`
	MaxAmplifier int         `json:"max_amplifier"`
}

type EffectDef struct {
	ID        string `json:"id"`
	Duration  int    `json:"duration"`
	Amplifier int    `json:"amplifier,omitempty"`
}

type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return eris.Wrap(err, "blocks.json")
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return eris.New("blocks.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return eris.Errorf("blocks.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
	}

	// Ensure AIR exists and is palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return eris.New("blocks.json: missing AIR")
	}
	ids := sortedIDs(out.Defs)
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)
	out.setPalette(ids)
	return nil
}

func (b *BlockCatalog) setPalette(ids []string) {
	b.Palette = ids
	b.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		b.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	b.PaletteDigest = sha256Hex(palJSON)
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return eris.Wrap(err, "items.json")
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return eris.New("items.json: empty id")
		}
		if d.MaxStack < 0 || d.MaxStack > 64 {
			return eris.Errorf("items.json: %s max_stack %d out of range", d.ID, d.MaxStack)
		}
		out.Defs[d.ID] = d
	}

	ids := sortedIDs(out.Defs)
	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

// check cross-references the two catalogs.
func (c *Catalogs) check() error {
	for _, id := range c.Blocks.Palette {
		for _, d := range c.Blocks.Defs[id].Drops {
			if _, ok := c.Items.Defs[d.Item]; !ok {
				return eris.Errorf("blocks.json: %s drops unknown item %s", id, d.Item)
			}
		}
	}
	for _, id := range c.Items.Palette {
		if p := c.Items.Defs[id].PlaceAs; p != "" {
			if _, ok := c.Blocks.Defs[p]; !ok {
				return eris.Errorf("items.json: %s places unknown block %s", id, p)
			}
		}
	}
	return nil
}

// MaxStack returns the stack limit for an item, 0 when unknown.
func (c *ItemCatalog) MaxStack(id string) int {
	return c.Defs[id].MaxStack
}

// Ingredient returns the coffee flavor of an item.
func (c *ItemCatalog) Ingredient(id string) (IngredientDef, bool) {
	d, ok := c.Defs[id]
	if !ok || d.Ingredient == nil {
		return IngredientDef{}, false
	}
	return *d.Ingredient, true
}

func sortedIDs[T any](defs map[string]T) []string {
	ids := make([]string, 0, len(defs))
	for id := range defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
