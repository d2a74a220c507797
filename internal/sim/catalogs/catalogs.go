package catalogs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

//go:embed default_catalog.json
var defaultCatalog []byte

type Catalogs struct {
	Items      map[ItemType]ItemDef
	Crops      map[CropType]CropDef
	Structures map[StructureType]StructureDef

	Digest string
}

type ItemDef struct {
	ID     string   `json:"id"`
	Type   ItemType `json:"type"`
	Volume int      `json:"volume"`
}

type CropDef struct {
	ID   string   `json:"id"`
	Type CropType `json:"type"`
}

type StructureDef struct {
	ID     string        `json:"id"`
	Type   StructureType `json:"type"`
	Height uint8         `json:"height"`
	Width  uint8         `json:"width"`
}

type catalogFile struct {
	Items      []ItemDef      `json:"items"`
	Crops      []CropDef      `json:"crops"`
	Structures []StructureDef `json:"structures"`
}

// Default returns the catalog compiled into the binary.
func Default() *Catalogs {
	c, err := parse(defaultCatalog, "default_catalog.json")
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a catalog.json file. An empty path yields Default().
func Load(path string) (*Catalogs, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(raw, path)
}

func parse(raw []byte, name string) (*Catalogs, error) {
	var f catalogFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	c := &Catalogs{
		Items:      make(map[ItemType]ItemDef, len(f.Items)),
		Crops:      make(map[CropType]CropDef, len(f.Crops)),
		Structures: make(map[StructureType]StructureDef, len(f.Structures)),
		Digest:     sha256Hex(raw),
	}
	for _, d := range f.Items {
		if d.Type == ItemNone {
			return nil, fmt.Errorf("%s: item %q uses reserved type 0", name, d.ID)
		}
		if _, dup := c.Items[d.Type]; dup {
			return nil, fmt.Errorf("%s: duplicate item type %d", name, d.Type)
		}
		if d.Volume < 0 {
			return nil, fmt.Errorf("%s: item %q has negative volume", name, d.ID)
		}
		c.Items[d.Type] = d
	}
	for _, d := range f.Crops {
		if d.Type == CropNone {
			return nil, fmt.Errorf("%s: crop %q uses reserved type 0", name, d.ID)
		}
		if _, dup := c.Crops[d.Type]; dup {
			return nil, fmt.Errorf("%s: duplicate crop type %d", name, d.Type)
		}
		for _, it := range []ItemType{SeedItem(d.Type), HarvestItem(d.Type)} {
			if _, ok := c.Items[it]; !ok {
				return nil, fmt.Errorf("%s: crop %q needs item %s", name, d.ID, it)
			}
		}
		c.Crops[d.Type] = d
	}
	for _, d := range f.Structures {
		if d.Type == StructureNone {
			return nil, fmt.Errorf("%s: structure %q uses reserved type 0", name, d.ID)
		}
		if _, dup := c.Structures[d.Type]; dup {
			return nil, fmt.Errorf("%s: duplicate structure type %d", name, d.Type)
		}
		if d.Height == 0 || d.Width == 0 {
			return nil, fmt.Errorf("%s: structure %q has empty footprint", name, d.ID)
		}
		c.Structures[d.Type] = d
	}
	return c, nil
}

// UnitVolume reports the inventory volume one unit of t occupies.
func (c *Catalogs) UnitVolume(t ItemType) (int, bool) {
	d, ok := c.Items[t]
	return d.Volume, ok
}

func (c *Catalogs) Footprint(t StructureType) (height, width uint8, ok bool) {
	d, ok := c.Structures[t]
	return d.Height, d.Width, ok
}

// ItemTypes returns known item types in ascending order.
func (c *Catalogs) ItemTypes() []ItemType {
	out := make([]ItemType, 0, len(c.Items))
	for t := range c.Items {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ItemByID resolves a catalog id such as "CARROT_SEED".
func (c *Catalogs) ItemByID(id string) (ItemType, bool) {
	for t, d := range c.Items {
		if d.ID == id {
			return t, true
		}
	}
	return ItemNone, false
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
