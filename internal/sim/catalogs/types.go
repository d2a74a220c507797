package catalogs

import "fmt"

// ItemType values are wire tags.
//
//	0: no item
//	1-49: harvested crops
//	51-99: seeds
//	101-149: structures
type ItemType uint8

const (
	ItemNone       ItemType = 0
	ItemCarrot     ItemType = 1
	ItemWheat      ItemType = 2
	ItemCarrotSeed ItemType = 51
	ItemWheatSeed  ItemType = 52
	ItemContainer  ItemType = 101
	ItemBarn       ItemType = 102
	ItemSprinkler  ItemType = 103
)

const (
	seedOffset      = 50
	structureOffset = 100
)

type CropType uint8

const (
	CropNone   CropType = 0
	CropCarrot CropType = 1
	CropWheat  CropType = 2
)

type StructureType uint8

const (
	StructureNone      StructureType = 0
	StructureContainer StructureType = 1
	StructureBarn      StructureType = 2
	StructureSprinkler StructureType = 3
)

type SoilType uint8

const (
	SoilStone SoilType = 0
	SoilDirt  SoilType = 1
	SoilSand  SoilType = 2
)

// SeedItem is the inventory item consumed when planting c.
func SeedItem(c CropType) ItemType { return ItemType(uint8(c) + seedOffset) }

// HarvestItem is the item produced by a fully grown crop.
func HarvestItem(c CropType) ItemType { return ItemType(c) }

// StructureItem is the inventory item a structure is built from.
func StructureItem(s StructureType) ItemType { return ItemType(uint8(s) + structureOffset) }

func (t ItemType) String() string {
	switch t {
	case ItemNone:
		return "NONE"
	case ItemCarrot:
		return "CARROT"
	case ItemWheat:
		return "WHEAT"
	case ItemCarrotSeed:
		return "CARROT_SEED"
	case ItemWheatSeed:
		return "WHEAT_SEED"
	case ItemContainer:
		return "CONTAINER"
	case ItemBarn:
		return "BARN"
	case ItemSprinkler:
		return "SPRINKLER"
	default:
		return fmt.Sprintf("ITEM_%d", uint8(t))
	}
}

func (c CropType) String() string {
	switch c {
	case CropNone:
		return "NONE"
	case CropCarrot:
		return "CARROT"
	case CropWheat:
		return "WHEAT"
	default:
		return fmt.Sprintf("CROP_%d", uint8(c))
	}
}

func (s StructureType) String() string {
	switch s {
	case StructureNone:
		return "NONE"
	case StructureContainer:
		return "CONTAINER"
	case StructureBarn:
		return "BARN"
	case StructureSprinkler:
		return "SPRINKLER"
	default:
		return fmt.Sprintf("STRUCTURE_%d", uint8(s))
	}
}
