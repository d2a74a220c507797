// Package protocol implements the binary command records exchanged between
// the server and its clients.
//
// Every record starts with a two byte header: the total record length
// (header included) followed by the kind tag. The payload layout is fixed per
// kind and all multi-byte fields are little-endian. A stream is a plain
// concatenation of records.
package protocol

import "fmt"

const Version = 1

// HeaderSize is the length of the {length, kind} prefix.
const HeaderSize = 2

type Kind uint8

// Tag ranges:
//
//	1: game tick
//	10-149: player actions (client -> server)
//	150-199: game commands (server -> client)
//	200-255: connection commands
const (
	KindTick Kind = 1

	KindPlantCrop            Kind = 10
	KindHarvestCrop          Kind = 11
	KindPlaceStructure       Kind = 20
	KindDestroyStructure     Kind = 21
	KindDropItem             Kind = 30
	KindPickupItem           Kind = 31
	KindUpdatePlayerLocation Kind = 40

	KindAddCrop                 Kind = 150
	KindRemoveCrop              Kind = 151
	KindAddStructure            Kind = 160
	KindRemoveStructure         Kind = 161
	KindAddItemToInventory      Kind = 170
	KindRemoveItemFromInventory Kind = 171
	KindSpawnItemDrop           Kind = 180
	KindRemoveItemDrop          Kind = 181

	KindSetPlayerID Kind = 200
)

var kindSizes = map[Kind]int{
	KindTick:                    6,
	KindPlantCrop:               6,
	KindHarvestCrop:             5,
	KindPlaceStructure:          6,
	KindDestroyStructure:        5,
	KindDropItem:                16,
	KindPickupItem:              11,
	KindUpdatePlayerLocation:    19,
	KindAddCrop:                 5,
	KindRemoveCrop:              4,
	KindAddStructure:            5,
	KindRemoveStructure:         4,
	KindAddItemToInventory:      8,
	KindRemoveItemFromInventory: 8,
	KindSpawnItemDrop:           15,
	KindRemoveItemDrop:          6,
	KindSetPlayerID:             3,
}

var kindNames = map[Kind]string{
	KindTick:                    "TICK",
	KindPlantCrop:               "PLANT_CROP",
	KindHarvestCrop:             "HARVEST_CROP",
	KindPlaceStructure:          "PLACE_STRUCTURE",
	KindDestroyStructure:        "DESTROY_STRUCTURE",
	KindDropItem:                "DROP_ITEM",
	KindPickupItem:              "PICKUP_ITEM",
	KindUpdatePlayerLocation:    "UPDATE_PLAYER_LOCATION",
	KindAddCrop:                 "ADD_CROP",
	KindRemoveCrop:              "REMOVE_CROP",
	KindAddStructure:            "ADD_STRUCTURE",
	KindRemoveStructure:         "REMOVE_STRUCTURE",
	KindAddItemToInventory:      "ADD_ITEM_TO_INVENTORY",
	KindRemoveItemFromInventory: "REMOVE_ITEM_FROM_INVENTORY",
	KindSpawnItemDrop:           "SPAWN_ITEM_DROP",
	KindRemoveItemDrop:          "REMOVE_ITEM_DROP",
	KindSetPlayerID:             "SET_PLAYER_ID",
}

// Size returns the fixed record size for k, header included.
func (k Kind) Size() (int, bool) {
	n, ok := kindSizes[k]
	return n, ok
}

func (k Kind) Known() bool {
	_, ok := kindSizes[k]
	return ok
}

func (k Kind) IsPlayerAction() bool { return k >= 10 && k < 150 }
func (k Kind) IsGameCommand() bool  { return k >= 150 && k < 200 }
func (k Kind) IsConnection() bool   { return k >= 200 }

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("KIND_%d", uint8(k))
}

// Kinds lists every known kind in tag order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindSizes))
	for i := 0; i < 256; i++ {
		if k := Kind(i); k.Known() {
			out = append(out, k)
		}
	}
	return out
}
