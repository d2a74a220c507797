package protocol

import "farmdustry.io/internal/sim/catalogs"

// Command is one decoded record. The set of implementations is closed; use a
// type switch to inspect payloads.
type Command interface {
	Kind() Kind
	putPayload(p []byte)
}

type Tick struct {
	DeltaTime float32
}

// Player actions.

type PlantCrop struct {
	PlayerID uint8
	Y, X     uint8
	Crop     catalogs.CropType
}

type HarvestCrop struct {
	PlayerID uint8
	Y, X     uint8
}

type PlaceStructure struct {
	PlayerID  uint8
	Y, X      uint8
	Structure catalogs.StructureType
}

type DestroyStructure struct {
	PlayerID uint8
	Y, X     uint8
}

type DropItem struct {
	PlayerID uint8
	Y, X     float32
	Item     catalogs.ItemType
	Amount   int32
}

type PickupItem struct {
	PlayerID uint8
	Y, X     float32
}

type UpdatePlayerLocation struct {
	PlayerID  uint8
	Y, X      float32
	YVelocity float32
	XVelocity float32
}

// Game commands.

type AddCrop struct {
	Y, X uint8
	Crop catalogs.CropType
}

type RemoveCrop struct {
	Y, X uint8
}

type AddStructure struct {
	Y, X      uint8
	Structure catalogs.StructureType
}

type RemoveStructure struct {
	Y, X uint8
}

type AddItemToInventory struct {
	PlayerID uint8
	Item     catalogs.ItemType
	Amount   int32
}

type RemoveItemFromInventory struct {
	PlayerID uint8
	Item     catalogs.ItemType
	Amount   int32
}

type SpawnItemDrop struct {
	Y, X   float32
	Item   catalogs.ItemType
	Amount int32
}

type RemoveItemDrop struct {
	DropID int32
}

// Connection commands.

type SetPlayerID struct {
	PlayerID uint8
}

func (Tick) Kind() Kind                    { return KindTick }
func (PlantCrop) Kind() Kind               { return KindPlantCrop }
func (HarvestCrop) Kind() Kind             { return KindHarvestCrop }
func (PlaceStructure) Kind() Kind          { return KindPlaceStructure }
func (DestroyStructure) Kind() Kind        { return KindDestroyStructure }
func (DropItem) Kind() Kind                { return KindDropItem }
func (PickupItem) Kind() Kind              { return KindPickupItem }
func (UpdatePlayerLocation) Kind() Kind    { return KindUpdatePlayerLocation }
func (AddCrop) Kind() Kind                 { return KindAddCrop }
func (RemoveCrop) Kind() Kind              { return KindRemoveCrop }
func (AddStructure) Kind() Kind            { return KindAddStructure }
func (RemoveStructure) Kind() Kind         { return KindRemoveStructure }
func (AddItemToInventory) Kind() Kind      { return KindAddItemToInventory }
func (RemoveItemFromInventory) Kind() Kind { return KindRemoveItemFromInventory }
func (SpawnItemDrop) Kind() Kind           { return KindSpawnItemDrop }
func (RemoveItemDrop) Kind() Kind          { return KindRemoveItemDrop }
func (SetPlayerID) Kind() Kind             { return KindSetPlayerID }

func (c Tick) putPayload(p []byte) { putF32(p[0:], c.DeltaTime) }

func (c PlantCrop) putPayload(p []byte) {
	p[0], p[1], p[2], p[3] = c.PlayerID, c.Y, c.X, uint8(c.Crop)
}

func (c HarvestCrop) putPayload(p []byte) {
	p[0], p[1], p[2] = c.PlayerID, c.Y, c.X
}

func (c PlaceStructure) putPayload(p []byte) {
	p[0], p[1], p[2], p[3] = c.PlayerID, c.Y, c.X, uint8(c.Structure)
}

func (c DestroyStructure) putPayload(p []byte) {
	p[0], p[1], p[2] = c.PlayerID, c.Y, c.X
}

func (c DropItem) putPayload(p []byte) {
	p[0] = c.PlayerID
	putF32(p[1:], c.Y)
	putF32(p[5:], c.X)
	p[9] = uint8(c.Item)
	putI32(p[10:], c.Amount)
}

func (c PickupItem) putPayload(p []byte) {
	p[0] = c.PlayerID
	putF32(p[1:], c.Y)
	putF32(p[5:], c.X)
}

func (c UpdatePlayerLocation) putPayload(p []byte) {
	p[0] = c.PlayerID
	putF32(p[1:], c.Y)
	putF32(p[5:], c.X)
	putF32(p[9:], c.YVelocity)
	putF32(p[13:], c.XVelocity)
}

func (c AddCrop) putPayload(p []byte) {
	p[0], p[1], p[2] = c.Y, c.X, uint8(c.Crop)
}

func (c RemoveCrop) putPayload(p []byte) {
	p[0], p[1] = c.Y, c.X
}

func (c AddStructure) putPayload(p []byte) {
	p[0], p[1], p[2] = c.Y, c.X, uint8(c.Structure)
}

func (c RemoveStructure) putPayload(p []byte) {
	p[0], p[1] = c.Y, c.X
}

func (c AddItemToInventory) putPayload(p []byte) {
	p[0], p[1] = c.PlayerID, uint8(c.Item)
	putI32(p[2:], c.Amount)
}

func (c RemoveItemFromInventory) putPayload(p []byte) {
	p[0], p[1] = c.PlayerID, uint8(c.Item)
	putI32(p[2:], c.Amount)
}

func (c SpawnItemDrop) putPayload(p []byte) {
	putF32(p[0:], c.Y)
	putF32(p[4:], c.X)
	p[8] = uint8(c.Item)
	putI32(p[9:], c.Amount)
}

func (c RemoveItemDrop) putPayload(p []byte) { putI32(p[0:], c.DropID) }

func (c SetPlayerID) putPayload(p []byte) { p[0] = c.PlayerID }

// WithPlayerID returns a copy of a player action with its player id replaced.
// Commands without a player id are returned unchanged.
func WithPlayerID(c Command, id uint8) Command {
	switch v := c.(type) {
	case PlantCrop:
		v.PlayerID = id
		return v
	case HarvestCrop:
		v.PlayerID = id
		return v
	case PlaceStructure:
		v.PlayerID = id
		return v
	case DestroyStructure:
		v.PlayerID = id
		return v
	case DropItem:
		v.PlayerID = id
		return v
	case PickupItem:
		v.PlayerID = id
		return v
	case UpdatePlayerLocation:
		v.PlayerID = id
		return v
	}
	return c
}
