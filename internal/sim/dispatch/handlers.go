package dispatch

import (
	"fmt"

	"farmdustry.io/internal/protocol"
	"farmdustry.io/internal/sim/catalogs"
)

func handlePlantCrop(d *Dispatcher, c protocol.Command) Result {
	cmd := c.(protocol.PlantCrop)
	if cmd.Crop == catalogs.CropNone {
		return reject(protocol.RejectBadRequest, "missing crop type")
	}
	seed := catalogs.SeedItem(cmd.Crop)
	inv := d.Inventories.Get(cmd.PlayerID)
	if !inv.RemoveItem(seed, 1) {
		return reject(protocol.RejectNoResource, "no "+seed.String())
	}
	if !d.World.AddCrop(cmd.Y, cmd.X, cmd.Crop) {
		code := d.cellCode(cmd.Y, cmd.X)
		if d.Rules.RefundFailedPlant {
			inv.AddItem(seed, 1)
			return reject(code, "cannot plant here")
		}
		d.emit(protocol.RemoveItemFromInventory{PlayerID: cmd.PlayerID, Item: seed, Amount: 1})
		r := reject(code, "cannot plant here; seed lost")
		r.Emitted = 1
		return r
	}
	d.emit(protocol.RemoveItemFromInventory{PlayerID: cmd.PlayerID, Item: seed, Amount: 1})
	d.emit(protocol.AddCrop{Y: cmd.Y, X: cmd.X, Crop: cmd.Crop})
	return ok(2)
}

func handleHarvestCrop(d *Dispatcher, c protocol.Command) Result {
	cmd := c.(protocol.HarvestCrop)
	removed, crop := d.World.RemoveCrop(cmd.Y, cmd.X)
	if !removed {
		if d.World.OutOfBounds(int(cmd.Y), int(cmd.X)) {
			return reject(protocol.RejectOutOfBounds, "outside the grid")
		}
		return reject(protocol.RejectNotFound, "no crop here")
	}
	d.emit(protocol.RemoveCrop{Y: cmd.Y, X: cmd.X})

	item := catalogs.HarvestItem(crop.Type)
	if crop.Growth != 1 {
		item = catalogs.SeedItem(crop.Type)
	}
	d.give(cmd.PlayerID, item, 1, float32(cmd.Y), float32(cmd.X))
	return ok(2)
}

func handlePlaceStructure(d *Dispatcher, c protocol.Command) Result {
	cmd := c.(protocol.PlaceStructure)
	if cmd.Structure == catalogs.StructureNone {
		return reject(protocol.RejectBadRequest, "missing structure type")
	}
	item := catalogs.StructureItem(cmd.Structure)
	inv := d.Inventories.Get(cmd.PlayerID)
	if d.Rules.ChargeStructures && !inv.RemoveItem(item, 1) {
		return reject(protocol.RejectNoResource, "no "+item.String())
	}
	if !d.World.AddStructure(cmd.Y, cmd.X, cmd.Structure) {
		if d.Rules.ChargeStructures {
			inv.AddItem(item, 1)
		}
		h, w, known := d.World.Footprint(cmd.Structure)
		switch {
		case !known:
			return reject(protocol.RejectUnknownType, cmd.Structure.String())
		case d.World.OutOfBounds(int(cmd.Y)+int(h)-1, int(cmd.X)+int(w)-1):
			return reject(protocol.RejectOutOfBounds, "footprint exceeds the grid")
		default:
			return reject(protocol.RejectOccupied, "footprint overlaps a structure")
		}
	}
	n := 1
	if d.Rules.ChargeStructures {
		d.emit(protocol.RemoveItemFromInventory{PlayerID: cmd.PlayerID, Item: item, Amount: 1})
		n++
	}
	d.emit(protocol.AddStructure{Y: cmd.Y, X: cmd.X, Structure: cmd.Structure})
	return ok(n)
}

func handleDestroyStructure(d *Dispatcher, c protocol.Command) Result {
	cmd := c.(protocol.DestroyStructure)
	removed, s := d.World.RemoveStructure(cmd.Y, cmd.X)
	if !removed {
		return reject(protocol.RejectNotFound, "no structure here")
	}
	d.emit(protocol.RemoveStructure{Y: s.Y, X: s.X})
	if !d.Rules.ChargeStructures {
		return ok(1)
	}
	d.give(cmd.PlayerID, catalogs.StructureItem(s.Type), 1, float32(s.Y), float32(s.X))
	return ok(2)
}

func handleDropItem(d *Dispatcher, c protocol.Command) Result {
	cmd := c.(protocol.DropItem)
	if cmd.Amount <= 0 {
		return reject(protocol.RejectBadRequest, "amount must be positive")
	}
	if !d.Inventories.Get(cmd.PlayerID).RemoveItem(cmd.Item, int(cmd.Amount)) {
		return reject(protocol.RejectNoResource, fmt.Sprintf("not enough %s", cmd.Item))
	}
	d.Drops.Add(cmd.Y, cmd.X, cmd.Item, cmd.Amount)
	d.emit(protocol.RemoveItemFromInventory{PlayerID: cmd.PlayerID, Item: cmd.Item, Amount: cmd.Amount})
	d.emit(protocol.SpawnItemDrop{Y: cmd.Y, X: cmd.X, Item: cmd.Item, Amount: cmd.Amount})
	return ok(2)
}

func handlePickupItem(d *Dispatcher, c protocol.Command) Result {
	cmd := c.(protocol.PickupItem)
	radius := d.PickupRadius
	if radius <= 0 {
		radius = 1
	}
	ids := d.Drops.InRange(cmd.Y, cmd.X, radius)
	if len(ids) == 0 {
		return reject(protocol.RejectNotFound, "no drops in range")
	}
	inv := d.Inventories.Get(cmd.PlayerID)
	n := 0
	for _, id := range ids {
		drop, live := d.Drops.Snapshot(id)
		if !live || !inv.AddItem(drop.Item, int(drop.Amount)) {
			continue
		}
		d.emit(protocol.AddItemToInventory{PlayerID: cmd.PlayerID, Item: drop.Item, Amount: drop.Amount})
		n++
		if d.Rules.RemovePickedDrops {
			d.Drops.Remove(id)
			d.emit(protocol.RemoveItemDrop{DropID: id})
			n++
		}
	}
	if n == 0 {
		return reject(protocol.RejectFull, "nothing in range fits")
	}
	return ok(n)
}

func handleUpdatePlayerLocation(d *Dispatcher, c protocol.Command) Result {
	cmd := c.(protocol.UpdatePlayerLocation)
	if d.Rules.ValidateMovement && !d.World.ContainsPoint(cmd.Y, cmd.X) {
		return reject(protocol.RejectOutOfBounds, "position outside the grid")
	}
	d.Players.SetPositionAndVelocity(cmd.PlayerID, cmd.Y, cmd.X, cmd.YVelocity, cmd.XVelocity)
	d.emit(cmd)
	return ok(1)
}

// give adds items to the player's inventory, spilling them as a drop at
// (y,x) when they do not fit.
func (d *Dispatcher) give(playerID uint8, item catalogs.ItemType, amount int32, y, x float32) {
	if d.Inventories.Get(playerID).AddItem(item, int(amount)) {
		d.emit(protocol.AddItemToInventory{PlayerID: playerID, Item: item, Amount: amount})
		return
	}
	d.Drops.Add(y, x, item, amount)
	d.emit(protocol.SpawnItemDrop{Y: y, X: x, Item: item, Amount: amount})
}
