package engine

import (
	"farmdustry.io/internal/protocol"
	"farmdustry.io/internal/sim/catalogs"
	"farmdustry.io/internal/sim/entities"
)

// attachJoined runs right after a flush, when every attached peer has seen
// exactly the current state, and hands each new session its burst.
func (e *Engine) attachJoined() {
	if len(e.joining) == 0 {
		return
	}
	world := e.worldBurst()
	for _, req := range e.joining {
		b := append([]byte(nil), world...)
		req.Attach(e.appendInventoryDelta(b, req.PlayerID))
	}
	e.joining = e.joining[:0]
}

// worldBurst encodes the state a fresh client mirror needs to match the
// server. Drops are spawned slot by slot and the free slots removed in
// reuse order, so the client's drop ids line up with the server's.
// Crop growth and water are not on the wire; crops arrive as new.
func (e *Engine) worldBurst() []byte {
	var b []byte
	for _, c := range e.world.Crops() {
		b = protocol.AppendCommand(b, protocol.AddCrop{Y: c.Y, X: c.X, Crop: c.Crop.Type})
	}
	for _, s := range e.world.Structures() {
		b = protocol.AppendCommand(b, protocol.AddStructure{Y: s.Y, X: s.X, Structure: s.Type})
	}
	e.players.Each(func(id uint8, p entities.Player) {
		b = protocol.AppendCommand(b, protocol.UpdatePlayerLocation{
			PlayerID: id, Y: p.Y, X: p.X, YVelocity: p.YVelocity, XVelocity: p.XVelocity,
		})
	})
	slots, free := e.drops.Layout()
	for id := int32(0); id < int32(slots); id++ {
		d, _ := e.drops.Snapshot(id)
		b = protocol.AppendCommand(b, protocol.SpawnItemDrop{Y: d.Y, X: d.X, Item: d.Item, Amount: d.Amount})
	}
	for _, id := range free {
		b = protocol.AppendCommand(b, protocol.RemoveItemDrop{DropID: id})
	}
	return b
}

// appendInventoryDelta moves a client that starts with the starter stacks to
// the player's actual inventory. It matters when the session acted before
// its burst went out.
func (e *Engine) appendInventoryDelta(b []byte, id uint8) []byte {
	have := map[catalogs.ItemType]int{}
	if inv, ok := e.inv.Lookup(id); ok {
		for _, s := range inv.Items() {
			have[s.Item] = s.Count
		}
	}
	start := map[catalogs.ItemType]int{}
	for _, s := range e.cfg.Starter {
		start[s.Item] += s.Count
	}
	for _, s := range e.cfg.Starter {
		if d := start[s.Item] - have[s.Item]; d > 0 {
			b = protocol.AppendCommand(b, protocol.RemoveItemFromInventory{PlayerID: id, Item: s.Item, Amount: int32(d)})
			start[s.Item] = have[s.Item]
		}
	}
	if inv, ok := e.inv.Lookup(id); ok {
		for _, s := range inv.Items() {
			if d := s.Count - start[s.Item]; d > 0 {
				b = protocol.AppendCommand(b, protocol.AddItemToInventory{PlayerID: id, Item: s.Item, Amount: int32(d)})
			}
		}
	}
	return b
}
