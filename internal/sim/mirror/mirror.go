// Package mirror keeps a client-side copy of the world in step with the
// server by applying broadcast game commands.
package mirror

import (
	"errors"
	"fmt"

	"farmdustry.io/internal/protocol"
	"farmdustry.io/internal/sim/catalogs"
	"farmdustry.io/internal/sim/entities"
	"farmdustry.io/internal/sim/inventory"
	"farmdustry.io/internal/sim/tuning"
	"farmdustry.io/internal/sim/world"
)

var (
	// ErrDiverged means a broadcast could not be applied locally, so the
	// mirror no longer matches the server.
	ErrDiverged = errors.New("mirror: diverged from server")
	ErrNotGame  = errors.New("mirror: not a server command")
)

type Mirror struct {
	World     *world.World
	Players   *entities.Players
	Drops     *entities.ItemDrops
	Inventory *inventory.Inventory

	playerID uint8
	hasID    bool
	ticks    uint64
	elapsed  float64
}

func New(t tuning.Tuning, cats *catalogs.Catalogs) *Mirror {
	if cats == nil {
		cats = catalogs.Default()
	}
	starter, _ := inventory.StarterStacks(cats, t.StarterItems)
	inv := inventory.New(t.MaxInventoryVolume, cats.UnitVolume)
	for _, s := range starter {
		inv.AddItem(s.Item, s.Count)
	}
	return &Mirror{
		World: world.New(world.Config{
			Size:                   t.WorldSize,
			CropRate:               t.CropRate,
			StructureUpdateSeconds: t.StructureUpdateSeconds,
		}, cats),
		Players:   entities.NewPlayers(t.PlayerSpeed),
		Drops:     entities.NewItemDrops(),
		Inventory: inv,
	}
}

// PlayerID returns the id assigned by the server, if one has arrived.
func (m *Mirror) PlayerID() (uint8, bool) { return m.playerID, m.hasID }

func (m *Mirror) Ticks() uint64 { return m.ticks }

// Elapsed is the total simulated time received through Tick records.
func (m *Mirror) Elapsed() float64 { return m.elapsed }

// Apply mirrors one server command.
func (m *Mirror) Apply(c protocol.Command) error {
	switch v := c.(type) {
	case protocol.SetPlayerID:
		m.playerID, m.hasID = v.PlayerID, true
	case protocol.Tick:
		m.Tick(v.DeltaTime)
	case protocol.AddCrop:
		if !m.World.AddCrop(v.Y, v.X, v.Crop) {
			return fmt.Errorf("%w: add crop at (%d,%d)", ErrDiverged, v.Y, v.X)
		}
	case protocol.RemoveCrop:
		if ok, _ := m.World.RemoveCrop(v.Y, v.X); !ok {
			return fmt.Errorf("%w: remove crop at (%d,%d)", ErrDiverged, v.Y, v.X)
		}
	case protocol.AddStructure:
		if !m.World.AddStructure(v.Y, v.X, v.Structure) {
			return fmt.Errorf("%w: add %s at (%d,%d)", ErrDiverged, v.Structure, v.Y, v.X)
		}
	case protocol.RemoveStructure:
		if ok, _ := m.World.RemoveStructure(v.Y, v.X); !ok {
			return fmt.Errorf("%w: remove structure at (%d,%d)", ErrDiverged, v.Y, v.X)
		}
	case protocol.AddItemToInventory:
		if m.hasID && v.PlayerID == m.playerID && !m.Inventory.AddItem(v.Item, int(v.Amount)) {
			return fmt.Errorf("%w: add %d %s", ErrDiverged, v.Amount, v.Item)
		}
	case protocol.RemoveItemFromInventory:
		if m.hasID && v.PlayerID == m.playerID && !m.Inventory.RemoveItem(v.Item, int(v.Amount)) {
			return fmt.Errorf("%w: remove %d %s", ErrDiverged, v.Amount, v.Item)
		}
	case protocol.SpawnItemDrop:
		m.Drops.Add(v.Y, v.X, v.Item, v.Amount)
	case protocol.RemoveItemDrop:
		if !m.Drops.Remove(v.DropID) {
			return fmt.Errorf("%w: remove drop %d", ErrDiverged, v.DropID)
		}
	case protocol.UpdatePlayerLocation:
		m.Players.SetPositionAndVelocity(v.PlayerID, v.Y, v.X, v.YVelocity, v.XVelocity)
	default:
		return fmt.Errorf("%w: %s", ErrNotGame, c.Kind())
	}
	return nil
}

// ApplyStream decodes and applies a broadcast buffer. It stops at the first
// decode error; divergence errors are collected and the rest of the buffer
// is still applied.
func (m *Mirror) ApplyStream(b []byte) error {
	var errs []error
	for off := 0; off < len(b); {
		c, next, err := protocol.Decode(b, off)
		if err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := m.Apply(c); err != nil {
			errs = append(errs, err)
		}
		off = next
	}
	return errors.Join(errs...)
}

// Tick advances local simulation the same way the server does before it
// emits the tick record.
func (m *Mirror) Tick(dt float32) {
	m.World.UpdateCrops(dt)
	m.World.UpdateStructures(dt)
	m.Players.UpdateAll(dt)
	m.ticks++
	m.elapsed += float64(dt)
}
