package engine

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"lukechampine.com/blake3"

	"farmdustry.io/internal/protocol"
	"farmdustry.io/internal/sim/entities"
)

// State is a point-in-time copy of the simulation, used by the admin API.
type State struct {
	Tick       uint64           `json:"tick"`
	Digest     string           `json:"digest"`
	Crops      []CropState      `json:"crops"`
	Structures []StructureState `json:"structures"`
	Players    []PlayerState    `json:"players"`
	Drops      []DropState      `json:"drops"`
}

type CropState struct {
	Y      uint8   `json:"y"`
	X      uint8   `json:"x"`
	Type   string  `json:"type"`
	Growth float32 `json:"growth"`
	Water  float32 `json:"water"`
}

type StructureState struct {
	Y      uint8  `json:"y"`
	X      uint8  `json:"x"`
	Height uint8  `json:"height"`
	Width  uint8  `json:"width"`
	Type   string `json:"type"`
}

type PlayerState struct {
	ID        uint8          `json:"id"`
	Y         float32        `json:"y"`
	X         float32        `json:"x"`
	YVelocity float32        `json:"y_velocity"`
	XVelocity float32        `json:"x_velocity"`
	Inventory map[string]int `json:"inventory,omitempty"`
	Volume    int            `json:"volume"`
}

type DropState struct {
	ID     int32   `json:"id"`
	Y      float32 `json:"y"`
	X      float32 `json:"x"`
	Item   string  `json:"item"`
	Amount int32   `json:"amount"`
}

// State copies the simulation. Only call it from the loop goroutine or when
// the engine is not running.
func (e *Engine) State() State {
	st := State{Tick: e.tick, Digest: e.Digest()}
	for _, c := range e.world.Crops() {
		st.Crops = append(st.Crops, CropState{
			Y: c.Y, X: c.X, Type: c.Crop.Type.String(),
			Growth: c.Crop.Growth, Water: c.Crop.Water,
		})
	}
	for _, s := range e.world.Structures() {
		st.Structures = append(st.Structures, StructureState{
			Y: s.Y, X: s.X, Height: s.Height, Width: s.Width, Type: s.Type.String(),
		})
	}
	for id := 0; id <= 255; id++ {
		p, _ := e.players.Snapshot(uint8(id))
		ps := PlayerState{ID: uint8(id), Y: p.Y, X: p.X, YVelocity: p.YVelocity, XVelocity: p.XVelocity}
		if inv, ok := e.inv.Lookup(uint8(id)); ok {
			ps.Volume = inv.Volume()
			ps.Inventory = map[string]int{}
			for _, s := range inv.Items() {
				ps.Inventory[s.Item.String()] = s.Count
			}
		} else if p == (entities.Player{}) {
			continue
		}
		st.Players = append(st.Players, ps)
	}
	e.drops.Each(func(id int32, d entities.ItemDrop) {
		st.Drops = append(st.Drops, DropState{ID: id, Y: d.Y, X: d.X, Item: d.Item.String(), Amount: d.Amount})
	})
	return st
}

// Digest hashes a canonical little-endian encoding of crops, structures,
// inventories, players and drops.
func (e *Engine) Digest() string {
	h := blake3.New(32, nil)
	var tmp [8]byte
	u8 := func(v uint8) { h.Write([]byte{v}) }
	u32 := func(v uint32) {
		binary.LittleEndian.PutUint32(tmp[:4], v)
		h.Write(tmp[:4])
	}
	f32 := func(v float32) { u32(math.Float32bits(v)) }

	h.Write([]byte("crops"))
	for _, c := range e.world.Crops() {
		u8(c.Y)
		u8(c.X)
		u8(uint8(c.Crop.Type))
		f32(c.Crop.Growth)
		f32(c.Crop.Water)
	}
	h.Write([]byte("structures"))
	for _, s := range e.world.Structures() {
		u8(s.Y)
		u8(s.X)
		u8(s.Height)
		u8(s.Width)
		u8(uint8(s.Type))
	}
	h.Write([]byte("inventories"))
	for _, id := range e.inv.Players() {
		inv, _ := e.inv.Lookup(id)
		u8(id)
		for _, s := range inv.Items() {
			u8(uint8(s.Item))
			u32(uint32(s.Count))
		}
		u8(0)
	}
	h.Write([]byte("players"))
	for id := 0; id <= 255; id++ {
		p, _ := e.players.Snapshot(uint8(id))
		f32(p.Y)
		f32(p.X)
		f32(p.YVelocity)
		f32(p.XVelocity)
	}
	h.Write([]byte("drops"))
	e.drops.Each(func(id int32, d entities.ItemDrop) {
		u32(uint32(id))
		f32(d.Y)
		f32(d.X)
		u8(uint8(d.Item))
		u32(uint32(d.Amount))
	})
	return hex.EncodeToString(h.Sum(nil))
}

func auditFor(tick uint64, actor uint8, c protocol.Command) (AuditEntry, bool) {
	a := AuditEntry{Tick: tick, Actor: actor, Action: c.Kind().String()}
	switch v := c.(type) {
	case protocol.AddCrop:
		a.Pos, a.Type = [2]float32{float32(v.Y), float32(v.X)}, uint8(v.Crop)
	case protocol.RemoveCrop:
		a.Pos = [2]float32{float32(v.Y), float32(v.X)}
	case protocol.AddStructure:
		a.Pos, a.Type = [2]float32{float32(v.Y), float32(v.X)}, uint8(v.Structure)
	case protocol.RemoveStructure:
		a.Pos = [2]float32{float32(v.Y), float32(v.X)}
	case protocol.AddItemToInventory:
		a.Actor, a.Type, a.Amount = v.PlayerID, uint8(v.Item), v.Amount
	case protocol.RemoveItemFromInventory:
		a.Actor, a.Type, a.Amount = v.PlayerID, uint8(v.Item), v.Amount
	case protocol.SpawnItemDrop:
		a.Pos, a.Type, a.Amount = [2]float32{v.Y, v.X}, uint8(v.Item), v.Amount
	case protocol.RemoveItemDrop:
		a.DropID = v.DropID
	default:
		return AuditEntry{}, false
	}
	return a, true
}
