package entities

import "farmdustry.io/internal/sim/catalogs"

type ItemDrop struct {
	Y, X   float32
	Item   catalogs.ItemType
	Amount int32
}

type dropSlot struct {
	drop ItemDrop
	live bool
}

// ItemDrops is an arena of drops keyed by id. Freed ids are reused in the
// order they were freed, so two registries fed the same add/remove sequence
// assign the same ids.
type ItemDrops struct {
	slots []dropSlot
	free  []int32
	live  int
}

func NewItemDrops() *ItemDrops { return &ItemDrops{} }

func (d *ItemDrops) Add(y, x float32, item catalogs.ItemType, amount int32) int32 {
	drop := ItemDrop{Y: y, X: x, Item: item, Amount: amount}
	d.live++
	if len(d.free) > 0 {
		id := d.free[0]
		d.free = d.free[1:]
		d.slots[id] = dropSlot{drop: drop, live: true}
		return id
	}
	d.slots = append(d.slots, dropSlot{drop: drop, live: true})
	return int32(len(d.slots) - 1)
}

func (d *ItemDrops) valid(id int32) bool {
	return id >= 0 && int(id) < len(d.slots) && d.slots[id].live
}

// Remove tombstones the drop and queues its id for reuse.
func (d *ItemDrops) Remove(id int32) bool {
	if !d.valid(id) {
		return false
	}
	d.slots[id] = dropSlot{}
	d.free = append(d.free, id)
	d.live--
	return true
}

// InRange returns ids of live drops within radius of (y,x), inclusive, in
// ascending order.
func (d *ItemDrops) InRange(y, x, radius float32) []int32 {
	var out []int32
	r2 := radius * radius
	for i, s := range d.slots {
		if !s.live {
			continue
		}
		dy, dx := s.drop.Y-y, s.drop.X-x
		if dy*dy+dx*dx <= r2 {
			out = append(out, int32(i))
		}
	}
	return out
}

func (d *ItemDrops) Snapshot(id int32) (ItemDrop, bool) {
	if !d.valid(id) {
		return ItemDrop{}, false
	}
	return d.slots[id].drop, true
}

// Layout returns the arena length and the freed ids in reuse order. A fresh
// registry that adds slots drops and then removes free in order ends up
// with the same ids.
func (d *ItemDrops) Layout() (slots int, free []int32) {
	return len(d.slots), append([]int32(nil), d.free...)
}

// Len counts live drops.
func (d *ItemDrops) Len() int { return d.live }

// Each calls fn for every live drop in id order.
func (d *ItemDrops) Each(fn func(id int32, drop ItemDrop)) {
	for i, s := range d.slots {
		if s.live {
			fn(int32(i), s.drop)
		}
	}
}
