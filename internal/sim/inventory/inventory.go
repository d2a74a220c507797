// Package inventory tracks per-player item counts bounded by a total volume.
package inventory

import (
	"sort"

	"farmdustry.io/internal/sim/catalogs"
)

// VolumeFunc returns the per-unit volume of an item type, or false for
// unknown types.
type VolumeFunc func(catalogs.ItemType) (int, bool)

type Inventory struct {
	items     map[catalogs.ItemType]int
	volume    int
	maxVolume int
	unit      VolumeFunc
}

type Stack struct {
	Item  catalogs.ItemType
	Count int
}

func New(maxVolume int, unit VolumeFunc) *Inventory {
	return &Inventory{
		items:     map[catalogs.ItemType]int{},
		maxVolume: maxVolume,
		unit:      unit,
	}
}

// AddItem adds amount units of t. It fails without mutating if the result
// would exceed the volume bound.
func (inv *Inventory) AddItem(t catalogs.ItemType, amount int) bool {
	if amount <= 0 {
		return false
	}
	u, ok := inv.unit(t)
	if !ok {
		return false
	}
	add := amount * u
	if add < 0 || inv.volume+add > inv.maxVolume {
		return false
	}
	inv.items[t] += amount
	inv.volume += add
	return true
}

// RemoveItem removes amount units of t. It fails without mutating if fewer
// are held.
func (inv *Inventory) RemoveItem(t catalogs.ItemType, amount int) bool {
	if amount <= 0 {
		return false
	}
	have := inv.items[t]
	if have < amount {
		return false
	}
	u, _ := inv.unit(t)
	if have == amount {
		delete(inv.items, t)
	} else {
		inv.items[t] = have - amount
	}
	inv.volume -= amount * u
	return true
}

func (inv *Inventory) CountItem(t catalogs.ItemType) int { return inv.items[t] }
func (inv *Inventory) Volume() int                       { return inv.volume }

// Items returns held stacks ordered by item type.
func (inv *Inventory) Items() []Stack {
	out := make([]Stack, 0, len(inv.items))
	for t, n := range inv.items {
		out = append(out, Stack{Item: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}
