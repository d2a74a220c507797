package inventory

import (
	"sort"

	"farmdustry.io/internal/sim/catalogs"
)

// List holds one inventory per player id, created on first use with the
// configured starter items.
type List struct {
	maxVolume int
	unit      VolumeFunc
	starter   []Stack

	byPlayer map[uint8]*Inventory
}

func NewList(maxVolume int, unit VolumeFunc, starter []Stack) *List {
	return &List{
		maxVolume: maxVolume,
		unit:      unit,
		starter:   append([]Stack(nil), starter...),
		byPlayer:  map[uint8]*Inventory{},
	}
}

// Get returns the player's inventory, creating it if needed.
func (l *List) Get(playerID uint8) *Inventory {
	if inv, ok := l.byPlayer[playerID]; ok {
		return inv
	}
	inv := New(l.maxVolume, l.unit)
	for _, s := range l.starter {
		inv.AddItem(s.Item, s.Count)
	}
	l.byPlayer[playerID] = inv
	return inv
}

// Lookup returns the player's inventory without creating one.
func (l *List) Lookup(playerID uint8) (*Inventory, bool) {
	inv, ok := l.byPlayer[playerID]
	return inv, ok
}

func (l *List) Remove(playerID uint8) { delete(l.byPlayer, playerID) }

// Players lists ids with an inventory in ascending order.
func (l *List) Players() []uint8 {
	out := make([]uint8, 0, len(l.byPlayer))
	for id := range l.byPlayer {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StarterStacks resolves catalog item ids into stacks. Unknown ids are
// reported back to the caller.
func StarterStacks(cats *catalogs.Catalogs, byID map[string]int) ([]Stack, []string) {
	var out []Stack
	var unknown []string
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		t, ok := cats.ItemByID(id)
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		out = append(out, Stack{Item: t, Count: byID[id]})
	}
	return out, unknown
}
