package world

import "farmdustry.io/internal/sim/catalogs"

// Behavior is a structure's periodic update. A nil behavior is a structure
// type that exists but does nothing on its own.
type Behavior func(w *World, s Structure)

const sprinklerWater = 0.25

var behaviors = map[catalogs.StructureType]Behavior{
	catalogs.StructureContainer: nil,
	catalogs.StructureBarn:      nil,
	catalogs.StructureSprinkler: sprinkle,
}

// sprinkle waters every crop in the ring of cells around the footprint.
func sprinkle(w *World, s Structure) {
	for y := int(s.Y) - 1; y <= int(s.Y)+int(s.Height); y++ {
		for x := int(s.X) - 1; x <= int(s.X)+int(s.Width); x++ {
			w.AddWater(y, x, sprinklerWater)
		}
	}
}

// HasBehavior reports whether t can be placed.
func HasBehavior(t catalogs.StructureType) bool {
	_, ok := behaviors[t]
	return ok
}
