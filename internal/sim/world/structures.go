package world

import "farmdustry.io/internal/sim/catalogs"

// Structure occupies Height×Width cells anchored at (Y,X). Every covered cell
// references the same value.
type Structure struct {
	Y, X          uint8
	Height, Width uint8
	Type          catalogs.StructureType
}

// Covers reports whether (y,x) lies within the footprint.
func (s Structure) Covers(y, x int) bool {
	return y >= int(s.Y) && y < int(s.Y)+int(s.Height) &&
		x >= int(s.X) && x < int(s.X)+int(s.Width)
}

// Footprint returns the catalog footprint of a placeable structure type.
func (w *World) Footprint(t catalogs.StructureType) (height, width uint8, ok bool) {
	if !HasBehavior(t) {
		return 0, 0, false
	}
	return w.catalogs.Footprint(t)
}

// AddStructure places a structure of type t with its origin at (y,x).
func (w *World) AddStructure(y, x uint8, t catalogs.StructureType) bool {
	h, wd, ok := w.Footprint(t)
	if !ok {
		return false
	}
	y0, x0 := int(y), int(x)
	if w.OutOfBounds(y0, x0) || w.OutOfBounds(y0+int(h)-1, x0+int(wd)-1) {
		return false
	}
	for cy := y0; cy < y0+int(h); cy++ {
		for cx := x0; cx < x0+int(wd); cx++ {
			if w.cell(cy, cx).structure != nil {
				return false
			}
		}
	}

	s := &Structure{Y: y, X: x, Height: h, Width: wd, Type: t}
	for cy := y0; cy < y0+int(h); cy++ {
		for cx := x0; cx < x0+int(wd); cx++ {
			w.cell(cy, cx).structure = s
		}
	}
	w.structures = append(w.structures, s)
	return true
}

// RemoveStructure removes whichever structure covers (y,x). The footprint is
// cleared from the structure's own origin.
func (w *World) RemoveStructure(y, x uint8) (bool, Structure) {
	if w.OutOfBounds(int(y), int(x)) {
		return false, Structure{}
	}
	s := w.cell(int(y), int(x)).structure
	if s == nil {
		return false, Structure{}
	}
	for cy := int(s.Y); cy < int(s.Y)+int(s.Height); cy++ {
		for cx := int(s.X); cx < int(s.X)+int(s.Width); cx++ {
			w.cell(cy, cx).structure = nil
		}
	}
	for i, other := range w.structures {
		if other == s {
			w.structures = append(w.structures[:i], w.structures[i+1:]...)
			break
		}
	}
	return true, *s
}

// StructureAt returns a copy of the structure covering (y,x).
func (w *World) StructureAt(y, x uint8) (Structure, bool) {
	if w.OutOfBounds(int(y), int(x)) {
		return Structure{}, false
	}
	s := w.cell(int(y), int(x)).structure
	if s == nil {
		return Structure{}, false
	}
	return *s, true
}

// Structures lists active structures in placement order.
func (w *World) Structures() []Structure {
	out := make([]Structure, 0, len(w.structures))
	for _, s := range w.structures {
		out = append(out, *s)
	}
	return out
}

// UpdateStructures accumulates dt and, once a full period has elapsed, runs
// every structure's behavior once per whole period before resetting.
func (w *World) UpdateStructures(dt float32) int {
	w.structureTimer += dt
	period := w.cfg.StructureUpdateSeconds
	if w.structureTimer < period {
		return 0
	}
	n := int(w.structureTimer / period)
	w.structureTimer = 0
	for i := 0; i < n; i++ {
		for _, s := range w.structures {
			if b := behaviors[s.Type]; b != nil {
				b(w, *s)
			}
		}
	}
	return n
}

// CheckFootprints returns the first cell whose structure reference does not
// cover it.
func (w *World) CheckFootprints() (y, x int, ok bool) {
	n := w.cfg.Size
	for cy := 0; cy < n; cy++ {
		for cx := 0; cx < n; cx++ {
			s := w.cell(cy, cx).structure
			if s != nil && !s.Covers(cy, cx) {
				return cy, cx, false
			}
		}
	}
	return 0, 0, true
}
