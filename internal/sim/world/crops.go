package world

import "farmdustry.io/internal/sim/catalogs"

// Crop values are always kept within [0,1].
type Crop struct {
	Type   catalogs.CropType
	Growth float32
	Water  float32
}

// CropAt is a live crop together with its cell.
type CropAt struct {
	Y, X uint8
	Crop Crop
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (c *Crop) setGrowth(v float32) { c.Growth = clamp01(v) }
func (c *Crop) setWater(v float32)  { c.Water = clamp01(v) }

// AddCrop plants a crop of type t at (y,x).
func (w *World) AddCrop(y, x uint8, t catalogs.CropType) bool {
	if w.OutOfBounds(int(y), int(x)) || t == catalogs.CropNone {
		return false
	}
	c := w.cell(int(y), int(x))
	if c.crop != noCrop {
		return false
	}

	var idx int
	if len(w.freeCrops) > 0 {
		idx = w.freeCrops[0]
		w.freeCrops = w.freeCrops[1:]
		w.crops[idx] = Crop{Type: t}
	} else {
		idx = len(w.crops)
		w.crops = append(w.crops, Crop{Type: t})
	}
	c.crop = idx
	return true
}

// RemoveCrop detaches the crop at (y,x) and returns its last state. The slot
// is tombstoned and queued for reuse.
func (w *World) RemoveCrop(y, x uint8) (bool, Crop) {
	if w.OutOfBounds(int(y), int(x)) {
		return false, Crop{}
	}
	c := w.cell(int(y), int(x))
	if c.crop == noCrop {
		return false, Crop{}
	}
	idx := c.crop
	removed := w.crops[idx]

	c.crop = noCrop
	w.crops[idx] = Crop{Type: catalogs.CropNone}
	w.freeCrops = append(w.freeCrops, idx)
	return true, removed
}

// Crop returns a copy of the crop at (y,x).
func (w *World) Crop(y, x uint8) (Crop, bool) {
	if w.OutOfBounds(int(y), int(x)) {
		return Crop{}, false
	}
	c := w.cell(int(y), int(x))
	if c.crop == noCrop {
		return Crop{}, false
	}
	return w.crops[c.crop], true
}

// AddWater waters the crop at (y,x), if any.
func (w *World) AddWater(y, x int, amount float32) bool {
	if w.OutOfBounds(y, x) {
		return false
	}
	c := w.cell(y, x)
	if c.crop == noCrop {
		return false
	}
	cr := &w.crops[c.crop]
	cr.setWater(cr.Water + amount)
	return true
}

// UpdateCrops advances every live crop by dt seconds.
func (w *World) UpdateCrops(dt float32) {
	d := dt * w.cfg.CropRate
	for i := range w.crops {
		cr := &w.crops[i]
		if cr.Type == catalogs.CropNone {
			continue
		}
		cr.setGrowth(cr.Growth + d)
		cr.setWater(cr.Water - d)
	}
}

// Crops lists live crops in row-major cell order.
func (w *World) Crops() []CropAt {
	var out []CropAt
	n := w.cfg.Size
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			c := w.cell(y, x)
			if c.crop == noCrop {
				continue
			}
			out = append(out, CropAt{Y: uint8(y), X: uint8(x), Crop: w.crops[c.crop]})
		}
	}
	return out
}

// CropSlots reports the arena size and the number of queued free slots.
func (w *World) CropSlots() (slots, free int) {
	return len(w.crops), len(w.freeCrops)
}
