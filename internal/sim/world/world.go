// Package world holds the authoritative tile grid: soil, crops and
// structures.
//
// World is not safe for concurrent use. The engine goroutine owns the
// server's instance; a client mirror owns its own copy.
package world

import (
	"farmdustry.io/internal/sim/catalogs"
)

const DefaultSize = 16

type Config struct {
	Size                   int
	CropRate               float32
	StructureUpdateSeconds float32
}

func DefaultConfig() Config {
	return Config{
		Size:                   DefaultSize,
		CropRate:               1.0 / 30.0,
		StructureUpdateSeconds: 1,
	}
}

const noCrop = -1

type Cell struct {
	Soil   catalogs.SoilType
	Tilled bool

	structure *Structure
	crop      int
}

type World struct {
	cfg      Config
	catalogs *catalogs.Catalogs

	cells []Cell

	crops     []Crop
	freeCrops []int

	structures     []*Structure
	structureTimer float32
}

func New(cfg Config, cats *catalogs.Catalogs) *World {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.StructureUpdateSeconds <= 0 {
		cfg.StructureUpdateSeconds = 1
	}
	if cats == nil {
		cats = catalogs.Default()
	}
	w := &World{
		cfg:      cfg,
		catalogs: cats,
		cells:    make([]Cell, cfg.Size*cfg.Size),
	}
	for i := range w.cells {
		w.cells[i] = Cell{Soil: catalogs.SoilStone, crop: noCrop}
	}
	return w
}

func (w *World) Size() int { return w.cfg.Size }

// OutOfBounds reports whether (y,x) lies outside the grid.
func (w *World) OutOfBounds(y, x int) bool {
	return y < 0 || x < 0 || y >= w.cfg.Size || x >= w.cfg.Size
}

// ContainsPoint reports whether a continuous position lies on the grid.
func (w *World) ContainsPoint(y, x float32) bool {
	n := float32(w.cfg.Size)
	return y >= 0 && x >= 0 && y < n && x < n
}

func (w *World) cell(y, x int) *Cell { return &w.cells[y*w.cfg.Size+x] }

func (w *World) Soil(y, x uint8) catalogs.SoilType {
	if w.OutOfBounds(int(y), int(x)) {
		return catalogs.SoilStone
	}
	return w.cell(int(y), int(x)).Soil
}

func (w *World) Tilled(y, x uint8) bool {
	if w.OutOfBounds(int(y), int(x)) {
		return false
	}
	return w.cell(int(y), int(x)).Tilled
}

func (w *World) SetTilled(y, x uint8, tilled bool) bool {
	if w.OutOfBounds(int(y), int(x)) {
		return false
	}
	w.cell(int(y), int(x)).Tilled = tilled
	return true
}
