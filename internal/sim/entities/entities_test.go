package entities

import (
	"testing"

	"farmdustry.io/internal/sim/catalogs"
)

func TestPlayers_GrowAndIntegrate(t *testing.T) {
	p := NewPlayers(5)
	p.SetPositionAndVelocity(3, 1, 2, 1, -1)
	if p.Count() != 1 {
		t.Fatalf("count=%d want 1", p.Count())
	}
	p.SetVelocity(1, 0, 2)
	p.SetPositionAndVelocity(0, 0, 0, 0, 0)
	p.SetVelocity(1, 0, 2)
	if p.Count() != 3 {
		t.Fatalf("count=%d want 3", p.Count())
	}
	var ids []uint8
	p.Each(func(id uint8, _ Player) { ids = append(ids, id) })
	if len(ids) != 3 || ids[0] != 0 || ids[1] != 1 || ids[2] != 3 {
		t.Fatalf("each visited %v", ids)
	}

	p.UpdateAll(0.1)
	got, ok := p.Snapshot(3)
	if !ok {
		t.Fatalf("missing player 3")
	}
	if got.Y != 1.5 || got.X != 1.5 {
		t.Fatalf("player 3 at (%v,%v)", got.Y, got.X)
	}
	if got1, _ := p.Snapshot(1); got1.X != 1 {
		t.Fatalf("player 1 x=%v", got1.X)
	}
}

func TestPlayers_SnapshotIsCopy(t *testing.T) {
	p := NewPlayers(5)
	p.SetPositionAndVelocity(0, 4, 4, 0, 0)
	s, _ := p.Snapshot(0)
	s.Y = 99
	if again, _ := p.Snapshot(0); again.Y != 4 {
		t.Fatalf("snapshot aliased registry state")
	}
	if _, ok := p.Snapshot(9); ok {
		t.Fatalf("unseen id must not resolve")
	}
}

func TestItemDrops_ReuseAndRange(t *testing.T) {
	d := NewItemDrops()
	a := d.Add(0, 0, catalogs.ItemCarrot, 1)
	b := d.Add(0, 1, catalogs.ItemWheat, 2)
	c := d.Add(5, 5, catalogs.ItemWheat, 3)
	if a != 0 || b != 1 || c != 2 {
		t.Fatalf("ids %d %d %d", a, b, c)
	}

	ids := d.InRange(0, 0, 1)
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 1 {
		t.Fatalf("in range=%v", ids)
	}

	if !d.Remove(b) || d.Remove(b) {
		t.Fatalf("remove must succeed once")
	}
	if d.Remove(-1) || d.Remove(42) {
		t.Fatalf("out of range remove accepted")
	}
	if _, ok := d.Snapshot(b); ok {
		t.Fatalf("removed drop still visible")
	}
	if d.Len() != 2 {
		t.Fatalf("len=%d", d.Len())
	}

	d.Remove(a)
	if id := d.Add(1, 1, catalogs.ItemCarrot, 1); id != b {
		t.Fatalf("expected first freed id %d, got %d", b, id)
	}
	if id := d.Add(1, 1, catalogs.ItemCarrot, 1); id != a {
		t.Fatalf("expected id %d, got %d", a, id)
	}
	if id := d.Add(1, 1, catalogs.ItemCarrot, 1); id != 3 {
		t.Fatalf("expected growth to id 3, got %d", id)
	}
}

func TestItemDrops_LayoutRebuildsSameIDs(t *testing.T) {
	src := NewItemDrops()
	for i := 0; i < 4; i++ {
		src.Add(float32(i), 0, catalogs.ItemWheat, 1)
	}
	src.Remove(2)
	src.Remove(0)

	slots, free := src.Layout()
	if slots != 4 || len(free) != 2 || free[0] != 2 || free[1] != 0 {
		t.Fatalf("layout slots=%d free=%v", slots, free)
	}

	dst := NewItemDrops()
	for id := int32(0); id < int32(slots); id++ {
		d, _ := src.Snapshot(id)
		dst.Add(d.Y, d.X, d.Item, d.Amount)
	}
	for _, id := range free {
		dst.Remove(id)
	}
	for i := 0; i < 3; i++ {
		want := src.Add(9, 9, catalogs.ItemCarrot, 1)
		if got := dst.Add(9, 9, catalogs.ItemCarrot, 1); got != want {
			t.Fatalf("add %d: id %d, want %d", i, got, want)
		}
	}
	if dst.Len() != src.Len() {
		t.Fatalf("len %d vs %d", dst.Len(), src.Len())
	}
}
