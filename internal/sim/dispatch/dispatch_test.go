package dispatch

import (
	"testing"

	"farmdustry.io/internal/protocol"
	"farmdustry.io/internal/sim/catalogs"
	"farmdustry.io/internal/sim/entities"
	"farmdustry.io/internal/sim/inventory"
	"farmdustry.io/internal/sim/tuning"
	"farmdustry.io/internal/sim/world"
)

type recorder struct{ cmds []protocol.Command }

func (r *recorder) Emit(c protocol.Command) { r.cmds = append(r.cmds, c) }

func (r *recorder) kinds() []protocol.Kind {
	out := make([]protocol.Kind, 0, len(r.cmds))
	for _, c := range r.cmds {
		out = append(out, c.Kind())
	}
	return out
}

func (r *recorder) reset() { r.cmds = nil }

func newTestDispatcher(t *testing.T, rules tuning.Rules) (*Dispatcher, *recorder) {
	t.Helper()
	cats := catalogs.Default()
	starter := []inventory.Stack{{Item: catalogs.ItemCarrotSeed, Count: 3}}
	rec := &recorder{}
	return &Dispatcher{
		World:        world.New(world.DefaultConfig(), cats),
		Inventories:  inventory.NewList(20, cats.UnitVolume, starter),
		Players:      entities.NewPlayers(5),
		Drops:        entities.NewItemDrops(),
		Rules:        rules,
		PickupRadius: 1,
		Out:          rec,
	}, rec
}

func sameKinds(got, want []protocol.Kind) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestPlantCrop_ConsumesSeedAndEmits(t *testing.T) {
	d, rec := newTestDispatcher(t, tuning.Defaults().Rules)

	r := d.Dispatch(1, protocol.PlantCrop{PlayerID: 1, Y: 3, X: 3, Crop: catalogs.CropCarrot})
	if !r.Accepted {
		t.Fatalf("plant rejected: %+v", r)
	}
	want := []protocol.Kind{protocol.KindRemoveItemFromInventory, protocol.KindAddCrop}
	if !sameKinds(rec.kinds(), want) {
		t.Fatalf("emitted %v", rec.kinds())
	}
	if got := d.Inventories.Get(1).CountItem(catalogs.ItemCarrotSeed); got != 2 {
		t.Fatalf("seeds=%d want 2", got)
	}
	if rec.cmds[1] != (protocol.AddCrop{Y: 3, X: 3, Crop: catalogs.CropCarrot}) {
		t.Fatalf("add crop: %#v", rec.cmds[1])
	}
}

func TestPlantCrop_WithoutSeedIsDropped(t *testing.T) {
	d, rec := newTestDispatcher(t, tuning.Defaults().Rules)
	r := d.Dispatch(1, protocol.PlantCrop{PlayerID: 1, Y: 3, X: 3, Crop: catalogs.CropWheat})
	if r.Accepted || r.Code != protocol.RejectNoResource {
		t.Fatalf("result %+v", r)
	}
	if len(rec.cmds) != 0 {
		t.Fatalf("emitted on rejection: %v", rec.kinds())
	}
	if _, planted := d.World.Crop(3, 3); planted {
		t.Fatalf("crop placed without a seed")
	}
}

func TestPlantCrop_OccupiedRefundsByDefault(t *testing.T) {
	d, rec := newTestDispatcher(t, tuning.Defaults().Rules)
	d.Dispatch(1, protocol.PlantCrop{PlayerID: 1, Y: 3, X: 3, Crop: catalogs.CropCarrot})
	rec.reset()

	r := d.Dispatch(1, protocol.PlantCrop{PlayerID: 1, Y: 3, X: 3, Crop: catalogs.CropCarrot})
	if r.Accepted || r.Code != protocol.RejectOccupied {
		t.Fatalf("result %+v", r)
	}
	if len(rec.cmds) != 0 {
		t.Fatalf("emitted on refund: %v", rec.kinds())
	}
	if got := d.Inventories.Get(1).CountItem(catalogs.ItemCarrotSeed); got != 2 {
		t.Fatalf("seeds=%d want 2", got)
	}
}

func TestPlantCrop_OccupiedLegacyLosesSeed(t *testing.T) {
	rules := tuning.Defaults().Rules
	rules.RefundFailedPlant = false
	d, rec := newTestDispatcher(t, rules)
	d.Dispatch(1, protocol.PlantCrop{PlayerID: 1, Y: 3, X: 3, Crop: catalogs.CropCarrot})
	rec.reset()

	d.Dispatch(1, protocol.PlantCrop{PlayerID: 1, Y: 3, X: 3, Crop: catalogs.CropCarrot})
	if !sameKinds(rec.kinds(), []protocol.Kind{protocol.KindRemoveItemFromInventory}) {
		t.Fatalf("emitted %v", rec.kinds())
	}
	if got := d.Inventories.Get(1).CountItem(catalogs.ItemCarrotSeed); got != 1 {
		t.Fatalf("seeds=%d want 1", got)
	}
}

func TestHarvestCrop_ImmatureYieldsSeed(t *testing.T) {
	d, rec := newTestDispatcher(t, tuning.Defaults().Rules)
	d.Dispatch(1, protocol.PlantCrop{PlayerID: 1, Y: 2, X: 2, Crop: catalogs.CropCarrot})
	rec.reset()

	r := d.Dispatch(1, protocol.HarvestCrop{PlayerID: 1, Y: 2, X: 2})
	if !r.Accepted {
		t.Fatalf("harvest rejected: %+v", r)
	}
	want := []protocol.Command{
		protocol.RemoveCrop{Y: 2, X: 2},
		protocol.AddItemToInventory{PlayerID: 1, Item: catalogs.ItemCarrotSeed, Amount: 1},
	}
	if len(rec.cmds) != len(want) || rec.cmds[0] != want[0] || rec.cmds[1] != want[1] {
		t.Fatalf("emitted %#v", rec.cmds)
	}
	if r := d.Dispatch(1, protocol.HarvestCrop{PlayerID: 1, Y: 2, X: 2}); r.Code != protocol.RejectNotFound {
		t.Fatalf("second harvest: %+v", r)
	}
}

func TestHarvestCrop_MatureOverflowSpawnsDrop(t *testing.T) {
	d, rec := newTestDispatcher(t, tuning.Defaults().Rules)
	d.Dispatch(1, protocol.PlantCrop{PlayerID: 1, Y: 2, X: 2, Crop: catalogs.CropCarrot})
	d.World.UpdateCrops(60)

	// Fill the remaining volume: 2 seeds already held.
	inv := d.Inventories.Get(1)
	if !inv.AddItem(catalogs.ItemWheatSeed, 18) {
		t.Fatalf("fill failed")
	}
	rec.reset()

	d.Dispatch(1, protocol.HarvestCrop{PlayerID: 1, Y: 2, X: 2})
	want := []protocol.Command{
		protocol.RemoveCrop{Y: 2, X: 2},
		protocol.SpawnItemDrop{Y: 2, X: 2, Item: catalogs.ItemCarrot, Amount: 1},
	}
	if len(rec.cmds) != 2 || rec.cmds[0] != want[0] || rec.cmds[1] != want[1] {
		t.Fatalf("emitted %#v", rec.cmds)
	}
	if d.Drops.Len() != 1 {
		t.Fatalf("drops=%d", d.Drops.Len())
	}
}

func TestStructures_PlaceAndDestroyEchoOrigin(t *testing.T) {
	d, rec := newTestDispatcher(t, tuning.Defaults().Rules)
	if r := d.Dispatch(1, protocol.PlaceStructure{PlayerID: 1, Y: 0, X: 0, Structure: catalogs.StructureBarn}); !r.Accepted {
		t.Fatalf("place: %+v", r)
	}
	if r := d.Dispatch(1, protocol.PlaceStructure{PlayerID: 1, Y: 1, X: 1, Structure: catalogs.StructureContainer}); r.Code != protocol.RejectOccupied {
		t.Fatalf("overlap: %+v", r)
	}
	if r := d.Dispatch(1, protocol.PlaceStructure{PlayerID: 1, Y: 15, X: 15, Structure: catalogs.StructureContainer}); r.Code != protocol.RejectOutOfBounds {
		t.Fatalf("bounds: %+v", r)
	}
	if r := d.Dispatch(1, protocol.DestroyStructure{PlayerID: 1, Y: 3, X: 2}); !r.Accepted {
		t.Fatalf("destroy: %+v", r)
	}
	want := []protocol.Command{
		protocol.AddStructure{Y: 0, X: 0, Structure: catalogs.StructureBarn},
		protocol.RemoveStructure{Y: 0, X: 0},
	}
	if len(rec.cmds) != 2 || rec.cmds[0] != want[0] || rec.cmds[1] != want[1] {
		t.Fatalf("emitted %#v", rec.cmds)
	}
}

func TestStructures_ChargedPlacement(t *testing.T) {
	rules := tuning.Defaults().Rules
	rules.ChargeStructures = true
	d, rec := newTestDispatcher(t, rules)

	if r := d.Dispatch(1, protocol.PlaceStructure{PlayerID: 1, Y: 0, X: 0, Structure: catalogs.StructureSprinkler}); r.Code != protocol.RejectNoResource {
		t.Fatalf("expected missing item rejection: %+v", r)
	}
	d.Inventories.Get(1).AddItem(catalogs.ItemSprinkler, 1)
	if r := d.Dispatch(1, protocol.PlaceStructure{PlayerID: 1, Y: 0, X: 0, Structure: catalogs.StructureSprinkler}); !r.Accepted {
		t.Fatalf("place: %+v", r)
	}
	if d.Inventories.Get(1).CountItem(catalogs.ItemSprinkler) != 0 {
		t.Fatalf("item not consumed")
	}
	d.Dispatch(1, protocol.DestroyStructure{PlayerID: 1, Y: 0, X: 0})
	if d.Inventories.Get(1).CountItem(catalogs.ItemSprinkler) != 1 {
		t.Fatalf("item not returned")
	}
	want := []protocol.Kind{
		protocol.KindRemoveItemFromInventory, protocol.KindAddStructure,
		protocol.KindRemoveStructure, protocol.KindAddItemToInventory,
	}
	if !sameKinds(rec.kinds(), want) {
		t.Fatalf("emitted %v", rec.kinds())
	}
}

func TestDropAndPickup(t *testing.T) {
	d, rec := newTestDispatcher(t, tuning.Defaults().Rules)

	r := d.Dispatch(1, protocol.DropItem{PlayerID: 1, Y: 4, X: 4, Item: catalogs.ItemCarrotSeed, Amount: 5})
	if r.Accepted || r.Code != protocol.RejectNoResource {
		t.Fatalf("over-drop: %+v", r)
	}
	if d.Drops.Len() != 0 || len(rec.cmds) != 0 {
		t.Fatalf("over-drop spawned a drop")
	}

	if r := d.Dispatch(1, protocol.DropItem{PlayerID: 1, Y: 4, X: 4, Item: catalogs.ItemCarrotSeed, Amount: 2}); !r.Accepted {
		t.Fatalf("drop: %+v", r)
	}
	want := []protocol.Command{
		protocol.RemoveItemFromInventory{PlayerID: 1, Item: catalogs.ItemCarrotSeed, Amount: 2},
		protocol.SpawnItemDrop{Y: 4, X: 4, Item: catalogs.ItemCarrotSeed, Amount: 2},
	}
	if len(rec.cmds) != 2 || rec.cmds[0] != want[0] || rec.cmds[1] != want[1] {
		t.Fatalf("emitted %#v", rec.cmds)
	}
	rec.reset()

	if r := d.Dispatch(2, protocol.PickupItem{PlayerID: 2, Y: 4.5, X: 4.5}); !r.Accepted {
		t.Fatalf("pickup: %+v", r)
	}
	want = []protocol.Command{
		protocol.AddItemToInventory{PlayerID: 2, Item: catalogs.ItemCarrotSeed, Amount: 2},
		protocol.RemoveItemDrop{DropID: 0},
	}
	if len(rec.cmds) != 2 || rec.cmds[0] != want[0] || rec.cmds[1] != want[1] {
		t.Fatalf("emitted %#v", rec.cmds)
	}
	if got := d.Inventories.Get(2).CountItem(catalogs.ItemCarrotSeed); got != 5 {
		t.Fatalf("player 2 seeds=%d want 5", got)
	}
	if d.Drops.Len() != 0 {
		t.Fatalf("picked drop left in the world")
	}
}

func TestPickup_LegacyKeepsDrops(t *testing.T) {
	rules := tuning.Defaults().Rules
	rules.RemovePickedDrops = false
	d, rec := newTestDispatcher(t, rules)
	d.Dispatch(1, protocol.DropItem{PlayerID: 1, Y: 1, X: 1, Item: catalogs.ItemCarrotSeed, Amount: 1})
	rec.reset()

	d.Dispatch(1, protocol.PickupItem{PlayerID: 1, Y: 1, X: 1})
	if !sameKinds(rec.kinds(), []protocol.Kind{protocol.KindAddItemToInventory}) {
		t.Fatalf("emitted %v", rec.kinds())
	}
	if d.Drops.Len() != 1 {
		t.Fatalf("legacy pickup removed the drop")
	}
}

func TestPickup_OutOfRange(t *testing.T) {
	d, _ := newTestDispatcher(t, tuning.Defaults().Rules)
	d.Dispatch(1, protocol.DropItem{PlayerID: 1, Y: 1, X: 1, Item: catalogs.ItemCarrotSeed, Amount: 1})
	if r := d.Dispatch(1, protocol.PickupItem{PlayerID: 1, Y: 3, X: 3}); r.Code != protocol.RejectNotFound {
		t.Fatalf("result %+v", r)
	}
}

func TestUpdatePlayerLocation_SessionIDWins(t *testing.T) {
	d, rec := newTestDispatcher(t, tuning.Defaults().Rules)
	d.Dispatch(4, protocol.UpdatePlayerLocation{PlayerID: 9, Y: 1, X: 2, YVelocity: 0.5})

	if _, ok := d.Players.Snapshot(9); ok {
		t.Fatalf("payload id was trusted")
	}
	p, _ := d.Players.Snapshot(4)
	if p.Y != 1 || p.X != 2 || p.YVelocity != 0.5 {
		t.Fatalf("player 4: %+v", p)
	}
	if rec.cmds[0] != (protocol.UpdatePlayerLocation{PlayerID: 4, Y: 1, X: 2, YVelocity: 0.5}) {
		t.Fatalf("echo: %#v", rec.cmds[0])
	}
}

func TestUpdatePlayerLocation_Validation(t *testing.T) {
	d, _ := newTestDispatcher(t, tuning.Defaults().Rules)
	if r := d.Dispatch(1, protocol.UpdatePlayerLocation{PlayerID: 1, Y: -5, X: 40}); !r.Accepted {
		t.Fatalf("unvalidated move rejected: %+v", r)
	}

	rules := tuning.Defaults().Rules
	rules.ValidateMovement = true
	d, _ = newTestDispatcher(t, rules)
	if r := d.Dispatch(1, protocol.UpdatePlayerLocation{PlayerID: 1, Y: -5, X: 40}); r.Code != protocol.RejectOutOfBounds {
		t.Fatalf("validated move: %+v", r)
	}
}

func TestDispatch_RejectsNonActions(t *testing.T) {
	d, rec := newTestDispatcher(t, tuning.Defaults().Rules)
	for _, c := range []protocol.Command{
		protocol.AddCrop{Y: 1, X: 1, Crop: catalogs.CropCarrot},
		protocol.Tick{DeltaTime: 1},
		protocol.SetPlayerID{PlayerID: 3},
	} {
		if r := d.Dispatch(1, c); r.Accepted || r.Code != protocol.RejectNotAction {
			t.Fatalf("%s: %+v", c.Kind(), r)
		}
	}
	if len(rec.cmds) != 0 {
		t.Fatalf("emitted %v", rec.kinds())
	}
	if _, planted := d.World.Crop(1, 1); planted {
		t.Fatalf("client AddCrop mutated the world")
	}
}

func TestDispatch_ResultCodesAreKnown(t *testing.T) {
	d, _ := newTestDispatcher(t, tuning.Rules{ValidateMovement: true, ChargeStructures: true})
	for _, c := range []protocol.Command{
		protocol.PlantCrop{PlayerID: 1, Y: 1, X: 1, Crop: catalogs.CropCarrot},
		protocol.PlantCrop{PlayerID: 1, Y: 1, X: 1, Crop: catalogs.CropCarrot},
		protocol.PlantCrop{PlayerID: 1, Y: 200, X: 1, Crop: catalogs.CropCarrot},
		protocol.HarvestCrop{PlayerID: 1, Y: 9, X: 9},
		protocol.PlaceStructure{PlayerID: 1, Y: 0, X: 0, Structure: catalogs.StructureSprinkler},
		protocol.PlaceStructure{PlayerID: 1, Y: 0, X: 0},
		protocol.DestroyStructure{PlayerID: 1, Y: 5, X: 5},
		protocol.DropItem{PlayerID: 1, Y: 1, X: 1, Item: catalogs.ItemCarrotSeed, Amount: 0},
		protocol.DropItem{PlayerID: 1, Y: 1, X: 1, Item: catalogs.ItemCarrotSeed, Amount: 99},
		protocol.PickupItem{PlayerID: 1, Y: 8, X: 8},
		protocol.UpdatePlayerLocation{PlayerID: 1, Y: -1, X: -1},
		protocol.RemoveCrop{Y: 1, X: 1},
	} {
		if r := d.Dispatch(1, c); !protocol.IsKnownCode(r.Code) {
			t.Fatalf("%s: unknown code %q", c.Kind(), r.Code)
		}
	}
}
