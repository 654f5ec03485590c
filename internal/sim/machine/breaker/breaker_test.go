package breaker

import (
	"testing"

	"voxelforge.ai/internal/sim/item"
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/machine/machinetest"
	"voxelforge.ai/internal/sim/machine/record"
	"voxelforge.ai/internal/sim/machine/redstone"
)

var origin = machine.Pos{X: 0, Y: 10, Z: 0}

func TestBreakerWorksEveryPeriod(t *testing.T) {
	g := machinetest.NewGrid()
	front := origin.Offset(machine.East)
	g.Put(front, machinetest.Stone())
	b := New(origin, machine.East, false, Config{})
	ctx := machinetest.Context(g)

	machinetest.Run(ctx, b, DefaultPeriod-1)
	if g.Clears != 0 {
		t.Fatalf("cleared after %d ticks, want none", DefaultPeriod-1)
	}
	machinetest.Run(ctx, b, 1)
	if g.Clears != 1 || len(g.Breaks) != 1 {
		t.Fatalf("clears=%d breaks=%d, want 1/1", g.Clears, len(g.Breaks))
	}
	if got := b.Inventory().Get(0); got.Item != "COBBLESTONE" || got.Count != 1 {
		t.Fatalf("slot0=%+v, want 1 COBBLESTONE", got)
	}
	if !b.TakeDirty() {
		t.Fatalf("breaker not dirty after harvest")
	}

	g.Put(front, machinetest.Stone())
	machinetest.Run(ctx, b, DefaultPeriod)
	if got := b.Inventory().Get(0).Count; got != 2 {
		t.Fatalf("slot0 count=%d, want 2 after second period", got)
	}
}

func TestBreakerSkipsUnbreakable(t *testing.T) {
	for _, blk := range []machine.Block{machinetest.Bedrock(), machinetest.Water()} {
		g := machinetest.NewGrid()
		g.Put(origin.Offset(machine.North), blk)
		b := New(origin, machine.North, false, Config{})
		ctx := machinetest.Context(g)
		b.Pulse(ctx)
		if g.Clears != 0 || len(g.Breaks) != 0 || b.Dirty() {
			t.Fatalf("%s: clears=%d breaks=%d dirty=%v, want no mutation", blk.Name, g.Clears, len(g.Breaks), b.Dirty())
		}
	}

	g := machinetest.NewGrid()
	b := New(origin, machine.North, false, Config{})
	b.Pulse(machinetest.Context(g))
	if g.Clears != 0 {
		t.Fatalf("air: clears=%d, want 0", g.Clears)
	}
}

func TestBreakerFullInventoryLeavesBlock(t *testing.T) {
	g := machinetest.NewGrid()
	front := origin.Offset(machine.South)
	g.Put(front, machinetest.Stone())
	b := New(origin, machine.South, false, Config{Slots: 1})
	b.Inventory().Set(0, item.New("DIRT", 64))

	b.Pulse(machinetest.Context(g))
	if g.Clears != 0 || len(g.Breaks) != 0 {
		t.Fatalf("clears=%d breaks=%d, want none when drops do not fit", g.Clears, len(g.Breaks))
	}
	if g.BlockAt(front).Name != "STONE" {
		t.Fatalf("front=%s, want STONE", g.BlockAt(front).Name)
	}
	if got := b.Inventory().Get(0); got.Item != "DIRT" || got.Count != 64 {
		t.Fatalf("slot0=%+v, want untouched", got)
	}
}

func TestBreakerInhibitedByRedstone(t *testing.T) {
	g := machinetest.NewGrid()
	g.Put(origin.Offset(machine.East), machinetest.Stone())
	b := New(origin, machine.East, false, Config{})
	b.Redstone.Powered = true
	ctx := machinetest.Context(g)

	machinetest.Run(ctx, b, 3*DefaultPeriod)
	if g.Clears != 0 {
		t.Fatalf("powered breaker cleared %d blocks, want 0", g.Clears)
	}
}

func TestBreakerPulseMode(t *testing.T) {
	g := machinetest.NewGrid()
	g.Put(origin.Offset(machine.East), machinetest.Stone())
	b := New(origin, machine.East, false, Config{})
	b.Redstone.Mode = redstone.Pulse
	ctx := machinetest.Context(g)

	machinetest.Run(ctx, b, 2*DefaultPeriod)
	if g.Clears != 0 {
		t.Fatalf("pulse-mode breaker ticked on its own")
	}
	if b.Redstone.Update(true) {
		b.Pulse(ctx)
	}
	if g.Clears != 1 {
		t.Fatalf("clears=%d after rising edge, want 1", g.Clears)
	}
	if b.Redstone.Update(true) {
		t.Fatalf("held signal fired a second pulse")
	}
}

func TestPlacerUsesFirstFilledSlot(t *testing.T) {
	g := machinetest.NewGrid()
	b := New(origin, machine.West, true, Config{})
	if b.Kind() != machine.KindPlacer {
		t.Fatalf("kind=%s, want PLACER", b.Kind())
	}
	if !b.CanInsert(2, item.New("PLANKS", 2)) {
		t.Fatalf("placer rejected external insert")
	}
	b.Inventory().Set(2, item.New("PLANKS", 2))

	b.Pulse(machinetest.Context(g))
	if g.BlockAt(origin.Offset(machine.West)).Name != "PLANKS" {
		t.Fatalf("target not placed")
	}
	if got := b.Inventory().Get(2).Count; got != 1 {
		t.Fatalf("slot2 count=%d, want 1", got)
	}

	// Target is now occupied: nothing changes.
	b.TakeDirty()
	b.Pulse(machinetest.Context(g))
	if got := b.Inventory().Get(2).Count; got != 1 || b.Dirty() {
		t.Fatalf("slot2 count=%d dirty=%v, want 1/false", got, b.Dirty())
	}
}

func TestBreakerRejectsExternalInsert(t *testing.T) {
	b := New(origin, machine.East, false, Config{})
	if b.CanInsert(0, item.New("STONE", 1)) {
		t.Fatalf("breaker accepted external insert")
	}
	if !b.CanExtract(0, item.New("STONE", 1)) {
		t.Fatalf("breaker refused extraction")
	}
}

func TestSaveContexts(t *testing.T) {
	b := New(origin, machine.Up, false, Config{})
	b.Inventory().Set(4, item.New("COBBLESTONE", 7))
	b.cooldown = 6
	b.Redstone.Mode = redstone.Pulse

	full := b.Save(record.FullSave)
	if full.Int("CurrentTime") != 6 || !full.Has("Items") || !full.Has("TicksElapsed") {
		t.Fatalf("full save missing fields: %v", full)
	}
	sync := b.Save(record.NetworkSync)
	if sync.Has("CurrentTime") || sync.Has("TicksElapsed") {
		t.Fatalf("network sync carries local state: %v", sync)
	}
	drop := b.Save(record.ItemDrop)
	if drop.Has("Items") || drop.Has("Facing") || !drop.Bool("IsPulseMode") {
		t.Fatalf("item drop=%v, want only pulse mode and kind flag", drop)
	}

	raw, err := full.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	r, err := record.Unmarshal(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := New(machine.Pos{}, machine.Down, false, Config{})
	got.Load(r, record.FullSave)
	if got.cooldown != 6 || got.Facing != machine.Up || got.Redstone.Mode != redstone.Pulse {
		t.Fatalf("loaded cooldown=%d facing=%s mode=%s", got.cooldown, got.Facing, got.Redstone.Mode)
	}
	if st := got.Inventory().Get(4); st.Item != "COBBLESTONE" || st.Count != 7 {
		t.Fatalf("slot4=%+v, want 7 COBBLESTONE", st)
	}
}

func TestLoadKeepsConstructedMode(t *testing.T) {
	placer := New(origin, machine.Up, true, Config{})
	drop := placer.Save(record.ItemDrop)
	if !drop.Bool("IsPlacer") {
		t.Fatalf("drop=%v, want IsPlacer", drop)
	}

	b := New(origin, machine.Up, false, Config{})
	b.Load(drop, record.ItemDrop)
	if b.IsPlacer() || b.Kind() != machine.KindBreaker {
		t.Fatalf("kind=%s after loading a placer record, want BREAKER", b.Kind())
	}
	if b.CanInsert(0, item.New("STONE", 1)) {
		t.Fatalf("breaker accepts external inserts")
	}
}
