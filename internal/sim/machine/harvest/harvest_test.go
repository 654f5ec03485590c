package harvest

import (
	"math/rand"
	"testing"

	"github.com/rs/zerolog"

	"voxelforge.ai/internal/sim/item"
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/machine/inventory"
	"voxelforge.ai/internal/sim/machine/machinetest"
)

func ctxFor(g machine.Grid) *machine.Context {
	return &machine.Context{Grid: g, Rand: rand.New(rand.NewSource(1)), Log: zerolog.Nop()}
}

func TestBreakable(t *testing.T) {
	cases := []struct {
		b    machine.Block
		want bool
	}{
		{machine.Block{Name: "STONE", Hardness: 1.5}, true},
		{machine.Block{Name: "AIR", Air: true}, false},
		{machine.Block{}, false},
		{machine.Block{Name: "WATER", Liquid: true}, false},
		{machine.Block{Name: "BEDROCK", Hardness: -1}, false},
	}
	for _, tc := range cases {
		if got := Breakable(tc.b); got != tc.want {
			t.Fatalf("Breakable(%s)=%v, want %v", tc.b.Name, got, tc.want)
		}
	}
}

func TestCollectCommitsAtomically(t *testing.T) {
	g := machinetest.NewGrid()
	p := machine.Pos{X: 1}
	g.Put(p, machinetest.Stone())
	slots := inventory.New(1, nil, nil)

	if !Collect(ctxFor(g), slots, p, g.BlockAt(p)) {
		t.Fatalf("Collect failed on plain stone")
	}
	if !g.IsAir(p) {
		t.Fatalf("block not cleared")
	}
	if got := slots.Get(0); got.Item != "COBBLESTONE" || got.Count != 1 {
		t.Fatalf("slot=%+v, want COBBLESTONE x1", got)
	}
	if len(g.Breaks) != 1 {
		t.Fatalf("break effects=%d, want 1", len(g.Breaks))
	}
}

func TestCollectRejectedDepositLeavesGrid(t *testing.T) {
	g := machinetest.NewGrid()
	p := machine.Pos{X: 1}
	g.Put(p, machinetest.Stone())
	slots := inventory.New(1, nil, nil)
	slots.Set(0, item.New("DIRT", 64))

	if Collect(ctxFor(g), slots, p, g.BlockAt(p)) {
		t.Fatalf("Collect succeeded into a full inventory")
	}
	if g.IsAir(p) || len(g.Breaks) != 0 || g.Clears != 0 {
		t.Fatalf("grid mutated on rejected deposit: clears=%d breaks=%d", g.Clears, len(g.Breaks))
	}
	if got := slots.Get(0); got.Item != "DIRT" || got.Count != 64 {
		t.Fatalf("inventory changed: %+v", got)
	}
}

func TestCollectZeroChance(t *testing.T) {
	g := machinetest.NewGrid()
	g.Chance = 0
	p := machine.Pos{X: 1}
	g.Put(p, machinetest.Stone())
	slots := inventory.New(1, nil, nil)
	if Collect(ctxFor(g), slots, p, g.BlockAt(p)) {
		t.Fatalf("Collect with zero chance succeeded")
	}
	if g.IsAir(p) {
		t.Fatalf("block cleared despite zero chance")
	}
}
