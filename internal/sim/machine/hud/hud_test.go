package hud

import (
	"testing"

	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/machine/breaker"
	"voxelforge.ai/internal/sim/machine/brewer"
	"voxelforge.ai/internal/sim/machine/buffer"
	"voxelforge.ai/internal/sim/machine/miner"
	"voxelforge.ai/internal/sim/machine/redstone"
)

func TestDescribeBrewer(t *testing.T) {
	b := brewer.New(machine.Pos{X: 1, Y: 2, Z: 3}, machine.East, brewer.Config{})
	b.Energy().SetStored(900)
	b.WaterTank().Fill(buffer.FluidStack{Fluid: "WATER", Amount: 250}, false)

	o := Describe(b)
	if o.Kind != machine.KindBrewer || o.Pos != [3]int{1, 2, 3} {
		t.Fatalf("kind=%s pos=%v", o.Kind, o.Pos)
	}
	if o.Redstone != "" {
		t.Fatalf("brewer has no mode toggle, got %q", o.Redstone)
	}
	if o.Energy == nil || o.Energy.Stored != 900 || o.Energy.Capacity != brewer.DefaultEnergyCap {
		t.Fatalf("energy=%+v", o.Energy)
	}
	if o.Fluid == nil || o.Fluid.Fluid != "WATER" || o.Fluid.Amount != 250 {
		t.Fatalf("fluid=%+v", o.Fluid)
	}
	names := map[string]bool{}
	for _, r := range o.Readouts {
		names[r.Name] = true
	}
	for _, want := range []string{"Cache", "Water", "Progress"} {
		if !names[want] {
			t.Fatalf("readouts=%+v missing %s", o.Readouts, want)
		}
	}
	if names["Items"] {
		t.Fatalf("inventory fingerprint exposed as readout")
	}
}

func TestDescribeBreakerAndMiner(t *testing.T) {
	br := breaker.New(machine.Pos{}, machine.North, false, breaker.Config{})
	br.Redstone.Mode = redstone.Pulse
	o := Describe(br)
	if o.Redstone != "PULSE" || o.Energy != nil || o.Fluid != nil {
		t.Fatalf("breaker overlay=%+v", o)
	}

	m := miner.New(machine.Pos{Y: 8}, machine.North, miner.Config{})
	o = Describe(m)
	if o.Redstone != "DEACTIVATION" || o.Energy == nil || o.Fluid != nil {
		t.Fatalf("miner overlay=%+v", o)
	}
	found := false
	for _, r := range o.Readouts {
		if r.Name == "Layer" && r.Value == int64(miner.LayerUnset) {
			found = true
		}
	}
	if !found {
		t.Fatalf("miner readouts=%+v, want unset layer", o.Readouts)
	}
}
