// Package hud projects a machine into the read-only overlay an observer
// shows when looking at it. It only asks capability questions and never
// needs to know the concrete machine type.
package hud

import (
	"voxelforge.ai/internal/sim/machine"
)

type Gauge struct {
	Stored   int `json:"stored"`
	Capacity int `json:"capacity"`
}

type FluidGauge struct {
	Fluid    string `json:"fluid,omitempty"`
	Amount   int    `json:"amount"`
	Capacity int    `json:"capacity"`
}

type Readout struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type Overlay struct {
	Kind     machine.Kind `json:"kind"`
	Pos      [3]int       `json:"pos"`
	Facing   string       `json:"facing"`
	Redstone string       `json:"redstone_mode,omitempty"`
	Powered  bool         `json:"powered"`
	Energy   *Gauge       `json:"energy,omitempty"`
	Fluid    *FluidGauge  `json:"fluid,omitempty"`
	Readouts []Readout    `json:"readouts,omitempty"`
}

// Describe builds the overlay for m. The fluid gauge reads the tank reachable
// from above, which every fluid machine exposes.
func Describe(m machine.Machine) Overlay {
	b := m.Common()
	caps := m.Capabilities()
	o := Overlay{
		Kind:    m.Kind(),
		Pos:     b.Pos.ToArray(),
		Facing:  b.Facing.String(),
		Powered: b.Redstone.Powered,
	}
	if caps.Has(machine.CapRedstoneToggle) {
		o.Redstone = b.Redstone.Mode.String()
	}
	if caps.Has(machine.CapEnergy) {
		if e := m.Energy(); e != nil {
			o.Energy = &Gauge{Stored: e.Stored(), Capacity: e.Capacity()}
		}
	}
	if caps.Has(machine.CapFluid) {
		if t := m.Tank(machine.Up); t != nil {
			o.Fluid = &FluidGauge{Fluid: t.Fluid(), Amount: t.Amount(), Capacity: t.Capacity()}
		}
	}
	for _, f := range m.SyncFields() {
		if f.Readout {
			o.Readouts = append(o.Readouts, Readout{Name: f.Name, Value: f.Value})
		}
	}
	return o
}
