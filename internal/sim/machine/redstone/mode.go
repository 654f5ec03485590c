// Package redstone resolves control signals for machines and applies the
// deactivation/pulse control modes.
package redstone

import "voxelforge.ai/internal/sim/machine/record"

type Mode int

const (
	// Deactivation: a powered machine stops automatic work.
	Deactivation Mode = iota
	// Pulse: automatic work is off; each rising signal edge triggers one cycle.
	Pulse
)

func (m Mode) String() string {
	if m == Pulse {
		return "PULSE"
	}
	return "DEACTIVATION"
}

type State struct {
	Mode    Mode
	Powered bool
}

// Update records the current signal level and reports whether it is a
// rising edge that should fire a pulse.
func (s *State) Update(powered bool) bool {
	rising := powered && !s.Powered
	s.Powered = powered
	return rising && s.Mode == Pulse
}

// Inhibited reports whether automatic ticking is suppressed.
func (s State) Inhibited() bool {
	return s.Powered || s.Mode == Pulse
}

func (s *State) Toggle() {
	if s.Mode == Pulse {
		s.Mode = Deactivation
	} else {
		s.Mode = Pulse
	}
}

// Save writes the mode. In the item-drop form it is only kept when non-default.
func (s State) Save(r record.Record, ctx record.Context) {
	if ctx != record.ItemDrop || s.Mode == Pulse {
		r.SetBool("IsPulseMode", s.Mode == Pulse)
	}
	if ctx == record.FullSave {
		r.SetBool("IsRedstonePowered", s.Powered)
	}
}

func (s *State) Load(r record.Record, ctx record.Context) {
	s.Mode = Deactivation
	if r.Bool("IsPulseMode") {
		s.Mode = Pulse
	}
	if ctx == record.FullSave {
		s.Powered = r.Bool("IsRedstonePowered")
	}
}
