// Package buffer holds the bounded resource stores machines draw from.
package buffer

import "voxelforge.ai/internal/sim/machine/record"

// Energy is a bounded energy store. 0 <= stored <= capacity always holds.
type Energy struct {
	stored     int
	capacity   int
	maxReceive int
	maxExtract int
}

func NewEnergy(capacity int) *Energy {
	return NewEnergyWithRates(capacity, capacity, capacity)
}

// NewEnergyWithRates caps how much a single Receive/Extract call may move.
func NewEnergyWithRates(capacity, maxReceive, maxExtract int) *Energy {
	if capacity < 1 {
		capacity = 1
	}
	return &Energy{capacity: capacity, maxReceive: maxReceive, maxExtract: maxExtract}
}

func (e *Energy) Stored() int   { return e.stored }
func (e *Energy) Capacity() int { return e.capacity }

// Receive accepts up to n units and returns the amount accepted.
// With simulate set the store is left unchanged.
func (e *Energy) Receive(n int, simulate bool) int {
	if n <= 0 {
		return 0
	}
	accepted := min(n, e.capacity-e.stored, e.maxReceive)
	if accepted < 0 {
		accepted = 0
	}
	if !simulate {
		e.stored += accepted
	}
	return accepted
}

// Extract releases up to n units and returns the amount released.
func (e *Energy) Extract(n int, simulate bool) int {
	if n <= 0 {
		return 0
	}
	released := min(n, e.stored, e.maxExtract)
	if released < 0 {
		released = 0
	}
	if !simulate {
		e.stored -= released
	}
	return released
}

// SetStored overwrites the level, clamped to [0, capacity]. Used when loading.
func (e *Energy) SetStored(n int) {
	e.stored = max(0, min(n, e.capacity))
}

func (e *Energy) Save(r record.Record) {
	r.SetInt("Energy", e.stored)
}

func (e *Energy) Load(r record.Record) {
	e.SetStored(r.Int("Energy"))
}
