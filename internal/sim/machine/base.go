package machine

import (
	"voxelforge.ai/internal/sim/machine/buffer"
	"voxelforge.ai/internal/sim/machine/record"
	"voxelforge.ai/internal/sim/machine/redstone"
	"voxelforge.ai/internal/sim/machine/syncstate"
)

// DefaultSyncInterval matches the default tile update interval.
const DefaultSyncInterval = 5

// Base carries the state every machine shares. Embed it and return it from
// Common().
type Base struct {
	Pos      Pos
	Facing   Facing
	Redstone redstone.State
	Ticks    uint64
	Sync     *syncstate.Tracker

	dirty bool
}

func NewBase(pos Pos, facing Facing, syncInterval int) Base {
	return Base{
		Pos:    pos,
		Facing: facing,
		Sync:   syncstate.NewTracker(syncInterval),
	}
}

func (b *Base) Common() *Base { return b }

func (b *Base) MarkDirty()  { b.dirty = true }
func (b *Base) Dirty() bool { return b.dirty }

// TakeDirty reports and clears the dirty flag.
func (b *Base) TakeDirty() bool {
	d := b.dirty
	b.dirty = false
	return d
}

func (b *Base) Inhibited() bool { return b.Redstone.Inhibited() }

// Default capability accessors for machines that lack them.
func (b *Base) Energy() *buffer.Energy   { return nil }
func (b *Base) Tank(Facing) *buffer.Tank { return nil }

// SaveBase writes the shared fields. The tick counter is only part of the
// full save.
func (b *Base) SaveBase(r record.Record, c record.Context) {
	if c != record.ItemDrop {
		r.SetInt("Facing", int(b.Facing))
	}
	if c == record.FullSave {
		r.Set("TicksElapsed", b.Ticks)
	}
	b.Redstone.Save(r, c)
}

func (b *Base) LoadBase(r record.Record, c record.Context) {
	if c != record.ItemDrop && r.Has("Facing") {
		if f := Facing(r.Int("Facing")); f.Valid() {
			b.Facing = f
		}
	}
	if c == record.FullSave {
		var ticks uint64
		_ = r.Decode("TicksElapsed", &ticks)
		b.Ticks = ticks
	}
	b.Redstone.Load(r, c)
}
