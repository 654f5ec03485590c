// Package machine is the per-tick framework for resource machines: a shared
// Base (position, facing, control signal, dirty flag, sync tracker), the
// Grid they act on and the Machine contract the host scheduler drives.
package machine

import (
	"math/rand"

	"github.com/rs/zerolog"

	"voxelforge.ai/internal/sim/item"
	"voxelforge.ai/internal/sim/machine/buffer"
	"voxelforge.ai/internal/sim/machine/inventory"
	"voxelforge.ai/internal/sim/machine/record"
	"voxelforge.ai/internal/sim/machine/syncstate"
)

type Kind string

const (
	KindBreaker Kind = "BREAKER"
	KindPlacer  Kind = "PLACER"
	KindBrewer  Kind = "COFFEE_MACHINE"
	KindMiner   Kind = "MINER"
)

var Kinds = []Kind{KindBreaker, KindPlacer, KindBrewer, KindMiner}

func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Capability is a bit set the host queries instead of inspecting types.
type Capability uint32

const (
	CapInventory Capability = 1 << iota
	CapEnergy
	CapFluid
	CapRedstoneToggle
	CapButtons
)

func (c Capability) Has(o Capability) bool { return c&o == o }

// Context is what a machine sees during one tick.
type Context struct {
	Tick uint64
	Grid Grid
	Rand *rand.Rand
	Log  zerolog.Logger
}

type Machine interface {
	Kind() Kind
	Common() *Base
	Capabilities() Capability

	// Tick advances the machine by one simulation step.
	Tick(ctx *Context)
	// Pulse runs one work cycle now, bypassing any cooldown.
	Pulse(ctx *Context)
	Button(ctx *Context, id int, actor string)

	Save(c record.Context) record.Record
	Load(r record.Record, c record.Context)

	Inventory() *inventory.Slots
	CanInsert(slot int, s item.Stack) bool
	CanExtract(slot int, s item.Stack) bool

	// Energy is nil for machines without CapEnergy.
	Energy() *buffer.Energy
	// Tank returns the tank reachable from side, or nil.
	Tank(side Facing) *buffer.Tank

	SyncFields() []syncstate.Field
}

// Step advances the machine's tick counter and runs one tick.
func Step(ctx *Context, m Machine) {
	m.Common().Ticks++
	m.Tick(ctx)
}
