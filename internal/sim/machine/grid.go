package machine

import "voxelforge.ai/internal/sim/item"

// Block is a read-only view of one grid cell.
type Block struct {
	Name         string
	StateID      uint16
	Air          bool
	Liquid       bool
	Hardness     float64
	HarvestLevel int
	OreTags      []string
}

// Present reports whether the cell holds a real block.
func (b Block) Present() bool { return b.Name != "" && !b.Air }

// Grid is the shared world the machines read and mutate. It is owned by the
// host; machines only hold coordinates into it. All calls happen on the
// simulation goroutine.
type Grid interface {
	BlockAt(p Pos) Block
	IsAir(p Pos) bool
	// Drops lists what breaking the block at p would yield.
	Drops(p Pos) []item.Stack
	// HarvestChance returns the probability in [0,1] that drops are kept,
	// after any host-side modifiers.
	HarvestChance(drops []item.Stack, p Pos) float64
	ClearBlock(p Pos)

	EmitBreakEffect(p Pos, b Block)
	EmitBeamEffect(from, to Pos)
	PlaySound(id string, p Pos)

	// UseItemAt applies stack from a machine at from toward face and
	// returns what is left of the stack.
	UseItemAt(from Pos, face Facing, stack item.Stack) item.Stack
	// RangeUpgrade returns base adjusted by range boosters around p.
	RangeUpgrade(base int, p Pos) int
}
