// Package harvest is the break-and-collect transaction shared by machines
// that mine blocks into their own inventory.
package harvest

import (
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/machine/inventory"
)

// Breakable reports whether b can be broken by a machine at all: present,
// not air, not a liquid, and not unbreakable (negative hardness).
func Breakable(b machine.Block) bool {
	return b.Present() && !b.Liquid && b.Hardness >= 0
}

// Collect breaks the block at p into slots. The break effect, clearing the
// cell and the deposit happen together or not at all: a failed chance roll
// or a deposit that would not fit leaves grid and inventory untouched.
func Collect(ctx *machine.Context, slots *inventory.Slots, p machine.Pos, b machine.Block) bool {
	drops := ctx.Grid.Drops(p)
	chance := ctx.Grid.HarvestChance(drops, p)
	if chance <= 0 || float64(ctx.Rand.Float32()) > chance {
		return false
	}
	if !slots.AddAll(drops, true) {
		return false
	}
	ctx.Grid.EmitBreakEffect(p, b)
	ctx.Grid.ClearBlock(p)
	slots.AddAll(drops, false)
	return true
}
