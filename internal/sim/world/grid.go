package world

import (
	"voxelforge.ai/internal/protocol"
	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/item"
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/machine/redstone"
)

const (
	blockLever = "LEVER"

	soundPlace = "block_place"
)

func (w *World) blockID(p machine.Pos) uint16 {
	return w.chunks.GetBlock(p.X, p.Y, p.Z)
}

func (w *World) blockName(p machine.Pos) string {
	id := w.blockID(p)
	if int(id) >= len(w.cats.Blocks.Palette) {
		return ""
	}
	return w.cats.Blocks.Palette[id]
}

func (w *World) blockDef(p machine.Pos) (catalogs.BlockDef, bool) {
	def, ok := w.cats.Blocks.Defs[w.blockName(p)]
	return def, ok
}

func (w *World) inBounds(p machine.Pos) bool {
	return w.chunks.InBounds(p.X, p.Y, p.Z)
}

// setBlock writes a block by name. Levers and machines that no longer match
// the cell are dropped.
func (w *World) setBlock(p machine.Pos, name string) bool {
	id, ok := w.cats.Blocks.Index[name]
	if !ok || !w.chunks.SetBlock(p.X, p.Y, p.Z, id) {
		return false
	}
	if name != blockLever {
		delete(w.levers, p)
	}
	if m, ok := w.machines[p]; ok && string(m.Kind()) != name {
		w.dropMachine(p)
	}
	w.changed = true
	return true
}

func (w *World) emit(e EffectEntry) { w.effects = append(w.effects, e) }

// worldGrid is the machine.Grid view of the world.
type worldGrid struct{ w *World }

func (g worldGrid) BlockAt(p machine.Pos) machine.Block {
	w := g.w
	id := w.blockID(p)
	name := w.blockName(p)
	def, ok := w.cats.Blocks.Defs[name]
	if !ok {
		return machine.Block{Name: name, StateID: id}
	}
	b := machine.Block{
		Name:         name,
		StateID:      id,
		Air:          id == w.air,
		Liquid:       def.Liquid,
		Hardness:     def.Hardness,
		HarvestLevel: def.HarvestLevel,
		OreTags:      def.OreTags,
	}
	// Hosted machines cannot be broken by other machines.
	if _, hosted := w.machines[p]; hosted {
		b.Hardness = -1
	}
	return b
}

func (g worldGrid) IsAir(p machine.Pos) bool {
	return g.w.blockID(p) == g.w.air
}

func (g worldGrid) Drops(p machine.Pos) []item.Stack {
	def, ok := g.w.blockDef(p)
	if !ok || len(def.Drops) == 0 {
		return nil
	}
	out := make([]item.Stack, 0, len(def.Drops))
	for _, d := range def.Drops {
		out = append(out, item.New(d.Item, d.Count))
	}
	return out
}

func (g worldGrid) HarvestChance(drops []item.Stack, p machine.Pos) float64 {
	if len(drops) == 0 {
		return 1
	}
	if c, ok := g.w.cfg.Tuning.Harvest.Chance[g.w.blockName(p)]; ok {
		return c
	}
	return 1
}

func (g worldGrid) ClearBlock(p machine.Pos) {
	g.w.setBlock(p, g.w.cats.Blocks.Palette[g.w.air])
}

func (g worldGrid) EmitBreakEffect(p machine.Pos, b machine.Block) {
	g.w.emit(EffectEntry{Effect: protocol.EffectBreak, Pos: p.ToArray(), Block: b.Name})
}

func (g worldGrid) EmitBeamEffect(from, to machine.Pos) {
	dst := to.ToArray()
	g.w.emit(EffectEntry{Effect: protocol.EffectBeam, Pos: from.ToArray(), To: &dst})
}

func (g worldGrid) PlaySound(id string, p machine.Pos) {
	g.w.emit(EffectEntry{Effect: protocol.EffectSound, Pos: p.ToArray(), Sound: id})
}

// UseItemAt places the block an item stands for into an empty cell in front
// of the machine. Items without a block form are left untouched.
func (g worldGrid) UseItemAt(from machine.Pos, face machine.Facing, stack item.Stack) item.Stack {
	w := g.w
	if stack.Empty() {
		return stack
	}
	def, ok := w.cats.Items.Defs[stack.Item]
	if !ok || def.PlaceAs == "" {
		return stack
	}
	target := from.Offset(face)
	if !w.inBounds(target) || !g.IsAir(target) {
		return stack
	}
	if _, hosted := w.machines[target]; hosted {
		return stack
	}
	if bd, ok := w.cats.Blocks.Defs[def.PlaceAs]; !ok || bd.Machine != "" {
		return stack
	}
	if !w.setBlock(target, def.PlaceAs) {
		return stack
	}
	g.PlaySound(soundPlace, target)
	return stack.WithCount(stack.Count - 1)
}

// RangeUpgrade doubles base for each range booster stacked directly above p.
func (g worldGrid) RangeUpgrade(base int, p machine.Pos) int {
	r := base
	for i := 1; i <= g.w.cfg.Tuning.Miner.MaxBoosters; i++ {
		def, ok := g.w.blockDef(p.Up(i))
		if !ok || !def.RangeBooster {
			break
		}
		r *= 2
	}
	return r
}

// redstoneEnv exposes levers and wires to the signal resolver.
type redstoneEnv struct{ w *World }

func (e redstoneEnv) BlockName(p redstone.Pos) string {
	return e.w.blockName(machine.Pos{X: p.X, Y: p.Y, Z: p.Z})
}

func (e redstoneEnv) LeverOn(p redstone.Pos) bool {
	return e.w.levers[machine.Pos{X: p.X, Y: p.Y, Z: p.Z}]
}

func (e redstoneEnv) powered(p machine.Pos, budget int) bool {
	return redstone.Powered(e, redstone.Pos{X: p.X, Y: p.Y, Z: p.Z}, budget)
}
