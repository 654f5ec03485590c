// Package machinetest provides an in-memory Grid for machine tests.
package machinetest

import (
	"math/rand"

	"github.com/rs/zerolog"

	"voxelforge.ai/internal/sim/item"
	"voxelforge.ai/internal/sim/machine"
)

type Beam struct{ From, To machine.Pos }

type Sound struct {
	ID  string
	Pos machine.Pos
}

// Grid is a map-backed machine.Grid that records every effect.
type Grid struct {
	Blocks map[machine.Pos]machine.Block
	// DropTable maps a block name to its drops; unknown blocks drop themselves.
	DropTable map[string][]item.Stack
	Chance    float64
	// Boost multiplies the base range in RangeUpgrade.
	Boost int

	Breaks []machine.Pos
	Beams  []Beam
	Sounds []Sound
	Clears int
	Uses   int
}

func NewGrid() *Grid {
	return &Grid{
		Blocks: map[machine.Pos]machine.Block{},
		DropTable: map[string][]item.Stack{
			"STONE": {item.New("COBBLESTONE", 1)},
		},
		Chance: 1,
		Boost:  1,
	}
}

func Stone() machine.Block { return machine.Block{Name: "STONE", Hardness: 1.5} }
func Bedrock() machine.Block {
	return machine.Block{Name: "BEDROCK", Hardness: -1}
}
func Water() machine.Block { return machine.Block{Name: "WATER", Liquid: true, Hardness: 100} }
func Ore(name, tag string, level int) machine.Block {
	return machine.Block{Name: name, Hardness: 3, HarvestLevel: level, OreTags: []string{tag}}
}

func (g *Grid) Put(p machine.Pos, b machine.Block) { g.Blocks[p] = b }

func (g *Grid) BlockAt(p machine.Pos) machine.Block {
	b, ok := g.Blocks[p]
	if !ok {
		return machine.Block{Name: "AIR", Air: true}
	}
	return b
}

func (g *Grid) IsAir(p machine.Pos) bool { return !g.BlockAt(p).Present() }

func (g *Grid) Drops(p machine.Pos) []item.Stack {
	b := g.BlockAt(p)
	if !b.Present() {
		return nil
	}
	if d, ok := g.DropTable[b.Name]; ok {
		out := make([]item.Stack, len(d))
		copy(out, d)
		return out
	}
	return []item.Stack{item.New(b.Name, 1)}
}

func (g *Grid) HarvestChance([]item.Stack, machine.Pos) float64 { return g.Chance }

func (g *Grid) ClearBlock(p machine.Pos) {
	delete(g.Blocks, p)
	g.Clears++
}

func (g *Grid) EmitBreakEffect(p machine.Pos, _ machine.Block) { g.Breaks = append(g.Breaks, p) }
func (g *Grid) EmitBeamEffect(from, to machine.Pos)            { g.Beams = append(g.Beams, Beam{from, to}) }
func (g *Grid) PlaySound(id string, p machine.Pos)             { g.Sounds = append(g.Sounds, Sound{id, p}) }

func (g *Grid) UseItemAt(from machine.Pos, face machine.Facing, stack item.Stack) item.Stack {
	target := from.Offset(face)
	if stack.Empty() || !g.IsAir(target) {
		return stack
	}
	g.Uses++
	g.Put(target, machine.Block{Name: stack.Item, Hardness: 1})
	return stack.WithCount(stack.Count - 1)
}

func (g *Grid) RangeUpgrade(base int, _ machine.Pos) int {
	if g.Boost < 1 {
		return base
	}
	return base * g.Boost
}

// Context returns a tick context over g with a fixed seed and a silent logger.
func Context(g machine.Grid) *machine.Context {
	return &machine.Context{Grid: g, Rand: rand.New(rand.NewSource(1)), Log: zerolog.Nop()}
}

// Run steps m n times, advancing ctx.Tick as the host would.
func Run(ctx *machine.Context, m machine.Machine, n int) {
	for i := 0; i < n; i++ {
		ctx.Tick++
		machine.Step(ctx, m)
	}
}
