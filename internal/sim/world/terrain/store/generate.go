package store

import genpkg "voxelforge.ai/internal/sim/world/terrain/gen"

// GenerateChunk fills ch: bedrock floor, stone with ore veins and rare water
// pockets, a dirt cap, and air above the surface.
func (s *ChunkStore) GenerateChunk(ch *Chunk) {
	g := s.Gen
	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			wx := ch.CX*ChunkSize + x
			wz := ch.CZ*ChunkSize + z
			surface := min(genpkg.SurfaceY(g.Seed, wx, wz, g.SurfaceBase, g.SurfaceAmplitude, g.RegionSize), ch.Height-1)

			for y := 0; y < ch.Height; y++ {
				b := g.Air
				switch {
				case y == 0:
					b = g.Bedrock
				case y > surface:
					b = g.Air
				case y > surface-g.DirtDepth:
					b = g.Dirt
				default:
					b = s.underground(wx, y, wz)
				}
				ch.Blocks[ch.index(x, y, z)] = b
			}
		}
	}
}

func (s *ChunkStore) underground(x, y, z int) uint16 {
	g := s.Gen
	for i, ore := range g.Ores {
		if y > ore.MaxY {
			continue
		}
		if genpkg.InVein(g.Seed+int64(101+i), x, y, z, ore.Cell, ore.Radius, uint64(genpkg.ClampPermille(ore.ProbPermille))) {
			return ore.Block
		}
	}
	if genpkg.Hash3(g.Seed+999, x, y, z)%1000 < uint64(genpkg.ClampPermille(g.WaterPermille)) {
		return g.Water
	}
	return g.Stone
}
