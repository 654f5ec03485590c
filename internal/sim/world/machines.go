package world

import (
	"sort"

	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/item"
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/machine/breaker"
	"voxelforge.ai/internal/sim/machine/brewer"
	"voxelforge.ai/internal/sim/machine/miner"
	"voxelforge.ai/internal/sim/machine/record"
)

// ingredientTable adapts the item catalog to the brewer's lookup.
type ingredientTable struct{ items *catalogs.ItemCatalog }

func (t ingredientTable) Ingredient(itemID string) (brewer.Ingredient, bool) {
	def, ok := t.items.Ingredient(itemID)
	if !ok {
		return brewer.Ingredient{}, false
	}
	ing := brewer.Ingredient{MaxAmplifier: def.MaxAmplifier}
	for _, e := range def.Effects {
		ing.Effects = append(ing.Effects, item.Effect{ID: e.ID, Duration: e.Duration, Amplifier: e.Amplifier})
	}
	return ing, true
}

func (w *World) newMachine(kind machine.Kind, p machine.Pos, facing machine.Facing) (machine.Machine, bool) {
	t := w.cfg.Tuning
	maxStack := w.cats.Items.MaxStack
	switch kind {
	case machine.KindBreaker, machine.KindPlacer:
		return breaker.New(p, facing, kind == machine.KindPlacer, breaker.Config{
			Period:       t.Breaker.PeriodTicks,
			Slots:        t.Breaker.Slots,
			SyncInterval: t.Sync.IntervalTicks,
			MaxStack:     maxStack,
		}), true
	case machine.KindBrewer:
		return brewer.New(p, facing, brewer.Config{
			CacheUse:     t.Brewer.CacheUse,
			EnergyUse:    t.Brewer.EnergyUse,
			WaterUse:     t.Brewer.WaterUse,
			CacheMax:     t.Brewer.CacheMax,
			BrewTime:     t.Brewer.BrewTicks,
			CachePerBean: t.Brewer.CachePerBean,
			SoundEvery:   t.Brewer.SoundEvery,
			EnergyCap:    t.Brewer.EnergyCap,
			TankCap:      t.Brewer.TankCap,
			Fluid:        t.Brewer.Fluid,
			SyncInterval: t.Sync.IntervalTicks,
			Ingredients:  ingredientTable{items: &w.cats.Items},
			MaxStack:     maxStack,
		}), true
	case machine.KindMiner:
		return miner.New(p, facing, miner.Config{
			Interval:       t.Miner.IntervalTicks,
			EnergyPerBlock: t.Miner.EnergyPerBlock,
			OreMultiplier:  t.Miner.OreMultiplier,
			EnergyCap:      t.Miner.EnergyCap,
			Range:          t.Miner.Range,
			HarvestLevel:   t.Miner.HarvestLevel,
			Slots:          t.Miner.Slots,
			SyncInterval:   t.Sync.IntervalTicks,
			Lists:          t.Miner,
			MaxStack:       maxStack,
		}), true
	}
	return nil, false
}

// placeMachine creates a machine in an empty cell. A non-nil drop record
// restores state carried by a removed machine.
func (w *World) placeMachine(kind machine.Kind, p machine.Pos, facing machine.Facing, drop record.Record) (machine.Machine, bool) {
	if !w.inBounds(p) || w.blockID(p) != w.air {
		return nil, false
	}
	if _, ok := w.machines[p]; ok {
		return nil, false
	}
	m, ok := w.newMachine(kind, p, facing)
	if !ok {
		return nil, false
	}
	if !w.setBlock(p, string(kind)) {
		return nil, false
	}
	if drop != nil {
		m.Load(drop, record.ItemDrop)
	}
	m.Common().Sync.Force()
	w.machines[p] = m
	w.log.Info().Str("kind", string(kind)).Str("pos", p.String()).Msg("machine placed")
	return m, true
}

// removeMachine clears the cell and returns the machine's item-drop record.
func (w *World) removeMachine(p machine.Pos) (machine.Machine, record.Record, bool) {
	m, ok := w.machines[p]
	if !ok {
		return nil, nil, false
	}
	rec := m.Save(record.ItemDrop)
	w.dropMachine(p)
	w.setBlock(p, w.cats.Blocks.Palette[w.air])
	return m, rec, true
}

// dropMachine forgets the machine at p and tells observers it is gone.
func (w *World) dropMachine(p machine.Pos) {
	m, ok := w.machines[p]
	if !ok {
		return
	}
	delete(w.machines, p)
	w.changed = true
	w.publishRemoved(w.tick.Load(), m)
	w.log.Info().Str("kind", string(m.Kind())).Str("pos", p.String()).Msg("machine removed")
}

func (w *World) machinePositions() []machine.Pos {
	out := make([]machine.Pos, 0, len(w.machines))
	for p := range w.machines {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func sortedLeverPositions(levers map[machine.Pos]bool) []machine.Pos {
	out := make([]machine.Pos, 0, len(levers))
	for p := range levers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Machine returns the machine at p. Only call from the world loop goroutine
// or while the world is stopped.
func (w *World) Machine(p machine.Pos) (machine.Machine, bool) {
	m, ok := w.machines[p]
	return m, ok
}

func (w *World) MachineCount() int { return len(w.machines) }
