// Package miner implements the layer miner. Every few ticks it scans a
// square around its column at the current layer and mines the first
// eligible block; a pass that finds nothing moves it one layer down.
package miner

import (
	"strings"

	"voxelforge.ai/internal/sim/item"
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/machine/buffer"
	"voxelforge.ai/internal/sim/machine/harvest"
	"voxelforge.ai/internal/sim/machine/inventory"
	"voxelforge.ai/internal/sim/machine/record"
	"voxelforge.ai/internal/sim/machine/redstone"
	"voxelforge.ai/internal/sim/machine/syncstate"
)

const (
	DefaultInterval       = 5
	DefaultEnergyPerBlock = 1500
	DefaultOreMultiplier  = 5
	DefaultEnergyCap      = 200000
	DefaultRange          = 2
	DefaultHarvestLevel   = 4
	DefaultSlots          = 9

	// LayerUnset makes the next tick restart from just below the miner.
	LayerUnset = -1

	ButtonToggleOres = 0
	ButtonReset      = 1
)

// OreTagPrefixes mark a block as an ore for ore-only mining.
var OreTagPrefixes = []string{"ore", "denseore"}

// NameLists supplies the operator-configured block name lists.
type NameLists interface {
	MinerBlacklist() []string
	MinerExtraWhitelist() []string
}

type Config struct {
	Interval       int
	EnergyPerBlock int
	OreMultiplier  int
	EnergyCap      int
	Range          int
	HarvestLevel   int
	Slots          int
	SyncInterval   int

	Lists    NameLists
	MaxStack inventory.MaxStackFunc
}

func (c Config) normalized() Config {
	def := func(v *int, d int) {
		if *v <= 0 {
			*v = d
		}
	}
	def(&c.Interval, DefaultInterval)
	def(&c.EnergyPerBlock, DefaultEnergyPerBlock)
	def(&c.OreMultiplier, DefaultOreMultiplier)
	def(&c.EnergyCap, DefaultEnergyCap)
	def(&c.Range, DefaultRange)
	def(&c.HarvestLevel, DefaultHarvestLevel)
	def(&c.Slots, DefaultSlots)
	def(&c.SyncInterval, machine.DefaultSyncInterval)
	return c
}

type Miner struct {
	machine.Base

	cfg      Config
	layer    int
	onlyOres bool
	energy   *buffer.Energy
	slots    *inventory.Slots
}

func New(pos machine.Pos, facing machine.Facing, cfg Config) *Miner {
	cfg = cfg.normalized()
	return &Miner{
		Base:   machine.NewBase(pos, facing, cfg.SyncInterval),
		cfg:    cfg,
		layer:  LayerUnset,
		energy: buffer.NewEnergy(cfg.EnergyCap),
		slots:  inventory.New(cfg.Slots, inventory.AnyItem, cfg.MaxStack),
	}
}

func (m *Miner) Kind() machine.Kind { return machine.KindMiner }

func (m *Miner) Capabilities() machine.Capability {
	return machine.CapInventory | machine.CapEnergy | machine.CapRedstoneToggle | machine.CapButtons
}

func (m *Miner) Layer() int                  { return m.layer }
func (m *Miner) OnlyOres() bool              { return m.onlyOres }
func (m *Miner) Energy() *buffer.Energy      { return m.energy }
func (m *Miner) Inventory() *inventory.Slots { return m.slots }

func (m *Miner) CanInsert(int, item.Stack) bool  { return false }
func (m *Miner) CanExtract(int, item.Stack) bool { return true }

func (m *Miner) Tick(ctx *machine.Context) {
	if m.layer == LayerUnset {
		m.layer = m.Pos.Y - 1
	}
	if m.Inhibited() || m.Ticks%uint64(m.cfg.Interval) != 0 {
		return
	}
	m.pass(ctx)
}

// Pulse runs one pass regardless of the interval.
func (m *Miner) Pulse(ctx *machine.Context) {
	if m.layer == LayerUnset {
		m.layer = m.Pos.Y - 1
	}
	m.pass(ctx)
}

func (m *Miner) pass(ctx *machine.Context) {
	if m.layer <= 0 {
		return
	}
	r := ctx.Grid.RangeUpgrade(m.cfg.Range, m.Pos)
	if m.Mine(ctx, r) {
		m.layer--
		m.MarkDirty()
		ctx.Log.Debug().Str("pos", m.Pos.String()).Int("layer", m.layer).Msg("miner layer finished")
	}
}

func (m *Miner) costPerBlock() int {
	if m.onlyOres {
		return m.cfg.EnergyPerBlock * m.cfg.OreMultiplier
	}
	return m.cfg.EnergyPerBlock
}

// Mine scans the square of the given radius at the current layer, row by
// row. It reports true when the whole square held nothing to mine. Finding
// a minable block ends the pass whether or not the harvest succeeds, and so
// does running short of energy.
func (m *Miner) Mine(ctx *machine.Context, radius int) bool {
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			cost := m.costPerBlock()
			if m.energy.Stored() < cost {
				return false
			}
			p := machine.Pos{X: m.Pos.X + dx, Y: m.layer, Z: m.Pos.Z + dz}
			if ctx.Grid.IsAir(p) {
				continue
			}
			b := ctx.Grid.BlockAt(p)
			if b.HarvestLevel > m.cfg.HarvestLevel || !harvest.Breakable(b) || !m.Minable(b) {
				continue
			}
			if harvest.Collect(ctx, m.slots, p, b) {
				m.MarkDirty()
				m.energy.Extract(cost, false)
				ctx.Grid.EmitBeamEffect(m.Pos, p)
			}
			return false
		}
	}
	return true
}

// Minable applies the name lists and, in ore-only mode, the ore tags.
func (m *Miner) Minable(b machine.Block) bool {
	if !b.Present() {
		return false
	}
	if m.cfg.Lists != nil && contains(m.cfg.Lists.MinerBlacklist(), b.Name) {
		return false
	}
	if !m.onlyOres {
		return true
	}
	for _, tag := range b.OreTags {
		for _, prefix := range OreTagPrefixes {
			if strings.HasPrefix(tag, prefix) {
				return true
			}
		}
	}
	return m.cfg.Lists != nil && contains(m.cfg.Lists.MinerExtraWhitelist(), b.Name)
}

func contains(list []string, name string) bool {
	if name == "" {
		return false
	}
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}

func (m *Miner) Button(ctx *machine.Context, id int, actor string) {
	switch id {
	case ButtonToggleOres:
		m.onlyOres = !m.onlyOres
		m.Sync.Force()
		m.MarkDirty()
		ctx.Log.Debug().Str("pos", m.Pos.String()).Str("actor", actor).Bool("only_ores", m.onlyOres).Msg("miner mode toggled")
	case ButtonReset:
		m.layer = LayerUnset
		m.MarkDirty()
	}
}

func (m *Miner) SyncFields() []syncstate.Field {
	return []syncstate.Field{
		{Name: "Energy", Value: int64(m.energy.Stored()), Readout: true},
		{Name: "Layer", Value: int64(m.layer), Readout: true},
		{Name: "OnlyOres", Value: boolValue(m.onlyOres)},
		{Name: "IsPulseMode", Value: boolValue(m.Redstone.Mode == redstone.Pulse)},
		{Name: "Items", Value: m.slots.Fingerprint()},
	}
}

// Save keeps the energy in every context. The item form drops the layer and
// slots and only remembers ore-only mode when it is on.
func (m *Miner) Save(c record.Context) record.Record {
	r := record.New()
	m.SaveBase(r, c)
	m.energy.Save(r)
	if c != record.ItemDrop {
		r.SetInt("Layer", m.layer)
		m.slots.Save(r)
	}
	if c != record.ItemDrop || m.onlyOres {
		r.SetBool("OnlyOres", m.onlyOres)
	}
	return r
}

func (m *Miner) Load(r record.Record, c record.Context) {
	m.LoadBase(r, c)
	m.energy.Load(r)
	if c != record.ItemDrop {
		m.layer = r.IntOr("Layer", LayerUnset)
		if m.layer < LayerUnset || m.layer >= m.Pos.Y {
			m.layer = LayerUnset
		}
		m.slots.Load(r)
	}
	m.onlyOres = r.Bool("OnlyOres")
}

func boolValue(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
