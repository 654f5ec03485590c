// Package breaker implements the block breaker and its placer variant.
//
// Both count down a fixed cooldown and act on the single cell in front of
// them. The breaker mines that cell into its own slots; the placer uses the
// first occupied slot against it.
package breaker

import (
	"voxelforge.ai/internal/sim/item"
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/machine/harvest"
	"voxelforge.ai/internal/sim/machine/inventory"
	"voxelforge.ai/internal/sim/machine/record"
	"voxelforge.ai/internal/sim/machine/redstone"
	"voxelforge.ai/internal/sim/machine/syncstate"
)

const (
	DefaultPeriod = 15
	DefaultSlots  = 9
)

type Config struct {
	Period       int
	Slots        int
	SyncInterval int
	MaxStack     inventory.MaxStackFunc
}

func (c Config) normalized() Config {
	if c.Period <= 0 {
		c.Period = DefaultPeriod
	}
	if c.Slots <= 0 {
		c.Slots = DefaultSlots
	}
	if c.SyncInterval <= 0 {
		c.SyncInterval = machine.DefaultSyncInterval
	}
	return c
}

type Breaker struct {
	machine.Base

	cfg      Config
	placer   bool
	cooldown int
	slots    *inventory.Slots
}

func New(pos machine.Pos, facing machine.Facing, placer bool, cfg Config) *Breaker {
	cfg = cfg.normalized()
	return &Breaker{
		Base:   machine.NewBase(pos, facing, cfg.SyncInterval),
		cfg:    cfg,
		placer: placer,
		slots:  inventory.New(cfg.Slots, inventory.AnyItem, cfg.MaxStack),
	}
}

func (b *Breaker) Kind() machine.Kind {
	if b.placer {
		return machine.KindPlacer
	}
	return machine.KindBreaker
}

func (b *Breaker) Capabilities() machine.Capability {
	return machine.CapInventory | machine.CapRedstoneToggle
}

func (b *Breaker) IsPlacer() bool              { return b.placer }
func (b *Breaker) Cooldown() int               { return b.cooldown }
func (b *Breaker) Inventory() *inventory.Slots { return b.slots }

func (b *Breaker) Tick(ctx *machine.Context) {
	if b.Inhibited() {
		return
	}
	if b.cooldown <= 0 {
		b.cooldown = b.cfg.Period
	}
	b.cooldown--
	if b.cooldown == 0 {
		b.work(ctx)
	}
}

// Pulse performs one work cycle immediately.
func (b *Breaker) Pulse(ctx *machine.Context) { b.work(ctx) }

func (b *Breaker) Button(*machine.Context, int, string) {}

func (b *Breaker) work(ctx *machine.Context) {
	target := b.Pos.Offset(b.Facing)
	if b.placer {
		b.place(ctx, target)
		return
	}
	blk := ctx.Grid.BlockAt(target)
	if !harvest.Breakable(blk) || ctx.Grid.IsAir(target) {
		return
	}
	if harvest.Collect(ctx, b.slots, target, blk) {
		b.MarkDirty()
	}
}

func (b *Breaker) place(ctx *machine.Context, target machine.Pos) {
	i, ok := b.slots.FirstFilled()
	if !ok {
		return
	}
	before := b.slots.Get(i)
	after := ctx.Grid.UseItemAt(b.Pos, b.Facing, before)
	if after.Empty() {
		after = item.Stack{}
	}
	if after.Count == before.Count && after.Item == before.Item {
		return
	}
	b.slots.Set(i, after)
	b.MarkDirty()
	ctx.Log.Debug().Str("pos", b.Pos.String()).Str("target", target.String()).Str("item", before.Item).Msg("placer used item")
}

// CanInsert allows external insertion only in placer mode.
func (b *Breaker) CanInsert(slot int, s item.Stack) bool {
	return b.placer && b.slots.Valid(slot, s)
}

func (b *Breaker) CanExtract(int, item.Stack) bool { return true }

func (b *Breaker) SyncFields() []syncstate.Field {
	return []syncstate.Field{
		{Name: "IsPulseMode", Value: boolValue(b.Redstone.Mode == redstone.Pulse)},
		{Name: "Items", Value: b.slots.Fingerprint()},
	}
}

// Save writes the cooldown only in the full save; observers do not need it.
func (b *Breaker) Save(c record.Context) record.Record {
	r := record.New()
	b.SaveBase(r, c)
	// IsPlacer is informational; the mode is fixed by the block kind.
	r.SetBool("IsPlacer", b.placer)
	if c == record.FullSave {
		r.SetInt("CurrentTime", b.cooldown)
	}
	if c != record.ItemDrop {
		b.slots.Save(r)
	}
	return r
}

func (b *Breaker) Load(r record.Record, c record.Context) {
	b.LoadBase(r, c)
	if c == record.FullSave {
		b.cooldown = max(0, r.Int("CurrentTime"))
	}
	if c != record.ItemDrop {
		b.slots.Load(r)
	}
}

func boolValue(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
