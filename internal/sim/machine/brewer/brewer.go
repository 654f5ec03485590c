// Package brewer implements the coffee machine: beans fill a cache, and a
// powered brew turns cache, water, energy and a cup into one coffee over a
// fixed number of ticks. Ingredients in the side slots add effects.
package brewer

import (
	"voxelforge.ai/internal/sim/item"
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/machine/buffer"
	"voxelforge.ai/internal/sim/machine/inventory"
	"voxelforge.ai/internal/sim/machine/record"
	"voxelforge.ai/internal/sim/machine/syncstate"
)

const (
	SlotBeans  = 0
	SlotInput  = 1
	SlotOutput = 2

	// Slots from SlotFirstIngredient to the end hold ingredients.
	SlotFirstIngredient = 3
	NumSlots            = 11
)

const (
	DefaultCacheUse     = 15
	DefaultEnergyUse    = 150
	DefaultWaterUse     = 500
	DefaultCacheMax     = 300
	DefaultBrewTime     = 500
	DefaultCachePerBean = 2
	DefaultSoundEvery   = 30
	DefaultEnergyCap    = 300000
	DefaultTankCap      = 4000
	DefaultFluid        = "WATER"
	DefaultBeanItem     = "COFFEE_BEANS"
	DefaultCupItem      = "CUP"
	DefaultCoffeeItem   = "COFFEE"
	DefaultBrewSoundID  = "coffee_machine"
	ButtonStart         = 0
)

// Ingredient is a flavor that can be applied to a fresh coffee.
type Ingredient struct {
	Effects      []item.Effect
	MaxAmplifier int
}

// Ingredients looks up the ingredient an item provides, if any.
type Ingredients interface {
	Ingredient(itemID string) (Ingredient, bool)
}

type Config struct {
	CacheUse     int
	EnergyUse    int
	WaterUse     int
	CacheMax     int
	BrewTime     int
	CachePerBean int
	SoundEvery   int
	EnergyCap    int
	TankCap      int
	Fluid        string
	BeanItem     string
	CupItem      string
	CoffeeItem   string
	SoundID      string
	SyncInterval int

	Ingredients Ingredients
	MaxStack    inventory.MaxStackFunc
}

func (c Config) normalized() Config {
	def := func(v *int, d int) {
		if *v <= 0 {
			*v = d
		}
	}
	defs := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	def(&c.CacheUse, DefaultCacheUse)
	def(&c.EnergyUse, DefaultEnergyUse)
	def(&c.WaterUse, DefaultWaterUse)
	def(&c.CacheMax, DefaultCacheMax)
	def(&c.BrewTime, DefaultBrewTime)
	def(&c.CachePerBean, DefaultCachePerBean)
	def(&c.SoundEvery, DefaultSoundEvery)
	def(&c.EnergyCap, DefaultEnergyCap)
	def(&c.TankCap, DefaultTankCap)
	def(&c.SyncInterval, machine.DefaultSyncInterval)
	defs(&c.Fluid, DefaultFluid)
	defs(&c.BeanItem, DefaultBeanItem)
	defs(&c.CupItem, DefaultCupItem)
	defs(&c.CoffeeItem, DefaultCoffeeItem)
	defs(&c.SoundID, DefaultBrewSoundID)
	if c.Ingredients == nil {
		c.Ingredients = noIngredients{}
	}
	return c
}

type noIngredients struct{}

func (noIngredients) Ingredient(string) (Ingredient, bool) { return Ingredient{}, false }

type Brewer struct {
	machine.Base

	cfg      Config
	cache    int
	progress int
	energy   *buffer.Energy
	tank     *buffer.Tank
	slots    *inventory.Slots
}

func New(pos machine.Pos, facing machine.Facing, cfg Config) *Brewer {
	cfg = cfg.normalized()
	b := &Brewer{
		Base:   machine.NewBase(pos, facing, cfg.SyncInterval),
		cfg:    cfg,
		energy: buffer.NewEnergy(cfg.EnergyCap),
		tank:   buffer.NewTank(cfg.TankCap),
	}
	b.tank.Accept = func(fluid string) bool { return fluid == cfg.Fluid }
	b.tank.DrainDisabled = true
	b.slots = inventory.New(NumSlots, b.validForSlot, cfg.MaxStack)
	return b
}

func (b *Brewer) Kind() machine.Kind { return machine.KindBrewer }

func (b *Brewer) Capabilities() machine.Capability {
	return machine.CapInventory | machine.CapEnergy | machine.CapFluid | machine.CapButtons
}

func (b *Brewer) Cache() int                  { return b.cache }
func (b *Brewer) Progress() int               { return b.progress }
func (b *Brewer) BrewTime() int               { return b.cfg.BrewTime }
func (b *Brewer) CacheMax() int               { return b.cfg.CacheMax }
func (b *Brewer) Inventory() *inventory.Slots { return b.slots }
func (b *Brewer) Energy() *buffer.Energy      { return b.energy }
func (b *Brewer) WaterTank() *buffer.Tank     { return b.tank }

// Tank exposes the water tank to every side but the bottom.
func (b *Brewer) Tank(side machine.Facing) *buffer.Tank {
	if side == machine.Down {
		return nil
	}
	return b.tank
}

func (b *Brewer) validForSlot(i int, s item.Stack) bool {
	switch {
	case i == SlotBeans:
		return s.Item == b.cfg.BeanItem
	case i == SlotInput:
		return s.Item == b.cfg.CupItem
	case i == SlotOutput:
		return s.Item == b.cfg.CoffeeItem
	case i >= SlotFirstIngredient:
		_, ok := b.cfg.Ingredients.Ingredient(s.Item)
		return ok
	}
	return false
}

// CanInsert never allows the output slot; only brewing fills it.
func (b *Brewer) CanInsert(slot int, s item.Stack) bool {
	return slot != SlotOutput && b.slots.Valid(slot, s)
}

// CanExtract allows the output, and ingredient slots holding something that
// is no longer an ingredient.
func (b *Brewer) CanExtract(slot int, s item.Stack) bool {
	if slot == SlotOutput {
		return true
	}
	if slot >= SlotFirstIngredient && slot < b.slots.Len() {
		_, ok := b.cfg.Ingredients.Ingredient(s.Item)
		return !ok
	}
	return false
}

// Tick stores beans every tick and brews while a brew is running or the
// machine is powered.
func (b *Brewer) Tick(ctx *machine.Context) {
	b.storeCoffee()
	if b.progress > 0 || b.Redstone.Powered {
		b.brew(ctx)
	}
}

func (b *Brewer) Pulse(ctx *machine.Context) {
	if b.progress <= 0 {
		b.brew(ctx)
	}
}

func (b *Brewer) Button(ctx *machine.Context, id int, _ string) {
	if id == ButtonStart && b.progress <= 0 {
		b.brew(ctx)
	}
}

func (b *Brewer) storeCoffee() {
	beans := b.slots.Get(SlotBeans)
	if beans.Empty() || beans.Item != b.cfg.BeanItem {
		return
	}
	if b.cfg.CachePerBean > b.cfg.CacheMax-b.cache {
		return
	}
	b.slots.Shrink(SlotBeans, 1)
	b.cache += b.cfg.CachePerBean
	b.MarkDirty()
}

func (b *Brewer) canBrew() bool {
	cup := b.slots.Get(SlotInput)
	return !cup.Empty() && cup.Item == b.cfg.CupItem &&
		b.slots.IsEmpty(SlotOutput) &&
		b.cache >= b.cfg.CacheUse &&
		b.tank.Fluid() == b.cfg.Fluid && b.tank.Amount() >= b.cfg.WaterUse &&
		b.energy.Stored() >= b.cfg.EnergyUse
}

func (b *Brewer) brew(ctx *machine.Context) {
	if !b.canBrew() {
		if b.progress != 0 {
			b.progress = 0
			b.MarkDirty()
		}
		return
	}
	if b.progress%b.cfg.SoundEvery == 0 {
		ctx.Grid.PlaySound(b.cfg.SoundID, b.Pos)
	}
	b.progress++
	b.energy.Extract(b.cfg.EnergyUse, false)
	b.MarkDirty()
	if b.progress < b.cfg.BrewTime {
		return
	}

	b.progress = 0
	coffee := item.New(b.cfg.CoffeeItem, 1)
	for i := SlotFirstIngredient; i < b.slots.Len(); i++ {
		st := b.slots.Get(i)
		if st.Empty() {
			continue
		}
		ing, ok := b.cfg.Ingredients.Ingredient(st.Item)
		if !ok {
			continue
		}
		if Apply(&coffee, ing) {
			b.slots.Shrink(i, 1)
		}
	}
	b.slots.Set(SlotOutput, coffee)
	b.slots.Shrink(SlotInput, 1)
	b.cache -= b.cfg.CacheUse
	b.tank.DrainInternal(b.cfg.WaterUse, false)
	ctx.Log.Debug().Str("pos", b.Pos.String()).Int("effects", len(coffee.Effects)).Msg("coffee brewed")
}

// Apply adds the ingredient's effects to s and reports whether any of them
// took. An effect already present gains one amplifier level while below the
// ingredient's cap; a new effect is appended.
func Apply(s *item.Stack, ing Ingredient) bool {
	worked := false
	for _, e := range ing.Effects {
		if i := s.EffectIndex(e.ID); i >= 0 {
			if s.Effects[i].Amplifier < ing.MaxAmplifier-1 {
				s.Effects[i].Amplifier++
				worked = true
			}
			continue
		}
		s.Effects = append(s.Effects, e)
		worked = true
	}
	return worked
}

func (b *Brewer) SyncFields() []syncstate.Field {
	return []syncstate.Field{
		{Name: "Cache", Value: int64(b.cache), Readout: true},
		{Name: "Energy", Value: int64(b.energy.Stored()), Readout: true},
		{Name: "Water", Value: int64(b.tank.Amount()), Readout: true},
		{Name: "Progress", Value: int64(b.progress), Readout: true},
		{Name: "Items", Value: b.slots.Fingerprint()},
	}
}

// Save keeps buffers and the cache in every context, so a broken machine
// keeps its charge; progress and slots are dropped from the item form.
func (b *Brewer) Save(c record.Context) record.Record {
	r := record.New()
	b.SaveBase(r, c)
	b.energy.Save(r)
	b.tank.Save(r)
	r.SetInt("Cache", b.cache)
	if c != record.ItemDrop {
		r.SetInt("Time", b.progress)
		b.slots.Save(r)
	}
	return r
}

func (b *Brewer) Load(r record.Record, c record.Context) {
	b.LoadBase(r, c)
	b.energy.Load(r)
	b.tank.Load(r)
	b.cache = min(max(0, r.Int("Cache")), b.cfg.CacheMax)
	if c != record.ItemDrop {
		b.progress = r.Int("Time")
		if b.progress < 0 || b.progress >= b.cfg.BrewTime {
			b.progress = 0
		}
		b.slots.Load(r)
	}
}
