package tuning

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int   `yaml:"tick_rate_hz"`
	Height             int   `yaml:"height"`
	Seed               int64 `yaml:"seed"`
	WorldBoundaryR     int   `yaml:"world_boundary_r"`
	SnapshotEveryTicks int   `yaml:"snapshot_every_ticks"`

	Sync     SyncTuning     `yaml:"sync"`
	Redstone RedstoneTuning `yaml:"redstone"`
	Breaker  BreakerTuning  `yaml:"breaker"`
	Brewer   BrewerTuning   `yaml:"brewer"`
	Miner    MinerTuning    `yaml:"miner"`
	Harvest  HarvestTuning  `yaml:"harvest"`
}

type SyncTuning struct {
	IntervalTicks int `yaml:"interval_ticks"`
}

type RedstoneTuning struct {
	// WireNodeBudget caps how many wire cells one power lookup may visit.
	WireNodeBudget int `yaml:"wire_node_budget"`
}

type BreakerTuning struct {
	PeriodTicks int `yaml:"period_ticks"`
	Slots       int `yaml:"slots"`
}

type BrewerTuning struct {
	CacheUse     int    `yaml:"cache_use"`
	EnergyUse    int    `yaml:"energy_use"`
	WaterUse     int    `yaml:"water_use"`
	CacheMax     int    `yaml:"cache_max"`
	BrewTicks    int    `yaml:"brew_ticks"`
	CachePerBean int    `yaml:"cache_per_bean"`
	SoundEvery   int    `yaml:"sound_every"`
	EnergyCap    int    `yaml:"energy_capacity"`
	TankCap      int    `yaml:"tank_capacity"`
	Fluid        string `yaml:"fluid"`
}

type MinerTuning struct {
	IntervalTicks  int      `yaml:"interval_ticks"`
	EnergyPerBlock int      `yaml:"energy_per_block"`
	OreMultiplier  int      `yaml:"ore_multiplier"`
	EnergyCap      int      `yaml:"energy_capacity"`
	Range          int      `yaml:"range"`
	MaxBoosters    int      `yaml:"max_range_boosters"`
	HarvestLevel   int      `yaml:"harvest_level"`
	Slots          int      `yaml:"slots"`
	Blacklist      []string `yaml:"blacklist"`
	ExtraWhitelist []string `yaml:"extra_whitelist"`
}

func (m MinerTuning) MinerBlacklist() []string      { return m.Blacklist }
func (m MinerTuning) MinerExtraWhitelist() []string { return m.ExtraWhitelist }

type HarvestTuning struct {
	// Chance overrides the drop chance per block name; missing names use 1.
	Chance map[string]float64 `yaml:"chance"`
}

// Defaults returns the shipped tuning.
func Defaults() Tuning {
	var t Tuning
	t.ApplyDefaults()
	return t
}

func (t *Tuning) ApplyDefaults() {
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = "1.0"
	}
	if t.TickRateHz <= 0 {
		t.TickRateHz = 20
	}
	if t.Height <= 0 {
		t.Height = 64
	}
	if t.Seed == 0 {
		t.Seed = 1337
	}
	if t.WorldBoundaryR <= 0 {
		t.WorldBoundaryR = 256
	}
	if t.SnapshotEveryTicks <= 0 {
		t.SnapshotEveryTicks = 6000
	}
	if t.Sync.IntervalTicks <= 0 {
		t.Sync.IntervalTicks = 5
	}
	if t.Redstone.WireNodeBudget <= 0 {
		t.Redstone.WireNodeBudget = 256
	}
	if t.Breaker.PeriodTicks <= 0 {
		t.Breaker.PeriodTicks = 15
	}
	if t.Breaker.Slots <= 0 {
		t.Breaker.Slots = 9
	}
	t.Brewer.applyDefaults()
	t.Miner.applyDefaults()
}

func (b *BrewerTuning) applyDefaults() {
	if b.CacheUse <= 0 {
		b.CacheUse = 15
	}
	if b.EnergyUse <= 0 {
		b.EnergyUse = 150
	}
	if b.WaterUse <= 0 {
		b.WaterUse = 500
	}
	if b.CacheMax <= 0 {
		b.CacheMax = 300
	}
	if b.BrewTicks <= 0 {
		b.BrewTicks = 500
	}
	if b.CachePerBean <= 0 {
		b.CachePerBean = 2
	}
	if b.SoundEvery <= 0 {
		b.SoundEvery = 30
	}
	if b.EnergyCap <= 0 {
		b.EnergyCap = 300000
	}
	if b.TankCap <= 0 {
		b.TankCap = 4000
	}
	if b.Fluid == "" {
		b.Fluid = "WATER"
	}
}

func (m *MinerTuning) applyDefaults() {
	if m.IntervalTicks <= 0 {
		m.IntervalTicks = 5
	}
	if m.EnergyPerBlock <= 0 {
		m.EnergyPerBlock = 1500
	}
	if m.OreMultiplier <= 0 {
		m.OreMultiplier = 5
	}
	if m.EnergyCap <= 0 {
		m.EnergyCap = 200000
	}
	if m.Range <= 0 {
		m.Range = 2
	}
	if m.MaxBoosters <= 0 {
		m.MaxBoosters = 3
	}
	if m.HarvestLevel <= 0 {
		m.HarvestLevel = 4
	}
	if m.Slots <= 0 {
		m.Slots = 9
	}
}

// Validate rejects combinations that defaults cannot repair.
func (t Tuning) Validate() error {
	if t.Brewer.CacheUse > t.Brewer.CacheMax {
		return eris.Errorf("brewer.cache_use %d exceeds cache_max %d", t.Brewer.CacheUse, t.Brewer.CacheMax)
	}
	if t.Brewer.WaterUse > t.Brewer.TankCap {
		return eris.Errorf("brewer.water_use %d exceeds tank_capacity %d", t.Brewer.WaterUse, t.Brewer.TankCap)
	}
	if t.Brewer.EnergyUse*t.Brewer.BrewTicks > t.Brewer.EnergyCap {
		return eris.Errorf("brewer: one brew needs %d energy, capacity is %d", t.Brewer.EnergyUse*t.Brewer.BrewTicks, t.Brewer.EnergyCap)
	}
	if t.Miner.EnergyPerBlock*t.Miner.OreMultiplier > t.Miner.EnergyCap {
		return eris.Errorf("miner: ore-only block cost exceeds energy_capacity %d", t.Miner.EnergyCap)
	}
	for name, c := range t.Harvest.Chance {
		if c < 0 || c > 1 {
			return eris.Errorf("harvest.chance[%s]=%v out of [0,1]", name, c)
		}
	}
	return nil
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, eris.Wrapf(err, "read %s", path)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, eris.Wrap(err, "tuning.yaml")
	}
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return t, eris.Wrap(err, "tuning.yaml")
	}
	return t, nil
}
