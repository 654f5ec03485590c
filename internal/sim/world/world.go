package world

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"voxelforge.ai/internal/persistence/snapshot"
	"voxelforge.ai/internal/protocol"
	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/world/terrain/store"
)

type JoinRequest struct {
	SessionID string
	Name      string
	Out       chan []byte
	Resp      chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

// CommandEnvelope carries one CMD into the world loop. Resp, if set,
// receives the ACK once the command is applied.
type CommandEnvelope struct {
	SessionID string
	Cmd       protocol.CommandMsg
	Resp      chan<- protocol.AckMsg
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type SyncLogger interface {
	WriteSync(entry SyncEntry) error
}

type EffectLogger interface {
	WriteEffect(entry EffectEntry) error
}

type TickLogEntry struct {
	Tick     uint64            `json:"tick"`
	Commands []RecordedCommand `json:"commands,omitempty"`
	Digest   string            `json:"digest"`
}

type RecordedCommand struct {
	SessionID string              `json:"session_id"`
	Cmd       protocol.CommandMsg `json:"cmd"`
	Accepted  bool                `json:"accepted"`
	Code      string              `json:"code,omitempty"`
}

// SyncEntry is one outward machine update.
type SyncEntry struct {
	Tick    uint64          `json:"tick"`
	WorldID string          `json:"world_id"`
	Pos     [3]int          `json:"pos"`
	Kind    string          `json:"kind"`
	Changed []string        `json:"changed,omitempty"`
	Removed bool            `json:"removed,omitempty"`
	Record  json.RawMessage `json:"record,omitempty"`
}

type EffectEntry struct {
	Tick   uint64  `json:"tick"`
	Effect string  `json:"effect"`
	Pos    [3]int  `json:"pos"`
	To     *[3]int `json:"to,omitempty"`
	Block  string  `json:"block,omitempty"`
	Sound  string  `json:"sound,omitempty"`
}

// World is the single-threaded host for machines and the block grid.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg  Config
	cats *catalogs.Catalogs
	log  zerolog.Logger

	tick atomic.Uint64
	rng  *rand.Rand

	chunks   *store.ChunkStore
	air      uint16
	machines map[machine.Pos]machine.Machine
	levers   map[machine.Pos]bool

	observers map[string]*observer

	inbox chan CommandEnvelope
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger   TickLogger
	syncLogger   SyncLogger
	effectLogger EffectLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	effects []EffectEntry
	// rejected counts ACK rejections by code.
	rejected map[string]uint64
	metrics  atomic.Value // WorldMetrics

	// changed is set by any grid or machine mutation since the last snapshot.
	changed bool
}

func New(cfg Config, cats *catalogs.Catalogs, log zerolog.Logger) (*World, error) {
	cfg.applyDefaults()
	gen, err := worldGen(cfg, cats)
	if err != nil {
		return nil, err
	}
	return newWorld(cfg, cats, log, store.NewChunkStore(gen)), nil
}

func newWorld(cfg Config, cats *catalogs.Catalogs, log zerolog.Logger, chunks *store.ChunkStore) *World {
	return &World{
		cfg:       cfg,
		cats:      cats,
		log:       log.With().Str("world", cfg.ID).Logger(),
		rng:       rand.New(rand.NewSource(cfg.Tuning.Seed)),
		chunks:    chunks,
		air:       chunks.Gen.Air,
		machines:  map[machine.Pos]machine.Machine{},
		levers:    map[machine.Pos]bool{},
		observers: map[string]*observer{},
		rejected:  map[string]uint64{},
		inbox:     make(chan CommandEnvelope, cfg.InboxSize),
		join:      make(chan JoinRequest, 64),
		leave:     make(chan string, 64),
		stop:      make(chan struct{}),
	}
}

// oreRules lists vein placement for ore blocks the palette may carry.
var oreRules = []struct {
	Block  string
	MaxY   int
	Cell   int
	Radius int
	Prob   int
}{
	{"COAL_ORE", 48, 8, 2, 500},
	{"IRON_ORE", 40, 8, 2, 350},
	{"GOLD_ORE", 24, 10, 1, 250},
	{"DENSE_LAPIS_ORE", 20, 12, 1, 200},
	{"DIAMOND_ORE", 12, 12, 1, 150},
	{"VOID_CRYSTAL", 6, 12, 1, 100},
}

func worldGen(cfg Config, cats *catalogs.Catalogs) (store.WorldGen, error) {
	b := func(id string) (uint16, error) {
		v, ok := cats.Blocks.Index[id]
		if !ok {
			return 0, eris.Errorf("missing block id in palette: %s", id)
		}
		return v, nil
	}
	gen := store.WorldGen{
		Seed:             cfg.Tuning.Seed,
		Height:           cfg.Tuning.Height,
		BoundaryR:        cfg.Tuning.WorldBoundaryR,
		SurfaceBase:      cfg.Tuning.Height * 5 / 8,
		SurfaceAmplitude: 3,
		RegionSize:       16,
		DirtDepth:        3,
		WaterPermille:    4,
	}
	var err error
	for _, r := range []struct {
		id  string
		dst *uint16
	}{
		{"AIR", &gen.Air},
		{"BEDROCK", &gen.Bedrock},
		{"STONE", &gen.Stone},
		{"DIRT", &gen.Dirt},
		{"WATER", &gen.Water},
	} {
		if *r.dst, err = b(r.id); err != nil {
			return gen, err
		}
	}
	for _, r := range oreRules {
		id, ok := cats.Blocks.Index[r.Block]
		if !ok {
			continue
		}
		gen.Ores = append(gen.Ores, store.OreRule{Block: id, MaxY: r.MaxY, Cell: r.Cell, Radius: r.Radius, ProbPermille: r.Prob})
	}
	return gen, nil
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetSyncLogger(l SyncLogger)                    { w.syncLogger = l }
func (w *World) SetEffectLogger(l EffectLogger)                { w.effectLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Inbox() chan<- CommandEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest      { return w.join }
func (w *World) Leave() chan<- string          { return w.leave }

func (w *World) ID() string          { return w.cfg.ID }
func (w *World) CurrentTick() uint64 { return w.tick.Load() }
func (w *World) TickRateHz() int     { return w.cfg.Tuning.TickRateHz }

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.Tuning.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingCmds []CommandEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-w.inbox:
			pendingCmds = append(pendingCmds, env)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingCmds)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingCmds = pendingCmds[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering
// semantics as the server. It is intended for replays and tests.
func (w *World) StepOnce(joins []JoinRequest, leaves []string, cmds []CommandEnvelope) (tick uint64, digest string) {
	tick = w.tick.Load()
	w.step(joins, leaves, cmds)
	return tick, w.stateDigest(tick)
}

func (w *World) step(joins []JoinRequest, leaves []string, cmds []CommandEnvelope) {
	started := time.Now()
	nowTick := w.tick.Load()
	// Random draws depend only on seed and tick so a world resumed from any
	// snapshot replays the same outcomes.
	w.rng.Seed(w.cfg.Tuning.Seed ^ int64(nowTick))

	for _, id := range leaves {
		w.handleLeave(id)
	}
	for _, req := range joins {
		w.handleJoin(req, nowTick)
	}

	// Commands apply in inbox order, before any machine ticks.
	recorded := make([]RecordedCommand, 0, len(cmds))
	for _, env := range cmds {
		ack := w.applyCommand(env.Cmd, nowTick)
		recorded = append(recorded, RecordedCommand{SessionID: env.SessionID, Cmd: env.Cmd, Accepted: ack.Accepted, Code: ack.Code})
		if env.Resp != nil {
			select {
			case env.Resp <- ack:
			default:
			}
		}
		if !ack.Accepted {
			w.rejected[ack.Code]++
			w.log.Debug().Str("cmd", env.Cmd.Command).Str("code", ack.Code).Msg(ack.Message)
		}
	}

	w.systemMachines(nowTick)
	w.flushEffects(nowTick)
	w.publishSyncs(nowTick)

	if w.tickLogger != nil {
		if err := w.tickLogger.WriteTick(TickLogEntry{Tick: nowTick, Commands: recorded, Digest: w.stateDigest(nowTick)}); err != nil {
			w.log.Warn().Err(err).Msg("tick log write failed")
		}
	}

	every := uint64(w.cfg.Tuning.SnapshotEveryTicks)
	if w.snapshotSink != nil && nowTick != 0 && nowTick%every == 0 && w.changed {
		snap := w.ExportSnapshot(nowTick)
		select {
		case w.snapshotSink <- snap:
			w.changed = false
		default:
			// Drop snapshot if sink is backed up.
		}
	}

	w.publishMetrics(nowTick, started)
	w.tick.Add(1)
}

// systemMachines resolves control signals and ticks every machine in
// position order.
func (w *World) systemMachines(nowTick uint64) {
	ctx := w.machineContext(nowTick)
	env := redstoneEnv{w: w}
	budget := w.cfg.Tuning.Redstone.WireNodeBudget
	for _, p := range w.machinePositions() {
		m, ok := w.machines[p]
		if !ok {
			// Cleared earlier this tick.
			continue
		}
		b := m.Common()
		if b.Redstone.Update(env.powered(p, budget)) {
			m.Pulse(ctx)
		}
		machine.Step(ctx, m)
	}
}

func (w *World) machineContext(nowTick uint64) *machine.Context {
	return &machine.Context{
		Tick: nowTick,
		Grid: worldGrid{w: w},
		Rand: w.rng,
		Log:  w.log,
	}
}
