package world

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"voxelforge.ai/internal/persistence/snapshot"
	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/machine/record"
	"voxelforge.ai/internal/sim/world/terrain/store"
)

// ExportSnapshot captures loaded chunks, machine full-save records and
// lever states. Only call from the world loop goroutine or while stopped.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	t := w.cfg.Tuning
	snap := snapshot.SnapshotV1{
		Header:             snapshot.Header{Version: snapshot.Version, WorldID: w.cfg.ID, Tick: nowTick},
		Seed:               t.Seed,
		TickRate:           t.TickRateHz,
		Height:             t.Height,
		BoundaryR:          t.WorldBoundaryR,
		SyncInterval:       t.Sync.IntervalTicks,
		BlockPaletteDigest: w.cats.Blocks.PaletteDigest,
		Chunks:             store.ExportLoadedChunks(w.chunks.Chunks, w.chunks.LoadedChunkKeys()),
	}
	for _, p := range w.machinePositions() {
		m := w.machines[p]
		raw, err := m.Save(record.FullSave).Marshal()
		if err != nil {
			w.log.Error().Err(err).Str("pos", p.String()).Msg("encode machine record")
			continue
		}
		snap.Machines = append(snap.Machines, snapshot.MachineV1{Kind: string(m.Kind()), Pos: p.ToArray(), Record: raw})
	}

	for _, p := range sortedLeverPositions(w.levers) {
		snap.Levers = append(snap.Levers, snapshot.LeverV1{Pos: p.ToArray(), On: w.levers[p]})
	}
	return snap
}

// NewFromSnapshot rebuilds a world from snap. The world resumes at the tick
// after the snapshot.
func NewFromSnapshot(cfg Config, cats *catalogs.Catalogs, log zerolog.Logger, snap snapshot.SnapshotV1) (*World, error) {
	if snap.Header.Version != snapshot.Version {
		return nil, eris.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if snap.BlockPaletteDigest != cats.Blocks.PaletteDigest {
		return nil, eris.New("snapshot block palette does not match catalogs")
	}
	if cfg.ID == "" {
		cfg.ID = snap.Header.WorldID
	}
	cfg.Tuning.Seed = snap.Seed
	cfg.Tuning.Height = snap.Height
	cfg.Tuning.WorldBoundaryR = snap.BoundaryR
	if snap.TickRate > 0 {
		cfg.Tuning.TickRateHz = snap.TickRate
	}
	if snap.SyncInterval > 0 {
		cfg.Tuning.Sync.IntervalTicks = snap.SyncInterval
	}
	cfg.applyDefaults()

	gen, err := worldGen(cfg, cats)
	if err != nil {
		return nil, err
	}
	chunks, err := store.ImportChunks(gen, snap.Chunks)
	if err != nil {
		return nil, eris.Wrap(err, "import chunks")
	}
	w := newWorld(cfg, cats, log, chunks)

	for _, mv := range snap.Machines {
		p := machine.PosFromArray(mv.Pos)
		m, ok := w.newMachine(machine.Kind(mv.Kind), p, machine.North)
		if !ok {
			return nil, eris.Errorf("snapshot machine at %s: unknown kind %q", p, mv.Kind)
		}
		rec, err := record.Unmarshal(mv.Record)
		if err != nil {
			return nil, eris.Wrapf(err, "snapshot machine at %s", p)
		}
		m.Load(rec, record.FullSave)
		m.Common().Sync.Force()
		w.machines[p] = m
	}
	for _, lv := range snap.Levers {
		w.levers[machine.PosFromArray(lv.Pos)] = lv.On
	}
	w.tick.Store(snap.Header.Tick + 1)
	return w, nil
}
