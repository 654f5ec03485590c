package indexdb

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"voxelforge.ai/internal/persistence/snapshot"
	"voxelforge.ai/internal/protocol"
	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/tuning"
	"voxelforge.ai/internal/sim/world"
)

func TestSQLiteIndex_WriteCloseReopenQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	idx, err := OpenSQLite(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	pos := [3]int{4, 20, -3}
	_ = idx.WriteTick(world.TickLogEntry{
		Tick:   7,
		Digest: "abc",
		Commands: []world.RecordedCommand{
			{SessionID: "s1", Cmd: protocol.CommandMsg{ID: "c1", Command: protocol.CmdPlaceMachine, Pos: pos, Kind: "BREAKER"}, Accepted: true},
			{SessionID: "s1", Cmd: protocol.CommandMsg{ID: "c2", Command: protocol.CmdInsert, Pos: pos}, Accepted: false, Code: protocol.ErrNoCapability},
		},
	})
	_ = idx.WriteSync(world.SyncEntry{Tick: 7, Pos: pos, Kind: "BREAKER", Changed: []string{"redstone_mode"}, Record: json.RawMessage(`{"a":1}`)})
	_ = idx.WriteSync(world.SyncEntry{Tick: 9, Pos: pos, Kind: "BREAKER", Removed: true})
	_ = idx.WriteEffect(world.EffectEntry{Tick: 8, Effect: protocol.EffectBreak, Pos: [3]int{4, 21, -3}, Block: "STONE"})
	idx.RecordSnapshot("/tmp/snap/10.snap.zst", snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: 1, Tick: 10},
		Chunks:   make([]snapshot.ChunkV1, 3),
		Machines: make([]snapshot.MachineV1, 1),
	})

	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Writes after close are ignored.
	_ = idx.WriteTick(world.TickLogEntry{Tick: 99})

	idx, err = OpenSQLite(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	ctx := context.Background()

	last, ok, err := idx.LastTick(ctx)
	if err != nil || !ok || last != 7 {
		t.Fatalf("LastTick=%d ok=%v err=%v, want 7", last, ok, err)
	}

	hist, err := idx.SyncHistory(ctx, pos, 10)
	if err != nil {
		t.Fatalf("SyncHistory: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history len=%d, want 2", len(hist))
	}
	if hist[0].Tick != 9 || !hist[0].Removed {
		t.Fatalf("newest row=%+v, want removal at tick 9", hist[0])
	}
	if hist[1].Record != `{"a":1}` || len(hist[1].Changed) != 1 || hist[1].Changed[0] != "redstone_mode" {
		t.Fatalf("older row=%+v", hist[1])
	}

	rejected, err := idx.RejectedCommands(ctx)
	if err != nil {
		t.Fatalf("RejectedCommands: %v", err)
	}
	if rejected[protocol.ErrNoCapability] != 1 || len(rejected) != 1 {
		t.Fatalf("rejected=%v", rejected)
	}

	snaps, err := idx.Snapshots(ctx)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Tick != 10 || snaps[0].Chunks != 3 || snaps[0].Machines != 1 || snaps[0].Levers != 0 {
		t.Fatalf("snapshots=%+v", snaps)
	}
}

func TestSQLiteIndex_EmptyLastTick(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()
	if _, ok, err := idx.LastTick(context.Background()); err != nil || ok {
		t.Fatalf("ok=%v err=%v, want empty", ok, err)
	}
}

func TestSQLiteIndex_DropsWhenQueueFull(t *testing.T) {
	// No writer goroutine: the queue fills and further writes are counted as drops.
	s := &SQLiteIndex{ch: make(chan req, 1)}
	_ = s.WriteSync(world.SyncEntry{Tick: 1})
	_ = s.WriteSync(world.SyncEntry{Tick: 2})
	_ = s.WriteEffect(world.EffectEntry{Tick: 2})
	s.RecordSnapshot("x", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("depth=%d cap=%d, want 1/1", st.QueueDepth, st.QueueCapacity)
	}
	if st.DropSyncTotal != 1 || st.DropEffectTotal != 1 || st.DropSnapshotTotal != 1 || st.DropTickTotal != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestSQLiteIndex_NilIsNoop(t *testing.T) {
	var s *SQLiteIndex
	if err := s.WriteTick(world.TickLogEntry{Tick: 1}); err != nil {
		t.Fatalf("WriteTick on nil: %v", err)
	}
	s.RecordSnapshot("x", snapshot.SnapshotV1{})
	if err := s.UpsertCatalogs("", nil, tuning.Tuning{}); err != nil {
		t.Fatalf("UpsertCatalogs on nil: %v", err)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	configDir := filepath.Join("..", "..", "..", "configs")
	cats, err := catalogs.Load(configDir)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	if err := idx.UpsertCatalogs(configDir, cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	// Upserting twice replaces rows rather than failing on the primary key.
	if err := idx.UpsertCatalogs(configDir, cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs again: %v", err)
	}

	var n int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM catalogs`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 5 {
		t.Fatalf("catalog rows=%d, want 5", n)
	}
	var digest string
	if err := idx.db.QueryRow(`SELECT digest FROM catalogs WHERE name='blocks_palette'`).Scan(&digest); err != nil {
		t.Fatalf("palette digest: %v", err)
	}
	if digest != cats.Blocks.PaletteDigest {
		t.Fatalf("digest=%s, want %s", digest, cats.Blocks.PaletteDigest)
	}
	var version string
	if err := idx.db.QueryRow(`SELECT value FROM meta WHERE key='schema_version'`).Scan(&version); err != nil || version != "1" {
		t.Fatalf("schema_version=%q err=%v", version, err)
	}
}
