package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	persistlog "voxelforge.ai/internal/persistence/log"
	"voxelforge.ai/internal/persistence/snapshot"
	"voxelforge.ai/internal/protocol"
	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/tuning"
	"voxelforge.ai/internal/sim/world"
)

func command(id, name string, pos [3]int) protocol.CommandMsg {
	return protocol.CommandMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, ID: id, Command: name, Pos: pos}
}

// recordRun runs a small breaker world with a tick log and returns the
// snapshot taken after tick 2 plus the log dir.
func recordRun(t *testing.T, cats *catalogs.Catalogs) (snapshot.SnapshotV1, string) {
	t.Helper()
	w, err := world.New(world.Config{ID: "REPLAY", Tuning: tuning.Defaults()}, cats, zerolog.Nop())
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	worldDir := t.TempDir()
	tickLog := persistlog.NewTickLogger(worldDir)
	w.SetTickLogger(tickLog)

	place := command("c1", protocol.CmdPlaceMachine, [3]int{3, 60, -5})
	place.Kind = "BREAKER"
	place.Facing = "EAST"
	w.StepOnce(nil, nil, []world.CommandEnvelope{{SessionID: "s", Cmd: place}})
	w.StepOnce(nil, nil, nil)
	w.StepOnce(nil, nil, nil)
	snap := w.ExportSnapshot(w.CurrentTick() - 1)

	gravel := command("c2", protocol.CmdSetBlock, [3]int{4, 60, -5})
	gravel.Block = "GRAVEL"
	dup := command("c3", protocol.CmdPlaceMachine, [3]int{3, 60, -5})
	dup.Kind = "MINER"
	w.StepOnce(nil, nil, []world.CommandEnvelope{{SessionID: "s", Cmd: gravel}, {SessionID: "s", Cmd: dup}})
	for i := 0; i < 19; i++ {
		w.StepOnce(nil, nil, nil)
	}
	if err := tickLog.Close(); err != nil {
		t.Fatalf("close tick log: %v", err)
	}
	return snap, filepath.Join(worldDir, "ticks")
}

func loadCats(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	return cats
}

func TestReplay_VerifiesDigestsFromSnapshot(t *testing.T) {
	cats := loadCats(t)
	snap, ticksDir := recordRun(t, cats)

	files, err := persistlog.Files(ticksDir, "ticks")
	if err != nil || len(files) == 0 {
		t.Fatalf("files=%v err=%v", files, err)
	}

	w, err := world.NewFromSnapshot(world.Config{Tuning: tuning.Defaults()}, cats, zerolog.Nop(), snap)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	checked, err := replay(w, files, 0, 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 20 {
		t.Fatalf("checked=%d, want 20", checked)
	}

	w, _ = world.NewFromSnapshot(world.Config{Tuning: tuning.Defaults()}, cats, zerolog.Nop(), snap)
	checked, err = replay(w, files, 0, 10)
	if err != nil || checked != 8 {
		t.Fatalf("bounded replay checked=%d err=%v, want 8", checked, err)
	}
}

func TestReplay_DetectsDivergence(t *testing.T) {
	cats := loadCats(t)
	_, ticksDir := recordRun(t, cats)
	files, _ := persistlog.Files(ticksDir, "ticks")

	tu := tuning.Defaults()
	tu.Seed = 999
	w, err := world.New(world.Config{ID: "REPLAY", Tuning: tu}, cats, zerolog.Nop())
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	_, err = replay(w, files, 0, 0)
	if err == nil || !strings.Contains(err.Error(), "digest mismatch at tick 0") {
		t.Fatalf("err=%v, want digest mismatch at tick 0", err)
	}
}

func TestDescribe(t *testing.T) {
	got := describe(snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: 1, WorldID: "W", Tick: 9},
		Machines: []snapshot.MachineV1{{Kind: "MINER"}, {Kind: "BREAKER"}, {Kind: "MINER"}},
	})
	if !strings.HasSuffix(got, "machines=3 BREAKER=1 MINER=2") {
		t.Fatalf("describe=%q", got)
	}
}
