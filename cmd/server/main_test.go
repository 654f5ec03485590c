package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"voxelforge.ai/internal/persistence/snapshot"
	"voxelforge.ai/internal/sim/world"
)

func TestLatestSnapshot(t *testing.T) {
	worldDir := t.TempDir()
	if got := latestSnapshot(worldDir); got != "" {
		t.Fatalf("empty dir: got %q", got)
	}
	dir := filepath.Join(worldDir, "snapshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"100.snap.zst", "2000.snap.zst", "300.snap.zst", "junk.snap.zst", "9999.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if got, want := latestSnapshot(worldDir), filepath.Join(dir, "2000.snap.zst"); got != want {
		t.Fatalf("latest=%q, want %q", got, want)
	}
}

type countingTickLogger struct{ n int }

func (c *countingTickLogger) WriteTick(world.TickLogEntry) error { c.n++; return nil }

func TestMultiTickLogger_NilSides(t *testing.T) {
	a := &countingTickLogger{}
	m := multiTickLogger{a: a}
	if err := m.WriteTick(world.TickLogEntry{Tick: 1}); err != nil {
		t.Fatalf("WriteTick: %v", err)
	}
	b := &countingTickLogger{}
	m = multiTickLogger{a: a, b: b}
	_ = m.WriteTick(world.TickLogEntry{Tick: 2})
	if a.n != 2 || b.n != 1 {
		t.Fatalf("a=%d b=%d, want 2/1", a.n, b.n)
	}
}

func TestWriteMetrics(t *testing.T) {
	var buf bytes.Buffer
	writeMetrics(&buf, "W", 5, world.WorldMetrics{
		Tick:     7,
		Machines: map[string]int{"MINER": 2, "BREAKER": 1},
		Rejected: map[string]uint64{"E_CONFLICT": 3},
	}, nil)
	out := buf.String()
	for _, want := range []string{
		`voxelforge_world_tick{world="W"} 7`,
		`voxelforge_world_machines{world="W",kind="BREAKER"} 1`,
		`voxelforge_world_machines{world="W",kind="MINER"} 2`,
		`voxelforge_commands_rejected_total{world="W",code="E_CONFLICT"} 3`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "voxelforge_index_") {
		t.Fatalf("index metrics without an index")
	}
	if strings.Index(out, `kind="BREAKER"`) > strings.Index(out, `kind="MINER"`) {
		t.Fatalf("machine kinds not sorted")
	}
}

type recordedSnapshot struct {
	path string
	tick uint64
}

type snapshotRecorderFunc func(path string, snap snapshot.SnapshotV1)

func (f snapshotRecorderFunc) RecordSnapshot(path string, snap snapshot.SnapshotV1) { f(path, snap) }

func TestRunSnapshotWriter(t *testing.T) {
	worldDir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snaps := make(chan snapshot.SnapshotV1, 1)
	got := make(chan recordedSnapshot, 1)
	rec := snapshotRecorderFunc(func(path string, snap snapshot.SnapshotV1) {
		got <- recordedSnapshot{path: path, tick: snap.Header.Tick}
	})
	go runSnapshotWriter(ctx, worldDir, snaps, rec, zerolog.Nop())

	snaps <- snapshot.SnapshotV1{Header: snapshot.Header{Version: snapshot.Version, WorldID: "W", Tick: 42}}
	select {
	case r := <-got:
		if r.tick != 42 || r.path != snapshotPath(worldDir, 42) {
			t.Fatalf("recorded=%+v", r)
		}
		h, err := snapshot.ReadHeader(r.path)
		if err != nil {
			t.Fatalf("read header: %v", err)
		}
		if h.Tick != 42 || h.WorldID != "W" {
			t.Fatalf("header=%+v", h)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("snapshot not recorded")
	}
	if latestSnapshot(worldDir) != snapshotPath(worldDir, 42) {
		t.Fatalf("latest snapshot not found")
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.2:1234":  false,
		"garbage":        false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v, want %v", in, got, want)
		}
	}
}
