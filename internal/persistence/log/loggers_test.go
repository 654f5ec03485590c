package log

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"voxelforge.ai/internal/sim/world"
)

func TestSyncLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewSyncLogger(dir)
	entries := []world.SyncEntry{
		{Tick: 5, WorldID: "W", Pos: [3]int{1, 2, 3}, Kind: "MINER", Changed: []string{"Layer"}, Record: json.RawMessage(`{"Layer":4}`)},
		{Tick: 9, WorldID: "W", Pos: [3]int{1, 2, 3}, Kind: "MINER", Removed: true},
	}
	for _, e := range entries {
		if err := l.WriteSync(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(filepath.Join(dir, "sync"), "sync")
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	var got []world.SyncEntry
	err = ReadJSONL(files[0], func(line []byte) error {
		var e world.SyncEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0].Tick != 5 || string(got[0].Record) != `{"Layer":4}` || !got[1].Removed {
		t.Fatalf("entries=%+v", got)
	}
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "effects")
	now := time.Date(2024, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if err := w.Write(world.EffectEntry{Tick: 1, Effect: "BREAK"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(world.EffectEntry{Tick: 2, Effect: "SOUND"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(dir, "effects")
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files=%v, want 2 hourly files", files)
	}
	if filepath.Base(files[0]) != "effects-2024-03-01-10.jsonl.zst" || filepath.Base(files[1]) != "effects-2024-03-01-11.jsonl.zst" {
		t.Fatalf("files=%v", files)
	}
}
