package world

import (
	"encoding/json"
	"testing"

	"voxelforge.ai/internal/protocol"
	"voxelforge.ai/internal/sim/machine"
)

func drain(t *testing.T, out chan []byte) []json.RawMessage {
	t.Helper()
	var msgs []json.RawMessage
	for {
		select {
		case b := <-out:
			msgs = append(msgs, b)
		default:
			return msgs
		}
	}
}

func ofType(t *testing.T, msgs []json.RawMessage, typ string) []json.RawMessage {
	t.Helper()
	var out []json.RawMessage
	for _, m := range msgs {
		base, err := protocol.DecodeBase(m)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if base.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func TestObserverGetsWelcomeAndSync(t *testing.T) {
	w := newTestWorld(t, nil)
	out := make(chan []byte, 64)
	resp := make(chan JoinResponse, 1)
	env := CommandEnvelope{Cmd: placeCmd(machine.KindMiner, sky, machine.North)}

	w.StepOnce([]JoinRequest{{SessionID: "s1", Name: "panel", Out: out, Resp: resp}}, nil, []CommandEnvelope{env})

	welcome := (<-resp).Welcome
	if welcome.SessionID != "s1" || welcome.WorldID != "TEST" || welcome.WorldParams.SyncIntervalTicks != 5 {
		t.Fatalf("welcome=%+v", welcome)
	}
	if welcome.Catalogs.BlockPalette.Digest == "" || welcome.Catalogs.BlockPalette.Count == 0 {
		t.Fatalf("welcome catalogs=%+v", welcome.Catalogs)
	}

	msgs := drain(t, out)
	syncs := ofType(t, msgs, protocol.TypeSync)
	if len(syncs) != 1 {
		t.Fatalf("sync msgs=%d, want 1", len(syncs))
	}
	var s protocol.SyncMsg
	if err := json.Unmarshal(syncs[0], &s); err != nil {
		t.Fatalf("unmarshal sync: %v", err)
	}
	if s.Kind != "MINER" || s.Pos != sky.ToArray() || s.Tick != 0 {
		t.Fatalf("sync=%+v", s)
	}
	var rec map[string]json.RawMessage
	if err := json.Unmarshal(s.Record, &rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, ok := rec["Layer"]; !ok {
		t.Fatalf("network record missing Layer: %s", s.Record)
	}
	if _, ok := rec["TicksElapsed"]; ok {
		t.Fatalf("network record carries tick counter: %s", s.Record)
	}
	if len(ofType(t, msgs, protocol.TypeHud)) != 1 {
		t.Fatalf("expected one HUD message")
	}
}

func TestSyncThrottledToInterval(t *testing.T) {
	w := newTestWorld(t, nil)
	logs := &captureLogger{}
	w.SetSyncLogger(logs)

	mustAccept(t, step(t, w, placeCmd(machine.KindPlacer, sky, machine.Up))...)
	if len(logs.syncs) != 1 {
		t.Fatalf("syncs=%d after place, want 1", len(logs.syncs))
	}

	// Cooldown changes are not observable.
	stepN(w, 10)
	if len(logs.syncs) != 1 {
		t.Fatalf("syncs=%d while idle, want 1", len(logs.syncs))
	}

	// Three inserts on consecutive ticks collapse into one sync per interval.
	for i := 0; i < 3; i++ {
		mustAccept(t, step(t, w, insertCmd(sky, 0, "DIRT", 1))...)
	}
	if len(logs.syncs) != 2 {
		t.Fatalf("syncs=%d after inserts, want 2", len(logs.syncs))
	}
	stepN(w, 5)
	if len(logs.syncs) != 3 {
		t.Fatalf("syncs=%d after interval, want 3", len(logs.syncs))
	}
	last := logs.syncs[2]
	if len(last.Changed) != 1 || last.Changed[0] != "Items" {
		t.Fatalf("changed=%v, want [Items]", last.Changed)
	}
}

func TestRemovalIsBroadcast(t *testing.T) {
	w := newTestWorld(t, nil)
	logs := &captureLogger{}
	w.SetSyncLogger(logs)
	mustAccept(t, step(t, w, placeCmd(machine.KindBreaker, sky, machine.North))...)
	mustAccept(t, step(t, w, cmd(protocol.CmdRemoveMachine, sky))...)

	last := logs.syncs[len(logs.syncs)-1]
	if !last.Removed || last.Kind != "BREAKER" || last.Pos != sky.ToArray() {
		t.Fatalf("last sync=%+v, want removal", last)
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	w := newTestWorld(t, nil)
	out := make(chan []byte, 64)
	w.StepOnce([]JoinRequest{{SessionID: "s1", Out: out}}, nil, nil)
	w.StepOnce(nil, []string{"s1"}, []CommandEnvelope{{Cmd: placeCmd(machine.KindBreaker, sky, machine.North)}})
	if msgs := drain(t, out); len(msgs) != 0 {
		t.Fatalf("got %d messages after leave", len(msgs))
	}
}

func TestSendLatestDropsOldest(t *testing.T) {
	ch := make(chan []byte, 2)
	sendLatest(ch, []byte("a"))
	sendLatest(ch, []byte("b"))
	sendLatest(ch, []byte("c"))
	if got := string(<-ch) + string(<-ch); got != "bc" {
		t.Fatalf("queue=%q, want bc", got)
	}
}
