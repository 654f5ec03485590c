package world

import (
	"encoding/json"

	"voxelforge.ai/internal/protocol"
	"voxelforge.ai/internal/sim/world/terrain/store"
)

type observer struct {
	Name string
	Out  chan []byte
}

func (w *World) handleJoin(req JoinRequest, nowTick uint64) {
	if req.SessionID == "" || req.Out == nil {
		return
	}
	w.observers[req.SessionID] = &observer{Name: req.Name, Out: req.Out}
	if req.Resp != nil {
		req.Resp <- JoinResponse{Welcome: w.welcome(req.SessionID, nowTick)}
	}
	// A new observer gets the current state of every machine once.
	for _, p := range w.machinePositions() {
		m := w.machines[p]
		msg, ok := w.syncMsg(nowTick, m, nil)
		if !ok {
			continue
		}
		w.sendTo(req.Out, msg)
		w.sendTo(req.Out, w.hudMsg(nowTick, m))
	}
	w.log.Info().Str("session", req.SessionID).Str("name", req.Name).Msg("observer joined")
}

func (w *World) handleLeave(id string) {
	if _, ok := w.observers[id]; !ok {
		return
	}
	delete(w.observers, id)
	w.log.Info().Str("session", id).Msg("observer left")
}

func (w *World) welcome(sessionID string, nowTick uint64) protocol.WelcomeMsg {
	t := w.cfg.Tuning
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		WorldID:         w.cfg.ID,
		CurrentTick:     nowTick,
		WorldParams: protocol.WorldParams{
			TickRateHz:        t.TickRateHz,
			ChunkSize:         [3]int{store.ChunkSize, t.Height, store.ChunkSize},
			Height:            t.Height,
			Seed:              t.Seed,
			SyncIntervalTicks: t.Sync.IntervalTicks,
		},
		Catalogs: protocol.CatalogDigests{
			BlockPalette: protocol.DigestRef{Digest: w.cats.Blocks.PaletteDigest, Count: len(w.cats.Blocks.Palette)},
			ItemPalette:  protocol.DigestRef{Digest: w.cats.Items.PaletteDigest, Count: len(w.cats.Items.Palette)},
		},
	}
}

func (w *World) broadcast(v any) {
	if len(w.observers) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.log.Error().Err(err).Msg("encode broadcast")
		return
	}
	for _, o := range w.observers {
		sendLatest(o.Out, b)
	}
}

func (w *World) sendTo(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		w.log.Error().Err(err).Msg("encode message")
		return
	}
	sendLatest(out, b)
}

// sendLatest never blocks the world loop: when the queue is full the oldest
// message is dropped.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

// Bootstrap describes the world without joining it. Safe to call from any
// goroutine: it reads only immutable config and the atomic tick.
func (w *World) Bootstrap() protocol.WelcomeMsg {
	return w.welcome("", w.CurrentTick())
}

func (w *World) BlockPalette() []string {
	return append([]string(nil), w.cats.Blocks.Palette...)
}

func (w *World) ItemPalette() []string {
	return append([]string(nil), w.cats.Items.Palette...)
}
