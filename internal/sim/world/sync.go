package world

import (
	"voxelforge.ai/internal/protocol"
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/machine/hud"
	"voxelforge.ai/internal/sim/machine/record"
)

// publishSyncs pushes machines whose observable state changed, at most once
// per sync interval each.
func (w *World) publishSyncs(nowTick uint64) {
	for _, p := range w.machinePositions() {
		m := w.machines[p]
		b := m.Common()
		if b.TakeDirty() {
			w.changed = true
		}
		changed, ok := b.Sync.Observe(nowTick, m.SyncFields())
		if !ok {
			continue
		}
		msg, ok := w.syncMsg(nowTick, m, changed)
		if !ok {
			continue
		}
		if w.syncLogger != nil {
			entry := SyncEntry{Tick: nowTick, WorldID: w.cfg.ID, Pos: msg.Pos, Kind: msg.Kind, Changed: changed, Record: msg.Record}
			if err := w.syncLogger.WriteSync(entry); err != nil {
				w.log.Warn().Err(err).Msg("sync log write failed")
			}
		}
		w.broadcast(msg)
		w.broadcast(w.hudMsg(nowTick, m))
	}
}

func (w *World) syncMsg(nowTick uint64, m machine.Machine, changed []string) (protocol.SyncMsg, bool) {
	raw, err := m.Save(record.NetworkSync).Marshal()
	if err != nil {
		w.log.Error().Err(err).Str("pos", m.Common().Pos.String()).Msg("encode sync record")
		return protocol.SyncMsg{}, false
	}
	return protocol.SyncMsg{
		Type:            protocol.TypeSync,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Pos:             m.Common().Pos.ToArray(),
		Kind:            string(m.Kind()),
		Changed:         changed,
		Record:          raw,
	}, true
}

func (w *World) hudMsg(nowTick uint64, m machine.Machine) protocol.HudMsg {
	return protocol.HudMsg{
		Type:            protocol.TypeHud,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Overlay:         hud.Describe(m),
	}
}

func (w *World) publishRemoved(nowTick uint64, m machine.Machine) {
	pos := m.Common().Pos.ToArray()
	if w.syncLogger != nil {
		if err := w.syncLogger.WriteSync(SyncEntry{Tick: nowTick, WorldID: w.cfg.ID, Pos: pos, Kind: string(m.Kind()), Removed: true}); err != nil {
			w.log.Warn().Err(err).Msg("sync log write failed")
		}
	}
	w.broadcast(protocol.SyncMsg{
		Type:            protocol.TypeSync,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Pos:             pos,
		Kind:            string(m.Kind()),
		Removed:         true,
	})
}

// flushEffects hands this tick's effects to observers and the effect log.
func (w *World) flushEffects(nowTick uint64) {
	for _, e := range w.effects {
		e.Tick = nowTick
		if w.effectLogger != nil {
			if err := w.effectLogger.WriteEffect(e); err != nil {
				w.log.Warn().Err(err).Msg("effect log write failed")
			}
		}
		w.broadcast(protocol.EffectMsg{
			Type:            protocol.TypeEffect,
			ProtocolVersion: protocol.Version,
			Tick:            nowTick,
			Effect:          e.Effect,
			Pos:             e.Pos,
			To:              e.To,
			Block:           e.Block,
			Sound:           e.Sound,
		})
	}
	w.effects = w.effects[:0]
}
