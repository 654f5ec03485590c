package main

import "voxelforge.ai/internal/sim/world"

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiSyncLogger struct {
	a world.SyncLogger
	b world.SyncLogger
}

func (m multiSyncLogger) WriteSync(entry world.SyncEntry) error {
	if m.a != nil {
		_ = m.a.WriteSync(entry)
	}
	if m.b != nil {
		_ = m.b.WriteSync(entry)
	}
	return nil
}

type multiEffectLogger struct {
	a world.EffectLogger
	b world.EffectLogger
}

func (m multiEffectLogger) WriteEffect(entry world.EffectEntry) error {
	if m.a != nil {
		_ = m.a.WriteEffect(entry)
	}
	if m.b != nil {
		_ = m.b.WriteEffect(entry)
	}
	return nil
}
