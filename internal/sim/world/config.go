package world

import "voxelforge.ai/internal/sim/tuning"

type Config struct {
	ID     string
	Tuning tuning.Tuning

	// InboxSize bounds commands queued between ticks.
	InboxSize int
	// ObserverQueue is the per-observer outbound buffer.
	ObserverQueue int
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "OVERWORLD"
	}
	c.Tuning.ApplyDefaults()
	if c.InboxSize <= 0 {
		c.InboxSize = 1024
	}
	if c.ObserverQueue <= 0 {
		c.ObserverQueue = 256
	}
}
