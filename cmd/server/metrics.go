package main

import (
	"fmt"
	"io"
	"sort"

	"voxelforge.ai/internal/sim/world"
)

// writeMetrics renders a minimal Prometheus exposition.
func writeMetrics(rw io.Writer, worldID string, tick uint64, m world.WorldMetrics, idx runtimeIndex) {
	if m.Tick != 0 {
		tick = m.Tick
	}

	fmt.Fprintf(rw, "# HELP voxelforge_world_tick Current world tick.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_world_tick gauge\n")
	fmt.Fprintf(rw, "voxelforge_world_tick{world=%q} %d\n", worldID, tick)

	fmt.Fprintf(rw, "# HELP voxelforge_world_machines Placed machines by kind.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_world_machines gauge\n")
	for _, kind := range m.MetricKinds() {
		fmt.Fprintf(rw, "voxelforge_world_machines{world=%q,kind=%q} %d\n", worldID, kind, m.Machines[kind])
	}

	fmt.Fprintf(rw, "# HELP voxelforge_world_levers Placed levers.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_world_levers gauge\n")
	fmt.Fprintf(rw, "voxelforge_world_levers{world=%q} %d\n", worldID, m.Levers)

	fmt.Fprintf(rw, "# HELP voxelforge_world_observers Connected observer sessions.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_world_observers gauge\n")
	fmt.Fprintf(rw, "voxelforge_world_observers{world=%q} %d\n", worldID, m.Observers)

	fmt.Fprintf(rw, "# HELP voxelforge_world_loaded_chunks Loaded chunk count.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_world_loaded_chunks gauge\n")
	fmt.Fprintf(rw, "voxelforge_world_loaded_chunks{world=%q} %d\n", worldID, m.LoadedChunks)

	fmt.Fprintf(rw, "# HELP voxelforge_world_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_world_queue_depth gauge\n")
	fmt.Fprintf(rw, "voxelforge_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(rw, "voxelforge_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "join", m.QueueDepths.Join)
	fmt.Fprintf(rw, "voxelforge_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "leave", m.QueueDepths.Leave)

	fmt.Fprintf(rw, "# HELP voxelforge_world_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_world_step_ms gauge\n")
	fmt.Fprintf(rw, "voxelforge_world_step_ms{world=%q} %.3f\n", worldID, m.StepMS)

	codes := make([]string, 0, len(m.Rejected))
	for c := range m.Rejected {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	fmt.Fprintf(rw, "# HELP voxelforge_commands_rejected_total Rejected commands by code.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_commands_rejected_total counter\n")
	for _, c := range codes {
		fmt.Fprintf(rw, "voxelforge_commands_rejected_total{world=%q,code=%q} %d\n", worldID, c, m.Rejected[c])
	}

	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(rw, "# HELP voxelforge_index_queue_depth Index writer queue depth.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "voxelforge_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP voxelforge_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_index_dropped_total counter\n")
	fmt.Fprintf(rw, "voxelforge_index_dropped_total{stream=%q} %d\n", "tick", s.DropTickTotal)
	fmt.Fprintf(rw, "voxelforge_index_dropped_total{stream=%q} %d\n", "sync", s.DropSyncTotal)
	fmt.Fprintf(rw, "voxelforge_index_dropped_total{stream=%q} %d\n", "effect", s.DropEffectTotal)
	fmt.Fprintf(rw, "voxelforge_index_dropped_total{stream=%q} %d\n", "snapshot", s.DropSnapshotTotal)
}
