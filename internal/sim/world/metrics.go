package world

import (
	"sort"
	"time"
)

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Machines     map[string]int `json:"machines"`
	Levers       int            `json:"levers"`
	Observers    int            `json:"observers"`
	LoadedChunks int            `json:"loaded_chunks"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`

	// Rejected counts ACK rejections by code since start.
	Rejected map[string]uint64 `json:"rejected,omitempty"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

// MetricKinds returns the machine kinds in m in a stable order.
func (m WorldMetrics) MetricKinds() []string {
	out := make([]string, 0, len(m.Machines))
	for k := range m.Machines {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (w *World) publishMetrics(nowTick uint64, started time.Time) {
	byKind := map[string]int{}
	for _, m := range w.machines {
		byKind[string(m.Kind())]++
	}
	rejected := make(map[string]uint64, len(w.rejected))
	for k, v := range w.rejected {
		rejected[k] = v
	}
	w.metrics.Store(WorldMetrics{
		Tick:         nowTick,
		Machines:     byKind,
		Levers:       len(w.levers),
		Observers:    len(w.observers),
		LoadedChunks: len(w.chunks.Chunks),
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
			Join:  len(w.join),
			Leave: len(w.leave),
		},
		StepMS:   float64(time.Since(started).Microseconds()) / 1000,
		Rejected: rejected,
	})
}
