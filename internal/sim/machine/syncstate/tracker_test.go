package syncstate

import "testing"

func fields(energy, layer int64) []Field {
	return []Field{{Name: "Energy", Value: energy}, {Name: "Layer", Value: layer}}
}

func TestFirstObservationBroadcasts(t *testing.T) {
	tr := NewTracker(5)
	changed, ok := tr.Observe(0, fields(0, 63))
	if !ok || len(changed) != 2 {
		t.Fatalf("first Observe=%v,%v want both fields", changed, ok)
	}
	if _, ok := tr.Observe(1, fields(0, 63)); ok {
		t.Fatalf("unchanged state broadcast again")
	}
}

func TestMutationsWithinIntervalCollapse(t *testing.T) {
	tr := NewTracker(5)
	tr.Observe(10, fields(0, 63))

	sent := 0
	if _, ok := tr.Observe(11, fields(100, 63)); ok {
		sent++
	}
	if _, ok := tr.Observe(12, fields(200, 62)); ok {
		sent++
	}
	if sent != 0 {
		t.Fatalf("mutations inside the interval after a broadcast sent %d records", sent)
	}

	changed, ok := tr.Observe(15, fields(200, 62))
	if !ok {
		t.Fatalf("pending change not sent once the interval elapsed")
	}
	if len(changed) != 2 {
		t.Fatalf("changed=%v, want Energy and Layer", changed)
	}
	if _, ok := tr.Observe(16, fields(200, 62)); ok {
		t.Fatalf("no further change should mean no broadcast")
	}

	if _, ok := tr.Observe(21, fields(300, 62)); !ok {
		t.Fatalf("mutation after the interval should produce exactly one more record")
	}
}

func TestAtMostOneRecordPerInterval(t *testing.T) {
	tr := NewTracker(4)
	records := 0
	for tick := uint64(0); tick < 8; tick++ {
		if _, ok := tr.Observe(tick, fields(int64(tick), 0)); ok {
			records++
		}
	}
	if records != 2 {
		t.Fatalf("records=%d over two intervals, want 2", records)
	}
}

func TestForceBypassesInterval(t *testing.T) {
	tr := NewTracker(20)
	tr.Observe(0, fields(0, 0))
	tr.Force()
	changed, ok := tr.Observe(1, fields(0, 0))
	if !ok {
		t.Fatalf("forced observe did not broadcast")
	}
	if len(changed) != 0 {
		t.Fatalf("forced broadcast with no diff reported changes: %v", changed)
	}
	if _, ok := tr.Observe(2, fields(1, 0)); ok {
		t.Fatalf("force should be one-shot")
	}
}
