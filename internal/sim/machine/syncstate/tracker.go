// Package syncstate decides when a machine's observable state is pushed to
// observers. It keeps the last broadcast values and compares field by field.
package syncstate

// Field is one observable value. Readout marks fields a HUD may show as-is.
type Field struct {
	Name    string
	Value   int64
	Readout bool
}

// Tracker throttles outward sync to at most once per interval ticks.
// Changes seen inside the interval stay pending and go out with the next
// allowed broadcast.
type Tracker struct {
	interval uint64

	last     map[string]int64
	lastSent uint64
	sent     bool
	forced   bool
}

func NewTracker(intervalTicks int) *Tracker {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	return &Tracker{interval: uint64(intervalTicks)}
}

func (t *Tracker) Interval() uint64 { return t.interval }

// Force makes the next Observe broadcast regardless of interval or diff.
func (t *Tracker) Force() { t.forced = true }

// Diff lists fields whose value differs from the last broadcast.
func (t *Tracker) Diff(fields []Field) []string {
	var changed []string
	for _, f := range fields {
		prev, ok := t.last[f.Name]
		if !ok || prev != f.Value {
			changed = append(changed, f.Name)
		}
	}
	return changed
}

// Observe compares fields with the last broadcast at tick now. When a sync
// should go out it records fields as the new baseline and returns the
// changed names with ok=true.
func (t *Tracker) Observe(now uint64, fields []Field) (changed []string, ok bool) {
	changed = t.Diff(fields)
	if len(changed) == 0 && !t.forced {
		return nil, false
	}
	if !t.forced && t.sent && now-t.lastSent < t.interval {
		return nil, false
	}

	if t.last == nil {
		t.last = make(map[string]int64, len(fields))
	}
	for _, f := range fields {
		t.last[f.Name] = f.Value
	}
	t.lastSent = now
	t.sent = true
	t.forced = false
	return changed, true
}
