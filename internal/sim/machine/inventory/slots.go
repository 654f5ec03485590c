// Package inventory implements fixed-size slot inventories.
//
// Every slot carries a validity predicate. Insert and AddAll consult it, so
// both external insertion and machine output go through the same check. An
// out-of-range index is a programming error and panics.
package inventory

import (
	"fmt"
	"hash/fnv"

	"voxelforge.ai/internal/sim/item"
	"voxelforge.ai/internal/sim/machine/record"
)

// ValidFunc reports whether s may occupy slot i.
type ValidFunc func(i int, s item.Stack) bool

// MaxStackFunc returns the stack limit for an item kind.
type MaxStackFunc func(itemID string) int

func AnyItem(int, item.Stack) bool { return true }

type Slots struct {
	stacks   []item.Stack
	valid    ValidFunc
	maxStack MaxStackFunc
}

func New(n int, valid ValidFunc, maxStack MaxStackFunc) *Slots {
	if valid == nil {
		valid = AnyItem
	}
	return &Slots{
		stacks:   make([]item.Stack, n),
		valid:    valid,
		maxStack: maxStack,
	}
}

func (s *Slots) Len() int { return len(s.stacks) }

func (s *Slots) check(i int) {
	if i < 0 || i >= len(s.stacks) {
		panic(fmt.Sprintf("inventory: slot %d out of range [0,%d)", i, len(s.stacks)))
	}
}

func (s *Slots) limit(id string) int {
	if s.maxStack == nil {
		return item.DefaultMaxStack
	}
	if n := s.maxStack(id); n > 0 {
		return n
	}
	return item.DefaultMaxStack
}

// Get returns a copy of slot i (the empty stack when unoccupied).
func (s *Slots) Get(i int) item.Stack {
	s.check(i)
	return s.stacks[i].Clone()
}

func (s *Slots) IsEmpty(i int) bool {
	s.check(i)
	return s.stacks[i].Empty()
}

// Set overwrites slot i without consulting the predicate. Empty stacks are
// normalised to the zero value.
func (s *Slots) Set(i int, st item.Stack) {
	s.check(i)
	if st.Empty() {
		s.stacks[i] = item.Stack{}
		return
	}
	s.stacks[i] = st.Clone()
}

func (s *Slots) Valid(i int, st item.Stack) bool {
	s.check(i)
	if st.Empty() {
		return false
	}
	return s.valid(i, st)
}

// Insert merges st into slot i and returns what did not fit.
func (s *Slots) Insert(i int, st item.Stack, simulate bool) item.Stack {
	s.check(i)
	if st.Empty() || !s.valid(i, st) {
		return st
	}
	cur := s.stacks[i]
	if !cur.Empty() && !cur.Stackable(st) {
		return st
	}
	room := s.limit(st.Item) - cur.Count
	if room <= 0 {
		return st
	}
	moved := min(room, st.Count)
	if !simulate {
		if cur.Empty() {
			s.stacks[i] = st.WithCount(moved)
		} else {
			s.stacks[i].Count += moved
		}
	}
	return st.WithCount(st.Count - moved)
}

// Extract removes up to n items from slot i and returns them.
func (s *Slots) Extract(i, n int, simulate bool) item.Stack {
	s.check(i)
	cur := s.stacks[i]
	if cur.Empty() || n <= 0 {
		return item.Stack{}
	}
	taken := min(n, cur.Count)
	if !simulate {
		s.Shrink(i, taken)
	}
	return cur.WithCount(taken)
}

// Shrink consumes n items from slot i; a depleted slot becomes empty.
func (s *Slots) Shrink(i, n int) {
	s.check(i)
	if n <= 0 || s.stacks[i].Empty() {
		return
	}
	s.stacks[i].Count -= n
	if s.stacks[i].Count <= 0 {
		s.stacks[i] = item.Stack{}
	}
}

// FirstFilled returns the lowest occupied slot index.
func (s *Slots) FirstFilled() (int, bool) {
	for i, st := range s.stacks {
		if !st.Empty() {
			return i, true
		}
	}
	return -1, false
}

// AddAll deposits every stack or none of them. With simulate set it only
// reports whether the deposit would succeed.
func (s *Slots) AddAll(stacks []item.Stack, simulate bool) bool {
	work := make([]item.Stack, len(s.stacks))
	for i, st := range s.stacks {
		work[i] = st.Clone()
	}
	for _, st := range stacks {
		if st.Empty() {
			continue
		}
		rest := st.Count
		for i := range work {
			if rest == 0 {
				break
			}
			if work[i].Empty() || !work[i].Stackable(st) || !s.valid(i, st) {
				continue
			}
			moved := min(rest, s.limit(st.Item)-work[i].Count)
			if moved > 0 {
				work[i].Count += moved
				rest -= moved
			}
		}
		for i := range work {
			if rest == 0 {
				break
			}
			if !work[i].Empty() || !s.valid(i, st) {
				continue
			}
			moved := min(rest, s.limit(st.Item))
			work[i] = st.WithCount(moved)
			rest -= moved
		}
		if rest > 0 {
			return false
		}
	}
	if !simulate {
		s.stacks = work
	}
	return true
}

// Fingerprint hashes the contents so change trackers can compare
// inventories as a single field.
func (s *Slots) Fingerprint() int64 {
	h := fnv.New64a()
	for i, st := range s.stacks {
		if st.Empty() {
			continue
		}
		fmt.Fprintf(h, "%d:%s:%d:%d", i, st.Item, st.Count, st.Meta)
		for _, e := range st.Effects {
			fmt.Fprintf(h, ":%s/%d/%d", e.ID, e.Duration, e.Amplifier)
		}
		h.Write([]byte{';'})
	}
	return int64(h.Sum64())
}

type slotRecord struct {
	Slot int `json:"Slot"`
	item.Stack
}

func (s *Slots) Save(r record.Record) {
	out := make([]slotRecord, 0, len(s.stacks))
	for i, st := range s.stacks {
		if st.Empty() {
			continue
		}
		out = append(out, slotRecord{Slot: i, Stack: st})
	}
	r.Set("Items", out)
}

// Load replaces the contents. Entries with out-of-range slots or items the
// slot does not accept are skipped.
func (s *Slots) Load(r record.Record) {
	for i := range s.stacks {
		s.stacks[i] = item.Stack{}
	}
	var in []slotRecord
	if !r.Decode("Items", &in) {
		return
	}
	for _, sr := range in {
		if sr.Slot < 0 || sr.Slot >= len(s.stacks) || sr.Stack.Empty() || !s.valid(sr.Slot, sr.Stack) {
			continue
		}
		s.stacks[sr.Slot] = sr.Stack
	}
}
