package inventory

import (
	"testing"

	"voxelforge.ai/internal/sim/item"
	"voxelforge.ai/internal/sim/machine/record"
)

func cupsOnlyInSlotZero(i int, s item.Stack) bool {
	if i == 0 {
		return s.Item == "CUP"
	}
	return true
}

func TestInsertHonoursPredicate(t *testing.T) {
	s := New(2, cupsOnlyInSlotZero, nil)
	rest := s.Insert(0, item.New("COFFEE_BEANS", 3), false)
	if rest.Count != 3 || !s.IsEmpty(0) {
		t.Fatalf("invalid insert accepted: rest=%+v slot=%+v", rest, s.Get(0))
	}
	rest = s.Insert(0, item.New("CUP", 3), false)
	if !rest.Empty() || s.Get(0).Count != 3 {
		t.Fatalf("valid insert: rest=%+v slot=%+v", rest, s.Get(0))
	}
}

func TestInsertRespectsStackLimit(t *testing.T) {
	s := New(1, nil, func(string) int { return 16 })
	rest := s.Insert(0, item.New("CUP", 20), true)
	if rest.Count != 4 || !s.IsEmpty(0) {
		t.Fatalf("simulated insert: rest=%+v slot=%+v", rest, s.Get(0))
	}
	s.Insert(0, item.New("CUP", 20), false)
	if s.Get(0).Count != 16 {
		t.Fatalf("slot count=%d, want 16", s.Get(0).Count)
	}
}

func TestExtractEmptiesDepletedSlot(t *testing.T) {
	s := New(1, nil, nil)
	s.Set(0, item.New("STONE", 2))
	got := s.Extract(0, 5, false)
	if got.Count != 2 {
		t.Fatalf("Extract count=%d, want 2", got.Count)
	}
	if st := s.Get(0); st.Item != "" || st.Count != 0 {
		t.Fatalf("depleted slot=%+v, want zero value", st)
	}
	if got := s.Extract(0, 1, false); !got.Empty() {
		t.Fatalf("Extract from empty slot=%+v", got)
	}
}

func TestOutOfRangePanics(t *testing.T) {
	s := New(3, nil, nil)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for slot 3")
		}
	}()
	_ = s.Get(3)
}

func TestAddAllIsAllOrNothing(t *testing.T) {
	s := New(2, nil, func(string) int { return 10 })
	s.Set(0, item.New("STONE", 8))

	drops := []item.Stack{item.New("STONE", 4), item.New("COAL", 10), item.New("IRON", 1)}
	if s.AddAll(drops, true) {
		t.Fatalf("deposit needing three slots reported success in two")
	}
	if s.AddAll(drops, false) {
		t.Fatalf("commit should fail too")
	}
	if s.Get(0).Count != 8 || !s.IsEmpty(1) {
		t.Fatalf("failed AddAll mutated slots: %+v %+v", s.Get(0), s.Get(1))
	}

	ok := s.AddAll([]item.Stack{item.New("STONE", 4)}, false)
	if !ok {
		t.Fatalf("AddAll should fit")
	}
	if s.Get(0).Count != 10 || s.Get(1).Item != "STONE" || s.Get(1).Count != 2 {
		t.Fatalf("merge then spill: %+v %+v", s.Get(0), s.Get(1))
	}
}

func TestAddAllSimulateDoesNotMutate(t *testing.T) {
	s := New(1, nil, nil)
	if !s.AddAll([]item.Stack{item.New("COAL", 1)}, true) {
		t.Fatalf("simulate should succeed")
	}
	if !s.IsEmpty(0) {
		t.Fatalf("simulate mutated slot: %+v", s.Get(0))
	}
}

func TestFirstFilled(t *testing.T) {
	s := New(3, nil, nil)
	if _, ok := s.FirstFilled(); ok {
		t.Fatalf("empty inventory has a filled slot")
	}
	s.Set(2, item.New("DIRT", 1))
	if i, ok := s.FirstFilled(); !ok || i != 2 {
		t.Fatalf("FirstFilled=%d,%v want 2,true", i, ok)
	}
}

func TestSaveLoadAndFingerprint(t *testing.T) {
	s := New(3, nil, nil)
	s.Set(1, item.Stack{Item: "COFFEE", Count: 1, Effects: []item.Effect{{ID: "speed", Duration: 60}}})
	r := record.New()
	s.Save(r)

	other := New(3, nil, nil)
	other.Set(0, item.New("JUNK", 1))
	other.Load(r)
	if !other.IsEmpty(0) || other.Get(1).Item != "COFFEE" || len(other.Get(1).Effects) != 1 {
		t.Fatalf("Load: %+v %+v", other.Get(0), other.Get(1))
	}
	if s.Fingerprint() != other.Fingerprint() {
		t.Fatalf("equal inventories should share a fingerprint")
	}
	other.Shrink(1, 1)
	if s.Fingerprint() == other.Fingerprint() {
		t.Fatalf("fingerprint did not change after Shrink")
	}
}

func TestLoadSkipsStacksTheSlotRejects(t *testing.T) {
	src := New(2, nil, nil)
	src.Set(0, item.New("STONE", 4))
	src.Set(1, item.New("STONE", 2))
	r := record.New()
	src.Save(r)

	s := New(2, cupsOnlyInSlotZero, nil)
	s.Load(r)
	if !s.IsEmpty(0) {
		t.Fatalf("slot0=%+v, want empty", s.Get(0))
	}
	if st := s.Get(1); st.Item != "STONE" || st.Count != 2 {
		t.Fatalf("slot1=%+v, want 2 STONE", st)
	}
}
