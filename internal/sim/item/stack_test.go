package item

import "testing"

func TestStackEmpty(t *testing.T) {
	if !(Stack{}).Empty() {
		t.Fatalf("zero stack should be empty")
	}
	if !New("CUP", 0).Empty() {
		t.Fatalf("zero-count stack should be empty")
	}
	if New("CUP", 1).Empty() {
		t.Fatalf("CUP x1 should not be empty")
	}
}

func TestStackableComparesEffects(t *testing.T) {
	a := Stack{Item: "COFFEE", Count: 1, Effects: []Effect{{ID: "speed", Duration: 20}}}
	b := a.Clone()
	if !a.Stackable(b) {
		t.Fatalf("clones should stack")
	}
	b.Effects[0].Amplifier = 1
	if a.Stackable(b) {
		t.Fatalf("different amplifiers should not stack")
	}
	if a.Effects[0].Amplifier != 0 {
		t.Fatalf("Clone shared the effects slice")
	}
}

func TestWithCount(t *testing.T) {
	s := New("STONE", 5).WithCount(0)
	if !s.Empty() || s.Item != "" {
		t.Fatalf("WithCount(0)=%+v, want empty", s)
	}
	if got := New("STONE", 5).WithCount(3).Count; got != 3 {
		t.Fatalf("WithCount(3).Count=%d", got)
	}
}
