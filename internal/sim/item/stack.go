package item

// DefaultMaxStack applies to items whose catalog entry does not set one.
const DefaultMaxStack = 64

// Effect is a timed status effect carried by a stack (coffee flavours).
type Effect struct {
	ID        string `json:"id"`
	Duration  int    `json:"duration"`
	Amplifier int    `json:"amplifier"`
}

// Stack is a count of one item kind. The zero value is the empty stack.
type Stack struct {
	Item    string   `json:"item"`
	Count   int      `json:"count"`
	Meta    int      `json:"meta,omitempty"`
	Effects []Effect `json:"effects,omitempty"`
}

func New(item string, count int) Stack {
	return Stack{Item: item, Count: count}
}

func (s Stack) Empty() bool { return s.Item == "" || s.Count <= 0 }

// Stackable reports whether o can merge into s.
func (s Stack) Stackable(o Stack) bool {
	if s.Item != o.Item || s.Meta != o.Meta || len(s.Effects) != len(o.Effects) {
		return false
	}
	for i := range s.Effects {
		if s.Effects[i] != o.Effects[i] {
			return false
		}
	}
	return true
}

func (s Stack) WithCount(n int) Stack {
	if n <= 0 {
		return Stack{}
	}
	out := s.Clone()
	out.Count = n
	return out
}

func (s Stack) Clone() Stack {
	out := s
	if len(s.Effects) > 0 {
		out.Effects = append([]Effect(nil), s.Effects...)
	}
	return out
}

// EffectIndex returns the position of the effect with id, or -1.
func (s Stack) EffectIndex(id string) int {
	for i, e := range s.Effects {
		if e.ID == id {
			return i
		}
	}
	return -1
}
