package machine

import "fmt"

type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (p Pos) Add(o Pos) Pos { return Pos{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z} }

func (p Pos) Offset(f Facing) Pos { return p.Add(f.Vector()) }

func (p Pos) Up(n int) Pos { return Pos{X: p.X, Y: p.Y + n, Z: p.Z} }

func (p Pos) ToArray() [3]int { return [3]int{p.X, p.Y, p.Z} }

func PosFromArray(a [3]int) Pos { return Pos{X: a[0], Y: a[1], Z: a[2]} }

func (p Pos) String() string { return fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Z) }

// Less orders positions by X, then Y, then Z.
func (p Pos) Less(o Pos) bool {
	if p.X != o.X {
		return p.X < o.X
	}
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.Z < o.Z
}

// Facing is one of the six axis-aligned directions.
type Facing int

const (
	Down Facing = iota
	Up
	North
	South
	West
	East
)

var facingNames = [...]string{"DOWN", "UP", "NORTH", "SOUTH", "WEST", "EAST"}

func (f Facing) Valid() bool { return f >= Down && f <= East }

func (f Facing) String() string {
	if !f.Valid() {
		return "UNKNOWN"
	}
	return facingNames[f]
}

func ParseFacing(s string) (Facing, bool) {
	for i, n := range facingNames {
		if n == s {
			return Facing(i), true
		}
	}
	return Down, false
}

func (f Facing) Vector() Pos {
	switch f {
	case Down:
		return Pos{Y: -1}
	case Up:
		return Pos{Y: 1}
	case North:
		return Pos{Z: -1}
	case South:
		return Pos{Z: 1}
	case West:
		return Pos{X: -1}
	case East:
		return Pos{X: 1}
	default:
		return Pos{}
	}
}

func (f Facing) Opposite() Facing {
	switch f {
	case Down:
		return Up
	case Up:
		return Down
	case North:
		return South
	case South:
		return North
	case West:
		return East
	case East:
		return West
	default:
		return f
	}
}
