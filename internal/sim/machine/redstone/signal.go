package redstone

type Pos struct {
	X int
	Y int
	Z int
}

// Env is the read-only view of control blocks around a machine.
type Env interface {
	BlockName(Pos) string
	LeverOn(Pos) bool
}

const (
	BlockLever = "LEVER"
	BlockWire  = "WIRE"
)

var neighborDirs = []Pos{
	{X: 1, Y: 0, Z: 0},
	{X: -1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: -1, Z: 0},
	{X: 0, Y: 0, Z: 1},
	{X: 0, Y: 0, Z: -1},
}

func add(a, b Pos) Pos { return Pos{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z} }

// Powered reports whether the machine at pos receives a signal: an adjacent
// lever that is on, or a wire network touching pos that reaches an on lever
// within maxNodes wire cells.
func Powered(env Env, pos Pos, maxNodes int) bool {
	wireStarts := make([]Pos, 0, 6)
	for _, d := range neighborDirs {
		p := add(pos, d)
		switch env.BlockName(p) {
		case BlockLever:
			if env.LeverOn(p) {
				return true
			}
		case BlockWire:
			wireStarts = append(wireStarts, p)
		}
	}
	if len(wireStarts) == 0 {
		return false
	}
	return wireReachesLever(env, wireStarts, maxNodes)
}

func wireReachesLever(env Env, starts []Pos, maxNodes int) bool {
	if maxNodes <= 0 {
		return false
	}

	visited := map[Pos]bool{}
	q := make([]Pos, 0, len(starts))
	for _, p := range starts {
		if visited[p] {
			continue
		}
		visited[p] = true
		q = append(q, p)
	}

	for len(q) > 0 && len(visited) <= maxNodes {
		p := q[0]
		q = q[1:]

		for _, d := range neighborDirs {
			np := add(p, d)
			switch env.BlockName(np) {
			case BlockLever:
				if env.LeverOn(np) {
					return true
				}
			case BlockWire:
				if visited[np] {
					continue
				}
				visited[np] = true
				q = append(q, np)
				if len(visited) > maxNodes {
					return false
				}
			}
		}
	}
	return false
}
