// Package gen holds the deterministic hash functions behind terrain
// generation. Every value depends only on the seed and coordinates.
package gen

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9))
}

func Hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9))
}

// SurfaceY returns the height of the top solid cell of column (x, z): base
// plus a gentle per-region bump in [0, amplitude].
func SurfaceY(seed int64, x, z, base, amplitude, regionSize int) int {
	if amplitude <= 0 {
		return base
	}
	if regionSize <= 0 {
		regionSize = 1
	}
	h := Hash2(seed, FloorDiv(x, regionSize), FloorDiv(z, regionSize))
	return base + int(h%uint64(amplitude+1))
}

// InVein reports whether (x, y, z) falls inside a vein seeded on a 3D grid of
// the given cell size. Each cell holds at most one vein centre, present with
// probability probPermille/1000.
func InVein(seed int64, x, y, z, cell, radius int, probPermille uint64) bool {
	if cell <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx, gy, gz := FloorDiv(x, cell), FloorDiv(y, cell), FloorDiv(z, cell)
	r2 := radius * radius
	for dy := -1; dy <= 1; dy++ {
		for dz := -1; dz <= 1; dz++ {
			for dx := -1; dx <= 1; dx++ {
				cx, cy, cz := gx+dx, gy+dy, gz+dz
				h := Hash3(seed, cx, cy, cz)
				if h%1000 >= probPermille {
					continue
				}
				ox := cx*cell + int((h>>10)%uint64(cell))
				oy := cy*cell + int((h>>20)%uint64(cell))
				oz := cz*cell + int((h>>30)%uint64(cell))
				ddx, ddy, ddz := x-ox, y-oy, z-oz
				if ddx*ddx+ddy*ddy+ddz*ddz <= r2 {
					return true
				}
			}
		}
	}
	return false
}

func ClampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}
