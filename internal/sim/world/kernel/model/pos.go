package model

import (
	"fmt"

	"voxelsim.ai/internal/sim/world/logic/mathx"
)

// ChunkEdge is the number of cells along each axis of a chunk.
const ChunkEdge = 16

// BlockPos is an absolute block coordinate.
type BlockPos struct {
	X, Y, Z int
}

func (p BlockPos) Add(o BlockPos) BlockPos { return BlockPos{p.X + o.X, p.Y + o.Y, p.Z + o.Z} }

func (p BlockPos) Offset(d Direction) BlockPos { return p.Add(d.Vec()) }

// Step moves n cells along d.
func (p BlockPos) Step(d Direction, n int) BlockPos {
	v := d.Vec()
	return BlockPos{p.X + v.X*n, p.Y + v.Y*n, p.Z + v.Z*n}
}

func (p BlockPos) Up(n int) BlockPos { return BlockPos{p.X, p.Y + n, p.Z} }

func (p BlockPos) Chunk() ChunkPos {
	return ChunkPos{
		X: mathx.FloorDiv(p.X, ChunkEdge),
		Y: mathx.FloorDiv(p.Y, ChunkEdge),
		Z: mathx.FloorDiv(p.Z, ChunkEdge),
	}
}

// Local returns the in-chunk coordinate, each component in [0, ChunkEdge).
func (p BlockPos) Local() (x, y, z int) {
	return mathx.Mod(p.X, ChunkEdge), mathx.Mod(p.Y, ChunkEdge), mathx.Mod(p.Z, ChunkEdge)
}

func (p BlockPos) DistSq(o BlockPos) int {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

func (p BlockPos) String() string { return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z) }

func (p BlockPos) ToArray() [3]int { return [3]int{p.X, p.Y, p.Z} }

// ChunkPos addresses a chunk; block b lives in chunk floor(b / ChunkEdge).
type ChunkPos struct {
	X, Y, Z int
}

// Origin is the minimum-corner block of the chunk.
func (c ChunkPos) Origin() BlockPos {
	return BlockPos{c.X * ChunkEdge, c.Y * ChunkEdge, c.Z * ChunkEdge}
}

func (c ChunkPos) Bounds() Box {
	o := c.Origin()
	return Box{Min: o, Max: BlockPos{o.X + ChunkEdge - 1, o.Y + ChunkEdge - 1, o.Z + ChunkEdge - 1}}
}

func (c ChunkPos) Add(dx, dy, dz int) ChunkPos { return ChunkPos{c.X + dx, c.Y + dy, c.Z + dz} }

// Neighbors returns the 26 chunks sharing a face, edge or corner with c.
func (c ChunkPos) Neighbors() []ChunkPos {
	out := make([]ChunkPos, 0, 26)
	for dy := -1; dy <= 1; dy++ {
		for dz := -1; dz <= 1; dz++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				out = append(out, c.Add(dx, dy, dz))
			}
		}
	}
	return out
}

func (c ChunkPos) String() string { return fmt.Sprintf("[%d,%d,%d]", c.X, c.Y, c.Z) }

// Less orders chunk positions by Y, then Z, then X.
func (c ChunkPos) Less(o ChunkPos) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	if c.Z != o.Z {
		return c.Z < o.Z
	}
	return c.X < o.X
}
