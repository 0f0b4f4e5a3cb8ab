package structure

import (
	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/world/kernel/model"
	"voxelsim.ai/internal/sim/world/terrain/store"
)

const (
	// vertical wood meta is the Y axis
	metaVertical = uint8(model.AxisY)
	// steps between support frames
	supportPeriod = 4
)

// Carve writes the part of p that falls inside c. Writes go straight to the
// cells and never run block hooks. Given the same rnd draws the result inside
// c does not depend on which other chunks were carved.
func (p Piece) Carve(c *store.Chunk, rnd Rand) {
	switch p.Kind {
	case Hallway:
		p.carveHallway(c, rnd)
	case Room:
		p.carveRoom(c, rnd)
	case Junction:
		p.carveJunction(c)
	case Shaft:
		p.carveShaft(c)
	}
}

func fill(c *store.Chunk, b model.Box, k blocks.Kind) {
	clip, ok := b.Clip(c.Pos.Bounds())
	if !ok {
		return
	}
	for y := clip.Min.Y; y <= clip.Max.Y; y++ {
		for z := clip.Min.Z; z <= clip.Max.Z; z++ {
			for x := clip.Min.X; x <= clip.Max.X; x++ {
				c.Set(model.BlockPos{X: x, Y: y, Z: z}, k, 0)
			}
		}
	}
}

func perpAxis(d model.Direction) uint8 {
	if d.Axis() == model.AxisX {
		return uint8(model.AxisZ)
	}
	return uint8(model.AxisX)
}

func railMeta(d model.Direction) uint8 {
	if d.Axis() == model.AxisX {
		return 0
	}
	return 1
}

func (p Piece) carveHallway(c *store.Chunk, rnd Rand) {
	fill(c, p.Bounds, blocks.Air)

	cw, ccw := p.Facing.Clockwise(), p.Facing.CounterClockwise()
	beam := perpAxis(p.Facing)
	stop := p.End.Offset(p.Facing)
	i := 0
	for pos := p.Origin; pos != stop; pos = pos.Offset(p.Facing) {
		i++
		// every draw happens whether or not its cell is inside c
		if i == 3 && rnd.Intn(4) == 0 {
			c.Set(pos.Up(corridorHeight), blocks.Torch, uint8(p.Facing))
		}
		if i == supportPeriod {
			c.Set(pos.Up(corridorHeight-1), blocks.Wood, beam)
			for _, side := range []model.Direction{cw, ccw} {
				col := pos.Step(side, corridorHalf)
				for j := 0; j < corridorHeight; j++ {
					m := metaVertical
					if j == corridorHeight-1 {
						m = beam
					}
					c.Set(col.Up(j), blocks.Wood, m)
				}
				c.Set(pos.Offset(side).Up(corridorHeight-1), blocks.Wood, beam)
			}
			i = -supportPeriod
		}
		if rnd.Intn(10) != 0 {
			c.Set(pos, blocks.Rail, railMeta(p.Facing))
		}
	}
}

func (p Piece) carveRoom(c *store.Chunk, rnd Rand) {
	fill(c, p.Bounds, blocks.Air)
	floor := p.Bounds
	floor.Max.Y = floor.Min.Y
	fill(c, floor, blocks.Planks)
	if rnd.Intn(2) == 0 {
		c.Set(p.Origin.Step(p.Facing, p.Depth/2).Up(p.Height-1), blocks.Lantern, 0)
	}
}

func (p Piece) carveJunction(c *store.Chunk) {
	fill(c, p.Bounds, blocks.Air)
	cw, ccw := p.Facing.Clockwise(), p.Facing.CounterClockwise()
	far := p.Origin.Step(p.Facing, junctionDepth-1)
	for _, corner := range []model.BlockPos{
		p.Origin.Step(cw, corridorHalf), p.Origin.Step(ccw, corridorHalf),
		far.Step(cw, corridorHalf), far.Step(ccw, corridorHalf),
	} {
		for j := 0; j < corridorHeight; j++ {
			c.Set(corner.Up(j), blocks.Wood, metaVertical)
		}
	}
}

func (p Piece) carveShaft(c *store.Chunk) {
	fill(c, p.Bounds, blocks.Air)
	wall := p.Origin.Step(p.Facing, junctionDepth-1)
	for y := p.End.Y; y < p.Origin.Y+corridorHeight; y++ {
		c.Set(model.BlockPos{X: wall.X, Y: y, Z: wall.Z}, blocks.Ladder, uint8(p.Facing.Opposite()))
	}
}
