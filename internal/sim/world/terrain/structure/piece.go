package structure

import (
	"fmt"

	"voxelsim.ai/internal/sim/world/kernel/model"
)

type PieceKind uint8

const (
	Hallway PieceKind = iota + 1
	Room
	Junction
	Shaft
)

func (k PieceKind) String() string {
	switch k {
	case Hallway:
		return "hallway"
	case Room:
		return "room"
	case Junction:
		return "junction"
	case Shaft:
		return "shaft"
	}
	return fmt.Sprintf("piece(%d)", uint8(k))
}

const (
	hallwayUnit      = 8
	hallwayMinUnits  = 3
	hallwayMaxUnits  = 4
	corridorHalf     = 2
	corridorHeight   = 4
	junctionDepth    = 5
	shaftDrop        = 8
	roomMinHalfWidth = 2
	roomMinDepth     = 5
	roomMinHeight    = 4
)

// Piece is one placed element of a structure. Pieces are immutable once grown.
type Piece struct {
	Kind   PieceKind
	Origin model.BlockPos
	Facing model.Direction

	// End is the last centerline cell of a hallway, or the floor cell a shaft
	// drops to.
	End model.BlockPos

	// Room dimensions; zero for other kinds.
	HalfWidth int
	Depth     int
	Height    int

	Bounds model.Box
}

func hallwayPiece(origin model.BlockPos, facing model.Direction, units int) Piece {
	p := Piece{
		Kind:   Hallway,
		Origin: origin,
		Facing: facing,
		End:    origin.Step(facing, units*hallwayUnit),
	}
	p.Bounds = model.BoxOf(
		origin.Step(facing.Clockwise(), corridorHalf),
		p.End.Step(facing.CounterClockwise(), corridorHalf).Up(corridorHeight-1),
	)
	return p
}

func roomPiece(origin model.BlockPos, facing model.Direction, halfWidth, depth, height int) Piece {
	p := Piece{
		Kind:      Room,
		Origin:    origin,
		Facing:    facing,
		HalfWidth: halfWidth,
		Depth:     depth,
		Height:    height,
	}
	p.Bounds = model.BoxOf(
		origin.Step(facing.Clockwise(), halfWidth),
		origin.Step(facing, depth-1).Step(facing.CounterClockwise(), halfWidth).Up(height-1),
	)
	return p
}

func junctionPiece(origin model.BlockPos, facing model.Direction) Piece {
	p := Piece{Kind: Junction, Origin: origin, Facing: facing}
	p.Bounds = model.BoxOf(
		origin.Step(facing.Clockwise(), corridorHalf),
		origin.Step(facing, junctionDepth-1).Step(facing.CounterClockwise(), corridorHalf).Up(corridorHeight-1),
	)
	return p
}

func shaftPiece(origin model.BlockPos, facing model.Direction) Piece {
	p := Piece{Kind: Shaft, Origin: origin, Facing: facing, End: origin.Up(-shaftDrop)}
	p.Bounds = model.BoxOf(
		p.End.Step(facing.Clockwise(), corridorHalf),
		origin.Step(facing, junctionDepth-1).Step(facing.CounterClockwise(), corridorHalf).Up(corridorHeight-1),
	)
	return p
}

// center is the middle floor cell of a junction or shaft footprint at origin level.
func (p Piece) center() model.BlockPos {
	return p.Origin.Step(p.Facing, junctionDepth/2)
}

func (p Piece) Intersects(o Piece) bool { return p.Bounds.Intersects(o.Bounds) }

func intersectsAny(c Piece, pieces []Piece) bool {
	for i := range pieces {
		if c.Intersects(pieces[i]) {
			return true
		}
	}
	return false
}
