package structure

import (
	"voxelsim.ai/internal/sim/world/kernel/model"
	"voxelsim.ai/internal/sim/world/logic/mathx"
)

// Rand is the uniform integer source growth and carving draw from.
type Rand interface {
	Intn(n int) int
}

type GrowConfig struct {
	// SizeCap stops branching once a path is this many pieces from the start.
	SizeCap int
	// MaxRadius rejects pieces reaching further than this from the start,
	// measured on x and z. Zero disables the check.
	MaxRadius int
	// MinY and MaxY bound every piece vertically. Both zero disables the check.
	MinY, MaxY int
}

func DefaultGrowConfig() GrowConfig {
	return GrowConfig{SizeCap: 8, MaxRadius: 96, MinY: -64, MaxY: 48}
}

type growReq struct {
	kind   PieceKind
	origin model.BlockPos
	facing model.Direction
	depth  int
	start  bool
}

type grower struct {
	cfg    GrowConfig
	rnd    Rand
	start  model.BlockPos
	pieces []Piece
	stack  []growReq
}

// Grow builds the piece list of one structure whose start room sits at start.
// The result is owned by the caller and is a pure function of the draws from rnd.
func Grow(start model.BlockPos, facing model.Direction, rnd Rand, cfg GrowConfig) []Piece {
	g := &grower{cfg: cfg, rnd: rnd, start: start}
	g.push(growReq{kind: Room, origin: start, facing: facing, start: true})
	for len(g.stack) > 0 {
		r := g.stack[len(g.stack)-1]
		g.stack = g.stack[:len(g.stack)-1]
		g.grow(r)
	}
	return g.pieces
}

func (g *grower) push(reqs ...growReq) {
	// reversed so the first request is expanded first
	for i := len(reqs) - 1; i >= 0; i-- {
		g.stack = append(g.stack, reqs[i])
	}
}

func (g *grower) fits(p Piece) bool {
	if g.cfg.MaxRadius > 0 {
		b := p.Bounds
		r := g.cfg.MaxRadius
		if mathx.AbsInt(b.Min.X-g.start.X) > r || mathx.AbsInt(b.Max.X-g.start.X) > r ||
			mathx.AbsInt(b.Min.Z-g.start.Z) > r || mathx.AbsInt(b.Max.Z-g.start.Z) > r {
			return false
		}
	}
	if g.cfg.MinY != 0 || g.cfg.MaxY != 0 {
		if p.Bounds.Min.Y < g.cfg.MinY || p.Bounds.Max.Y > g.cfg.MaxY {
			return false
		}
	}
	return !intersectsAny(p, g.pieces)
}

// commit appends p when it fits and reports the depth its children start at,
// or false when the branch ends here.
func (g *grower) commit(p Piece, depth int) (int, bool) {
	if !g.fits(p) {
		return 0, false
	}
	g.pieces = append(g.pieces, p)
	depth++
	if depth > g.cfg.SizeCap {
		return 0, false
	}
	return depth, true
}

func (g *grower) grow(r growReq) {
	switch r.kind {
	case Hallway:
		g.growHallway(r)
	case Room:
		g.growRoom(r)
	case Junction:
		g.growJunction(r)
	case Shaft:
		g.growShaft(r)
	}
}

func (g *grower) growHallway(r growReq) {
	units := hallwayMinUnits + g.rnd.Intn(hallwayMaxUnits-hallwayMinUnits+1)
	p := hallwayPiece(r.origin, r.facing, units)
	depth, ok := g.commit(p, r.depth)
	if !ok {
		return
	}
	ahead := p.End.Offset(p.Facing)
	if depth < 2 {
		g.push(growReq{kind: Hallway, origin: ahead, facing: p.Facing, depth: depth})
		return
	}
	switch g.rnd.Intn(7) {
	case 0, 1:
		g.push(g.turn(p, p.Facing.Clockwise(), depth))
	case 2, 3:
		g.push(g.turn(p, p.Facing.CounterClockwise(), depth))
	case 4:
		g.push(growReq{kind: Hallway, origin: ahead, facing: p.Facing, depth: depth})
	default:
		g.push(growReq{kind: g.roomKind(), origin: ahead, facing: p.Facing, depth: depth})
	}
}

// turn starts a side corridor just past the end of p, shifted back against the
// new facing so it clears p's bounds.
func (g *grower) turn(p Piece, facing model.Direction, depth int) growReq {
	shift := (1 + g.rnd.Intn(2)) * 2
	origin := p.End.Step(p.Facing, 3).Step(facing.Opposite(), shift)
	return growReq{kind: Hallway, origin: origin, facing: facing, depth: depth}
}

func (g *grower) roomKind() PieceKind {
	switch n := g.rnd.Intn(6); {
	case n < 2:
		return Room
	case n == 2:
		return Junction
	default:
		return Shaft
	}
}

func (g *grower) growRoom(r growReq) {
	hw := roomMinHalfWidth + g.rnd.Intn(3)
	d := roomMinDepth + g.rnd.Intn(5)
	h := roomMinHeight + g.rnd.Intn(3)
	p := roomPiece(r.origin, r.facing, hw, d, h)
	depth, ok := g.commit(p, r.depth)
	if !ok {
		return
	}
	mid := p.Origin.Step(p.Facing, d/2)
	exits := []growReq{
		{origin: p.Origin.Step(p.Facing, d), facing: p.Facing},
		{origin: mid.Step(p.Facing.Clockwise(), hw+1), facing: p.Facing.Clockwise()},
		{origin: mid.Step(p.Facing.CounterClockwise(), hw+1), facing: p.Facing.CounterClockwise()},
	}
	if r.start {
		exits = append(exits, growReq{origin: p.Origin.Offset(p.Facing.Opposite()), facing: p.Facing.Opposite()})
		// corridors leaving the start room count from zero
		depth = 0
	}
	reqs := exits[:0]
	for _, e := range exits {
		// the start room opens every wall, later rooms one in three stays shut
		if !r.start && g.rnd.Intn(3) == 0 {
			continue
		}
		e.kind = Hallway
		e.depth = depth
		reqs = append(reqs, e)
	}
	g.push(reqs...)
}

func (g *grower) growJunction(r growReq) {
	p := junctionPiece(r.origin, r.facing)
	depth, ok := g.commit(p, r.depth)
	if !ok {
		return
	}
	c := p.center()
	g.push(
		growReq{kind: Hallway, origin: p.Origin.Step(p.Facing, junctionDepth), facing: p.Facing, depth: depth},
		growReq{kind: Hallway, origin: c.Step(p.Facing.Clockwise(), corridorHalf+1), facing: p.Facing.Clockwise(), depth: depth},
		growReq{kind: Hallway, origin: c.Step(p.Facing.CounterClockwise(), corridorHalf+1), facing: p.Facing.CounterClockwise(), depth: depth},
	)
}

func (g *grower) growShaft(r growReq) {
	p := shaftPiece(r.origin, r.facing)
	depth, ok := g.commit(p, r.depth)
	if !ok {
		return
	}
	g.push(growReq{kind: Hallway, origin: p.End.Step(p.Facing, junctionDepth), facing: p.Facing, depth: depth})
}
