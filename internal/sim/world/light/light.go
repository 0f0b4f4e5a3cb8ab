package light

import (
	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/world/kernel/model"
)

// Grid is the cell storage the lighter reads and writes. SetLight reports
// false for cells that are not loaded.
type Grid interface {
	Block(p model.BlockPos) (blocks.Kind, uint8)
	Light(p model.BlockPos) uint8
	SetLight(p model.BlockPos, l uint8) bool
}

// Lighter is a flood-fill block light propagator. Light falls off by one per
// step and does not enter solid cells.
type Lighter struct {
	grid Grid
	reg  *blocks.Registry
}

func New(grid Grid, reg *blocks.Registry) *Lighter {
	return &Lighter{grid: grid, reg: reg}
}

type node struct {
	pos   model.BlockPos
	level uint8
}

func (l *Lighter) emitted(p model.BlockPos) uint8 {
	k, _ := l.grid.Block(p)
	if k == blocks.Air {
		return 0
	}
	return l.reg.Behavior(k).EmittedLight()
}

func (l *Lighter) opaque(p model.BlockPos) bool {
	k, _ := l.grid.Block(p)
	return k.Solid() && l.reg.Behavior(k).EmittedLight() == 0
}

// Update recomputes light around pos after its cell changed to a kind emitting
// emitted.
func (l *Lighter) Update(emitted uint8, pos model.BlockPos) {
	if emitted > blocks.MaxLight {
		emitted = blocks.MaxLight
	}
	var sources []node
	if old := l.grid.Light(pos); old > 0 {
		sources = l.remove(pos, old)
	}

	level := emitted
	if !l.opaque(pos) {
		for _, d := range model.AllDirections {
			if nl := l.grid.Light(pos.Offset(d)); nl > 0 && nl-1 > level {
				level = nl - 1
			}
		}
	}
	if level > 0 && l.grid.SetLight(pos, level) {
		sources = append(sources, node{pos, level})
	}
	l.spread(sources)
}

// remove clears light that could have come from pos and returns the cells
// still lit from elsewhere, to be spread again.
func (l *Lighter) remove(pos model.BlockPos, old uint8) []node {
	var relight, emitters []node
	l.grid.SetLight(pos, 0)
	queue := []node{{pos, old}}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, d := range model.AllDirections {
			np := n.pos.Offset(d)
			nl := l.grid.Light(np)
			switch {
			case nl == 0:
			case nl < n.level:
				if l.grid.SetLight(np, 0) {
					queue = append(queue, node{np, nl})
					if e := l.emitted(np); e > 0 {
						emitters = append(emitters, node{np, e})
					}
				}
			default:
				relight = append(relight, node{np, nl})
			}
		}
	}
	for _, e := range emitters {
		if e.level > l.grid.Light(e.pos) && l.grid.SetLight(e.pos, e.level) {
			relight = append(relight, e)
		}
	}
	return relight
}

func (l *Lighter) spread(queue []node) {
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.level <= 1 || l.grid.Light(n.pos) != n.level {
			continue
		}
		next := n.level - 1
		for _, d := range model.AllDirections {
			np := n.pos.Offset(d)
			if l.opaque(np) || l.grid.Light(np) >= next {
				continue
			}
			if l.grid.SetLight(np, next) {
				queue = append(queue, node{np, next})
			}
		}
	}
}
