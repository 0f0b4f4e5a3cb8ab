package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/entities"
	"voxelsim.ai/internal/sim/world/kernel/model"
)

// KeepMeta leaves the cell metadata untouched (or resets it to 0 when the kind changes).
const KeepMeta = -1

// Mutation is one block write. A zero Mutation with SetKind=false and
// Meta=KeepMeta only fires neighbor and light updates.
type Mutation struct {
	SetKind bool
	Kind    blocks.Kind
	// Meta other than KeepMeta is clamped to [0, 255].
	Meta    int

	SkipNeighbors bool
	SkipLighting  bool
}

// Apply runs one block write in a fixed order: destroy hook, kind write, meta
// write, place hook, neighbor notifications, lighting. Writes to unloaded
// cells are dropped.
func (w *World) Apply(pos model.BlockPos, m Mutation) {
	c, ok := w.chunks.ChunkAt(pos)
	if !ok {
		return
	}
	lx, ly, lz := c.Local(pos)
	oldKind := c.Kind(lx, ly, lz)
	meta := m.Meta

	if m.SetKind {
		w.reg.Behavior(oldKind).OnDestroy(w, pos, c.Meta(lx, ly, lz))
		c.SetKind(lx, ly, lz, m.Kind)
		if meta == KeepMeta {
			meta = 0
		}
	}
	if meta != KeepMeta {
		c.SetMeta(lx, ly, lz, clampMeta(meta))
	}
	if m.SetKind {
		w.reg.Behavior(m.Kind).OnPlace(w, pos, c.Meta(lx, ly, lz))
	}

	if !m.SkipNeighbors {
		for _, d := range model.AllDirections {
			n := pos.Offset(d)
			k, nm := w.chunks.Block(n)
			w.reg.Behavior(k).OnNeighborChange(w, n, nm, d.Opposite())
		}
		w.dirtyAcrossFaces(pos, lx, ly, lz)
	}

	if m.SetKind && !m.SkipLighting {
		w.lighter.Update(w.reg.Behavior(m.Kind).EmittedLight(), pos)
	}

	if m.SetKind {
		w.audit("SET_BLOCK", pos, uint16(oldKind), uint16(m.Kind), int(c.Meta(lx, ly, lz)), "")
	}
}

// dirtyAcrossFaces marks the chunk across each boundary face pos touches.
func (w *World) dirtyAcrossFaces(pos model.BlockPos, lx, ly, lz int) {
	const last = model.ChunkEdge - 1
	mark := func(local, edge int, d model.Direction) {
		if local != edge {
			return
		}
		if nc, ok := w.chunks.ChunkAt(pos.Offset(d)); ok {
			nc.SetDirty()
		}
	}
	mark(lx, 0, model.West)
	mark(lx, last, model.East)
	mark(ly, 0, model.Down)
	mark(ly, last, model.Up)
	mark(lz, 0, model.North)
	mark(lz, last, model.South)
}

func clampMeta(m int) uint8 {
	switch {
	case m < 0:
		return 0
	case m > math.MaxUint8:
		return math.MaxUint8
	}
	return uint8(m)
}

// SetBlock replaces the kind at pos. meta may be KeepMeta.
func (w *World) SetBlock(pos model.BlockPos, k blocks.Kind, meta int) {
	w.Apply(pos, Mutation{SetKind: true, Kind: k, Meta: meta})
}

// SetMeta rewrites only the metadata at pos and notifies the neighbors.
func (w *World) SetMeta(pos model.BlockPos, meta int) {
	w.Apply(pos, Mutation{Meta: meta})
}

// BreakBlock spawns the block's drops as item entities and clears the cell.
// Each drop survives with probability dropChance; tile-entity blocks always
// drop everything when dropChance is 1.
func (w *World) BreakBlock(pos model.BlockPos, tool *model.Tool, dropChance float64) {
	if !w.Loaded(pos) {
		return
	}
	k, meta := w.chunks.Block(pos)
	b := w.reg.Behavior(k)
	_, backed := b.(blocks.TileEntityBacked)

	const jitter = 0.5
	base := blockVec(pos)
	for _, stack := range b.Drops(w, pos, meta, tool) {
		if dropChance != 1 || !backed {
			if w.rnd.Float64() >= dropChance {
				continue
			}
		}
		off := mgl64.Vec3{
			(w.rnd.Float64()*2 - 1) * jitter,
			(w.rnd.Float64()*2 - 1) * jitter,
			(w.rnd.Float64()*2 - 1) * jitter,
		}
		w.ents.SpawnItem(stack, base.Add(off), entities.RandomRotation(w.rnd.Float64()), mgl64.Vec3{})
	}
	w.SetBlock(pos, blocks.Air, KeepMeta)
}

// MakeExplosion breaks every cell within the source's blast radius around
// point. Explosive cells are cleared and detonate in turn; entities in range
// are damaged (living) or removed, except items spawned this tick.
func (w *World) MakeExplosion(src blocks.Explosive, point mgl64.Vec3) {
	size := src.ExplosionSize()
	if size <= 0 {
		return
	}
	origin := model.BlockPos{
		X: int(math.Floor(point.X())),
		Y: int(math.Floor(point.Y())),
		Z: int(math.Floor(point.Z())),
	}
	radius := int(math.Ceil(size))
	w.logger.Printf("explosion size=%.1f at %v", size, origin)
	w.audit("EXPLOSION", origin, 0, 0, radius, fmt.Sprintf("size=%.1f", size))

	for x := -radius; x <= radius; x++ {
		for y := -radius; y <= radius; y++ {
			for z := -radius; z <= radius; z++ {
				if float64(x*x+y*y+z*z) > size*size {
					continue
				}
				pos := origin.Add(model.BlockPos{X: x, Y: y, Z: z})
				if !w.Loaded(pos) {
					continue
				}
				k, _ := w.chunks.Block(pos)
				if k == blocks.Air {
					continue
				}
				if ex, ok := w.reg.Behavior(k).(blocks.Explosive); ok {
					w.SetBlock(pos, blocks.Air, KeepMeta)
					w.MakeExplosion(ex, blockVec(pos))
					continue
				}
				w.BreakBlock(pos, nil, w.cfg.Explosion.DropChance)
			}
		}
	}

	damage := int(size * w.cfg.Explosion.DamagePerSize)
	for _, e := range w.ents.Overlap(point, size) {
		switch {
		case e.Kind == entities.Living:
			_ = w.ents.Damage(e.ID, damage)
		case e.Fresh():
		default:
			_ = w.ents.Kill(e.ID)
		}
	}
}

func blockVec(p model.BlockPos) mgl64.Vec3 {
	return mgl64.Vec3{float64(p.X), float64(p.Y), float64(p.Z)}
}
