package store

import (
	"crypto/sha256"
	"encoding/binary"

	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/world/kernel/model"
)

const (
	Edge   = model.ChunkEdge
	Volume = Edge * Edge * Edge
)

// ScheduledTick is a pending per-block timer. Remaining counts down once per step.
type ScheduledTick struct {
	Pos       model.BlockPos
	Remaining int
}

type Chunk struct {
	Pos model.ChunkPos

	kinds [Volume]blocks.Kind
	meta  [Volume]uint8
	light [Volume]uint8

	TileEntities map[model.BlockPos]*blocks.TileEntity
	Ticks        []ScheduledTick

	generated bool
	populated bool
	dirty     bool
}

func NewChunk(pos model.ChunkPos) *Chunk {
	return &Chunk{
		Pos:          pos,
		TileEntities: map[model.BlockPos]*blocks.TileEntity{},
	}
}

func index(x, y, z int) int {
	return x + z*Edge + y*Edge*Edge
}

func inRange(x, y, z int) bool {
	return x >= 0 && x < Edge && y >= 0 && y < Edge && z >= 0 && z < Edge
}

func (c *Chunk) Kind(x, y, z int) blocks.Kind { return c.kinds[index(x, y, z)] }
func (c *Chunk) Meta(x, y, z int) uint8       { return c.meta[index(x, y, z)] }
func (c *Chunk) Light(x, y, z int) uint8      { return c.light[index(x, y, z)] }

func (c *Chunk) SetKind(x, y, z int, k blocks.Kind) {
	c.kinds[index(x, y, z)] = k
	c.dirty = true
}

func (c *Chunk) SetMeta(x, y, z int, m uint8) {
	c.meta[index(x, y, z)] = m
	c.dirty = true
}

func (c *Chunk) SetLight(x, y, z int, l uint8) {
	c.light[index(x, y, z)] = l
	c.dirty = true
}

// Contains reports whether an absolute position falls inside the chunk.
func (c *Chunk) Contains(p model.BlockPos) bool { return p.Chunk() == c.Pos }

// Local converts an absolute position to chunk-local coordinates. The caller
// guarantees Contains(p).
func (c *Chunk) Local(p model.BlockPos) (int, int, int) {
	o := c.Pos.Origin()
	return p.X - o.X, p.Y - o.Y, p.Z - o.Z
}

// Set writes kind and meta at an absolute position without running hooks.
// Positions outside the chunk are ignored.
func (c *Chunk) Set(p model.BlockPos, k blocks.Kind, meta uint8) bool {
	x, y, z := c.Local(p)
	if !inRange(x, y, z) {
		return false
	}
	i := index(x, y, z)
	c.kinds[i] = k
	c.meta[i] = meta
	c.dirty = true
	return true
}

// At reads an absolute position; positions outside the chunk read as air.
func (c *Chunk) At(p model.BlockPos) blocks.Kind {
	x, y, z := c.Local(p)
	if !inRange(x, y, z) {
		return blocks.Air
	}
	return c.kinds[index(x, y, z)]
}

func (c *Chunk) Generated() bool { return c.generated }
func (c *Chunk) Populated() bool { return c.populated }
func (c *Chunk) Dirty() bool     { return c.dirty }

func (c *Chunk) MarkGenerated() { c.generated = true }
func (c *Chunk) MarkPopulated() { c.populated = true }
func (c *Chunk) SetDirty()      { c.dirty = true }
func (c *Chunk) ClearDirty()    { c.dirty = false }

// AddTick queues a scheduled tick at pos after delay steps.
func (c *Chunk) AddTick(pos model.BlockPos, delay int) {
	if delay < 0 {
		delay = 0
	}
	c.Ticks = append(c.Ticks, ScheduledTick{Pos: pos, Remaining: delay})
}

// DueTicks counts every pending tick down by one and removes and returns those
// that reached zero, in insertion order.
func (c *Chunk) DueTicks() []ScheduledTick {
	if len(c.Ticks) == 0 {
		return nil
	}
	var due []ScheduledTick
	keep := c.Ticks[:0]
	for _, t := range c.Ticks {
		t.Remaining--
		if t.Remaining <= 0 {
			due = append(due, t)
			continue
		}
		keep = append(keep, t)
	}
	c.Ticks = keep
	return due
}

// ForEachEmitter calls fn for every cell whose kind emits light.
func (c *Chunk) ForEachEmitter(reg *blocks.Registry, fn func(p model.BlockPos, level uint8)) {
	o := c.Pos.Origin()
	for i, k := range c.kinds {
		if k == blocks.Air {
			continue
		}
		l := reg.Behavior(k).EmittedLight()
		if l == 0 {
			continue
		}
		x := i % Edge
		z := (i / Edge) % Edge
		y := i / (Edge * Edge)
		fn(model.BlockPos{X: o.X + x, Y: o.Y + y, Z: o.Z + z}, l)
	}
}

// Digest hashes kinds and meta; light and flags are excluded.
func (c *Chunk) Digest() [32]byte {
	h := sha256.New()
	var tmp [3]byte
	for i := range c.kinds {
		binary.LittleEndian.PutUint16(tmp[:2], uint16(c.kinds[i]))
		tmp[2] = c.meta[i]
		h.Write(tmp[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
