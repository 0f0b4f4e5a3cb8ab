package store

import (
	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/world/kernel/model"
)

// ChunkAt returns the loaded chunk holding p.
func (s *ChunkStore) ChunkAt(p model.BlockPos) (*Chunk, bool) {
	return s.Get(p.Chunk())
}

// Block reads kind and meta; unloaded cells read as air.
func (s *ChunkStore) Block(p model.BlockPos) (blocks.Kind, uint8) {
	c, ok := s.ChunkAt(p)
	if !ok {
		return blocks.Air, 0
	}
	x, y, z := p.Local()
	i := index(x, y, z)
	return c.kinds[i], c.meta[i]
}

func (s *ChunkStore) Light(p model.BlockPos) uint8 {
	c, ok := s.ChunkAt(p)
	if !ok {
		return 0
	}
	x, y, z := p.Local()
	return c.Light(x, y, z)
}

// SetLight writes a light level; it reports false for unloaded cells.
func (s *ChunkStore) SetLight(p model.BlockPos, l uint8) bool {
	c, ok := s.ChunkAt(p)
	if !ok {
		return false
	}
	x, y, z := p.Local()
	c.SetLight(x, y, z, l)
	return true
}

// RawSet writes kind and meta without hooks; unloaded cells are dropped.
func (s *ChunkStore) RawSet(p model.BlockPos, k blocks.Kind, meta uint8) bool {
	c, ok := s.ChunkAt(p)
	if !ok {
		return false
	}
	return c.Set(p, k, meta)
}

// DirtyAll marks every loaded chunk for rebuild.
func (s *ChunkStore) DirtyAll() {
	for _, c := range s.chunks {
		c.SetDirty()
	}
}
