package world

import (
	"errors"
	"fmt"

	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/world/kernel/model"
)

var ErrTileEntityExists = errors.New("tile entity already present")

// AddTileEntity attaches te to its chunk. Attaching a second tile entity at the
// same position is a caller bug and is reported, never overwritten. Unloaded
// positions are ignored.
func (w *World) AddTileEntity(te *blocks.TileEntity) error {
	c, ok := w.chunks.ChunkAt(te.Pos)
	if !ok {
		return nil
	}
	if _, dup := c.TileEntities[te.Pos]; dup {
		w.logger.Printf("duplicate tile entity at %v", te.Pos)
		return fmt.Errorf("add tile entity at %v: %w", te.Pos, ErrTileEntityExists)
	}
	c.TileEntities[te.Pos] = te
	c.SetDirty()
	return nil
}

// RemoveTileEntity detaches and returns the tile entity at pos. The caller
// owns cleanup of the returned value.
func (w *World) RemoveTileEntity(pos model.BlockPos) (*blocks.TileEntity, bool) {
	c, ok := w.chunks.ChunkAt(pos)
	if !ok {
		return nil, false
	}
	te, ok := c.TileEntities[pos]
	if !ok {
		return nil, false
	}
	delete(c.TileEntities, pos)
	c.SetDirty()
	return te, true
}

func (w *World) TileEntity(pos model.BlockPos) (*blocks.TileEntity, bool) {
	c, ok := w.chunks.ChunkAt(pos)
	if !ok {
		return nil, false
	}
	te, ok := c.TileEntities[pos]
	return te, ok
}
