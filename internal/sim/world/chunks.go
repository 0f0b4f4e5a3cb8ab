package world

import (
	"fmt"

	"voxelsim.ai/internal/sim/world/kernel/model"
	"voxelsim.ai/internal/sim/world/terrain/store"
	"voxelsim.ai/internal/sim/world/terrain/structure"
)

// LoadChunk makes pos resident. Newly generated chunks are populated as soon
// as their whole neighborhood is loaded.
func (w *World) LoadChunk(pos model.ChunkPos) (*store.Chunk, error) {
	if c, ok := w.chunks.Get(pos); ok {
		return c, nil
	}
	c, err := w.chunks.Load(pos)
	if err != nil {
		return nil, err
	}
	w.chunkEvent("LOAD", pos, 0)
	return c, nil
}

// UnloadChunk persists and evicts pos. Unloading a chunk that is not loaded
// returns store.ErrNotLoaded.
func (w *World) UnloadChunk(pos model.ChunkPos) error {
	if err := w.chunks.Unload(pos); err != nil {
		return err
	}
	w.chunkEvent("UNLOAD", pos, 0)
	return nil
}

// SaveAll writes every loaded chunk through the provider.
func (w *World) SaveAll() error {
	if err := w.chunks.Save(); err != nil {
		return fmt.Errorf("save world %s: %w", w.cfg.Name, err)
	}
	return nil
}

// RebakeAll marks every loaded chunk for rebuild.
func (w *World) RebakeAll() { w.chunks.DirtyAll() }

func (w *World) onUnload(c *store.Chunk) {
	if len(c.Ticks) > 0 {
		w.logger.Printf("unloading %v with %d pending ticks", c.Pos, len(c.Ticks))
	}
}

// populator carves structures into a chunk and seeds light from its emitters.
type populator struct{ w *World }

func (p populator) Populate(c *store.Chunk) {
	w := p.w
	n, err := w.placer.Carve(c)
	if err != nil {
		w.logger.Printf("populate %v: %v", c.Pos, err)
	}
	w.lightChunk(c)
	w.chunkEvent("POPULATE", c.Pos, n)
}

func (w *World) lightChunk(c *store.Chunk) {
	c.ForEachEmitter(w.reg, func(p model.BlockPos, level uint8) {
		w.lighter.Update(level, p)
	})
}

func (w *World) onStructureGrown(s *structure.Structure) {
	w.logger.Printf("structure %s grown in cell (%d,%d): %d pieces", s.ID, s.CellX, s.CellZ, len(s.Pieces))
	if w.index == nil {
		return
	}
	w.index.RecordStructure(StructureEvent{
		Tick:   w.tick,
		ID:     s.ID.String(),
		Cell:   [2]int{s.CellX, s.CellZ},
		Start:  s.Start.ToArray(),
		Facing: s.Facing.String(),
		Pieces: len(s.Pieces),
		Min:    s.Bounds.Min.ToArray(),
		Max:    s.Bounds.Max.ToArray(),
	})
}
