package store

import (
	"errors"
	"fmt"
	"sort"

	"voxelsim.ai/internal/sim/world/kernel/model"
)

var ErrNotLoaded = errors.New("chunk not loaded")

// Provider reads and writes persisted chunks. LoadChunk reports ok=false when
// nothing was persisted for pos.
type Provider interface {
	LoadChunk(pos model.ChunkPos) (*Chunk, bool, error)
	StoreChunk(c *Chunk) error
}

// Generator fills a fresh chunk with base terrain. It only writes inside c.
type Generator interface {
	Generate(c *Chunk)
}

// Populator runs the second generation phase once every neighbor of c is loaded.
type Populator interface {
	Populate(c *Chunk)
}

type Options struct {
	Generator Generator
	Populator Populator
	Provider  Provider

	// OnUnload is called with a chunk right before it leaves the store.
	OnUnload func(c *Chunk)
}

// ChunkStore owns the loaded chunks. A chunk is present iff it is loaded.
type ChunkStore struct {
	chunks map[model.ChunkPos]*Chunk
	opts   Options
}

func New(opts Options) *ChunkStore {
	return &ChunkStore{
		chunks: map[model.ChunkPos]*Chunk{},
		opts:   opts,
	}
}

func (s *ChunkStore) Get(pos model.ChunkPos) (*Chunk, bool) {
	c, ok := s.chunks[pos]
	return c, ok
}

func (s *ChunkStore) Loaded(pos model.ChunkPos) bool {
	_, ok := s.chunks[pos]
	return ok
}

func (s *ChunkStore) Len() int { return len(s.chunks) }

// Keys returns loaded positions in a stable order.
func (s *ChunkStore) Keys() []model.ChunkPos {
	keys := make([]model.ChunkPos, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Load makes pos resident, reading it from the provider or generating it.
// Loading an already loaded chunk returns it unchanged. A stored chunk keeps
// its persisted populated flag; one saved before population goes through the
// neighborhood check again like a freshly generated chunk.
func (s *ChunkStore) Load(pos model.ChunkPos) (*Chunk, error) {
	if c, ok := s.chunks[pos]; ok {
		return c, nil
	}

	var c *Chunk
	if s.opts.Provider != nil {
		stored, ok, err := s.opts.Provider.LoadChunk(pos)
		if err != nil {
			return nil, fmt.Errorf("load chunk %v: %w", pos, err)
		}
		if ok {
			c = stored
			c.Pos = pos
			c.MarkGenerated()
		}
	}
	if c == nil {
		c = NewChunk(pos)
		if s.opts.Generator != nil {
			s.opts.Generator.Generate(c)
		}
		c.MarkGenerated()
	}
	c.SetDirty()
	s.chunks[pos] = c

	for _, n := range pos.Neighbors() {
		if nc, ok := s.chunks[n]; ok && !nc.Populated() {
			s.tryPopulate(nc)
		}
	}
	s.tryPopulate(c)
	return c, nil
}

// Unload persists and removes pos. On a persistence error the chunk stays loaded.
func (s *ChunkStore) Unload(pos model.ChunkPos) error {
	c, ok := s.chunks[pos]
	if !ok {
		return fmt.Errorf("unload %v: %w", pos, ErrNotLoaded)
	}
	if s.opts.Provider != nil {
		if err := s.opts.Provider.StoreChunk(c); err != nil {
			return fmt.Errorf("unload %v: %w", pos, err)
		}
	}
	if s.opts.OnUnload != nil {
		s.opts.OnUnload(c)
	}
	for _, te := range c.TileEntities {
		te.Release()
	}
	delete(s.chunks, pos)
	return nil
}

// Save writes every loaded chunk through the provider.
func (s *ChunkStore) Save() error {
	if s.opts.Provider == nil {
		return nil
	}
	for _, k := range s.Keys() {
		if err := s.opts.Provider.StoreChunk(s.chunks[k]); err != nil {
			return fmt.Errorf("save chunk %v: %w", k, err)
		}
	}
	return nil
}

// AllAdjacentLoaded reports whether all 26 neighbors of pos are resident.
func (s *ChunkStore) AllAdjacentLoaded(pos model.ChunkPos) bool {
	for _, n := range pos.Neighbors() {
		if _, ok := s.chunks[n]; !ok {
			return false
		}
	}
	return true
}

func (s *ChunkStore) tryPopulate(c *Chunk) {
	if c.Populated() || !s.AllAdjacentLoaded(c.Pos) {
		return
	}
	// Mark first so a populator that touches neighbors cannot re-enter for c.
	c.MarkPopulated()
	if s.opts.Populator != nil {
		s.opts.Populator.Populate(c)
	}
}
