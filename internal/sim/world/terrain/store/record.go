package store

import (
	"fmt"
	"sort"

	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/encoding"
	"voxelsim.ai/internal/sim/world/kernel/model"
)

const RecordVersion = 1

// ChunkRecord is the persisted form of a chunk.
type ChunkRecord struct {
	Version   int32        `nbt:"Version"`
	X         int32        `nbt:"X"`
	Y         int32        `nbt:"Y"`
	Z         int32        `nbt:"Z"`
	Populated int8         `nbt:"Populated"`
	Kinds     []byte       `nbt:"Kinds"` // run-length encoded
	Meta      []byte       `nbt:"Meta"`
	Light     []byte       `nbt:"Light"`
	Tiles     []TileRecord `nbt:"TileEntities"`
	Ticks     []TickRecord `nbt:"Ticks"`
}

type TileRecord struct {
	X     int32        `nbt:"X"`
	Y     int32        `nbt:"Y"`
	Z     int32        `nbt:"Z"`
	Kind  int32        `nbt:"Kind"`
	Items []ItemRecord `nbt:"Items"`
}

type ItemRecord struct {
	Item  string `nbt:"Item"`
	Count int32  `nbt:"Count"`
}

type TickRecord struct {
	X         int32 `nbt:"X"`
	Y         int32 `nbt:"Y"`
	Z         int32 `nbt:"Z"`
	Remaining int32 `nbt:"Remaining"`
}

// Export converts a chunk into its persisted record. Tile entity visuals are not kept.
func Export(c *Chunk) ChunkRecord {
	r := ChunkRecord{
		Version: RecordVersion,
		X:       int32(c.Pos.X),
		Y:       int32(c.Pos.Y),
		Z:       int32(c.Pos.Z),
		Meta:    make([]byte, Volume),
		Light:   make([]byte, Volume),
	}
	if c.populated {
		r.Populated = 1
	}
	ids := make([]uint16, Volume)
	for i, k := range c.kinds {
		ids[i] = uint16(k)
	}
	r.Kinds = encoding.AppendRLE(nil, ids)
	copy(r.Meta, c.meta[:])
	copy(r.Light, c.light[:])

	positions := make([]model.BlockPos, 0, len(c.TileEntities))
	for p := range c.TileEntities {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool {
		a, b := positions[i], positions[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		return a.X < b.X
	})
	for _, p := range positions {
		te := c.TileEntities[p]
		tr := TileRecord{X: int32(p.X), Y: int32(p.Y), Z: int32(p.Z), Kind: int32(te.Kind)}
		for _, st := range te.Items.Stacks() {
			tr.Items = append(tr.Items, ItemRecord{Item: st.Item, Count: int32(st.Count)})
		}
		r.Tiles = append(r.Tiles, tr)
	}
	for _, t := range c.Ticks {
		r.Ticks = append(r.Ticks, TickRecord{X: int32(t.Pos.X), Y: int32(t.Pos.Y), Z: int32(t.Pos.Z), Remaining: int32(t.Remaining)})
	}
	return r
}

// Import rebuilds a chunk from a record.
func Import(r ChunkRecord) (*Chunk, error) {
	if r.Version != RecordVersion {
		return nil, fmt.Errorf("chunk record version mismatch: got %d want %d", r.Version, RecordVersion)
	}
	if len(r.Meta) != Volume || len(r.Light) != Volume {
		return nil, fmt.Errorf("chunk record shape mismatch: meta=%d light=%d want %d", len(r.Meta), len(r.Light), Volume)
	}
	c := NewChunk(model.ChunkPos{X: int(r.X), Y: int(r.Y), Z: int(r.Z)})
	ids, err := encoding.DecodeRLE(r.Kinds, Volume)
	if err != nil {
		return nil, fmt.Errorf("chunk record %v: kinds: %w", c.Pos, err)
	}
	for i, k := range ids {
		kind := blocks.Kind(k)
		if !kind.Valid() {
			return nil, fmt.Errorf("chunk record %v: unknown kind %d at %d", c.Pos, k, i)
		}
		c.kinds[i] = kind
	}
	copy(c.meta[:], r.Meta)
	copy(c.light[:], r.Light)
	c.generated = true
	c.populated = r.Populated != 0

	for _, tr := range r.Tiles {
		p := model.BlockPos{X: int(tr.X), Y: int(tr.Y), Z: int(tr.Z)}
		if !c.Contains(p) {
			return nil, fmt.Errorf("chunk record %v: tile entity %v outside chunk", c.Pos, p)
		}
		te := blocks.NewTileEntity(p, blocks.Kind(tr.Kind))
		for _, it := range tr.Items {
			te.Items.Add(it.Item, int(it.Count))
		}
		c.TileEntities[p] = te
	}
	for _, tk := range r.Ticks {
		c.Ticks = append(c.Ticks, ScheduledTick{
			Pos:       model.BlockPos{X: int(tk.X), Y: int(tk.Y), Z: int(tk.Z)},
			Remaining: int(tk.Remaining),
		})
	}
	return c, nil
}
