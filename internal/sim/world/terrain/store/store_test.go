package store

import (
	"errors"
	"testing"

	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/world/kernel/model"
)

type countingPopulator struct {
	calls map[model.ChunkPos]int
}

func (p *countingPopulator) Populate(c *Chunk) { p.calls[c.Pos]++ }

type memProvider struct {
	saved   map[model.ChunkPos]ChunkRecord
	failing bool
}

func (m *memProvider) LoadChunk(pos model.ChunkPos) (*Chunk, bool, error) {
	r, ok := m.saved[pos]
	if !ok {
		return nil, false, nil
	}
	c, err := Import(r)
	return c, err == nil, err
}

func (m *memProvider) StoreChunk(c *Chunk) error {
	if m.failing {
		return errors.New("disk full")
	}
	m.saved[c.Pos] = Export(c)
	return nil
}

type stoneFloor struct{}

func (stoneFloor) Generate(c *Chunk) {
	if c.Pos.Y != 0 {
		return
	}
	for z := 0; z < Edge; z++ {
		for x := 0; x < Edge; x++ {
			c.SetKind(x, 0, z, blocks.Stone)
		}
	}
}

func TestFreshChunkGeneratedNotPopulated(t *testing.T) {
	s := New(Options{Generator: stoneFloor{}})
	c, err := s.Load(model.ChunkPos{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.Generated() || c.Populated() {
		t.Fatalf("generated=%v populated=%v", c.Generated(), c.Populated())
	}
	if k, _ := s.Block(model.BlockPos{X: 3, Y: 0, Z: 4}); k != blocks.Stone {
		t.Fatalf("block=%v", k)
	}
}

func TestPopulateFiresOnceOnTwentySeventhLoad(t *testing.T) {
	pop := &countingPopulator{calls: map[model.ChunkPos]int{}}
	s := New(Options{Populator: pop})
	center := model.ChunkPos{X: 2, Y: -1, Z: 5}

	order := append(center.Neighbors(), center)
	for i, p := range order {
		if _, err := s.Load(p); err != nil {
			t.Fatalf("load %v: %v", p, err)
		}
		if i < len(order)-1 && pop.calls[center] != 0 {
			t.Fatalf("center populated after %d loads", i+1)
		}
	}
	if pop.calls[center] != 1 {
		t.Fatalf("center populate calls=%d", pop.calls[center])
	}

	// More loads around it never repopulate.
	for _, p := range (model.ChunkPos{X: 3, Y: -1, Z: 5}).Neighbors() {
		if _, err := s.Load(p); err != nil {
			t.Fatalf("load %v: %v", p, err)
		}
	}
	for p, n := range pop.calls {
		if n != 1 {
			t.Fatalf("chunk %v populated %d times", p, n)
		}
	}
	if pop.calls[model.ChunkPos{X: 3, Y: -1, Z: 5}] != 1 {
		t.Fatalf("second center not populated")
	}
}

func TestPopulateWhenCenterLoadedFirst(t *testing.T) {
	pop := &countingPopulator{calls: map[model.ChunkPos]int{}}
	s := New(Options{Populator: pop})
	center := model.ChunkPos{}
	if _, err := s.Load(center); err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, p := range center.Neighbors() {
		if _, err := s.Load(p); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if pop.calls[center] != 1 {
		t.Fatalf("calls=%d", pop.calls[center])
	}
}

func TestLoadKeepsStoredPopulatedFlag(t *testing.T) {
	center := model.ChunkPos{X: 1, Y: 0, Z: 1}
	for _, stored := range []bool{true, false} {
		c := NewChunk(center)
		if stored {
			c.MarkPopulated()
		}
		prov := &memProvider{saved: map[model.ChunkPos]ChunkRecord{center: Export(c)}}
		pop := &countingPopulator{calls: map[model.ChunkPos]int{}}
		s := New(Options{Provider: prov, Populator: pop})

		got, err := s.Load(center)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got.Populated() != stored {
			t.Fatalf("stored=%v loaded populated=%v", stored, got.Populated())
		}
		for _, p := range center.Neighbors() {
			if _, err := s.Load(p); err != nil {
				t.Fatalf("load %v: %v", p, err)
			}
		}
		want := 1
		if stored {
			want = 0
		}
		if pop.calls[center] != want || !got.Populated() {
			t.Fatalf("stored=%v populate calls=%d want %d", stored, pop.calls[center], want)
		}
	}
}

func TestUnloadNotLoaded(t *testing.T) {
	s := New(Options{})
	if err := s.Unload(model.ChunkPos{X: 9}); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("err=%v", err)
	}
}

func TestUnloadKeepsChunkOnProviderError(t *testing.T) {
	prov := &memProvider{saved: map[model.ChunkPos]ChunkRecord{}, failing: true}
	s := New(Options{Provider: prov})
	if _, err := s.Load(model.ChunkPos{}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := s.Unload(model.ChunkPos{}); err == nil {
		t.Fatalf("expected error")
	}
	if !s.Loaded(model.ChunkPos{}) {
		t.Fatalf("chunk dropped after failed save")
	}
}

type releaseCounter struct{ n *int }

func (r releaseCounter) Release() { *r.n++ }

func TestUnloadRoundTripsThroughProvider(t *testing.T) {
	prov := &memProvider{saved: map[model.ChunkPos]ChunkRecord{}}
	s := New(Options{Provider: prov, Generator: stoneFloor{}})
	pos := model.ChunkPos{X: -1, Y: 0, Z: 2}
	c, err := s.Load(pos)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	bp := model.BlockPos{X: -5, Y: 3, Z: 40}
	c.Set(bp, blocks.Chest, 2)
	released := 0
	te := blocks.NewTileEntity(bp, blocks.Chest)
	te.Items.Add("stone", 4)
	te.Visual = releaseCounter{n: &released}
	c.TileEntities[bp] = te
	c.AddTick(bp, 3)
	want := c.Digest()

	if err := s.Unload(pos); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if released != 1 {
		t.Fatalf("visual released %d times", released)
	}
	if s.Loaded(pos) {
		t.Fatalf("still loaded")
	}

	back, err := s.Load(pos)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if back.Digest() != want {
		t.Fatalf("digest mismatch after reload")
	}
	got, ok := back.TileEntities[bp]
	if !ok || got.Items["stone"] != 4 {
		t.Fatalf("tile entity not restored: %+v", got)
	}
	if len(back.Ticks) != 1 || back.Ticks[0].Remaining != 3 {
		t.Fatalf("ticks=%v", back.Ticks)
	}
}

func TestGetNeverGenerates(t *testing.T) {
	s := New(Options{Generator: stoneFloor{}})
	if _, ok := s.Get(model.ChunkPos{}); ok {
		t.Fatalf("Get returned a chunk before load")
	}
	if k, _ := s.Block(model.BlockPos{}); k != blocks.Air {
		t.Fatalf("unloaded read=%v", k)
	}
	if s.RawSet(model.BlockPos{}, blocks.Stone, 0) {
		t.Fatalf("write to unloaded chunk accepted")
	}
	if s.Len() != 0 {
		t.Fatalf("len=%d", s.Len())
	}
}

func TestDueTicksOrder(t *testing.T) {
	c := NewChunk(model.ChunkPos{})
	c.AddTick(model.BlockPos{X: 1}, 1)
	c.AddTick(model.BlockPos{X: 2}, 2)
	c.AddTick(model.BlockPos{X: 3}, 1)
	due := c.DueTicks()
	if len(due) != 2 || due[0].Pos.X != 1 || due[1].Pos.X != 3 {
		t.Fatalf("due=%v", due)
	}
	due = c.DueTicks()
	if len(due) != 1 || due[0].Pos.X != 2 || len(c.Ticks) != 0 {
		t.Fatalf("due=%v left=%v", due, c.Ticks)
	}
}

func TestImportRejectsCorruptKinds(t *testing.T) {
	c := NewChunk(model.ChunkPos{X: 1})
	c.SetKind(0, 0, 0, blocks.Stone)
	r := Export(c)
	if _, err := Import(r); err != nil {
		t.Fatalf("clean record: %v", err)
	}

	r.Kinds = r.Kinds[:len(r.Kinds)-1]
	if _, err := Import(r); err == nil {
		t.Fatalf("expected error for truncated kinds")
	}

	r = Export(c)
	r.Kinds[0] = 0x7f // kind id with no registered block
	if _, err := Import(r); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
