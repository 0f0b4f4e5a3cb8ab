package chunkdb

import (
	"reflect"
	"testing"

	"github.com/df-mc/goleveldb/leveldb/storage"

	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/world"
	"voxelsim.ai/internal/sim/world/kernel/model"
	"voxelsim.ai/internal/sim/world/terrain/store"
	"voxelsim.ai/internal/sim/world/terrain/structure"
)

func openMem(t *testing.T) *DB {
	t.Helper()
	db, err := OpenStorage(storage.NewMemStorage())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestChunkRoundTrip(t *testing.T) {
	db := openMem(t)
	pos := model.ChunkPos{X: -3, Y: -1, Z: 7}
	c := store.NewChunk(pos)
	bp := model.BlockPos{X: -45, Y: -10, Z: 120}
	c.Set(bp, blocks.Chest, 3)
	c.Set(bp.Offset(model.Up), blocks.Torch, 0)
	c.SetLight(2, 3, 4, 11)
	te := blocks.NewTileEntity(bp, blocks.Chest)
	te.Items.Add("rail", 9)
	c.TileEntities[bp] = te
	c.AddTick(bp.Offset(model.Up), 4)
	c.MarkPopulated()

	if err := db.StoreChunk(c); err != nil {
		t.Fatalf("store: %v", err)
	}
	got, ok, err := db.LoadChunk(pos)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Digest() != c.Digest() {
		t.Fatalf("digest mismatch")
	}
	if !got.Populated() {
		t.Fatalf("populated flag lost")
	}
	if got.Light(2, 3, 4) != 11 {
		t.Fatalf("light=%d want 11", got.Light(2, 3, 4))
	}
	gte, ok := got.TileEntities[bp]
	if !ok || gte.Items["rail"] != 9 {
		t.Fatalf("tile entity=%+v", gte)
	}
	if len(got.Ticks) != 1 || got.Ticks[0].Remaining != 4 {
		t.Fatalf("ticks=%+v", got.Ticks)
	}
}

func TestMissingChunk(t *testing.T) {
	db := openMem(t)
	c, ok, err := db.LoadChunk(model.ChunkPos{X: 1})
	if err != nil || ok || c != nil {
		t.Fatalf("got %v %v %v", c, ok, err)
	}
}

func TestChunksListing(t *testing.T) {
	db := openMem(t)
	want := map[model.ChunkPos]bool{
		{X: 0, Y: 0, Z: 0}:   true,
		{X: -1, Y: 2, Z: -9}: true,
		{X: 5, Y: -4, Z: 3}:  true,
	}
	for p := range want {
		if err := db.StoreChunk(store.NewChunk(p)); err != nil {
			t.Fatalf("store: %v", err)
		}
	}
	got, err := db.Chunks()
	if err != nil {
		t.Fatalf("chunks: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("listed %d chunks want %d", len(got), len(want))
	}
	for _, p := range got {
		if !want[p] {
			t.Fatalf("unexpected chunk %v", p)
		}
	}
}

func TestStructureRoundTrip(t *testing.T) {
	db := openMem(t)
	cfg := structure.DefaultSettings(99)
	cfg.Chance = 1
	grown := 0
	p := structure.NewPlacer(cfg, db)
	p.OnGrow = func(*structure.Structure) { grown++ }
	orig, err := p.At(-1, 3)
	if err != nil || orig == nil {
		t.Fatalf("grow: %v", err)
	}

	p2 := structure.NewPlacer(cfg, db)
	p2.OnGrow = func(*structure.Structure) { grown++ }
	loaded, err := p2.At(-1, 3)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if grown != 1 {
		t.Fatalf("grown %d times", grown)
	}
	if loaded.ID != orig.ID || !reflect.DeepEqual(loaded.Pieces, orig.Pieces) {
		t.Fatalf("loaded structure differs")
	}
}

func TestWorldReloadsPersistedEdits(t *testing.T) {
	db := openMem(t)
	deps := func() world.Deps { return world.Deps{Provider: db, Structures: db} }
	pos := model.ChunkPos{X: 0, Y: 12, Z: 0}
	bp := pos.Origin().Add(model.BlockPos{X: 4, Y: 4, Z: 4})

	w := world.New(world.DefaultConfig(5), deps())
	if _, err := w.LoadChunk(pos); err != nil {
		t.Fatalf("load: %v", err)
	}
	w.SetBlock(bp, blocks.Planks, 2)
	if err := w.UnloadChunk(pos); err != nil {
		t.Fatalf("unload: %v", err)
	}

	w2 := world.New(world.DefaultConfig(5), deps())
	if _, err := w2.LoadChunk(pos); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if k, m := w2.Block(bp); k != blocks.Planks || m != 2 {
		t.Fatalf("got %v/%d want planks/2", k, m)
	}
}
