package world

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/entities"
	"voxelsim.ai/internal/sim/world/kernel/model"
	"voxelsim.ai/internal/sim/world/terrain/store"
)

// skyChunk sits far above any generated terrain, so it starts out as air.
var skyChunk = model.ChunkPos{X: 0, Y: 10, Z: 0}

func skyPos(x, y, z int) model.BlockPos {
	o := skyChunk.Origin()
	return model.BlockPos{X: o.X + x, Y: o.Y + y, Z: o.Z + z}
}

func newTestWorld(t *testing.T, reg *blocks.Registry) *World {
	t.Helper()
	w := New(DefaultConfig(7), Deps{Registry: reg})
	if _, err := w.LoadChunk(skyChunk); err != nil {
		t.Fatalf("load sky chunk: %v", err)
	}
	return w
}

type neighborCall struct {
	Pos  model.BlockPos
	From model.Direction
}

// recorder is a solid block that logs every hook it receives.
type recorder struct {
	blocks.Basic
	neighbors *[]neighborCall
	placedAs  *[]blocks.Kind
}

func (r recorder) OnNeighborChange(_ blocks.Accessor, pos model.BlockPos, _ uint8, from model.Direction) {
	*r.neighbors = append(*r.neighbors, neighborCall{Pos: pos, From: from})
}

func (r recorder) OnPlace(w blocks.Accessor, pos model.BlockPos, _ uint8) {
	k, _ := w.Block(pos)
	*r.placedAs = append(*r.placedAs, k)
}

func recorderRegistry() (*blocks.Registry, *[]neighborCall, *[]blocks.Kind) {
	var calls []neighborCall
	var placed []blocks.Kind
	reg := blocks.Default()
	reg.Register(blocks.Stone, recorder{Basic: blocks.Basic{Kind: blocks.Stone}, neighbors: &calls, placedAs: &placed})
	return reg, &calls, &placed
}

func TestSetBlockNotifiesEachNeighborOnce(t *testing.T) {
	reg, calls, _ := recorderRegistry()
	w := newTestWorld(t, reg)

	origin := skyPos(8, 8, 8)
	for _, d := range model.AllDirections {
		w.SetBlock(origin.Offset(d), blocks.Stone, KeepMeta)
	}
	w.SetBlock(origin, blocks.Stone, KeepMeta)
	*calls = nil

	w.SetBlock(origin, blocks.Air, KeepMeta)

	if len(*calls) != 6 {
		t.Fatalf("neighbor calls: got %d want 6", len(*calls))
	}
	seen := map[model.BlockPos]model.Direction{}
	for _, c := range *calls {
		if _, dup := seen[c.Pos]; dup {
			t.Fatalf("neighbor %v notified twice", c.Pos)
		}
		seen[c.Pos] = c.From
	}
	for _, d := range model.AllDirections {
		n := origin.Offset(d)
		from, ok := seen[n]
		if !ok {
			t.Fatalf("neighbor %v not notified", n)
		}
		if n.Offset(from) != origin {
			t.Fatalf("neighbor %v: from=%v does not point back to %v", n, from, origin)
		}
	}
	if k, _ := w.Block(origin); k != blocks.Air {
		t.Fatalf("origin kind=%v want air", k)
	}
}

func TestSetBlockPlaceHookSeesNewKind(t *testing.T) {
	reg, _, placed := recorderRegistry()
	w := newTestWorld(t, reg)
	w.SetBlock(skyPos(3, 3, 3), blocks.Stone, 5)
	if len(*placed) != 1 || (*placed)[0] != blocks.Stone {
		t.Fatalf("place hook saw %v", *placed)
	}
	if _, m := w.Block(skyPos(3, 3, 3)); m != 5 {
		t.Fatalf("meta=%d want 5", m)
	}
}

func TestSetBlockMetaResetsOnKindChange(t *testing.T) {
	w := newTestWorld(t, nil)
	p := skyPos(1, 1, 1)
	w.SetBlock(p, blocks.Wood, 2)
	w.SetBlock(p, blocks.Planks, KeepMeta)
	if k, m := w.Block(p); k != blocks.Planks || m != 0 {
		t.Fatalf("got %v/%d want planks/0", k, m)
	}
	w.SetMeta(p, 3)
	if k, m := w.Block(p); k != blocks.Planks || m != 3 {
		t.Fatalf("got %v/%d want planks/3", k, m)
	}
}

func TestSetBlockClampsMeta(t *testing.T) {
	w := newTestWorld(t, nil)
	p := skyPos(1, 2, 1)
	w.SetBlock(p, blocks.Planks, 300)
	if _, m := w.Block(p); m != 255 {
		t.Fatalf("meta=%d want 255", m)
	}
	w.SetMeta(p, -7)
	if _, m := w.Block(p); m != 0 {
		t.Fatalf("meta=%d want 0", m)
	}
}

func TestSetBlockIsDeterministic(t *testing.T) {
	run := func() ([32]byte, []neighborCall) {
		reg, calls, _ := recorderRegistry()
		w := newTestWorld(t, reg)
		for i := 0; i < 6; i++ {
			w.SetBlock(skyPos(4+i, 4, 4), blocks.Stone, i)
		}
		w.SetBlock(skyPos(6, 4, 4), blocks.Air, KeepMeta)
		c, _ := w.Chunks().Get(skyChunk)
		return c.Digest(), *calls
	}
	d1, c1 := run()
	d2, c2 := run()
	if d1 != d2 {
		t.Fatalf("digest mismatch")
	}
	if len(c1) != len(c2) {
		t.Fatalf("call count mismatch: %d vs %d", len(c1), len(c2))
	}
	for i := range c1 {
		if c1[i] != c2[i] {
			t.Fatalf("call %d differs: %+v vs %+v", i, c1[i], c2[i])
		}
	}
}

func TestBoundaryWriteDirtiesNeighborChunk(t *testing.T) {
	w := newTestWorld(t, nil)
	east := skyChunk.Add(1, 0, 0)
	if _, err := w.LoadChunk(east); err != nil {
		t.Fatalf("load: %v", err)
	}
	ec, _ := w.Chunks().Get(east)
	ec.ClearDirty()

	w.SetBlock(skyPos(7, 7, 7), blocks.Stone, KeepMeta)
	if ec.Dirty() {
		t.Fatalf("interior write dirtied neighbor")
	}
	w.SetBlock(skyPos(15, 7, 7), blocks.Stone, KeepMeta)
	if !ec.Dirty() {
		t.Fatalf("edge write did not dirty east neighbor")
	}
}

func TestSetBlockUpdatesLight(t *testing.T) {
	w := newTestWorld(t, nil)
	p := skyPos(8, 8, 8)
	w.SetBlock(p, blocks.Lantern, KeepMeta)
	if got := w.Light(p); got != 15 {
		t.Fatalf("lantern light=%d want 15", got)
	}
	if got := w.Light(p.Offset(model.Up)); got != 14 {
		t.Fatalf("light above=%d want 14", got)
	}
	w.SetBlock(p, blocks.Air, KeepMeta)
	if got := w.Light(p.Offset(model.Up)); got != 0 {
		t.Fatalf("light after removal=%d want 0", got)
	}
}

func TestBreakBlockZeroChanceSpawnsNothing(t *testing.T) {
	w := newTestWorld(t, nil)
	p := skyPos(2, 2, 2)
	w.SetBlock(p, blocks.Stone, KeepMeta)
	w.BreakBlock(p, nil, 0)
	if n := w.Entities().Len(); n != 0 {
		t.Fatalf("entities=%d want 0", n)
	}
	if k, _ := w.Block(p); k != blocks.Air {
		t.Fatalf("kind=%v want air", k)
	}
}

func TestBreakBlockFullChanceDropsWithJitter(t *testing.T) {
	w := newTestWorld(t, nil)
	p := skyPos(2, 2, 2)
	w.SetBlock(p, blocks.Grass, KeepMeta)
	w.BreakBlock(p, nil, 1)
	all := w.Entities().All()
	if len(all) != 1 {
		t.Fatalf("entities=%d want 1", len(all))
	}
	e := all[0]
	if e.Stack.Item != "dirt" || e.Kind != entities.Item {
		t.Fatalf("drop=%+v", e.Stack)
	}
	base := blockVec(p)
	for i := 0; i < 3; i++ {
		if d := e.Pos[i] - base[i]; d < -0.5 || d > 0.5 {
			t.Fatalf("jitter axis %d = %f", i, d)
		}
	}
}

func TestBreakChestDropsContents(t *testing.T) {
	w := newTestWorld(t, nil)
	p := skyPos(5, 5, 5)
	w.SetBlock(p, blocks.Chest, KeepMeta)
	te, ok := w.TileEntity(p)
	if !ok {
		t.Fatalf("chest has no tile entity")
	}
	te.Items.Add("torch", 3)

	w.BreakBlock(p, nil, 1)
	if _, ok := w.TileEntity(p); ok {
		t.Fatalf("tile entity survived break")
	}
	got := map[string]int{}
	for _, e := range w.Entities().All() {
		got[e.Stack.Item] += e.Stack.Count
	}
	if got["chest"] != 1 || got["torch"] != 3 {
		t.Fatalf("drops=%v", got)
	}
}

func TestDuplicateTileEntityRejected(t *testing.T) {
	w := newTestWorld(t, nil)
	p := skyPos(5, 5, 5)
	if err := w.AddTileEntity(blocks.NewTileEntity(p, blocks.Chest)); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := w.AddTileEntity(blocks.NewTileEntity(p, blocks.Chest))
	if !errors.Is(err, ErrTileEntityExists) {
		t.Fatalf("second add err=%v", err)
	}
}

func TestReplacingChestKeepsSingleTileEntity(t *testing.T) {
	w := newTestWorld(t, nil)
	p := skyPos(5, 5, 5)
	w.SetBlock(p, blocks.Chest, KeepMeta)
	w.SetBlock(p, blocks.Chest, KeepMeta)
	c, _ := w.Chunks().Get(skyChunk)
	if n := len(c.TileEntities); n != 1 {
		t.Fatalf("tile entities=%d want 1", n)
	}
}

func TestOutOfWorldIsNoop(t *testing.T) {
	w := newTestWorld(t, nil)
	far := model.BlockPos{X: 1000, Y: 1000, Z: 1000}
	w.SetBlock(far, blocks.Stone, KeepMeta)
	w.BreakBlock(far, nil, 1)
	w.ScheduleTick(far, 1)
	if err := w.AddTileEntity(blocks.NewTileEntity(far, blocks.Chest)); err != nil {
		t.Fatalf("add outside world: %v", err)
	}
	if k, _ := w.Block(far); k != blocks.Air {
		t.Fatalf("kind=%v want air", k)
	}
	if w.Entities().Len() != 0 {
		t.Fatalf("break outside world spawned entities")
	}
	if _, ok := w.TileEntity(far); ok {
		t.Fatalf("tile entity outside world")
	}
}

type countingCharge struct {
	blocks.Charge
	n *int
}

func (c countingCharge) ExplosionSize() float64 {
	*c.n++
	return c.Charge.ExplosionSize()
}

func TestExplosionChainTerminates(t *testing.T) {
	var detonations int
	reg := blocks.Default()
	charge := countingCharge{Charge: blocks.Charge{Basic: blocks.Basic{Kind: blocks.TNT}}, n: &detonations}
	reg.Register(blocks.TNT, charge)
	w := newTestWorld(t, reg)

	tnt := []model.BlockPos{skyPos(9, 8, 8), skyPos(10, 8, 8), skyPos(10, 9, 8)}
	for _, p := range tnt {
		w.SetBlock(p, blocks.TNT, KeepMeta)
	}
	w.SetBlock(skyPos(7, 8, 8), blocks.Stone, KeepMeta)

	center := blockVec(skyPos(8, 8, 8))
	living := w.Entities().SpawnLiving(center, 1000)
	old := w.Entities().SpawnItem(model.ItemStack{Item: "dirt", Count: 1}, center, mgl64.QuatIdent(), mgl64.Vec3{})
	w.Entities().Step(0)
	fresh := w.Entities().SpawnItem(model.ItemStack{Item: "dirt", Count: 1}, center, mgl64.QuatIdent(), mgl64.Vec3{})

	w.MakeExplosion(charge, center)

	if want := 1 + len(tnt); detonations != want {
		t.Fatalf("detonations=%d want %d", detonations, want)
	}
	for _, p := range append(tnt, skyPos(7, 8, 8)) {
		if k, _ := w.Block(p); k != blocks.Air {
			t.Fatalf("%v kind=%v want air", p, k)
		}
	}
	if want := 1000 - 16*(1+len(tnt)); living.Health != want {
		t.Fatalf("living health=%d want %d", living.Health, want)
	}
	if !old.Dead {
		t.Fatalf("aged item survived the blast")
	}
	if fresh.Dead {
		t.Fatalf("fresh item was killed")
	}
}

func TestExplosionZeroDropChance(t *testing.T) {
	cfg := DefaultConfig(7)
	cfg.Explosion.DropChance = 0
	w := New(cfg, Deps{})
	if _, err := w.LoadChunk(skyChunk); err != nil {
		t.Fatalf("load sky chunk: %v", err)
	}
	for x := 6; x <= 10; x++ {
		w.SetBlock(skyPos(x, 8, 8), blocks.Stone, KeepMeta)
	}
	w.MakeExplosion(blocks.Charge{Basic: blocks.Basic{Kind: blocks.TNT}}, blockVec(skyPos(8, 8, 8)))
	for x := 6; x <= 10; x++ {
		if k, _ := w.Block(skyPos(x, 8, 8)); k != blocks.Air {
			t.Fatalf("x=%d kind=%v want air", x, k)
		}
	}
	if n := w.Entities().Len(); n != 0 {
		t.Fatalf("entities=%d want 0", n)
	}
}

func TestFallingBlockUsesScheduledTicks(t *testing.T) {
	w := newTestWorld(t, nil)
	p := skyPos(4, 10, 4)
	w.SetBlock(p, blocks.Sand, KeepMeta)

	w.Step()
	if k, _ := w.Block(p); k != blocks.Sand {
		t.Fatalf("sand moved too early")
	}
	w.Step()
	if k, _ := w.Block(p); k != blocks.Air {
		t.Fatalf("sand did not fall, kind=%v", k)
	}
	if k, _ := w.Block(p.Offset(model.Down)); k != blocks.Sand {
		t.Fatalf("cell below kind=%v want sand", k)
	}
	if w.Tick() != 2 {
		t.Fatalf("tick=%d want 2", w.Tick())
	}
}

func TestTorchPopsWhenSupportRemoved(t *testing.T) {
	w := newTestWorld(t, nil)
	base := skyPos(6, 6, 6)
	w.SetBlock(base, blocks.Stone, KeepMeta)
	w.SetBlock(base.Offset(model.Up), blocks.Torch, KeepMeta)
	w.SetBlock(base, blocks.Air, KeepMeta)
	if k, _ := w.Block(base.Offset(model.Up)); k != blocks.Air {
		t.Fatalf("torch kind=%v want air", k)
	}
	if w.Entities().Len() != 1 {
		t.Fatalf("torch drop count=%d want 1", w.Entities().Len())
	}
}

type fakeIndex struct {
	audits     []AuditEntry
	chunks     []ChunkEvent
	structures []StructureEvent
}

func (f *fakeIndex) WriteAudit(e AuditEntry) error    { f.audits = append(f.audits, e); return nil }
func (f *fakeIndex) RecordChunk(e ChunkEvent)         { f.chunks = append(f.chunks, e) }
func (f *fakeIndex) RecordStructure(e StructureEvent) { f.structures = append(f.structures, e) }

func TestNeighborhoodLoadPopulatesCenter(t *testing.T) {
	idx := &fakeIndex{}
	w := New(DefaultConfig(11), Deps{Index: idx})
	center := model.ChunkPos{X: 2, Y: 0, Z: -3}
	if _, err := w.LoadChunk(center); err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, n := range center.Neighbors() {
		if _, err := w.LoadChunk(n); err != nil {
			t.Fatalf("load %v: %v", n, err)
		}
	}
	c, _ := w.Chunks().Get(center)
	if !c.Populated() {
		t.Fatalf("center not populated")
	}
	populates := 0
	for _, ev := range idx.chunks {
		if ev.Event == "POPULATE" {
			populates++
			if ev.Chunk != [3]int{center.X, center.Y, center.Z} {
				t.Fatalf("unexpected populate of %v", ev.Chunk)
			}
		}
	}
	if populates != 1 {
		t.Fatalf("populate events=%d want 1", populates)
	}
}

func TestUnloadUnknownChunk(t *testing.T) {
	w := New(DefaultConfig(1), Deps{})
	if err := w.UnloadChunk(model.ChunkPos{X: 9}); !errors.Is(err, store.ErrNotLoaded) {
		t.Fatalf("err=%v want ErrNotLoaded", err)
	}
}

func TestSetBlockWritesAudit(t *testing.T) {
	idx := &fakeIndex{}
	w := New(DefaultConfig(7), Deps{Index: idx})
	if _, err := w.LoadChunk(skyChunk); err != nil {
		t.Fatalf("load: %v", err)
	}
	w.SetBlock(skyPos(1, 2, 3), blocks.Planks, 1)
	if len(idx.audits) != 1 {
		t.Fatalf("audits=%d want 1", len(idx.audits))
	}
	a := idx.audits[0]
	if a.Action != "SET_BLOCK" || a.To != uint16(blocks.Planks) || a.Pos != skyPos(1, 2, 3).ToArray() {
		t.Fatalf("audit=%+v", a)
	}
}

func TestStepPublishesMetrics(t *testing.T) {
	w := newTestWorld(t, nil)
	if m := w.Metrics(); m.Tick != 0 {
		t.Fatalf("metrics before first step: %+v", m)
	}
	w.Step()
	w.Step()
	m := w.Metrics()
	if m.Tick != 2 || m.LoadedChunks != 1 {
		t.Fatalf("metrics=%+v", m)
	}
}
