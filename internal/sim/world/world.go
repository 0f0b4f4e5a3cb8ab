package world

import (
	"io"
	"log"
	"math/rand"
	"sync/atomic"

	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/entities"
	"voxelsim.ai/internal/sim/world/kernel/model"
	"voxelsim.ai/internal/sim/world/light"
	"voxelsim.ai/internal/sim/world/logic/mathx"
	"voxelsim.ai/internal/sim/world/terrain/gen"
	"voxelsim.ai/internal/sim/world/terrain/store"
	"voxelsim.ai/internal/sim/world/terrain/structure"
)

// Lighter recomputes light after a kind-changing mutation at pos.
type Lighter interface {
	Update(emitted uint8, pos model.BlockPos)
}

// Deps are the collaborators a World is built from. Nil fields get in-memory defaults.
type Deps struct {
	Provider   store.Provider
	Structures structure.Store
	Registry   *blocks.Registry
	Entities   *entities.Registry
	Lighter    Lighter
	Rand       *rand.Rand

	Logger   *log.Logger
	AuditLog AuditLogger
	Index    Indexer
}

// World is a single-threaded voxel simulation. It exclusively owns its chunk
// store; all calls except Metrics must come from the goroutine driving Step.
type World struct {
	cfg Config

	chunks  *store.ChunkStore
	reg     *blocks.Registry
	ents    *entities.Registry
	lighter Lighter
	terrain *gen.Terrain
	placer  *structure.Placer
	rnd     *rand.Rand

	logger   *log.Logger
	auditLog AuditLogger
	index    Indexer

	tick    uint64
	metrics atomic.Value
}

const randSalt = 0x72616e64

var _ blocks.Accessor = (*World)(nil)

func New(cfg Config, deps Deps) *World {
	cfg.applyDefaults()
	w := &World{
		cfg:      cfg,
		reg:      deps.Registry,
		ents:     deps.Entities,
		rnd:      deps.Rand,
		logger:   deps.Logger,
		auditLog: deps.AuditLog,
		index:    deps.Index,
		tick:     cfg.StartTick,
	}
	if w.reg == nil {
		w.reg = blocks.Default()
	}
	if w.ents == nil {
		w.ents = entities.NewRegistry()
	}
	if w.rnd == nil {
		w.rnd = rand.New(rand.NewSource(mathx.DeriveSeed(cfg.Seed, randSalt)))
	}
	if w.logger == nil {
		w.logger = log.New(io.Discard, "", 0)
	}

	w.terrain = gen.New(cfg.Seed, cfg.Terrain)
	w.placer = structure.NewPlacer(cfg.Structures, deps.Structures)
	w.placer.OnGrow = w.onStructureGrown
	w.chunks = store.New(store.Options{
		Generator: w.terrain,
		Populator: populator{w},
		Provider:  deps.Provider,
		OnUnload:  w.onUnload,
	})
	w.lighter = deps.Lighter
	if w.lighter == nil {
		w.lighter = light.New(w.chunks, w.reg)
	}
	return w
}

func (w *World) Config() Config                { return w.cfg }
func (w *World) Tick() uint64                  { return w.tick }
func (w *World) Registry() *blocks.Registry    { return w.reg }
func (w *World) Entities() *entities.Registry  { return w.ents }
func (w *World) Chunks() *store.ChunkStore     { return w.chunks }
func (w *World) Terrain() *gen.Terrain         { return w.terrain }
func (w *World) Structures() *structure.Placer { return w.placer }

// SpawnPoint is the first air cell above the terrain at the world origin column.
func (w *World) SpawnPoint() model.BlockPos {
	return model.BlockPos{X: 0, Y: w.terrain.HeightAt(0, 0) + 1, Z: 0}
}

// Block returns kind and meta at pos; unloaded cells read as air.
func (w *World) Block(pos model.BlockPos) (blocks.Kind, uint8) {
	return w.chunks.Block(pos)
}

func (w *World) Light(pos model.BlockPos) uint8 { return w.chunks.Light(pos) }

// Chunk returns the loaded chunk at pos, if any.
func (w *World) Chunk(pos model.ChunkPos) (*store.Chunk, bool) { return w.chunks.Get(pos) }

func (w *World) Loaded(pos model.BlockPos) bool {
	return w.chunks.Loaded(pos.Chunk())
}
