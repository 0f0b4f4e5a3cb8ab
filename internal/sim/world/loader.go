package world

import (
	"errors"
	"fmt"
	"sort"

	"voxelsim.ai/internal/sim/world/kernel/model"
	"voxelsim.ai/internal/sim/world/logic/mathx"
)

// Loader keeps the chunks around an anchor resident. Each Update either builds
// up to BuildsPerStep queued chunks or, when nothing was left to build, evicts
// chunks that fell out of range.
type Loader struct {
	w      *World
	cfg    LoaderConfig
	anchor func() model.BlockPos

	occupied model.ChunkPos
	primed   bool
	queue    []model.ChunkPos
	queued   map[model.ChunkPos]bool
}

func NewLoader(w *World, anchor func() model.BlockPos) *Loader {
	return &Loader{
		w:      w,
		cfg:    w.cfg.Loader,
		anchor: anchor,
		queued: map[model.ChunkPos]bool{},
	}
}

// Pending is the number of chunks waiting to be built.
func (l *Loader) Pending() int { return len(l.queue) }

// Prime queues and builds the whole neighborhood of the anchor in one go.
func (l *Loader) Prime() error {
	l.refresh(l.anchor().Chunk())
	return l.build(len(l.queue))
}

// Update runs one loader step.
func (l *Loader) Update() error {
	occ := l.anchor().Chunk()
	if !l.primed || occ != l.occupied {
		l.refresh(occ)
	}
	before := len(l.queue)
	if err := l.build(l.cfg.BuildsPerStep); err != nil {
		return err
	}
	if before == 0 {
		return l.evict()
	}
	return nil
}

func (l *Loader) refresh(occ model.ChunkPos) {
	l.occupied = occ
	l.primed = true
	d := l.cfg.Distance
	for x := -d; x <= d; x++ {
		for z := -d; z <= d; z++ {
			for y := l.cfg.MinChunkY; y <= l.cfg.MaxChunkY; y++ {
				p := model.ChunkPos{X: occ.X + x, Y: y, Z: occ.Z + z}
				if l.queued[p] || l.w.chunks.Loaded(p) {
					continue
				}
				l.queued[p] = true
				l.queue = append(l.queue, p)
			}
		}
	}
	// nearest columns first
	sort.SliceStable(l.queue, func(i, j int) bool {
		return l.dist(l.queue[i]) < l.dist(l.queue[j])
	})
}

func (l *Loader) dist(p model.ChunkPos) int {
	return max(mathx.AbsInt(p.X-l.occupied.X), mathx.AbsInt(p.Z-l.occupied.Z))
}

func (l *Loader) build(n int) error {
	for i := 0; i < n && len(l.queue) > 0; i++ {
		p := l.queue[0]
		l.queue = l.queue[1:]
		delete(l.queued, p)
		if _, err := l.w.LoadChunk(p); err != nil {
			return fmt.Errorf("build %v: %w", p, err)
		}
	}
	return nil
}

func (l *Loader) tooFar(p model.ChunkPos) bool {
	return l.dist(p) > l.cfg.Distance || p.Y < l.cfg.MinChunkY || p.Y > l.cfg.MaxChunkY
}

func (l *Loader) evict() error {
	var errs []error
	for _, p := range l.w.chunks.Keys() {
		if !l.tooFar(p) {
			continue
		}
		if err := l.w.UnloadChunk(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
