package world

import (
	"context"
	"time"

	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/world/kernel/model"
	"voxelsim.ai/internal/sim/world/terrain/store"
)

// ScheduleTick queues a scheduled tick at pos that fires after delay steps.
func (w *World) ScheduleTick(pos model.BlockPos, delay int) {
	c, ok := w.chunks.ChunkAt(pos)
	if !ok {
		w.logger.Printf("WARN: scheduled tick at %v is outside the loaded world, ignoring", pos)
		return
	}
	c.AddTick(pos, delay)
}

// Step advances the simulation by one tick: due scheduled ticks fire in chunk
// order, then entities are integrated.
func (w *World) Step() {
	start := time.Now()
	w.tick++

	// Collect first so ticks queued by hooks wait for the next step.
	var due []store.ScheduledTick
	for _, k := range w.chunks.Keys() {
		c, _ := w.chunks.Get(k)
		due = append(due, c.DueTicks()...)
	}
	for _, t := range due {
		if !w.Loaded(t.Pos) {
			continue
		}
		k, _ := w.chunks.Block(t.Pos)
		if tk, ok := w.reg.Behavior(k).(blocks.Ticker); ok {
			tk.OnScheduledTick(w, t.Pos)
		}
	}

	w.ents.Step(w.cfg.EntityStep)
	w.publishMetrics(start, len(due))
}

// Run steps the world at the configured tick rate until ctx is done. A non-nil
// loader is updated before every step.
func (w *World) Run(ctx context.Context, loader *Loader) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if loader != nil {
				if err := loader.Update(); err != nil {
					w.logger.Printf("loader: %v", err)
				}
			}
			w.Step()
		}
	}
}
