package world

import "time"

// Metrics is a point-in-time view of the world that is safe to read from
// other goroutines while Run is stepping.
type Metrics struct {
	Tick         uint64  `json:"tick"`
	LoadedChunks int     `json:"loaded_chunks"`
	Entities     int     `json:"entities"`
	DueTicks     int     `json:"due_ticks"`
	StepMS       float64 `json:"step_ms"`
}

func (w *World) Metrics() Metrics {
	if m, ok := w.metrics.Load().(Metrics); ok {
		return m
	}
	return Metrics{}
}

func (w *World) publishMetrics(start time.Time, due int) {
	w.metrics.Store(Metrics{
		Tick:         w.tick,
		LoadedChunks: w.chunks.Len(),
		Entities:     w.ents.Len(),
		DueTicks:     due,
		StepMS:       float64(time.Since(start).Microseconds()) / 1000,
	})
}
