package world

import "voxelsim.ai/internal/sim/world/kernel/model"

type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	Action string `json:"action"` // e.g. "SET_BLOCK"
	Pos    [3]int `json:"pos"`
	From   uint16 `json:"from"`
	To     uint16 `json:"to"`
	Meta   int    `json:"meta,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// ChunkEvent records a chunk lifecycle transition.
type ChunkEvent struct {
	Tick   uint64 `json:"tick"`
	Event  string `json:"event"` // LOAD, GENERATE, POPULATE, UNLOAD
	Chunk  [3]int `json:"chunk"`
	Pieces int    `json:"pieces,omitempty"`
}

// StructureEvent describes a structure grown for the first time.
type StructureEvent struct {
	Tick   uint64 `json:"tick"`
	ID     string `json:"id"`
	Cell   [2]int `json:"cell"`
	Start  [3]int `json:"start"`
	Facing string `json:"facing"`
	Pieces int    `json:"pieces"`
	Min    [3]int `json:"min"`
	Max    [3]int `json:"max"`
}

// Indexer receives the world's read-model feed. Implementations must not block.
type Indexer interface {
	AuditLogger
	RecordChunk(ev ChunkEvent)
	RecordStructure(ev StructureEvent)
}

func (w *World) audit(action string, pos model.BlockPos, from, to uint16, meta int, reason string) {
	if w.auditLog == nil && w.index == nil {
		return
	}
	entry := AuditEntry{
		Tick:   w.tick,
		Action: action,
		Pos:    pos.ToArray(),
		From:   from,
		To:     to,
		Meta:   meta,
		Reason: reason,
	}
	if w.auditLog != nil {
		if err := w.auditLog.WriteAudit(entry); err != nil {
			w.logger.Printf("audit write: %v", err)
		}
	}
	if w.index != nil {
		_ = w.index.WriteAudit(entry)
	}
}

func (w *World) chunkEvent(event string, pos model.ChunkPos, pieces int) {
	if w.index == nil {
		return
	}
	w.index.RecordChunk(ChunkEvent{
		Tick:   w.tick,
		Event:  event,
		Chunk:  [3]int{pos.X, pos.Y, pos.Z},
		Pieces: pieces,
	})
}
