package main

import (
	"sort"

	"voxelsim.ai/internal/persistence/chunkdb"
	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/world"
	"voxelsim.ai/internal/sim/world/kernel/model"
)

type auditRec struct {
	Seq   int
	Entry world.AuditEntry
	// PrevMeta is the cell meta before Entry was applied.
	PrevMeta int
}

// selectRollback picks the SET_BLOCK entries inside the tick range and box,
// newest first.
func selectRollback(entries []world.AuditEntry, sinceTick, toTick uint64, min, max [3]int) []auditRec {
	lastMeta := map[[3]int]int{}
	var out []auditRec
	for i, e := range entries {
		if e.Action != "SET_BLOCK" {
			continue
		}
		prev := lastMeta[e.Pos]
		lastMeta[e.Pos] = e.Meta
		if e.Tick < sinceTick || e.Tick > toTick {
			continue
		}
		if !withinAABB(e.Pos, min, max) {
			continue
		}
		out = append(out, auditRec{Seq: i, Entry: e, PrevMeta: prev})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entry.Tick != out[j].Entry.Tick {
			return out[i].Entry.Tick > out[j].Entry.Tick
		}
		return out[i].Seq > out[j].Seq
	})
	return out
}

func withinAABB(pos [3]int, min, max [3]int) bool {
	return pos[0] >= min[0] && pos[0] <= max[0] &&
		pos[1] >= min[1] && pos[1] <= max[1] &&
		pos[2] >= min[2] && pos[2] <= max[2]
}

// applyRollback restores each record's previous block in the persisted
// chunks. Records in chunks that were never saved are skipped. Neighbor
// hooks are not fired so the restored blocks stay exactly as recorded.
func applyRollback(db *chunkdb.DB, seed int64, recs []auditRec) (applied, skipped int, err error) {
	persisted, err := db.Chunks()
	if err != nil {
		return 0, 0, err
	}
	saved := make(map[model.ChunkPos]bool, len(persisted))
	for _, p := range persisted {
		saved[p] = true
	}

	w := world.New(world.DefaultConfig(seed), world.Deps{Provider: db, Structures: db})
	for _, r := range recs {
		pos := model.BlockPos{X: r.Entry.Pos[0], Y: r.Entry.Pos[1], Z: r.Entry.Pos[2]}
		cp := pos.Chunk()
		if !saved[cp] {
			skipped++
			continue
		}
		if _, err := w.LoadChunk(cp); err != nil {
			return applied, skipped, err
		}
		w.Apply(pos, world.Mutation{
			SetKind:       true,
			Kind:          blocks.Kind(r.Entry.From),
			Meta:          r.PrevMeta,
			SkipNeighbors: true,
		})
		applied++
	}
	return applied, skipped, w.SaveAll()
}
