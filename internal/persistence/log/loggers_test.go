package log

import (
	"testing"

	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/world"
	"voxelsim.ai/internal/sim/world/kernel/model"
)

func TestAuditSegmentsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	l.SegmentTicks = 10

	ticks := []uint64{1, 5, 12, 30, 31}
	for i, tick := range ticks {
		e := world.AuditEntry{Tick: tick, Action: "SET_BLOCK", Pos: [3]int{i, -i, 2}, From: 0, To: 1}
		if err := l.WriteAudit(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// reopening an existing segment appends a new frame
	l2 := NewAuditLogger(dir)
	l2.SegmentTicks = 10
	if err := l2.WriteAudit(world.AuditEntry{Tick: 35, Action: "SET_BLOCK"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l2.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadAudit(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := append(ticks, 35)
	if len(got) != len(want) {
		t.Fatalf("entries=%d want %d", len(got), len(want))
	}
	for i, e := range got {
		if e.Tick != want[i] {
			t.Fatalf("entry %d tick=%d want %d", i, e.Tick, want[i])
		}
	}
	if got[3].Pos != [3]int{3, -3, 2} {
		t.Fatalf("pos=%v", got[3].Pos)
	}
}

func TestWorldWritesAudit(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	w := world.New(world.DefaultConfig(1), world.Deps{AuditLog: l})
	sky := model.ChunkPos{Y: 10}
	if _, err := w.LoadChunk(sky); err != nil {
		t.Fatalf("load: %v", err)
	}
	p := sky.Origin().Up(3)
	w.SetBlock(p, blocks.Stone, world.KeepMeta)
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, err := ReadAudit(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].Pos != p.ToArray() || got[0].To != uint16(blocks.Stone) {
		t.Fatalf("audit=%+v", got)
	}
}
