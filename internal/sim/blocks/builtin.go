package blocks

import (
	"fmt"

	"voxelsim.ai/internal/sim/world/kernel/model"
)

// Basic has no hooks and drops one of itself (or Drop when set).
type Basic struct {
	Kind Kind
	Drop Kind
}

func (Basic) OnPlace(Accessor, model.BlockPos, uint8)                            {}
func (Basic) OnDestroy(Accessor, model.BlockPos, uint8)                          {}
func (Basic) OnNeighborChange(Accessor, model.BlockPos, uint8, model.Direction) {}

func (b Basic) Drops(_ Accessor, _ model.BlockPos, _ uint8, _ *model.Tool) []model.ItemStack {
	k := b.Kind
	if b.Drop != Air {
		k = b.Drop
	}
	if k == Air {
		return nil
	}
	return []model.ItemStack{{Item: k.String(), Count: 1}}
}

func (b Basic) EmittedLight() uint8 { return b.Kind.Props().Light }

// Leafy drops nothing.
type Leafy struct{ Basic }

func (Leafy) Drops(Accessor, model.BlockPos, uint8, *model.Tool) []model.ItemStack { return nil }

// Attached blocks need a solid block underneath and pop off when it goes away.
type Attached struct {
	Kind Kind
}

func (a Attached) OnPlace(Accessor, model.BlockPos, uint8)   {}
func (a Attached) OnDestroy(Accessor, model.BlockPos, uint8) {}

func (a Attached) OnNeighborChange(w Accessor, pos model.BlockPos, _ uint8, from model.Direction) {
	if from != model.Down {
		return
	}
	below, _ := w.Block(pos.Offset(model.Down))
	if !below.Solid() {
		w.BreakBlock(pos, nil, 1)
	}
}

func (a Attached) Drops(w Accessor, pos model.BlockPos, meta uint8, tool *model.Tool) []model.ItemStack {
	return Basic{Kind: a.Kind}.Drops(w, pos, meta, tool)
}

func (a Attached) EmittedLight() uint8 { return a.Kind.Props().Light }

// FallDelay is the tick delay before an unsupported falling block moves.
const FallDelay = 2

// Falling blocks drop one cell per scheduled tick while the cell below is air.
type Falling struct {
	Kind Kind
}

func (f Falling) OnPlace(w Accessor, pos model.BlockPos, _ uint8) {
	w.ScheduleTick(pos, FallDelay)
}

func (f Falling) OnDestroy(Accessor, model.BlockPos, uint8) {}

func (f Falling) OnNeighborChange(w Accessor, pos model.BlockPos, _ uint8, from model.Direction) {
	if from == model.Down {
		w.ScheduleTick(pos, FallDelay)
	}
}

func (f Falling) OnScheduledTick(w Accessor, pos model.BlockPos) {
	if k, _ := w.Block(pos); k != f.Kind {
		return
	}
	below := pos.Offset(model.Down)
	if !w.Loaded(below) {
		return
	}
	if k, _ := w.Block(below); k != Air {
		return
	}
	w.SetBlock(pos, Air, -1)
	w.SetBlock(below, f.Kind, 0)
}

func (f Falling) Drops(w Accessor, pos model.BlockPos, meta uint8, tool *model.Tool) []model.ItemStack {
	return Basic{Kind: f.Kind}.Drops(w, pos, meta, tool)
}

func (f Falling) EmittedLight() uint8 { return 0 }

// Charge is an explosive block.
type Charge struct {
	Basic
}

func (c Charge) ExplosionSize() float64 { return c.Kind.Props().Explosion }

// Container owns a TileEntity inventory and drops its contents with itself.
type Container struct {
	Kind Kind
}

func (c Container) NewTileEntity(pos model.BlockPos) *TileEntity {
	return NewTileEntity(pos, c.Kind)
}

func (c Container) OnPlace(w Accessor, pos model.BlockPos, _ uint8) {
	if err := w.AddTileEntity(c.NewTileEntity(pos)); err != nil {
		panic(fmt.Errorf("place %s at %v: %w", c.Kind, pos, err))
	}
}

func (c Container) OnDestroy(w Accessor, pos model.BlockPos, _ uint8) {
	if te, ok := w.RemoveTileEntity(pos); ok {
		te.Release()
	}
}

func (Container) OnNeighborChange(Accessor, model.BlockPos, uint8, model.Direction) {}

func (c Container) Drops(w Accessor, pos model.BlockPos, _ uint8, _ *model.Tool) []model.ItemStack {
	out := []model.ItemStack{{Item: c.Kind.String(), Count: 1}}
	if te, ok := w.TileEntity(pos); ok {
		out = append(out, te.Items.Stacks()...)
	}
	return out
}

func (Container) EmittedLight() uint8 { return 0 }
