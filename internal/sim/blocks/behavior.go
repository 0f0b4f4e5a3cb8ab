package blocks

import (
	"voxelsim.ai/internal/sim/world/kernel/model"
)

// Accessor is the world surface block hooks may act on.
type Accessor interface {
	Block(pos model.BlockPos) (Kind, uint8)
	Loaded(pos model.BlockPos) bool
	SetBlock(pos model.BlockPos, k Kind, meta int)
	BreakBlock(pos model.BlockPos, tool *model.Tool, dropChance float64)
	ScheduleTick(pos model.BlockPos, delay int)

	AddTileEntity(te *TileEntity) error
	RemoveTileEntity(pos model.BlockPos) (*TileEntity, bool)
	TileEntity(pos model.BlockPos) (*TileEntity, bool)
}

// Behavior is the per-kind hook set driven by world mutations.
type Behavior interface {
	OnPlace(w Accessor, pos model.BlockPos, meta uint8)
	OnDestroy(w Accessor, pos model.BlockPos, meta uint8)
	// OnNeighborChange is called on a block after the cell next to it changed;
	// from points from the receiving block towards the changed cell.
	OnNeighborChange(w Accessor, pos model.BlockPos, meta uint8, from model.Direction)
	Drops(w Accessor, pos model.BlockPos, meta uint8, tool *model.Tool) []model.ItemStack
	EmittedLight() uint8
}

// Explosive blocks detonate instead of dropping when caught in a blast.
type Explosive interface {
	ExplosionSize() float64
}

// Ticker receives scheduled ticks queued with Accessor.ScheduleTick.
type Ticker interface {
	OnScheduledTick(w Accessor, pos model.BlockPos)
}

// TileEntityBacked blocks own a TileEntity while placed.
type TileEntityBacked interface {
	NewTileEntity(pos model.BlockPos) *TileEntity
}
