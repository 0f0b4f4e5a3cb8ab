package blocks

import "voxelsim.ai/internal/sim/world/kernel/model"

// Visual is an external presentation handle attached to a tile entity
// (a scene object, a mesh, a network view). It is released when the
// owning chunk is unloaded or the tile entity is destroyed.
type Visual interface {
	Release()
}

type TileEntity struct {
	Pos   model.BlockPos
	Kind  Kind
	Items model.Inventory

	Visual Visual
}

func NewTileEntity(pos model.BlockPos, k Kind) *TileEntity {
	return &TileEntity{Pos: pos, Kind: k, Items: model.Inventory{}}
}

// Release drops the visual handle, if any.
func (te *TileEntity) Release() {
	if te == nil || te.Visual == nil {
		return
	}
	te.Visual.Release()
	te.Visual = nil
}
