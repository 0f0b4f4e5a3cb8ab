package gen

import (
	"voxelsim.ai/internal/sim/blocks"
	"voxelsim.ai/internal/sim/world/kernel/model"
	"voxelsim.ai/internal/sim/world/terrain/store"
)

// Params are the terrain shaping constants.
type Params struct {
	StoneBaseHeight      int
	StoneBaseNoise       float64
	StoneBaseNoiseHeight int

	StoneMountainHeight    int
	StoneMountainFrequency float64
	StoneMinHeight         int

	DirtBaseHeight  int
	DirtNoise       float64
	DirtNoiseHeight int

	CaveFrequency float64
	CaveSize      int

	TreeFrequency float64
	TreeDensity   int
	TrunkHeight   int
}

func DefaultParams() Params {
	return Params{
		StoneBaseHeight:      24,
		StoneBaseNoise:       0.05,
		StoneBaseNoiseHeight: 4,

		StoneMountainHeight:    48,
		StoneMountainFrequency: 0.008,
		StoneMinHeight:         -12,

		DirtBaseHeight:  1,
		DirtNoise:       0.04,
		DirtNoiseHeight: 3,

		CaveFrequency: 0.025,
		CaveSize:      7,

		TreeFrequency: 0.2,
		TreeDensity:   3,
		TrunkHeight:   6,
	}
}

const (
	// noise ceiling for cave and tree rolls
	rollMax = 100
	// dirt noise is sampled on a separate plane from stone
	dirtPlaneY = 100

	canopyRadius = 2
	canopyBottom = 4
	canopyTop    = 8
)

// Terrain is the seed-deterministic base terrain generator.
type Terrain struct {
	noise *Noise
	p     Params
}

func New(seed int64, p Params) *Terrain {
	return &Terrain{noise: NewNoise(seed), p: p}
}

// Column holds the strata tops of one x/z column.
type Column struct {
	Stone int
	Dirt  int
}

func (t *Terrain) Column(x, z int) Column {
	p := t.p
	stone := p.StoneBaseHeight + t.noise.Get(x, 0, z, p.StoneMountainFrequency, p.StoneMountainHeight)
	if stone < p.StoneMinHeight {
		stone = p.StoneMinHeight
	}
	stone += t.noise.Get(x, 0, z, p.StoneBaseNoise, p.StoneBaseNoiseHeight)

	dirt := stone + p.DirtBaseHeight + t.noise.Get(x, dirtPlaneY, z, p.DirtNoise, p.DirtNoiseHeight)
	return Column{Stone: stone, Dirt: dirt}
}

// HeightAt is the y of the topmost terrain cell in the column, ignoring caves.
func (t *Terrain) HeightAt(x, z int) int {
	c := t.Column(x, z)
	if c.Dirt > c.Stone {
		return c.Dirt
	}
	return c.Stone
}

func (t *Terrain) isCave(x, y, z int) bool {
	return t.noise.Get(x, y, z, t.p.CaveFrequency, rollMax) <= t.p.CaveSize
}

// hasTree reports whether a tree grows on the column's surface dirt cell.
func (t *Terrain) hasTree(x, z int, col Column) bool {
	if col.Dirt <= col.Stone || t.isCave(x, col.Dirt, z) {
		return false
	}
	return t.noise.Get(x, 0, z, t.p.TreeFrequency, rollMax) < t.p.TreeDensity
}

// Generate fills c with strata, caves and trees. Only cells inside c are written.
func (t *Terrain) Generate(c *store.Chunk) {
	o := c.Pos.Origin()
	for z := o.Z; z < o.Z+store.Edge; z++ {
		for x := o.X; x < o.X+store.Edge; x++ {
			t.column(c, x, z)
		}
	}
	// Trees rooted in neighboring columns can reach into c.
	for z := o.Z - canopyRadius; z < o.Z+store.Edge+canopyRadius; z++ {
		for x := o.X - canopyRadius; x < o.X+store.Edge+canopyRadius; x++ {
			col := t.Column(x, z)
			root := col.Dirt + 1
			if root+canopyTop < o.Y || root >= o.Y+store.Edge {
				continue
			}
			if t.hasTree(x, z, col) {
				t.tree(c, model.BlockPos{X: x, Y: root, Z: z})
			}
		}
	}
}

func (t *Terrain) column(c *store.Chunk, x, z int) {
	col := t.Column(x, z)
	o := c.Pos.Origin()
	for y := o.Y; y < o.Y+store.Edge; y++ {
		p := model.BlockPos{X: x, Y: y, Z: z}
		switch {
		case y <= col.Stone:
			c.Set(p, blocks.Stone, 0)
		case y <= col.Dirt && !t.isCave(x, y, z):
			c.Set(p, blocks.Dirt, 0)
		}
	}
}

func (t *Terrain) tree(c *store.Chunk, root model.BlockPos) {
	for xi := -canopyRadius; xi <= canopyRadius; xi++ {
		for yi := canopyBottom; yi <= canopyTop; yi++ {
			for zi := -canopyRadius; zi <= canopyRadius; zi++ {
				setIfEmpty(c, root.Add(model.BlockPos{X: xi, Y: yi, Z: zi}), blocks.Leaves)
			}
		}
	}
	for yi := 0; yi < t.p.TrunkHeight; yi++ {
		c.Set(root.Up(yi), blocks.Wood, 0)
	}
}

func setIfEmpty(c *store.Chunk, p model.BlockPos, k blocks.Kind) {
	if c.Contains(p) && c.At(p) == blocks.Air {
		c.Set(p, k, 0)
	}
}
