package world

import (
	"voxelsim.ai/internal/sim/world/terrain/gen"
	"voxelsim.ai/internal/sim/world/terrain/structure"
)

type Config struct {
	Name       string
	Seed       int64
	TickRateHz int
	// StartTick resumes the tick counter from saved level data.
	StartTick uint64

	Terrain    gen.Params
	Structures structure.Settings
	Explosion  ExplosionConfig
	Loader     LoaderConfig

	// EntityStep is the entity integration step in seconds.
	EntityStep float64
}

type ExplosionConfig struct {
	// DropChance is the per-block drop probability for blocks broken by a blast.
	// Zero disables drops; a negative value selects the default.
	DropChance float64
	// DamagePerSize scales blast size into living entity damage.
	DamagePerSize float64
}

type LoaderConfig struct {
	// Distance is the horizontal load radius in chunks around the anchor.
	Distance int
	// MinChunkY and MaxChunkY bound the vertical chunk range kept loaded.
	MinChunkY, MaxChunkY int
	// BuildsPerStep caps chunk loads per Update call.
	BuildsPerStep int
}

const defaultDropChance = 0.75

func DefaultConfig(seed int64) Config {
	c := Config{Seed: seed, Explosion: ExplosionConfig{DropChance: defaultDropChance}}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "world"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if c.Terrain == (gen.Params{}) {
		c.Terrain = gen.DefaultParams()
	}
	if c.Structures.CellSize <= 0 {
		c.Structures = structure.DefaultSettings(c.Seed)
	}
	c.Structures.Seed = c.Seed
	if c.Explosion.DropChance < 0 {
		c.Explosion.DropChance = defaultDropChance
	}
	if c.Explosion.DropChance > 1 {
		c.Explosion.DropChance = 1
	}
	if c.Explosion.DamagePerSize <= 0 {
		c.Explosion.DamagePerSize = 4
	}
	if c.Loader == (LoaderConfig{}) {
		c.Loader = LoaderConfig{Distance: 3, MinChunkY: -4, MaxChunkY: 3, BuildsPerStep: 1}
	}
	if c.Loader.Distance <= 0 {
		c.Loader.Distance = 3
	}
	if c.Loader.MaxChunkY < c.Loader.MinChunkY {
		c.Loader.MinChunkY, c.Loader.MaxChunkY = c.Loader.MaxChunkY, c.Loader.MinChunkY
	}
	if c.Loader.BuildsPerStep <= 0 {
		c.Loader.BuildsPerStep = 1
	}
	if c.EntityStep <= 0 {
		c.EntityStep = 1 / float64(c.TickRateHz)
	}
}
