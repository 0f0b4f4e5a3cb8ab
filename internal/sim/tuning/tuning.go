package tuning

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"voxelsim.ai/internal/sim/world"
	"voxelsim.ai/internal/sim/world/terrain/gen"
	"voxelsim.ai/internal/sim/world/terrain/structure"
)

//go:embed tuning.schema.json
var schemaJSON []byte

const schemaURL = "tuning.schema.json"

type Tuning struct {
	World      WorldTuning     `yaml:"world"`
	Terrain    TerrainTuning   `yaml:"terrain"`
	Structures StructureTuning `yaml:"structures"`
	Loader     LoaderTuning    `yaml:"loader"`
	Explosion  ExplosionTuning `yaml:"explosion"`
}

type WorldTuning struct {
	Name       string  `yaml:"name"`
	Seed       int64   `yaml:"seed"`
	TickRateHz int     `yaml:"tick_rate_hz"`
	EntityStep float64 `yaml:"entity_step"`
}

type TerrainTuning struct {
	StoneBaseHeight        int     `yaml:"stone_base_height"`
	StoneBaseNoise         float64 `yaml:"stone_base_noise"`
	StoneBaseNoiseHeight   int     `yaml:"stone_base_noise_height"`
	StoneMountainHeight    int     `yaml:"stone_mountain_height"`
	StoneMountainFrequency float64 `yaml:"stone_mountain_frequency"`
	StoneMinHeight         int     `yaml:"stone_min_height"`
	DirtBaseHeight         int     `yaml:"dirt_base_height"`
	DirtNoise              float64 `yaml:"dirt_noise"`
	DirtNoiseHeight        int     `yaml:"dirt_noise_height"`
	CaveFrequency          float64 `yaml:"cave_frequency"`
	CaveSize               int     `yaml:"cave_size"`
	TreeFrequency          float64 `yaml:"tree_frequency"`
	TreeDensity            int     `yaml:"tree_density"`
	TrunkHeight            int     `yaml:"trunk_height"`
}

type StructureTuning struct {
	CellSize  int     `yaml:"cell_size"`
	Chance    float64 `yaml:"chance"`
	StartMinY int     `yaml:"start_min_y"`
	StartMaxY int     `yaml:"start_max_y"`
	SizeCap   int     `yaml:"size_cap"`
	MaxRadius int     `yaml:"max_radius"`
	MinY      int     `yaml:"min_y"`
	MaxY      int     `yaml:"max_y"`
}

type LoaderTuning struct {
	Distance      int `yaml:"distance"`
	MinChunkY     int `yaml:"min_chunk_y"`
	MaxChunkY     int `yaml:"max_chunk_y"`
	BuildsPerStep int `yaml:"builds_per_step"`
}

type ExplosionTuning struct {
	DropChance    float64 `yaml:"drop_chance"`
	DamagePerSize float64 `yaml:"damage_per_size"`
}

// Defaults mirrors world.DefaultConfig.
func Defaults() Tuning {
	t := Tuning{Explosion: ExplosionTuning{DropChance: -1}}
	t.applyDefaults()
	return t
}

func (t *Tuning) applyDefaults() {
	def := world.DefaultConfig(t.World.Seed)
	if t.World.Name == "" {
		t.World.Name = def.Name
	}
	if t.World.TickRateHz <= 0 {
		t.World.TickRateHz = def.TickRateHz
	}
	if t.Terrain == (TerrainTuning{}) {
		t.Terrain = terrainFrom(def.Terrain)
	}
	if t.Structures.CellSize <= 0 {
		s := def.Structures
		t.Structures = StructureTuning{
			CellSize:  s.CellSize,
			Chance:    s.Chance,
			StartMinY: s.StartMinY,
			StartMaxY: s.StartMaxY,
			SizeCap:   s.Grow.SizeCap,
			MaxRadius: s.Grow.MaxRadius,
			MinY:      s.Grow.MinY,
			MaxY:      s.Grow.MaxY,
		}
	}
	if t.Loader == (LoaderTuning{}) {
		l := def.Loader
		t.Loader = LoaderTuning{
			Distance:      l.Distance,
			MinChunkY:     l.MinChunkY,
			MaxChunkY:     l.MaxChunkY,
			BuildsPerStep: l.BuildsPerStep,
		}
	}
	if t.Explosion.DropChance < 0 {
		t.Explosion.DropChance = def.Explosion.DropChance
	}
	if t.Explosion.DamagePerSize <= 0 {
		t.Explosion.DamagePerSize = def.Explosion.DamagePerSize
	}
}

func terrainFrom(p gen.Params) TerrainTuning {
	return TerrainTuning{
		StoneBaseHeight:        p.StoneBaseHeight,
		StoneBaseNoise:         p.StoneBaseNoise,
		StoneBaseNoiseHeight:   p.StoneBaseNoiseHeight,
		StoneMountainHeight:    p.StoneMountainHeight,
		StoneMountainFrequency: p.StoneMountainFrequency,
		StoneMinHeight:         p.StoneMinHeight,
		DirtBaseHeight:         p.DirtBaseHeight,
		DirtNoise:              p.DirtNoise,
		DirtNoiseHeight:        p.DirtNoiseHeight,
		CaveFrequency:          p.CaveFrequency,
		CaveSize:               p.CaveSize,
		TreeFrequency:          p.TreeFrequency,
		TreeDensity:            p.TreeDensity,
		TrunkHeight:            p.TrunkHeight,
	}
}

// WorldConfig converts the tuning into a world configuration.
func (t Tuning) WorldConfig() world.Config {
	tt := t.Terrain
	s := t.Structures
	return world.Config{
		Name:       t.World.Name,
		Seed:       t.World.Seed,
		TickRateHz: t.World.TickRateHz,
		EntityStep: t.World.EntityStep,
		Terrain: gen.Params{
			StoneBaseHeight:        tt.StoneBaseHeight,
			StoneBaseNoise:         tt.StoneBaseNoise,
			StoneBaseNoiseHeight:   tt.StoneBaseNoiseHeight,
			StoneMountainHeight:    tt.StoneMountainHeight,
			StoneMountainFrequency: tt.StoneMountainFrequency,
			StoneMinHeight:         tt.StoneMinHeight,
			DirtBaseHeight:         tt.DirtBaseHeight,
			DirtNoise:              tt.DirtNoise,
			DirtNoiseHeight:        tt.DirtNoiseHeight,
			CaveFrequency:          tt.CaveFrequency,
			CaveSize:               tt.CaveSize,
			TreeFrequency:          tt.TreeFrequency,
			TreeDensity:            tt.TreeDensity,
			TrunkHeight:            tt.TrunkHeight,
		},
		Structures: structure.Settings{
			Seed:      t.World.Seed,
			CellSize:  s.CellSize,
			Chance:    s.Chance,
			StartMinY: s.StartMinY,
			StartMaxY: s.StartMaxY,
			Grow: structure.GrowConfig{
				SizeCap:   s.SizeCap,
				MaxRadius: s.MaxRadius,
				MinY:      s.MinY,
				MaxY:      s.MaxY,
			},
		},
		Loader: world.LoaderConfig{
			Distance:      t.Loader.Distance,
			MinChunkY:     t.Loader.MinChunkY,
			MaxChunkY:     t.Loader.MaxChunkY,
			BuildsPerStep: t.Loader.BuildsPerStep,
		},
		Explosion: world.ExplosionConfig{
			DropChance:    t.Explosion.DropChance,
			DamagePerSize: t.Explosion.DamagePerSize,
		},
	}
}

func compileSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
}

// Parse validates raw YAML against the tuning schema and decodes it over
// Defaults, so omitted keys keep their default value.
func Parse(raw []byte) (Tuning, error) {
	t := Defaults()
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return t, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	// round-trip through JSON so the validator sees JSON number and map types
	js, err := json.Marshal(doc)
	if err != nil {
		return t, err
	}
	var inst any
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	if err := dec.Decode(&inst); err != nil {
		return t, err
	}
	schema, err := compileSchema()
	if err != nil {
		return t, fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, err
	}
	t.applyDefaults()
	return t, nil
}

func Load(path string) (Tuning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, err
	}
	t, err := Parse(raw)
	if err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
