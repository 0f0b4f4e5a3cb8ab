package structure

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"voxelsim.ai/internal/sim/world/kernel/model"
	"voxelsim.ai/internal/sim/world/logic/mathx"
	"voxelsim.ai/internal/sim/world/terrain/store"
)

// idSpace namespaces structure ids derived from (seed, cell).
var idSpace = uuid.MustParse("5d1b8f0e-3c61-4b8e-9a5c-2f7d0c4e9b11")

const (
	saltStart  = 0x5157
	saltFacing = 0xfac1
	saltSeed   = 0x5eed
)

type Settings struct {
	Seed int64
	// CellSize is the edge of the square x/z grid cell that holds at most one structure.
	CellSize int
	// Chance is the probability a cell holds a structure.
	Chance float64
	// Start rooms are placed with StartMinY <= y <= StartMaxY.
	StartMinY, StartMaxY int

	Grow GrowConfig
}

func DefaultSettings(seed int64) Settings {
	return Settings{
		Seed:      seed,
		CellSize:  128,
		Chance:    0.35,
		StartMinY: -40,
		StartMaxY: 8,
		Grow:      DefaultGrowConfig(),
	}
}

// Structure is one grown mineshaft.
type Structure struct {
	ID           uuid.UUID
	CellX, CellZ int
	Seed         int64
	Start        model.BlockPos
	Facing       model.Direction
	Pieces       []Piece
	Bounds       model.Box
}

// PieceRand returns the carving stream of piece i.
func (s *Structure) PieceRand(i int) *rand.Rand {
	return rand.New(rand.NewSource(mathx.DeriveSeed(s.Seed, uint64(i)+1)))
}

// Store persists grown structures so they are not regrown after a restart.
type Store interface {
	LoadStructure(id uuid.UUID) (*Structure, bool, error)
	StoreStructure(s *Structure) error
}

type cellKey struct{ X, Z int }

// Placer decides which grid cells hold a structure and grows them on demand.
type Placer struct {
	cfg   Settings
	store Store
	cells map[cellKey]*Structure

	// OnGrow is called once for every structure grown (not loaded) by this placer.
	OnGrow func(s *Structure)
}

func NewPlacer(cfg Settings, st Store) *Placer {
	if cfg.CellSize <= 0 {
		cfg.CellSize = DefaultSettings(cfg.Seed).CellSize
	}
	if cfg.StartMaxY < cfg.StartMinY {
		cfg.StartMinY, cfg.StartMaxY = cfg.StartMaxY, cfg.StartMinY
	}
	return &Placer{cfg: cfg, store: st, cells: map[cellKey]*Structure{}}
}

func (p *Placer) Settings() Settings { return p.cfg }

func CellID(seed int64, cx, cz int) uuid.UUID {
	return uuid.NewSHA1(idSpace, []byte(fmt.Sprintf("%d/%d/%d", seed, cx, cz)))
}

// At returns the structure of cell (cx, cz), or nil when the cell is empty.
func (p *Placer) At(cx, cz int) (*Structure, error) {
	key := cellKey{cx, cz}
	if s, ok := p.cells[key]; ok {
		return s, nil
	}
	h := mathx.Hash2(p.cfg.Seed, cx, cz)
	if mathx.Chance(h) >= p.cfg.Chance {
		p.cells[key] = nil
		return nil, nil
	}

	id := CellID(p.cfg.Seed, cx, cz)
	if p.store != nil {
		s, ok, err := p.store.LoadStructure(id)
		if err != nil {
			return nil, fmt.Errorf("load structure %s: %w", id, err)
		}
		if ok {
			p.cells[key] = s
			return s, nil
		}
	}

	s := p.grow(id, cx, cz, h)
	if p.store != nil {
		if err := p.store.StoreStructure(s); err != nil {
			return nil, fmt.Errorf("store structure %s: %w", id, err)
		}
	}
	p.cells[key] = s
	if p.OnGrow != nil {
		p.OnGrow(s)
	}
	return s, nil
}

func (p *Placer) grow(id uuid.UUID, cx, cz int, h uint64) *Structure {
	cell := p.cfg.CellSize
	sx := mathx.Hash2(mathx.DeriveSeed(p.cfg.Seed, saltStart), cx, cz)
	span := p.cfg.StartMaxY - p.cfg.StartMinY + 1
	start := model.BlockPos{
		X: cx*cell + int(sx%uint64(cell)),
		Y: p.cfg.StartMinY + int((sx>>20)%uint64(span)),
		Z: cz*cell + int((sx>>40)%uint64(cell)),
	}
	facing := model.Horizontal[mathx.Hash2(mathx.DeriveSeed(p.cfg.Seed, saltFacing), cx, cz)%4]
	seed := mathx.DeriveSeed(p.cfg.Seed^int64(h), saltSeed)

	s := &Structure{
		ID:     id,
		CellX:  cx,
		CellZ:  cz,
		Seed:   seed,
		Start:  start,
		Facing: facing,
	}
	s.Pieces = Grow(start, facing, rand.New(rand.NewSource(seed)), p.cfg.Grow)
	s.Bounds = boundsOf(s.Pieces)
	return s
}

func boundsOf(pieces []Piece) model.Box {
	if len(pieces) == 0 {
		return model.Box{}
	}
	b := pieces[0].Bounds
	for _, pc := range pieces[1:] {
		b = b.Union(pc.Bounds)
	}
	return b
}

// reach is how far a structure can extend from its start on x and z.
func (p *Placer) reach() int {
	if p.cfg.Grow.MaxRadius > 0 {
		return p.cfg.Grow.MaxRadius
	}
	// without a radius limit fall back to the neighboring cells
	return p.cfg.CellSize
}

// Overlapping returns the structures whose bounds reach into chunk c, ordered by cell.
func (p *Placer) Overlapping(c model.ChunkPos) ([]*Structure, error) {
	b := c.Bounds()
	r := p.reach()
	cell := p.cfg.CellSize
	x0, x1 := mathx.FloorDiv(b.Min.X-r, cell), mathx.FloorDiv(b.Max.X+r, cell)
	z0, z1 := mathx.FloorDiv(b.Min.Z-r, cell), mathx.FloorDiv(b.Max.Z+r, cell)

	var out []*Structure
	for cz := z0; cz <= z1; cz++ {
		for cx := x0; cx <= x1; cx++ {
			s, err := p.At(cx, cz)
			if err != nil {
				return nil, err
			}
			if s == nil || len(s.Pieces) == 0 || !s.Bounds.Intersects(b) {
				continue
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// Carve cuts every structure piece overlapping c into it and returns how many
// pieces touched the chunk.
func (p *Placer) Carve(c *store.Chunk) (int, error) {
	structs, err := p.Overlapping(c.Pos)
	if err != nil {
		return 0, err
	}
	b := c.Pos.Bounds()
	n := 0
	for _, s := range structs {
		for i, pc := range s.Pieces {
			if !pc.Bounds.Intersects(b) {
				continue
			}
			pc.Carve(c, s.PieceRand(i))
			n++
		}
	}
	return n, nil
}
