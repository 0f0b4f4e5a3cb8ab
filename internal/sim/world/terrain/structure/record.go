package structure

import (
	"fmt"

	"github.com/google/uuid"

	"voxelsim.ai/internal/sim/world/kernel/model"
	"voxelsim.ai/internal/sim/world/logic/mathx"
)

// Record is the persisted form of a Structure.
type Record struct {
	ID     string        `nbt:"ID"`
	CellX  int32         `nbt:"CellX"`
	CellZ  int32         `nbt:"CellZ"`
	Seed   int64         `nbt:"Seed"`
	Start  []int32       `nbt:"Start"`
	Facing int32         `nbt:"Facing"`
	Pieces []PieceRecord `nbt:"Pieces"`
}

type PieceRecord struct {
	Kind      int32   `nbt:"Kind"`
	Origin    []int32 `nbt:"Origin"`
	Facing    int32   `nbt:"Facing"`
	End       []int32 `nbt:"End"`
	HalfWidth int32   `nbt:"HalfWidth"`
	Depth     int32   `nbt:"Depth"`
	Height    int32   `nbt:"Height"`
}

func posRecord(p model.BlockPos) []int32 {
	return []int32{int32(p.X), int32(p.Y), int32(p.Z)}
}

func posFromRecord(v []int32) (model.BlockPos, error) {
	if len(v) != 3 {
		return model.BlockPos{}, fmt.Errorf("position has %d components", len(v))
	}
	return model.BlockPos{X: int(v[0]), Y: int(v[1]), Z: int(v[2])}, nil
}

func Export(s *Structure) Record {
	r := Record{
		ID:     s.ID.String(),
		CellX:  int32(s.CellX),
		CellZ:  int32(s.CellZ),
		Seed:   s.Seed,
		Start:  posRecord(s.Start),
		Facing: int32(s.Facing),
	}
	for _, p := range s.Pieces {
		r.Pieces = append(r.Pieces, PieceRecord{
			Kind:      int32(p.Kind),
			Origin:    posRecord(p.Origin),
			Facing:    int32(p.Facing),
			End:       posRecord(p.End),
			HalfWidth: int32(p.HalfWidth),
			Depth:     int32(p.Depth),
			Height:    int32(p.Height),
		})
	}
	return r
}

// Import rebuilds a structure; piece bounds are recomputed from geometry.
func Import(r Record) (*Structure, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("structure id: %w", err)
	}
	start, err := posFromRecord(r.Start)
	if err != nil {
		return nil, fmt.Errorf("structure %s start: %w", id, err)
	}
	s := &Structure{
		ID:     id,
		CellX:  int(r.CellX),
		CellZ:  int(r.CellZ),
		Seed:   r.Seed,
		Start:  start,
		Facing: model.Direction(r.Facing),
	}
	for i, pr := range r.Pieces {
		origin, err := posFromRecord(pr.Origin)
		if err != nil {
			return nil, fmt.Errorf("structure %s piece %d origin: %w", id, i, err)
		}
		end, err := posFromRecord(pr.End)
		if err != nil {
			return nil, fmt.Errorf("structure %s piece %d end: %w", id, i, err)
		}
		facing := model.Direction(pr.Facing)
		var p Piece
		switch PieceKind(pr.Kind) {
		case Hallway:
			units := (mathx.AbsInt(end.X-origin.X) + mathx.AbsInt(end.Z-origin.Z)) / hallwayUnit
			p = hallwayPiece(origin, facing, units)
		case Room:
			p = roomPiece(origin, facing, int(pr.HalfWidth), int(pr.Depth), int(pr.Height))
		case Junction:
			p = junctionPiece(origin, facing)
		case Shaft:
			p = shaftPiece(origin, facing)
		default:
			return nil, fmt.Errorf("structure %s piece %d: unknown kind %d", id, i, pr.Kind)
		}
		s.Pieces = append(s.Pieces, p)
	}
	s.Bounds = boundsOf(s.Pieces)
	return s, nil
}
