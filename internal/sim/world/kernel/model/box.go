package model

// Box is an inclusive integer AABB.
type Box struct {
	Min BlockPos
	Max BlockPos
}

// BoxOf normalizes two corners into a Box.
func BoxOf(a, b BlockPos) Box {
	return Box{
		Min: BlockPos{min(a.X, b.X), min(a.Y, b.Y), min(a.Z, b.Z)},
		Max: BlockPos{max(a.X, b.X), max(a.Y, b.Y), max(a.Z, b.Z)},
	}
}

// Intersects reports whether the boxes share at least one cell. Touching faces count.
func (b Box) Intersects(o Box) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

func (b Box) Contains(p BlockPos) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

func (b Box) Union(o Box) Box {
	return Box{
		Min: BlockPos{min(b.Min.X, o.Min.X), min(b.Min.Y, o.Min.Y), min(b.Min.Z, o.Min.Z)},
		Max: BlockPos{max(b.Max.X, o.Max.X), max(b.Max.Y, o.Max.Y), max(b.Max.Z, o.Max.Z)},
	}
}

// Clip returns the overlap of b and o; ok is false when they are disjoint.
func (b Box) Clip(o Box) (Box, bool) {
	if !b.Intersects(o) {
		return Box{}, false
	}
	return Box{
		Min: BlockPos{max(b.Min.X, o.Min.X), max(b.Min.Y, o.Min.Y), max(b.Min.Z, o.Min.Z)},
		Max: BlockPos{min(b.Max.X, o.Max.X), min(b.Max.Y, o.Max.Y), min(b.Max.Z, o.Max.Z)},
	}, true
}

// Grow expands the box by n cells on every side.
func (b Box) Grow(n int) Box {
	return Box{
		Min: BlockPos{b.Min.X - n, b.Min.Y - n, b.Min.Z - n},
		Max: BlockPos{b.Max.X + n, b.Max.Y + n, b.Max.Z + n},
	}
}

func (b Box) Volume() int {
	return (b.Max.X - b.Min.X + 1) * (b.Max.Y - b.Min.Y + 1) * (b.Max.Z - b.Min.Z + 1)
}
