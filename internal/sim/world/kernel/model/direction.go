package model

type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Direction is one of the six axis-aligned unit steps.
type Direction uint8

const (
	North Direction = iota // -Z
	East                   // +X
	South                  // +Z
	West                   // -X
	Up
	Down
)

var AllDirections = [6]Direction{North, East, South, West, Up, Down}

// Horizontal lists the four compass directions in clockwise order.
var Horizontal = [4]Direction{North, East, South, West}

func (d Direction) Vec() BlockPos {
	switch d {
	case North:
		return BlockPos{0, 0, -1}
	case East:
		return BlockPos{1, 0, 0}
	case South:
		return BlockPos{0, 0, 1}
	case West:
		return BlockPos{-1, 0, 0}
	case Up:
		return BlockPos{0, 1, 0}
	case Down:
		return BlockPos{0, -1, 0}
	}
	return BlockPos{}
}

func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Up:
		return Down
	case Down:
		return Up
	}
	return d
}

// Clockwise rotates around +Y when viewed from above. Up and Down map to themselves.
func (d Direction) Clockwise() Direction {
	if d > West {
		return d
	}
	return (d + 1) % 4
}

func (d Direction) CounterClockwise() Direction {
	if d > West {
		return d
	}
	return (d + 3) % 4
}

func (d Direction) Axis() Axis {
	switch d {
	case East, West:
		return AxisX
	case Up, Down:
		return AxisY
	}
	return AxisZ
}

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "unknown"
}

func ParseDirection(s string) (Direction, bool) {
	for _, d := range AllDirections {
		if d.String() == s {
			return d, true
		}
	}
	return 0, false
}
