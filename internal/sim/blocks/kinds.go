package blocks

import "fmt"

// Kind identifies a block type. The set is closed; Air is the zero value.
type Kind uint16

const (
	Air Kind = iota
	Stone
	Dirt
	Grass
	Leaves
	Wood
	Planks
	Rail
	Torch
	Ladder
	Gravel
	Sand
	TNT
	Chest
	Lantern

	kindCount
)

// MaxLight is the brightest light level a cell can hold.
const MaxLight = 15

// Props is the static part of a block kind.
type Props struct {
	Name  string
	Solid bool
	// Light is the level the block emits, 0..MaxLight.
	Light uint8
	// Explosion is the blast size when the block detonates; 0 means inert.
	Explosion float64
	// TileEntity marks kinds that keep state in a TileEntity record.
	TileEntity bool
}

var props = [kindCount]Props{
	Air:     {Name: "air"},
	Stone:   {Name: "stone", Solid: true},
	Dirt:    {Name: "dirt", Solid: true},
	Grass:   {Name: "grass", Solid: true},
	Leaves:  {Name: "leaves", Solid: true},
	Wood:    {Name: "wood", Solid: true},
	Planks:  {Name: "planks", Solid: true},
	Rail:    {Name: "rail"},
	Torch:   {Name: "torch", Light: 14},
	Ladder:  {Name: "ladder"},
	Gravel:  {Name: "gravel", Solid: true},
	Sand:    {Name: "sand", Solid: true},
	TNT:     {Name: "tnt", Solid: true, Explosion: 4},
	Chest:   {Name: "chest", Solid: true, TileEntity: true},
	Lantern: {Name: "lantern", Light: 15},
}

var byName = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		m[props[k].Name] = k
	}
	return m
}()

func (k Kind) Valid() bool { return k < kindCount }

func (k Kind) Props() Props {
	if !k.Valid() {
		return Props{}
	}
	return props[k]
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint16(k))
	}
	return props[k].Name
}

func (k Kind) Solid() bool { return k.Props().Solid }

func ParseKind(name string) (Kind, bool) {
	k, ok := byName[name]
	return k, ok
}

// Kinds returns every kind in id order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}
